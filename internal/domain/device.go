package domain

import (
	"image"
	"image/color"
)

// Serial identifies exactly one device known to the device bridge
// (e.g. "emulator-5554" or "127.0.0.1:5555").
type Serial string

// Tile is a board-local coordinate. Row 1 is the bottom-most playable row
// and rows increase toward the top of the screen.
type Tile struct {
	Col int `json:"col" yaml:"col"`
	Row int `json:"row" yaml:"row"`
}

// Point is a pixel coordinate in the source image's coordinate space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// TowerState carries the caller's view of which princess towers still stand.
// It is match state supplied per query and never retained by the core.
type TowerState struct {
	LeftAlive  bool `json:"left_alive" yaml:"left_alive"`
	RightAlive bool `json:"right_alive" yaml:"right_alive"`
}

// BothTowersAlive is the tower state at the start of a match.
var BothTowersAlive = TowerState{LeftAlive: true, RightAlive: true}

// FrameChannels is the number of bytes per pixel in Frame.Pix.
const FrameChannels = 3

// Frame is a decoded screen capture. Pix holds Height rows of Width pixels,
// three bytes per pixel in blue, green, red order.
//
// Frame implements image.Image so it can be handed to image/png and friends.
type Frame struct {
	Width  int
	Height int
	Pix    []byte
}

// NewFrame allocates a zeroed frame of the given size.
func NewFrame(width, height int) *Frame {
	return &Frame{
		Width:  width,
		Height: height,
		Pix:    make([]byte, width*height*FrameChannels),
	}
}

// PixOffset returns the index of the blue byte of pixel (x, y).
func (f *Frame) PixOffset(x, y int) int {
	return (y*f.Width + x) * FrameChannels
}

// BGR returns the raw channel values of pixel (x, y).
func (f *Frame) BGR(x, y int) (b, g, r uint8) {
	i := f.PixOffset(x, y)
	return f.Pix[i], f.Pix[i+1], f.Pix[i+2]
}

// ColorModel implements image.Image.
func (f *Frame) ColorModel() color.Model { return color.RGBAModel }

// Bounds implements image.Image.
func (f *Frame) Bounds() image.Rectangle { return image.Rect(0, 0, f.Width, f.Height) }

// At implements image.Image. Pixels are opaque; alpha is not kept.
func (f *Frame) At(x, y int) color.Color {
	if x < 0 || y < 0 || x >= f.Width || y >= f.Height {
		return color.RGBA{}
	}
	b, g, r := f.BGR(x, y)
	return color.RGBA{R: r, G: g, B: b, A: 0xff}
}
