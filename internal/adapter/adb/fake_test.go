package adb

import (
	"context"
	"encoding/binary"
	"errors"
	"sync"
	"time"

	"towerbot/internal/domain"
)

type fakeShell struct {
	mu         sync.Mutex
	lines      []string
	writeErr   error
	exited     bool
	inputShut  bool
	terminated bool
}

func (s *fakeShell) WriteLine(line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return s.writeErr
	}
	s.lines = append(s.lines, line)
	return nil
}

func (s *fakeShell) Exited() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exited
}

func (s *fakeShell) CloseInput() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inputShut = true
	return nil
}

func (s *fakeShell) Terminate() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.terminated = true
	s.exited = true
	return nil
}

func (s *fakeShell) Lines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.lines...)
}

// fakeLauncher records every bridge invocation.
type fakeLauncher struct {
	mu       sync.Mutex
	runs     [][]string
	spawns   [][]string
	shells   []*fakeShell
	runFunc  func(ctx context.Context, args []string) ([]byte, error)
	spawnErr error
}

func (l *fakeLauncher) Run(ctx context.Context, args ...string) ([]byte, error) {
	l.mu.Lock()
	l.runs = append(l.runs, args)
	fn := l.runFunc
	l.mu.Unlock()
	if fn == nil {
		return nil, nil
	}
	return fn(ctx, args)
}

func (l *fakeLauncher) Spawn(args ...string) (Shell, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.spawns = append(l.spawns, args)
	if l.spawnErr != nil {
		return nil, l.spawnErr
	}
	s := &fakeShell{}
	l.shells = append(l.shells, s)
	return s, nil
}

func (l *fakeLauncher) lastShell() *fakeShell {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.shells) == 0 {
		return nil
	}
	return l.shells[len(l.shells)-1]
}

// sleepRecorder replaces real settle delays.
type sleepRecorder struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (r *sleepRecorder) Sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.waits = append(r.waits, d)
	r.mu.Unlock()
	return ctx.Err()
}

func (r *sleepRecorder) Waits() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.waits...)
}

// recordingBus is a synchronous domain.EventBus.
type recordingBus struct {
	mu     sync.Mutex
	events []domain.Event
}

func (b *recordingBus) Publish(_ context.Context, e domain.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
}

func (b *recordingBus) Subscribe(domain.EventType, domain.EventHandler) func() { return func() {} }
func (b *recordingBus) SubscribeAll(domain.EventHandler) func() { return func() {} }
func (b *recordingBus) Close()                                 {}

func (b *recordingBus) Types() []domain.EventType {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]domain.EventType, len(b.events))
	for i, e := range b.events {
		out[i] = e.Type
	}
	return out
}

var errDevice = errors.New("device offline")

// rawFrame builds a screencap payload with the given RGBA pixels.
func rawFrame(w, h uint32, rgba ...byte) []byte {
	raw := make([]byte, rawHeaderSize, rawHeaderSize+len(rgba))
	binary.LittleEndian.PutUint32(raw[0:4], w)
	binary.LittleEndian.PutUint32(raw[4:8], h)
	binary.LittleEndian.PutUint32(raw[8:12], 1)
	return append(raw, rgba...)
}
