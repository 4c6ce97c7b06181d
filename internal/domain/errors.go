package domain

import (
	"errors"
	"fmt"
)

// Device taxonomy sentinels. Every failure surfaced by the device channel,
// capture path or board helpers wraps exactly one of these.
var (
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrChannelClosed   = fmt.Errorf("device channel closed")
	ErrChannelBroken   = fmt.Errorf("device channel broken")
	ErrCaptureFailed   = fmt.Errorf("screen capture failed")
	ErrProtocol        = fmt.Errorf("raw frame protocol error")
)

// ErrConfigLoad is returned when configuration cannot be read or validated.
var ErrConfigLoad = fmt.Errorf("failed to load configuration")

// Subsystem tags used with NewSubSystemError.
const (
	SubSystemChannel = "channel"
	SubSystemCapture = "capture"
	SubSystemBoard   = "board"
	SubSystemGame    = "game"
	SubSystemPilot   = "pilot"
)

// DomainError wraps a sentinel error with context.
type DomainError struct {
	Op        string // operation name (e.g., "Channel.Tap")
	Err       error  // underlying sentinel or wrapped error
	Detail    string // human-readable detail
	SubSystem string // subsystem identifier (e.g., "channel", "capture"); used for ErrorCode dispatch
}

func (e *DomainError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *DomainError) Unwrap() error { return e.Err }

// NewDomainError creates a new DomainError.
func NewDomainError(op string, err error, detail string) *DomainError {
	return &DomainError{Op: op, Err: err, Detail: detail}
}

// NewSubSystemError creates a DomainError tagged with a subsystem for ErrorCode dispatch.
func NewSubSystemError(subsystem, op string, err error, detail string) *DomainError {
	return &DomainError{Op: op, Err: err, Detail: detail, SubSystem: subsystem}
}

// WrapOp adds operation context to an error using fmt.Errorf wrapping.
// Returns nil if err is nil, enabling idiomatic use: return domain.WrapOp("op", err)
func WrapOp(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// IsDeviceError reports whether err belongs to the device taxonomy. Such errors
// must abort the current high-level action; none of them is ever retried.
func IsDeviceError(err error) bool {
	return errors.Is(err, ErrInvalidArgument) ||
		errors.Is(err, ErrChannelClosed) ||
		errors.Is(err, ErrChannelBroken) ||
		errors.Is(err, ErrCaptureFailed) ||
		errors.Is(err, ErrProtocol)
}

// ErrorCode is a machine-parseable error category for logs and exit reporting.
type ErrorCode string

const (
	CodeUnknown         ErrorCode = "UNKNOWN"
	CodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	CodeChannelClosed   ErrorCode = "CHANNEL_CLOSED"
	CodeChannelBroken   ErrorCode = "CHANNEL_BROKEN"
	CodeCaptureFailed   ErrorCode = "CAPTURE_FAILED"
	CodeProtocol        ErrorCode = "PROTOCOL_ERROR"
	CodeConfigLoad      ErrorCode = "CONFIG_LOAD"

	// Subsystem-specific codes.
	CodeTapOutOfRange    ErrorCode = "TAP_OUT_OF_RANGE"
	CodeTileNotPlaceable ErrorCode = "TILE_NOT_PLACEABLE"
	CodeCardOutOfRange   ErrorCode = "CARD_OUT_OF_RANGE"
)

var errorCodeMap = map[error]ErrorCode{
	ErrInvalidArgument: CodeInvalidArgument,
	ErrChannelClosed:   CodeChannelClosed,
	ErrChannelBroken:   CodeChannelBroken,
	ErrCaptureFailed:   CodeCaptureFailed,
	ErrProtocol:        CodeProtocol,
	ErrConfigLoad:      CodeConfigLoad,
}

// subSystemCodeMap maps (sentinel, subsystem) pairs to more specific codes.
var subSystemCodeMap = map[error]map[string]ErrorCode{
	ErrInvalidArgument: {
		SubSystemChannel: CodeTapOutOfRange,
		SubSystemBoard:   CodeTileNotPlaceable,
		SubSystemGame:    CodeCardOutOfRange,
	},
}

// ErrorCodeOf returns the machine-parseable error code for the given error.
// It unwraps DomainError and uses errors.Is to match sentinel errors.
// Returns CodeUnknown if no matching sentinel is found.
func ErrorCodeOf(err error) ErrorCode {
	if err == nil {
		return CodeUnknown
	}

	if code, ok := errorCodeMap[err]; ok {
		return code
	}

	var de *DomainError
	if errors.As(err, &de) {
		if code := de.Code(); code != CodeUnknown {
			return code
		}
	}

	for sentinel, code := range errorCodeMap {
		if errors.Is(err, sentinel) {
			return code
		}
	}

	return CodeUnknown
}

// Code returns the ErrorCode for this DomainError's underlying sentinel.
// If SubSystem is set, checks the subSystemCodeMap for a specific code.
func (e *DomainError) Code() ErrorCode {
	if e.SubSystem != "" {
		if subsysMap, ok := subSystemCodeMap[e.Err]; ok {
			if code, ok := subsysMap[e.SubSystem]; ok {
				return code
			}
		}
	}
	if code, ok := errorCodeMap[e.Err]; ok {
		return code
	}
	return CodeUnknown
}
