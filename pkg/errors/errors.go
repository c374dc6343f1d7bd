package errors

import (
	"fmt"
	"time"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeAdmission represents track admission errors
	ErrorTypeAdmission ErrorType = "admission"
	// ErrorTypeOgg represents Ogg framing errors
	ErrorTypeOgg ErrorType = "ogg"
	// ErrorTypeIcecast represents Icecast connection/write errors
	ErrorTypeIcecast ErrorType = "icecast"
	// ErrorTypeRPC represents RPC framing/dispatch errors
	ErrorTypeRPC ErrorType = "rpc"
	// ErrorTypeBus represents message-bus transport errors
	ErrorTypeBus ErrorType = "bus"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
)

// BaseError is the base error type with common fields
type BaseError struct {
	Type      ErrorType
	Message   string
	Timestamp time.Time
	Err       error // Wrapped error
}

// Error implements the error interface
func (e *BaseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error for error unwrapping
func (e *BaseError) Unwrap() error {
	return e.Err
}

// NewBaseError creates a new base error
func NewBaseError(errType ErrorType, message string, err error) *BaseError {
	return &BaseError{
		Type:      errType,
		Message:   message,
		Timestamp: time.Now(),
		Err:       err,
	}
}

// Admission Errors

// AdmissionCode is the stable numeric code reported over the RPC and bus
// transports for a rejected track.
type AdmissionCode uint32

const (
	// CodeInvalidTrack covers every structural defect in the submitted bytes
	CodeInvalidTrack AdmissionCode = 1
	// CodeBadSampleRate is returned when the identification header disagrees
	// with the engine's configured sample rate
	CodeBadSampleRate AdmissionCode = 2
	// CodeQueueFull is returned when the play queue is at capacity
	CodeQueueFull AdmissionCode = 3
)

// ErrAdmission is returned when a submitted track is rejected
type ErrAdmission struct {
	*BaseError
	Code AdmissionCode
}

func NewAdmission(code AdmissionCode, message string, err error) *ErrAdmission {
	return &ErrAdmission{
		BaseError: NewBaseError(ErrorTypeAdmission, message, err),
		Code:      code,
	}
}

// NewInvalidTrack reports a structurally invalid track
func NewInvalidTrack(reason string, err error) *ErrAdmission {
	return NewAdmission(CodeInvalidTrack, fmt.Sprintf("invalid track: %s", reason), err)
}

// NewBadSampleRate reports a sample rate mismatch
func NewBadSampleRate(want, got uint32) *ErrAdmission {
	return NewAdmission(CodeBadSampleRate,
		fmt.Sprintf("bad sample rate: want %d, track has %d", want, got), nil)
}

// NewQueueFull reports a full play queue
func NewQueueFull(capacity int) *ErrAdmission {
	return NewAdmission(CodeQueueFull, fmt.Sprintf("queue is full (capacity %d)", capacity), nil)
}

// Ogg Errors

// ErrOggFraming is returned when page framing cannot be parsed or a CRC fails
type ErrOggFraming struct {
	*BaseError
	Offset int64
}

func NewOggFraming(offset int64, reason string) *ErrOggFraming {
	return &ErrOggFraming{
		BaseError: NewBaseError(ErrorTypeOgg, fmt.Sprintf("bad page at offset %d: %s", offset, reason), nil),
		Offset:    offset,
	}
}

// ErrOggPageBuild is returned when a page cannot be assembled from packets
type ErrOggPageBuild struct {
	*BaseError
}

func NewOggPageBuild(reason string) *ErrOggPageBuild {
	return &ErrOggPageBuild{
		BaseError: NewBaseError(ErrorTypeOgg, fmt.Sprintf("page build failed: %s", reason), nil),
	}
}

// Icecast Errors

// ErrIcecastConnect is returned when the source connection cannot be established
type ErrIcecastConnect struct {
	*BaseError
	Host string
}

func NewIcecastConnect(host string, err error) *ErrIcecastConnect {
	return &ErrIcecastConnect{
		BaseError: NewBaseError(ErrorTypeIcecast, fmt.Sprintf("failed to connect to %s", host), err),
		Host:      host,
	}
}

// ErrIcecastWrite is returned when a page write fails or times out
type ErrIcecastWrite struct {
	*BaseError
}

func NewIcecastWrite(err error) *ErrIcecastWrite {
	return &ErrIcecastWrite{
		BaseError: NewBaseError(ErrorTypeIcecast, "page write failed", err),
	}
}

// RPC Errors

// ErrRPCFraming is returned when a client sends an unparseable frame
type ErrRPCFraming struct {
	*BaseError
	Reason string
}

func NewRPCFraming(reason string) *ErrRPCFraming {
	return &ErrRPCFraming{
		BaseError: NewBaseError(ErrorTypeRPC, fmt.Sprintf("bad frame: %s", reason), nil),
		Reason:    reason,
	}
}

// Config Errors

// ErrConfigMissingRequired is returned when a required config value is missing
type ErrConfigMissingRequired struct {
	*BaseError
	Field string
}

func NewConfigMissingRequired(field string) *ErrConfigMissingRequired {
	return &ErrConfigMissingRequired{
		BaseError: NewBaseError(ErrorTypeConfig, fmt.Sprintf("missing required config: %s", field), nil),
		Field:     field,
	}
}

// Helper functions

// IsErrorType checks if an error is of a specific type
func IsErrorType(err error, errType ErrorType) bool {
	if baseErr, ok := err.(*BaseError); ok {
		return baseErr.Type == errType
	}
	if wrapped, ok := err.(interface{ Unwrap() error }); ok {
		inner := wrapped.Unwrap()
		if inner != nil {
			return IsErrorType(inner, errType)
		}
	}
	return false
}

// AdmissionCodeOf extracts the admission code from an error, if it carries one
func AdmissionCodeOf(err error) (AdmissionCode, bool) {
	for err != nil {
		if adm, ok := err.(*ErrAdmission); ok {
			return adm.Code, true
		}
		wrapped, ok := err.(interface{ Unwrap() error })
		if !ok {
			return 0, false
		}
		err = wrapped.Unwrap()
	}
	return 0, false
}
