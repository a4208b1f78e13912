package media

import (
	"errors"
	"fmt"
)

// Kind is the machine-stable name of a failure, surfaced to clients as-is.
type Kind string

const (
	KindInvalidRequest      Kind = "InvalidRequest"
	KindUnsupportedPlatform Kind = "UnsupportedPlatform"
	KindDurationExceeded    Kind = "DurationExceeded"
	KindExtractionFailed    Kind = "ExtractionFailed"
	KindRetrievalFailed     Kind = "RetrievalFailed"
	KindSizeExceeded        Kind = "SizeExceeded"
	KindRateLimited         Kind = "RateLimited"
	KindInternalFault       Kind = "InternalFault"
)

// Error carries a Kind and a client-safe Message. Err holds the internal cause
// and is only ever logged.
type Error struct {
	Kind    Kind
	Message string
	Err     error

	// Measured and Limit are set for DurationExceeded (seconds) and SizeExceeded (bytes).
	Measured int64
	Limit    int64
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// HasLimit reports whether Measured/Limit are meaningful for this error.
func (e *Error) HasLimit() bool {
	return e.Kind == KindDurationExceeded || e.Kind == KindSizeExceeded
}

func InvalidRequest(msg string) *Error {
	return &Error{Kind: KindInvalidRequest, Message: msg}
}

func UnsupportedPlatform(host string) *Error {
	return &Error{Kind: KindUnsupportedPlatform, Message: fmt.Sprintf("unsupported platform: %s", host)}
}

func DurationExceeded(measured, limit int64) *Error {
	return &Error{
		Kind:     KindDurationExceeded,
		Message:  fmt.Sprintf("video duration %ds exceeds limit of %ds", measured, limit),
		Measured: measured,
		Limit:    limit,
	}
}

func SizeExceeded(measured, limit int64) *Error {
	return &Error{
		Kind:     KindSizeExceeded,
		Message:  fmt.Sprintf("audio size %d bytes exceeds limit of %d bytes", measured, limit),
		Measured: measured,
		Limit:    limit,
	}
}

func ExtractionFailed(msg string, cause error) *Error {
	return &Error{Kind: KindExtractionFailed, Message: msg, Err: cause}
}

func RetrievalFailed(msg string, cause error) *Error {
	return &Error{Kind: KindRetrievalFailed, Message: msg, Err: cause}
}

func RateLimited() *Error {
	return &Error{Kind: KindRateLimited, Message: "rate limit exceeded, try again later"}
}

func InternalFault(cause error) *Error {
	return &Error{Kind: KindInternalFault, Message: "internal error", Err: cause}
}

// AsError returns the *Error in err's chain, wrapping anything else as InternalFault.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return InternalFault(err)
}

// KindOf returns the Kind of err, InternalFault for foreign errors and "" for nil.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	return AsError(err).Kind
}
