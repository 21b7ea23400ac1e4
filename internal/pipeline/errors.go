// Package pipeline implements the transcript event processor:
// guards -> extract -> resolve -> filter -> notify -> audit -> advance.
package pipeline

import "errors"

// Common pipeline errors.
var (
	// ErrContextCanceled indicates the caller's context was canceled.
	ErrContextCanceled = errors.New("context canceled")
)

// LookupError is a failure to resolve an extracted user ID to a live user.
type LookupError struct {
	UserID string
	Err    error
}

func (e *LookupError) Error() string {
	msg := "user lookup failed"
	if e != nil && e.UserID != "" {
		msg += ": " + e.UserID
	}
	if e != nil && e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *LookupError) Unwrap() error { return e.Err }

// DeliveryError is a rejected direct message.
type DeliveryError struct {
	UserID string
	Err    error
}

func (e *DeliveryError) Error() string {
	if e == nil || e.Err == nil {
		return "delivery failed"
	}
	return "delivery failed: " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *DeliveryError) Unwrap() error { return e.Err }

// Reason is the audit text for the failure: the platform's own message
func (e *DeliveryError) Reason() string {
	if e == nil || e.Err == nil || e.Err.Error() == "" {
		return "Unknown DM error"
	}
	return e.Err.Error()
}

// ProcessError represents a failure in the processor itself, as opposed to
// an unsuccessful but completed outcome.
type ProcessError struct {
	Err error
}

func (e *ProcessError) Error() string {
	if e == nil || e.Err == nil {
		return "process failed"
	}
	return "process failed: " + e.Err.Error()
}

func (e *ProcessError) Unwrap() error { return e.Err }
