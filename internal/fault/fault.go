// Package fault defines the stable error taxonomy for the agent kernel.
// Every failure that crosses the kernel boundary is classified into a Fault
// carrying a stable numeric code, retryability, and a user-visible message;
// raw provider errors never leak to callers.
package fault

import (
	"errors"
	"fmt"
	"time"

	"github.com/adpilot-ai/adpilot/pkg/models"
)

// Code is a stable numeric error code. Codes are grouped by hundreds:
// 1xxx generic, 2xxx transport, 3xxx external backend, 4xxx AI model,
// 5xxx data, 6xxx business.
type Code int

const (
	CodeUnknown      Code = 1000
	CodeValidation   Code = 1001
	CodeUnauthorized Code = 1002
	CodeRateLimited  Code = 1003

	CodeTransport Code = 2000

	CodeBackendConnection Code = 3000
	CodeBackendTool       Code = 3003
	CodeBackendTimeout    Code = 3004

	CodeModelUnavailable Code = 4001
	CodeModelTimeout     Code = 4002
	CodeModelQuota       Code = 4003

	CodeNotFound Code = 5000
	CodeInternal Code = 5001
	CodeDB       Code = 5002

	CodeAccountAuthExpired  Code = 6001
	CodeInsufficientCredits Code = 6011
	CodeLedger              Code = 6012
)

// Fault is a classified failure. It implements error and supports
// errors.Is/errors.As chains through its cause.
type Fault struct {
	// Code is the stable numeric code.
	Code Code

	// Message is the internal message; the user-visible message comes
	// from the message table keyed by Code.
	Message string

	// Retryable reports whether retrying may succeed.
	Retryable bool

	// RetryAfter suggests a wait before retrying, for quota errors.
	RetryAfter time.Duration

	// Details carries structured context surfaced to callers.
	Details map[string]any

	cause error
}

// New creates a Fault with the given code and message. Retryability is
// derived from the code's default classification.
func New(code Code, message string) *Fault {
	return &Fault{Code: code, Message: message, Retryable: defaultRetryable(code)}
}

// Newf creates a Fault with a formatted message.
func Newf(code Code, format string, args ...any) *Fault {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap classifies an underlying error under the given code.
func Wrap(code Code, err error) *Fault {
	if err == nil {
		return nil
	}
	f := New(code, err.Error())
	f.cause = err
	return f
}

// WithDetails attaches structured context to the fault.
func (f *Fault) WithDetails(details map[string]any) *Fault {
	f.Details = details
	return f
}

// WithRetryAfter attaches a retry-after hint and marks the fault retryable.
func (f *Fault) WithRetryAfter(d time.Duration) *Fault {
	f.RetryAfter = d
	f.Retryable = true
	return f
}

// Error implements the error interface.
func (f *Fault) Error() string {
	if f.Message != "" {
		return fmt.Sprintf("[%d] %s", f.Code, f.Message)
	}
	return fmt.Sprintf("[%d] %s", f.Code, UserMessage(f.Code))
}

// Unwrap returns the underlying cause, if any.
func (f *Fault) Unwrap() error { return f.cause }

// InsufficientCredits builds the business fault for a failed credit
// pre-check, carrying the required and available balances.
func InsufficientCredits(required, available int) *Fault {
	f := New(CodeInsufficientCredits, "insufficient credits")
	f.Details = map[string]any{"required": required, "available": available}
	return f
}

// Busy is the fault returned when a session lock cannot be acquired
// within the bounded wait.
func Busy(sessionID string) *Fault {
	return Newf(CodeRateLimited, "session %s is busy", sessionID)
}

// From extracts a Fault from an error chain, classifying unrecognized
// errors as CodeUnknown.
func From(err error) *Fault {
	if err == nil {
		return nil
	}
	var f *Fault
	if errors.As(err, &f) {
		return f
	}
	out := Classify(err)
	out.cause = err
	return out
}

// Retryable reports whether an error may succeed on retry, consulting the
// taxonomy when the error is a Fault and the message classifier otherwise.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	var f *Fault
	if errors.As(err, &f) {
		return f.Retryable
	}
	return Classify(err).Retryable
}

// Info converts the fault to its caller-facing shape, resolving the
// user-visible message and remediation hint from the message table.
func (f *Fault) Info() *models.ErrorInfo {
	msg, action, actionURL := messageFor(f.Code)
	info := &models.ErrorInfo{
		Code:      int(f.Code),
		Message:   msg,
		Retryable: f.Retryable,
		Action:    action,
		ActionURL: actionURL,
		Details:   f.Details,
	}
	if f.RetryAfter > 0 {
		info.RetryAfter = int(f.RetryAfter.Seconds())
	}
	return info
}

func defaultRetryable(code Code) bool {
	switch code {
	case CodeTransport, CodeBackendConnection, CodeBackendTimeout,
		CodeModelUnavailable, CodeModelTimeout, CodeModelQuota, CodeLedger:
		return true
	default:
		return false
	}
}
