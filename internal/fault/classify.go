package fault

import (
	"context"
	"errors"
	"strings"
)

// Classify maps an unclassified error to a Fault by inspecting sentinel
// errors and message patterns. Already-classified faults pass through.
func Classify(err error) *Fault {
	if err == nil {
		return nil
	}
	var f *Fault
	if errors.As(err, &f) {
		return f
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return New(CodeBackendTimeout, err.Error())
	}
	if errors.Is(err, context.Canceled) {
		return New(CodeUnknown, "cancelled")
	}

	msg := strings.ToLower(err.Error())

	switch {
	case containsAny(msg, "timeout", "deadline exceeded", "context deadline"):
		return New(CodeBackendTimeout, err.Error())
	case containsAny(msg, "connection", "network", "dns", "refused", "unreachable", "broken pipe", "reset by peer"):
		return New(CodeBackendConnection, err.Error())
	case containsAny(msg, "rate limit", "rate_limit", "too many requests", "429"):
		return New(CodeRateLimited, err.Error()).WithRetryAfter(0)
	case containsAny(msg, "quota", "billing", "insufficient_quota"):
		return New(CodeModelQuota, err.Error())
	case containsAny(msg, "unauthorized", "forbidden", "access denied", "invalid api key", "401", "403"):
		return New(CodeUnauthorized, err.Error())
	case containsAny(msg, "not found", "404"):
		return New(CodeNotFound, err.Error())
	case containsAny(msg, "invalid", "validation", "required", "missing"):
		return New(CodeValidation, err.Error())
	default:
		return New(CodeUnknown, err.Error())
	}
}

// FromBackendCode maps a backend error body's code string onto the kernel
// taxonomy. Backends use their own scheme; codes that signal transient
// infrastructure trouble stay retryable, everything else surfaces as a
// non-retryable tool error.
func FromBackendCode(code, message string) *Fault {
	switch strings.ToUpper(code) {
	case "TIMEOUT", "GATEWAY_TIMEOUT":
		return New(CodeBackendTimeout, message)
	case "UNAVAILABLE", "SERVICE_UNAVAILABLE", "OVERLOADED":
		return New(CodeBackendConnection, message)
	case "AUTH_EXPIRED", "ACCOUNT_AUTH_EXPIRED", "TOKEN_EXPIRED":
		return New(CodeAccountAuthExpired, message)
	case "NOT_FOUND":
		return New(CodeNotFound, message)
	case "VALIDATION", "INVALID_ARGUMENT", "BAD_REQUEST":
		return New(CodeValidation, message)
	default:
		return New(CodeBackendTool, message)
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
