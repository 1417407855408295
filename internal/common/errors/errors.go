// Package errors provides standardized error handling for the regulation
// search pipeline.
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeConfiguration      ErrorCode = "CONFIGURATION_ERROR"
	ErrCodeRateLimit          ErrorCode = "RATE_LIMIT_EXCEEDED"
	ErrCodeMaxRetriesExceeded ErrorCode = "MAX_RETRIES_EXCEEDED"
	ErrCodeAuthentication     ErrorCode = "AUTHENTICATION_ERROR"
	ErrCodeTransientNetwork   ErrorCode = "TRANSIENT_NETWORK_ERROR"
	ErrCodeStructuringParse   ErrorCode = "STRUCTURING_PARSE_ERROR"
	ErrCodeAgentRunFailed     ErrorCode = "AGENT_RUN_FAILED"
)

// StandardError represents a structured pipeline error.
type StandardError struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Retryable bool      `json:"retryable"`
	Timestamp time.Time `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. Error Constructors
// ==========================

// NewConfigurationError marks missing or malformed credentials. Permanent:
// callers switch to fallback mode instead of retrying.
func NewConfigurationError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeConfiguration,
		Message:   "External service credentials missing or invalid",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewRateLimitError creates a retryable throttling error.
func NewRateLimitError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeRateLimit,
		Message:   "Request was throttled by the external service",
		Details:   details,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewMaxRetriesExceededError wraps the last rate-limit failure after the
// retry budget is spent.
func NewMaxRetriesExceededError(attempts int, last error) *StandardError {
	details := fmt.Sprintf("attempts: %d", attempts)
	if last != nil {
		details = fmt.Sprintf("attempts: %d, last error: %s", attempts, last.Error())
	}
	return &StandardError{
		Code:      ErrCodeMaxRetriesExceeded,
		Message:   "Retry budget exhausted",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewAuthenticationError creates a non-retryable credential mismatch error.
func NewAuthenticationError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeAuthentication,
		Message:   "Authentication with the external service failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewTransientNetworkError creates a generic transport failure.
func NewTransientNetworkError(service string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeTransientNetwork,
		Message:   fmt.Sprintf("External service '%s' error", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewStructuringParseError marks malformed JSON from the completion
// service. Never surfaced to callers: it routes to the deterministic
// extraction fallback.
func NewStructuringParseError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeStructuringParse,
		Message:   "Completion service returned unparseable output",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewAgentRunFailedError creates a non-throttling run failure.
func NewAgentRunFailedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeAgentRunFailed,
		Message:   "Search agent run ended in a failure state",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Classification Helpers
// ==========================

// rateLimitSignatures are the known throttling markers seen in agent and
// completion error payloads.
var rateLimitSignatures = []string{
	"rate_limit_exceeded",
	"rate limit",
	"too many requests",
	"quota exceeded",
	"429",
}

// IsRateLimit reports whether err is classified as throttling, either by
// code or by a known signature in its message.
func IsRateLimit(err error) bool {
	if err == nil {
		return false
	}
	var std *StandardError
	if errors.As(err, &std) && std.Code == ErrCodeRateLimit {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, sig := range rateLimitSignatures {
		if strings.Contains(msg, sig) {
			return true
		}
	}
	return false
}

// IsCode reports whether err carries the given pipeline error code.
func IsCode(err error, code ErrorCode) bool {
	var std *StandardError
	return errors.As(err, &std) && std.Code == code
}

// IsConfiguration reports whether err is a permanent configuration error.
func IsConfiguration(err error) bool {
	return IsCode(err, ErrCodeConfiguration)
}

// IsAuthentication reports whether err looks like a credential or tenant
// mismatch rather than a transient transport failure.
func IsAuthentication(err error) bool {
	if IsCode(err, ErrCodeAuthentication) {
		return true
	}
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "401") || strings.Contains(msg, "unauthorized") ||
		strings.Contains(msg, "invalid api key") || strings.Contains(msg, "tenant")
}
