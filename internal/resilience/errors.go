package resilience

import (
	"context"
	"errors"
	"net"
	"strings"
	"syscall"

	"github.com/sells-group/prospect-cli/internal/model"
)

// TransientError wraps a provider error that is expected to clear on its own
// (429, 5xx, network timeout).
type TransientError struct {
	Err        error
	StatusCode int
}

func (e *TransientError) Error() string {
	return e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// NewTransientError wraps an error as transient with an optional HTTP status code.
func NewTransientError(err error, statusCode int) *TransientError {
	return &TransientError{Err: err, StatusCode: statusCode}
}

// IsTransient returns true if the error (or any error in its chain) is a
// TransientError, or if it matches common transient error patterns (network
// timeouts, connection resets, DNS failures).
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	// Check for explicit TransientError in chain.
	var te *TransientError
	if errors.As(err, &te) {
		return true
	}

	// Check for network-level transient errors.
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	// Connection reset / refused / DNS.
	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	// String-based heuristics for wrapped errors from HTTP clients.
	msg := strings.ToLower(err.Error())
	transientPatterns := []string{
		"connection reset by peer",
		"broken pipe",
		"temporary failure in name resolution",
		"no such host",
		"tls handshake timeout",
		"i/o timeout",
		"server closed idle connection",
		"transport connection broken",
	}
	for _, p := range transientPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}

// IsTransientHTTPStatus returns true if the HTTP status code indicates a
// transient server-side issue that is safe to retry.
func IsTransientHTTPStatus(statusCode int) bool {
	switch statusCode {
	case 408, // Request Timeout
		429, // Too Many Requests
		500, // Internal Server Error
		502, // Bad Gateway
		503, // Service Unavailable
		504: // Gateway Timeout
		return true
	default:
		return false
	}
}

// Machine-readable provider error codes reported in search diagnostics.
const (
	CodeTimeout     = "timeout"
	CodeRateLimited = "rate_limited"
	CodeTransient   = "transient"
	CodeCircuitOpen = "circuit_open"
	CodeMalformed   = "malformed_response"
	CodeUnavailable = "unavailable"
	CodeError       = "provider_error"
)

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, model.ErrProviderTimeout) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// Code returns the error code for a provider failure, or "" for nil.
func Code(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrCircuitOpen) {
		return CodeCircuitOpen
	}
	if isTimeout(err) {
		return CodeTimeout
	}
	if errors.Is(err, model.ErrMalformedResponse) {
		return CodeMalformed
	}
	if errors.Is(err, model.ErrProviderUnavailable) {
		return CodeUnavailable
	}
	var te *TransientError
	if errors.As(err, &te) {
		if te.StatusCode == 429 {
			return CodeRateLimited
		}
		return CodeTransient
	}
	if IsTransient(err) {
		return CodeTransient
	}
	return CodeError
}

// Taxonomy maps a provider failure onto the pipeline's three failure kinds:
// model.ErrProviderTimeout, model.ErrMalformedResponse, or
// model.ErrProviderUnavailable for everything else.
func Taxonomy(err error) error {
	switch {
	case err == nil:
		return nil
	case isTimeout(err):
		return model.ErrProviderTimeout
	case errors.Is(err, model.ErrMalformedResponse):
		return model.ErrMalformedResponse
	default:
		return model.ErrProviderUnavailable
	}
}
