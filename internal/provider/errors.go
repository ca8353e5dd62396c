package provider

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrTransient         = errors.New("transient failure")
	ErrMalformedResponse = errors.New("malformed response")
	ErrMissingIdentifier = errors.New("missing identifier")
	ErrNotConfigured     = errors.New("provider not configured")
)

// Error codes carried by ProviderError.
const (
	CodeNotFound    = "NOT_FOUND"
	CodeTransient   = "TRANSIENT"
	CodeMalformed   = "MALFORMED_RESPONSE"
	CodeMissingID   = "MISSING_ID"
	CodeAuthFailed  = "AUTH_FAILED"
	CodeRateLimited = "RATE_LIMITED"
)

// ProviderError represents an error from a provider
type ProviderError struct {
	Provider   string
	Code       string
	Message    string
	StatusCode int
	Retry      bool
	RetryAfter int // Seconds to wait before retry
	Err        error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Provider, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match a ProviderError against the package sentinels by code.
func (e *ProviderError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Code == CodeNotFound
	case ErrTransient:
		return e.Code == CodeTransient || e.Code == CodeAuthFailed || e.Code == CodeRateLimited
	case ErrMalformedResponse:
		return e.Code == CodeMalformed
	case ErrMissingIdentifier:
		return e.Code == CodeMissingID
	}
	return false
}

// IsNotFound reports whether err means the service has no record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
