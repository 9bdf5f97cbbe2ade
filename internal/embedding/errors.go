package embedding

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
)

var (
	// ErrProviderUnavailable is returned when a hosted provider has no credential configured.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrProviderQuotaExceeded is returned when a hosted provider rejects the call for quota or rate limits.
	ErrProviderQuotaExceeded = errors.New("provider quota exceeded")

	// ErrProviderError covers every other hosted failure, timeouts included.
	ErrProviderError = errors.New("provider error")
)

// FailureKind names the reason a hosted call was not used.
type FailureKind string

const (
	FailureNone        FailureKind = ""
	FailureUnavailable FailureKind = "unavailable"
	FailureQuota       FailureKind = "quota_exceeded"
	FailureError       FailureKind = "provider_error"
)

// Failure maps an error returned by a provider to its FailureKind.
func Failure(err error) FailureKind {
	switch {
	case err == nil:
		return FailureNone
	case errors.Is(err, ErrProviderUnavailable):
		return FailureUnavailable
	case errors.Is(err, ErrProviderQuotaExceeded):
		return FailureQuota
	default:
		return FailureError
	}
}

// ClassifyAPIError wraps an error from an OpenAI-compatible API in the provider taxonomy.
func ClassifyAPIError(err error) error {
	if err == nil {
		return nil
	}
	if isQuotaError(err) {
		return fmt.Errorf("%w: %v", ErrProviderQuotaExceeded, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: timed out: %v", ErrProviderError, err)
	}
	return fmt.Errorf("%w: %v", ErrProviderError, err)
}

// isQuotaError checks for HTTP 429 or an insufficient_quota error code.
func isQuotaError(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429 || apiErr.Code == "insufficient_quota"
	}
	return false
}
