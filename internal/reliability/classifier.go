package reliability

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/sashabaranov/go-openai"
)

// Error codes reported for upstream failures.
const (
	CodeCanceled    = "canceled"
	CodeTimeout     = "timeout"
	CodeRateLimited = "rate_limited"
	CodeAuth        = "auth"
	CodeBadRequest  = "bad_request"
	CodeServer      = "server_error"
	CodeNetwork     = "network"
	CodeUnknown     = "unknown"
)

// IsRetryableHTTPStatus classifies retryable HTTP status codes.
func IsRetryableHTTPStatus(code int) bool {
	switch code {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

// Classify maps an upstream error to a short code and whether a later retry may succeed.
func Classify(err error) (code string, retryable bool) {
	if err == nil {
		return "", false
	}
	if errors.Is(err, context.Canceled) {
		return CodeCanceled, false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return CodeTimeout, true
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return codeForStatus(apiErr.HTTPStatusCode), IsRetryableHTTPStatus(apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return codeForStatus(reqErr.HTTPStatusCode), IsRetryableHTTPStatus(reqErr.HTTPStatusCode)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return CodeTimeout, true
		}
		return CodeNetwork, true
	}
	return CodeUnknown, false
}

func codeForStatus(status int) string {
	switch {
	case status == 429:
		return CodeRateLimited
	case status == 401 || status == 403:
		return CodeAuth
	case status >= 500:
		return CodeServer
	case status >= 400:
		return CodeBadRequest
	default:
		return CodeUnknown
	}
}

// ExponentialBackoff computes a deterministic capped backoff duration.
func ExponentialBackoff(attempt int, base, cap time.Duration) time.Duration {
	if attempt <= 0 {
		return base
	}
	d := base
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= cap {
			return cap
		}
	}
	return d
}
