package llm

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrMissingCredential is returned when no model API key is configured.
var ErrMissingCredential = errors.New("model API credential is not configured")

// UpstreamError is a failed call to the model API. StatusCode is zero when no
// response was received.
type UpstreamError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("model API request failed: %v", e.Err)
	}
	return fmt.Sprintf("model API returned %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Temporary reports whether repeating the call may succeed.
func (e *UpstreamError) Temporary() bool {
	switch {
	case e.StatusCode == 0:
		return true
	case e.StatusCode == http.StatusRequestTimeout, e.StatusCode == http.StatusTooManyRequests:
		return true
	case e.StatusCode >= 500:
		return true
	}
	return false
}
