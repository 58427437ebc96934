package analyzer

import (
	"errors"
	"net/http"

	"github.com/sozercan/instrument-lens/internal/llm"
)

type Kind int

const (
	// KindValidation is a malformed request body or images field
	KindValidation Kind = iota + 1
	// KindConfiguration is a missing model API credential
	KindConfiguration
	// KindUpstream is a failed call to the model API
	KindUpstream
	// KindExtraction means no JSON object was found, even after reformatting
	KindExtraction
	// KindFormatter is a failed reformat call
	KindFormatter
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "ValidationError"
	case KindConfiguration:
		return "ConfigurationError"
	case KindUpstream:
		return "UpstreamError"
	case KindExtraction:
		return "ExtractionError"
	case KindFormatter:
		return "FormatterError"
	}
	return "Error"
}

// Error is returned by the analyzer for every failed request. StatusCode is
// the HTTP status the caller should respond with.
type Error struct {
	Kind       Kind
	Message    string
	StatusCode int
	Details    string
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func validationError(message string) *Error {
	return &Error{Kind: KindValidation, Message: message, StatusCode: http.StatusBadRequest}
}

// modelError classifies a failed model call. The upstream status and body are
// kept as-is; calls that never got a response map to 500.
func modelError(kind Kind, message string, err error) *Error {
	e := &Error{Kind: kind, Message: message, StatusCode: http.StatusInternalServerError, Err: err}

	var upstream *llm.UpstreamError
	if errors.As(err, &upstream) {
		if upstream.StatusCode != 0 {
			e.StatusCode = upstream.StatusCode
		}
		e.Details = upstream.Body
	}
	return e
}

// StatusCode returns the HTTP status for err, 500 if err is not an *Error.
func StatusCode(err error) int {
	var e *Error
	if errors.As(err, &e) && e.StatusCode != 0 {
		return e.StatusCode
	}
	return http.StatusInternalServerError
}
