package lambda

import (
	"errors"
	"fmt"
)

// Common error conditions surfaced by middleware.
var (
	// ErrMissingConfiguration indicates a required environment value was
	// absent at request time.
	ErrMissingConfiguration = errors.New("missing required configuration")

	// ErrUnsupportedEvent indicates the inbound event does not match the
	// shape a middleware expects.
	ErrUnsupportedEvent = errors.New("unsupported event type")
)

// HTTPError carries an explicit wire status and body through the error path.
// The response codec encodes it verbatim instead of treating it as an
// unexpected failure. A zero StatusCode encodes as 500.
type HTTPError struct {
	StatusCode int
	Body       interface{}
}

// NewHTTPError builds an HTTPError with the given status and body.
func NewHTTPError(statusCode int, body interface{}) *HTTPError {
	return &HTTPError{StatusCode: statusCode, Body: body}
}

func (e *HTTPError) Error() string {
	status := e.StatusCode
	if status == 0 {
		status = 500
	}
	return fmt.Sprintf("http %d: %v", status, e.Body)
}

// RemoteAPIError describes a failed invocation of another deployment's
// internal API. It unwraps to an HTTPError so the response codec reports a
// generic 500 rather than leaking remote diagnostics to the caller.
type RemoteAPIError struct {
	Feature      string
	API          string
	ErrorType    string
	ErrorMessage string
}

func (e *RemoteAPIError) Error() string {
	errType := e.ErrorType
	if errType == "" {
		errType = "unknown"
	}
	msg := e.ErrorMessage
	if msg == "" {
		msg = "unknown error"
	}
	return fmt.Sprintf("remote API %s.%s failed with: (%s) %s", e.Feature, e.API, errType, msg)
}

func (e *RemoteAPIError) Unwrap() error {
	return &HTTPError{StatusCode: 500, Body: "Internal API error"}
}
