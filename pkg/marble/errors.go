package marble

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument flags bad caller input before any request is made.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrMalformedResponse flags a 2xx response whose body does not have the
	// expected JSON shape.
	ErrMalformedResponse = errors.New("malformed response")

	// ErrDeadlineExceeded is returned when the client gave up polling. It is
	// distinct from the operation itself failing.
	ErrDeadlineExceeded = errors.New("timed out waiting for operation")
)

// TransportError wraps a network-level failure reaching the API.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("network error calling %s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// HTTPError is a non-2xx response, carrying the status and response body.
type HTTPError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("HTTP %d calling %s %s", e.StatusCode, e.Method, e.URL)
	}
	return fmt.Sprintf("HTTP %d calling %s %s: %s", e.StatusCode, e.Method, e.URL, e.Body)
}

// OperationError is a terminal server-reported job failure. The server error
// payload is kept verbatim.
type OperationError struct {
	OperationID string
	Payload     map[string]any
}

func (e *OperationError) Error() string {
	b, err := json.Marshal(e.Payload)
	if err != nil {
		return fmt.Sprintf("operation %s failed", e.OperationID)
	}
	return fmt.Sprintf("operation %s failed: %s", e.OperationID, b)
}
