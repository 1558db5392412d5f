package errors

import "fmt"

// HTTPError is a non-2xx response from the flow store.
type HTTPError struct {
	StatusCode int
	Message    string
	Method     string
	Endpoint   string
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	if e.Endpoint != "" {
		if e.Method != "" {
			return fmt.Sprintf("HTTP %d at %s %s: %s", e.StatusCode, e.Method, e.Endpoint, e.Message)
		}
		return fmt.Sprintf("HTTP %d at %s: %s", e.StatusCode, e.Endpoint, e.Message)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// DecodeError indicates a response body that could not be decoded into the
// expected document shape.
type DecodeError struct {
	Endpoint string
	Message  string
	Err      error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	if e.Endpoint != "" {
		return fmt.Sprintf("decode %s: %s", e.Endpoint, e.Message)
	}
	return fmt.Sprintf("decode: %s", e.Message)
}

// Unwrap returns the decoder error, if any.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// TimeoutError indicates an operation timed out.
type TimeoutError struct {
	Operation string
	Duration  string
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timeout after %s: %s", e.Duration, e.Operation)
}
