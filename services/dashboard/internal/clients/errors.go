package clients

import (
	"fmt"
	"net/http"
)

// NetworkError is a transport or HTTP-level failure: the request did not
// complete, the status was not 2xx, or the body was not a valid envelope.
type NetworkError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	switch {
	case e.Err != nil && e.StatusCode != 0:
		return fmt.Sprintf("%s: status %d: %v", e.Op, e.StatusCode, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("%s: network response was not ok (%d %s)", e.Op, e.StatusCode, http.StatusText(e.StatusCode))
	}
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ApplicationError is a failure reported by the API envelope. Error returns the
// server message verbatim so it can be shown to the user as is.
type ApplicationError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *ApplicationError) Error() string {
	if e.Message == "" {
		return e.Op + ": request failed"
	}
	return e.Message
}

// ValidationError rejects input before it reaches the API.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}
