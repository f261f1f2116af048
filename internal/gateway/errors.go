package gateway

import (
	"errors"
	"fmt"
)

// ErrMissingCredential is returned for admin operations when no credential is
// configured. No request is sent.
var ErrMissingCredential = errors.New("admin credential required for admin endpoint")

// HTTPError is a transport-level failure: a non-2xx status with no usable
// envelope, or a body that is not an envelope at all.
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("HTTP %d", e.Status)
	}
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.Body)
}

// APIError is an application failure reported by the server as
// {"success": false, "error": "..."}. Message is the server's text verbatim.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}
