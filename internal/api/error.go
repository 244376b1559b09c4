package api

import (
	"errors"
	"fmt"
)

// fallbackMessage is used when neither the server nor the transport supplied
// a usable detail message.
const fallbackMessage = "request failed"

// APIError is the single error kind surfaced by the client. Status is the
// HTTP status code, or 500 synthesized for transport failures. Data carries
// the raw error payload for diagnostics when the server sent one.
type APIError struct {
	Status  int
	Message string
	Data    any
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %s (status %d)", e.Message, e.Status)
}

// IsNotFound reports whether the error represents a missing resource.
func (e *APIError) IsNotFound() bool {
	return e.Status == 404
}

// AsAPIError extracts the *APIError from err, if there is one.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

func transportError(err error) *APIError {
	message := fallbackMessage
	if err != nil && err.Error() != "" {
		message = err.Error()
	}
	return &APIError{Status: 500, Message: message}
}
