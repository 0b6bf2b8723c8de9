package apiclient

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is a non-2xx response from the API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("API error (HTTP %d): %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("API error (HTTP %d): %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether the resource does not exist.
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// IsUnavailable reports a 503, returned by readiness when mirrors failed.
func (e *APIError) IsUnavailable() bool {
	return e.StatusCode == http.StatusServiceUnavailable
}

// IsNotFound reports whether err is an APIError for a missing resource.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.IsNotFound()
}
