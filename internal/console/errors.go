package console

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrMissingCSRFToken is returned when no anti-forgery token could be found.
// The console rejects state-reading calls without it, so runs stop early.
var ErrMissingCSRFToken = errors.New("csrf token not found: log in to the console and re-export cookies")

// APIError is a non-success response from the console API.
type APIError struct {
	StatusCode int
	Endpoint   string
	Body       string
}

func (e *APIError) Error() string {
	body := strings.TrimSpace(e.Body)
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	if body == "" {
		return fmt.Sprintf("api call failed (status %d) %s", e.StatusCode, e.Endpoint)
	}
	return fmt.Sprintf("api call failed (status %d) %s: %s", e.StatusCode, e.Endpoint, body)
}

// IsNotFound reports whether err is, or wraps, an HTTP 404 APIError.
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}

// StatusCode returns the HTTP status carried by err, or 0 if err is not an APIError.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
