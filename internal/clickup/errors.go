package clickup

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies API failures by the HTTP status that produced them.
type Kind string

const (
	// KindUnauthorized marks 401 responses; the token must be re-entered.
	KindUnauthorized Kind = "unauthorized"
	// KindNotFound marks 404 responses.
	KindNotFound Kind = "not_found"
	// KindRateLimited marks 429 responses.
	KindRateLimited Kind = "rate_limited"
	// KindServer marks 5xx responses.
	KindServer Kind = "server"
	// KindClient marks the remaining 4xx rejections (400, 403, 422, ...).
	KindClient Kind = "client"
	// KindMalformed marks non-JSON or unexpectedly shaped responses.
	KindMalformed Kind = "malformed"
)

// APIError is returned for any non-2xx or undecodable ClickUp response.
type APIError struct {
	StatusCode int
	Kind       Kind
	Message    string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("clickup: %s (HTTP %d)", e.Message, e.StatusCode)
	}
	return fmt.Sprintf("clickup: HTTP %d", e.StatusCode)
}

// Code exposes the error kind for log classification.
func (e *APIError) Code() string {
	return string(e.Kind)
}

func kindForStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized:
		return KindUnauthorized
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusTooManyRequests:
		return KindRateLimited
	case status >= 500:
		return KindServer
	case status >= 400:
		return KindClient
	default:
		return KindMalformed
	}
}

// IsUnauthorized reports whether err is a ClickUp 401 rejection.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == KindUnauthorized
}
