package newsapi

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/nclarke/newsdeck/internal/domain/port/driven"
)

// APIError represents a non-2xx HTTP response from the news API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("news api: HTTP %d: %s", e.StatusCode, e.Message)
}

// Unwrap maps explicit authorization rejections onto the port-level
// sentinel so callers can match with errors.Is(err, driven.ErrUnauthorized)
// without importing this package.
func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden {
		return driven.ErrUnauthorized
	}
	return nil
}

// IsStatus returns true if err (or any wrapped error) is an APIError with
// the given status code.
func IsStatus(err error, code int) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == code
	}
	return false
}
