package bookmydesk

import (
	"errors"
	"fmt"
)

// APIError is any non-2xx response from the booking API. The body is kept
// verbatim for diagnostics; nothing is retried automatically.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("bookmydesk: status %d: %s", e.Status, e.Body)
}

// IsStatus reports whether err is an APIError with the given HTTP status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}
