package clients

import (
	"errors"
	"fmt"
)

// ErrTransport marks calls where no usable response reached the client:
// connection failures, timeouts and bodies that could not be decoded.
var ErrTransport = errors.New("transport_error")

// APIError is a non-success response from the activity service.
type APIError struct {
	Endpoint string
	Status   int
	Detail   string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: status %d", e.Endpoint, e.Status)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Endpoint, e.Status, e.Detail)
}

// Detail returns the service-reported reason carried by err, if any.
func Detail(err error) (string, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail, true
	}
	return "", false
}

func IsTransport(err error) bool {
	return errors.Is(err, ErrTransport)
}
