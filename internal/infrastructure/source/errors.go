// Package source retrieves raw item text for a collection, either from a
// GitHub repository or from a local directory tree.
package source

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// HTTPError is a non-2xx answer from a remote source.
type HTTPError struct {
	URL    string
	Status int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("GET %s: status %d", e.URL, e.Status)
}

// Temporary reports whether repeating the request may succeed.
func (e *HTTPError) Temporary() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= 500
}

// IsRetryable classifies fetch errors: server-side and network failures are
// retried, everything else (not found, bad request, cancellation) is final.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Temporary()
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
