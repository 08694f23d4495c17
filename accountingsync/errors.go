package accountingsync

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/mmdatafocus/mailroom_backend/models"
)

var (
	ErrUnsupportedOperation = errors.New("unsupported operation")
	ErrIntegrationNotFound  = errors.New("integration not found")
	ErrSyncInProgress       = errors.New("sync already in progress for integration")
	// ErrIntegrationUnscoped marks an integration row with no tenant. Syncing it would
	// read records of every tenant.
	ErrIntegrationUnscoped = errors.New("integration has no tenant")
)

// ProviderError is a failed call to QuickBooks or Xero. For non-2xx responses
// Body holds the raw response text, which is what callers see as the error string.
type ProviderError struct {
	Provider   models.ServiceName
	StatusCode int
	Body       string
	Retryable  bool
	Err        error
}

func (e *ProviderError) Error() string {
	if e.Body != "" {
		return e.Body
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s api error %d", e.Provider, e.StatusCode)
}

func (e *ProviderError) Unwrap() error { return e.Err }

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code == http.StatusRequestTimeout || code >= 500
}

// IsRetryable reports whether a per-record failure is transient (rate limit,
// provider outage, timeout, transport) rather than a rejection of the record.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var pe *ProviderError
	if errors.As(err, &pe) && pe.Retryable {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return false
}
