package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Error taxonomy for event processing. Authentication and validation failures
// are terminal for an event; transient upstream, persistence and conflict
// failures are retry-eligible by reprocessing the same event.
var (
	ErrUnknownStore         = errors.New("unknown or disabled store")
	ErrAuthenticationFailed = errors.New("webhook signature verification failed")
	ErrValidation           = errors.New("invalid event payload")
	ErrPersistence          = errors.New("record persistence could not be verified")
	ErrRateLimitExceeded    = errors.New("rate limit exceeded")
	ErrTransientUpstream    = errors.New("transient upstream failure")
	ErrRemoteNotFound       = errors.New("remote resource not found")
	ErrDuplicateEvent       = errors.New("event already processed")
	ErrConflict             = errors.New("concurrent modification conflict")
)

// ResolutionIncompleteError names the line items that could not be resolved
// to master records. It is terminal but retry-eligible once the missing
// master data exists; it must never surface as success.
type ResolutionIncompleteError struct {
	SKUs []string
}

func (e *ResolutionIncompleteError) Error() string {
	return fmt.Sprintf("unresolved line items: %s", strings.Join(e.SKUs, ", "))
}

// IsRetryable reports whether reprocessing the same event may succeed without
// operator intervention.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransientUpstream) ||
		errors.Is(err, ErrPersistence) ||
		errors.Is(err, ErrConflict)
}
