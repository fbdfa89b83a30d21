package aggregates

import "fmt"

// NotFoundError reports a project id unknown to the upstream project store.
type NotFoundError struct {
	ProjectID int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("project %d not found", e.ProjectID)
}

// ValidationError reports malformed query filters.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// TransientError wraps a connectivity failure. Retryable; the façade retries
// with backoff before surfacing it.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient store failure: %v", e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }
