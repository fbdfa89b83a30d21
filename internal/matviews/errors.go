package matviews

import "fmt"

// ViewCreationError reports a failed materialization (missing source table,
// schema mismatch, DDL failure). Surfaced to the operator, not retried.
type ViewCreationError struct {
	ProjectID int64
	Err       error
}

func (e *ViewCreationError) Error() string {
	return fmt.Sprintf("create view for project %d: %v", e.ProjectID, e.Err)
}

func (e *ViewCreationError) Unwrap() error { return e.Err }

// ConflictError reports a same-named database object that exists but has no
// bookkeeping row, meaning it was not created by this manager (schema drift).
type ConflictError struct {
	Name string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("object %q exists but is not managed by this service", e.Name)
}
