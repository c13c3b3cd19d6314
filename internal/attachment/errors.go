package attachment

import "fmt"

// SelectionError represents a failure of the file-picker collaborator.
// The store is never mutated when a selection fails.
type SelectionError struct {
	Reason string // Human-readable explanation of the selection failure
	Err    error  // Underlying error, if any
}

func (e *SelectionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("file selection failed: %s", e.Reason)
	}

	if e.Err != nil {
		return fmt.Sprintf("file selection failed: %s", e.Err)
	}

	return "file selection failed"
}

func (e *SelectionError) Unwrap() error {
	return e.Err
}

// DuplicateIDError represents an attempt to append a record whose ID is
// already held by the store. IDs are generated fresh per record, so this
// indicates a programmer error rather than a user-facing condition.
type DuplicateIDError struct {
	ID string
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("attachment id already exists: %s", e.ID)
}

// NotFoundError represents an operation on an attachment ID that the store
// does not hold.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("attachment not found: %s", e.ID)
}
