package repositories

import "fmt"

// ArgumentError reports a call a repository refused before touching the store.
// It is neither a miss nor a conflict, so services treat it as internal.
type ArgumentError struct {
	Op     string
	Reason string
}

var _ RepositoryError = (*ArgumentError)(nil)

// InvalidArgument builds an ArgumentError for op.
func InvalidArgument(op, reason string) error {
	return &ArgumentError{Op: op, Reason: reason}
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("%s: invalid argument: %s", e.Op, e.Reason)
}

func (e *ArgumentError) IsNotFound() bool    { return false }
func (e *ArgumentError) IsConflict() bool    { return false }
func (e *ArgumentError) IsUnavailable() bool { return false }
