package errors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrValidation        = errors.New("validation failed")
	ErrAlreadyExists     = errors.New("already exists")
	ErrCandidateConflict = errors.New("candidate already claimed by another group")
	ErrIllegalTransition = errors.New("illegal merge group transition")
)

// UnmergeableError signals that a merge group cannot produce a combined order
// (all members cancelled, fewer than two valid members, nothing to aggregate).
type UnmergeableError struct {
	Reason string
}

func (e UnmergeableError) Error() string {
	return e.Reason
}

// APIError carries a failure reported by the external order-management API,
// including remote validation errors serialized verbatim.
type APIError struct {
	Status int
	Detail string
}

func (e APIError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("order api error (status %d): %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("order api error: %s", e.Detail)
}
