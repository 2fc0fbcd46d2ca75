package pipeline

import "errors"

// Failure taxonomy for pipeline operations. Handlers map these to HTTP
// statuses with errors.Is; anything else is treated as an upstream failure.
var (
	// ErrNotFound marks a missing document, task, chunk or payload record.
	ErrNotFound = errors.New("not found")

	// ErrForbidden marks a task action by someone other than the assignee.
	ErrForbidden = errors.New("forbidden")

	// ErrPreconditionFailed marks an operation that conflicts with current
	// state, such as picking up an already-assigned task or publishing a
	// document that is not QA approved.
	ErrPreconditionFailed = errors.New("precondition failed")

	// ErrValidation marks malformed input such as an out-of-range priority.
	ErrValidation = errors.New("validation failed")
)
