// internal/domain/ledger/errors.go
package ledger

import "errors"

var (
	// ErrInvalidTransition means the membership is not in the status the
	// transition requires.
	ErrInvalidTransition = errors.New("membership is not in a state that allows this change")

	// ErrNotEligible means the member does not track the lecture.
	ErrNotEligible = errors.New("membership does not cover this lecture")

	// ErrAlreadyPresent means the member has already checked in.
	ErrAlreadyPresent = errors.New("attendance already recorded for this lecture")

	// ErrNoTaskEntry means the member has no ledger entry for the task.
	ErrNoTaskEntry = errors.New("membership has no entry for this task")
)
