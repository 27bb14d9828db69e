package workflow

import (
	"errors"
	"fmt"

	"github.com/mossland/Algora-sub004/internal/types"
)

// InvalidTransitionError reports a requested state change that is not a legal
// edge in the workflow type's transition table. It is fatal to the caller's
// current attempt but never to the orchestrating process.
type InvalidTransitionError struct {
	Type WorkflowType
	From WorkflowState
	To   WorkflowState
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("[%s] invalid transition %s -> %s for workflow type %s",
		types.WORKFLOW_INVALID_TRANSITION, e.From, e.To, e.Type)
}

// Is matches any other InvalidTransitionError so callers can test with
// errors.Is(err, &InvalidTransitionError{}).
func (e *InvalidTransitionError) Is(target error) bool {
	var other *InvalidTransitionError
	return errors.As(target, &other)
}

// AcceptanceCriteriaError reports a legal edge whose target-state acceptance
// criteria are unmet. The caller should retry once the blocking requirement
// (e.g. a missing document) has been produced.
type AcceptanceCriteriaError struct {
	Type      WorkflowType
	Target    WorkflowState
	Criterion string
	Reason    error
}

func (e *AcceptanceCriteriaError) Error() string {
	return fmt.Sprintf("[%s] criteria %q unmet for %s -> %s: %v",
		types.WORKFLOW_CRITERIA_UNMET, e.Criterion, e.Type, e.Target, e.Reason)
}

func (e *AcceptanceCriteriaError) Unwrap() error {
	return e.Reason
}

// Is matches any other AcceptanceCriteriaError.
func (e *AcceptanceCriteriaError) Is(target error) bool {
	var other *AcceptanceCriteriaError
	return errors.As(target, &other)
}

// IsInvalidTransition reports whether err is an InvalidTransitionError.
func IsInvalidTransition(err error) bool {
	var e *InvalidTransitionError
	return errors.As(err, &e)
}

// IsCriteriaUnmet reports whether err is an AcceptanceCriteriaError.
func IsCriteriaUnmet(err error) bool {
	var e *AcceptanceCriteriaError
	return errors.As(err, &e)
}
