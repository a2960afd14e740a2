package graph

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrDanglingDependency = errors.New("dangling dependency")
	ErrDependencyCycle    = errors.New("dependency cycle")
	ErrDuplicateTask      = errors.New("duplicate task id")
	ErrInvalidDuration    = errors.New("invalid duration")
)

// DanglingDependencyError reports a dependency id absent from the task list.
type DanglingDependencyError struct {
	TaskID    int
	TaskName  string
	MissingID int
}

func (e *DanglingDependencyError) Error() string {
	return fmt.Sprintf("task %q references missing dependency %d", e.TaskName, e.MissingID)
}

func (e *DanglingDependencyError) Unwrap() error { return ErrDanglingDependency }

// DependencyCycleError reports that the dependency relation is not acyclic.
// Cycle is one witness loop (first id repeated at the end); it is not
// necessarily the only cycle in the graph.
type DependencyCycleError struct {
	Cycle    []int
	Unsorted int
}

func (e *DependencyCycleError) Error() string {
	msg := fmt.Sprintf("dependency cycle detected (%d tasks cannot be ordered)", e.Unsorted)
	if len(e.Cycle) > 0 {
		parts := make([]string, len(e.Cycle))
		for i, id := range e.Cycle {
			parts[i] = fmt.Sprint(id)
		}
		msg += ": " + strings.Join(parts, " -> ")
	}
	return msg + "; remove one of the circular links to continue"
}

func (e *DependencyCycleError) Unwrap() error { return ErrDependencyCycle }

// DuplicateTaskError reports two tasks sharing an id.
type DuplicateTaskError struct {
	ID int
}

func (e *DuplicateTaskError) Error() string {
	return fmt.Sprintf("task id %d is used more than once", e.ID)
}

func (e *DuplicateTaskError) Unwrap() error { return ErrDuplicateTask }

// InvalidDurationError reports a duration that is not a finite number of
// days within [0, MaxDuration].
type InvalidDurationError struct {
	TaskID   int
	TaskName string
	Duration float64
}

func (e *InvalidDurationError) Error() string {
	return fmt.Sprintf("task %q has invalid duration %v (must be between 0 and %d days)", e.TaskName, e.Duration, MaxDuration)
}

func (e *InvalidDurationError) Unwrap() error { return ErrInvalidDuration }

// IsInputError reports whether err is one of the fatal input errors the
// caller must surface to a human.
func IsInputError(err error) bool {
	return errors.Is(err, ErrDanglingDependency) ||
		errors.Is(err, ErrDependencyCycle) ||
		errors.Is(err, ErrDuplicateTask) ||
		errors.Is(err, ErrInvalidDuration)
}
