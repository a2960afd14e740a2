package graph

import "github.com/joshharrison/critpath/internal/date"

// Task is a schedulable unit of work as supplied by the caller.
type Task struct {
	ID           int        `json:"id" yaml:"id"`
	Name         string     `json:"name" yaml:"name"`
	Duration     float64    `json:"duration" yaml:"duration"` // days, fractional allowed
	Dependencies []int      `json:"dependencies" yaml:"dependencies,omitempty"`
	ManualStart  *date.Date `json:"manual_start,omitempty" yaml:"manual_start,omitempty"`
}

// Clone returns a deep copy so callers can never alias each other's slices.
func (t Task) Clone() Task {
	c := t
	c.Dependencies = append([]int(nil), t.Dependencies...)
	if t.ManualStart != nil {
		ms := *t.ManualStart
		c.ManualStart = &ms
	}
	return c
}

// TaskGraph is a validated dependency graph over a snapshot of tasks.
type TaskGraph struct {
	Tasks  []*Task       // input order
	Adj    map[int][]int // task -> tasks that depend on it
	RevAdj map[int][]int // task -> its distinct dependencies
	Roots  []int         // tasks with no dependencies
	Leaves []int         // tasks nothing depends on

	pos map[int]int // id -> input position
}
