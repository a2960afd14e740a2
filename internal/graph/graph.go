package graph

import "math"

// MaxDuration is the longest single task, in days, the scheduler accepts.
const MaxDuration = 36500

// ValidDuration reports whether days is finite and within [0, MaxDuration].
func ValidDuration(days float64) bool {
	return !math.IsNaN(days) && days >= 0 && days <= MaxDuration
}

// Build validates tasks and constructs a TaskGraph over a private copy of
// them. Validation runs in input order so the first offending task is always
// the one reported.
func Build(tasks []Task) (*TaskGraph, error) {
	g := &TaskGraph{
		Tasks:  make([]*Task, 0, len(tasks)),
		Adj:    make(map[int][]int),
		RevAdj: make(map[int][]int),
		pos:    make(map[int]int, len(tasks)),
	}

	// Index all tasks
	for i := range tasks {
		t := tasks[i].Clone()
		if _, exists := g.pos[t.ID]; exists {
			return nil, &DuplicateTaskError{ID: t.ID}
		}
		if !ValidDuration(t.Duration) {
			return nil, &InvalidDurationError{TaskID: t.ID, TaskName: t.Name, Duration: t.Duration}
		}
		g.pos[t.ID] = len(g.Tasks)
		g.Tasks = append(g.Tasks, &t)
	}

	// Dependencies are a set: repeated ids collapse into one edge.
	for _, t := range g.Tasks {
		seen := make(map[int]bool, len(t.Dependencies))
		deps := t.Dependencies[:0]
		for _, dep := range t.Dependencies {
			if seen[dep] {
				continue
			}
			seen[dep] = true
			if _, ok := g.pos[dep]; !ok {
				return nil, &DanglingDependencyError{TaskID: t.ID, TaskName: t.Name, MissingID: dep}
			}
			deps = append(deps, dep)
		}
		t.Dependencies = deps
	}

	// Adjacency in input order of the dependent, which keeps every later
	// traversal deterministic.
	for _, t := range g.Tasks {
		for _, dep := range t.Dependencies {
			g.Adj[dep] = append(g.Adj[dep], t.ID)
			g.RevAdj[t.ID] = append(g.RevAdj[t.ID], dep)
		}
	}

	for _, t := range g.Tasks {
		if len(g.RevAdj[t.ID]) == 0 {
			g.Roots = append(g.Roots, t.ID)
		}
		if len(g.Adj[t.ID]) == 0 {
			g.Leaves = append(g.Leaves, t.ID)
		}
	}

	return g, nil
}

// TaskCount returns the number of tasks in the graph.
func (g *TaskGraph) TaskCount() int {
	return len(g.Tasks)
}

// Task returns the task with the given id, or nil.
func (g *TaskGraph) Task(id int) *Task {
	i, ok := g.pos[id]
	if !ok {
		return nil
	}
	return g.Tasks[i]
}
