package graph

import (
	"errors"
	"math"
	"testing"
)

func TestBuild_SimpleDAG(t *testing.T) {
	// 1 -> 2 -> 4
	// 1 -> 3 -> 4
	tasks := []Task{
		{ID: 1, Name: "Task A", Duration: 1},
		{ID: 2, Name: "Task B", Duration: 1, Dependencies: []int{1}},
		{ID: 3, Name: "Task C", Duration: 1, Dependencies: []int{1}},
		{ID: 4, Name: "Task D", Duration: 1, Dependencies: []int{2, 3}},
	}

	g, err := Build(tasks)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if g.TaskCount() != 4 {
		t.Errorf("expected 4 tasks, got %d", g.TaskCount())
	}
	if len(g.Roots) != 1 || g.Roots[0] != 1 {
		t.Errorf("expected roots=[1], got %v", g.Roots)
	}
	if len(g.Leaves) != 1 || g.Leaves[0] != 4 {
		t.Errorf("expected leaves=[4], got %v", g.Leaves)
	}
	if adj := g.Adj[1]; len(adj) != 2 {
		t.Errorf("expected 1 to have 2 dependents, got %v", adj)
	}
	if rev := g.RevAdj[4]; len(rev) != 2 {
		t.Errorf("expected 4 to have 2 dependencies, got %v", rev)
	}
}

func TestBuild_SingleTask(t *testing.T) {
	g, err := Build([]Task{{ID: 7, Name: "Solo task", Duration: 2}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(g.Roots) != 1 || g.Roots[0] != 7 {
		t.Errorf("expected roots=[7], got %v", g.Roots)
	}
	if len(g.Leaves) != 1 || g.Leaves[0] != 7 {
		t.Errorf("expected leaves=[7], got %v", g.Leaves)
	}
}

func TestBuild_DanglingDependency(t *testing.T) {
	tasks := []Task{
		{ID: 1, Name: "Design", Duration: 1},
		{ID: 2, Name: "Build", Duration: 3, Dependencies: []int{1, 9}},
	}

	_, err := Build(tasks)
	if err == nil {
		t.Fatal("expected dangling dependency error, got nil")
	}
	if !errors.Is(err, ErrDanglingDependency) {
		t.Fatalf("expected ErrDanglingDependency, got %v", err)
	}
	var dangling *DanglingDependencyError
	if !errors.As(err, &dangling) {
		t.Fatalf("expected *DanglingDependencyError, got %T", err)
	}
	if dangling.TaskName != "Build" || dangling.MissingID != 9 {
		t.Errorf("expected Build/9, got %s/%d", dangling.TaskName, dangling.MissingID)
	}
	if got := err.Error(); got != `task "Build" references missing dependency 9` {
		t.Errorf("unexpected message %q", got)
	}
}

func TestBuild_DuplicateID(t *testing.T) {
	_, err := Build([]Task{{ID: 1, Name: "A"}, {ID: 1, Name: "B"}})
	if !errors.Is(err, ErrDuplicateTask) {
		t.Fatalf("expected ErrDuplicateTask, got %v", err)
	}
}

func TestBuild_DuplicateDependencyCollapses(t *testing.T) {
	g, err := Build([]Task{
		{ID: 1, Name: "A", Duration: 1},
		{ID: 2, Name: "B", Duration: 1, Dependencies: []int{1, 1}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(g.RevAdj[2]) != 1 {
		t.Errorf("expected a single edge, got %v", g.RevAdj[2])
	}
	order, err := g.Sequence()
	if err != nil {
		t.Fatalf("unexpected sequence error: %v", err)
	}
	if len(order) != 2 {
		t.Errorf("expected 2 tasks in order, got %d", len(order))
	}
}

func TestBuild_DoesNotMutateInput(t *testing.T) {
	tasks := []Task{
		{ID: 1, Name: "A", Duration: 1},
		{ID: 2, Name: "B", Duration: 1, Dependencies: []int{1, 1}},
	}
	if _, err := Build(tasks); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tasks[1].Dependencies) != 2 {
		t.Errorf("input dependencies were modified: %v", tasks[1].Dependencies)
	}
}

func TestBuild_Empty(t *testing.T) {
	g, err := Build(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.TaskCount() != 0 {
		t.Errorf("expected 0 tasks, got %d", g.TaskCount())
	}
	order, err := g.Sequence()
	if err != nil || len(order) != 0 {
		t.Errorf("expected empty order, got %v (%v)", order, err)
	}
}

func TestSequence_LinearChain(t *testing.T) {
	// Listed backwards: 3 depends on 2 depends on 1.
	tasks := []Task{
		{ID: 3, Name: "C", Duration: 1, Dependencies: []int{2}},
		{ID: 2, Name: "B", Duration: 1, Dependencies: []int{1}},
		{ID: 1, Name: "A", Duration: 1},
	}
	order, err := Sequence(tasks)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertOrder(t, order, 1, 2, 3)
}

func TestSequence_TieBreakIsInsertionOrder(t *testing.T) {
	tasks := []Task{
		{ID: 5, Name: "E", Duration: 1},
		{ID: 1, Name: "A", Duration: 1},
		{ID: 9, Name: "I", Duration: 1, Dependencies: []int{5}},
		{ID: 2, Name: "B", Duration: 1},
	}
	order, err := Sequence(tasks)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Once 5 is done, 9 (position 2) is ready alongside 1 and 2; position wins.
	assertOrder(t, order, 5, 1, 9, 2)
}

func TestSequence_DependenciesPrecedeDependents(t *testing.T) {
	tasks := []Task{
		{ID: 1, Name: "A", Duration: 1},
		{ID: 2, Name: "B", Duration: 1, Dependencies: []int{1}},
		{ID: 3, Name: "C", Duration: 1, Dependencies: []int{1}},
		{ID: 4, Name: "D", Duration: 1, Dependencies: []int{3, 2}},
		{ID: 5, Name: "E", Duration: 1, Dependencies: []int{4, 1}},
	}
	order, err := Sequence(tasks)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	index := make(map[int]int)
	for i, task := range order {
		index[task.ID] = i
	}
	for _, task := range order {
		for _, dep := range task.Dependencies {
			if index[dep] >= index[task.ID] {
				t.Errorf("dependency %d of %d appears at %d, not before %d", dep, task.ID, index[dep], index[task.ID])
			}
		}
	}
}

func TestSequence_CycleDetection(t *testing.T) {
	// 1 -> 2 -> 3 -> 1 (cycle), 4 independent
	tasks := []Task{
		{ID: 1, Name: "A", Duration: 1, Dependencies: []int{3}},
		{ID: 2, Name: "B", Duration: 1, Dependencies: []int{1}},
		{ID: 3, Name: "C", Duration: 1, Dependencies: []int{2}},
		{ID: 4, Name: "D", Duration: 1},
	}

	_, err := Sequence(tasks)
	if err == nil {
		t.Fatal("expected cycle error, got nil")
	}
	if !errors.Is(err, ErrDependencyCycle) {
		t.Fatalf("expected ErrDependencyCycle, got %v", err)
	}
	var cycle *DependencyCycleError
	if !errors.As(err, &cycle) {
		t.Fatalf("expected *DependencyCycleError, got %T", err)
	}
	if cycle.Unsorted != 3 {
		t.Errorf("expected 3 unsorted tasks, got %d", cycle.Unsorted)
	}
	if len(cycle.Cycle) != 4 || cycle.Cycle[0] != cycle.Cycle[3] {
		t.Errorf("expected closed witness of 3 tasks, got %v", cycle.Cycle)
	}
	t.Logf("cycle error (expected): %v", err)
}

func TestSequence_SelfDependency(t *testing.T) {
	_, err := Sequence([]Task{{ID: 1, Name: "Loop", Duration: 1, Dependencies: []int{1}}})
	var cycle *DependencyCycleError
	if !errors.As(err, &cycle) {
		t.Fatalf("expected cycle error, got %v", err)
	}
	if len(cycle.Cycle) != 2 || cycle.Cycle[0] != 1 || cycle.Cycle[1] != 1 {
		t.Errorf("expected witness [1 1], got %v", cycle.Cycle)
	}
}

func TestBuild_InvalidDuration(t *testing.T) {
	for _, d := range []float64{math.NaN(), math.Inf(1), math.Inf(-1), -1, MaxDuration + 1, 120000} {
		_, err := Build([]Task{
			{ID: 1, Name: "Fine", Duration: 1},
			{ID: 2, Name: "Broken", Duration: d, Dependencies: []int{1}},
		})
		var invalid *InvalidDurationError
		if !errors.As(err, &invalid) {
			t.Fatalf("duration %v: expected InvalidDurationError, got %v", d, err)
		}
		if invalid.TaskID != 2 {
			t.Errorf("duration %v: expected task 2 reported, got %d", d, invalid.TaskID)
		}
		if !errors.Is(err, ErrInvalidDuration) || !IsInputError(err) {
			t.Errorf("duration %v: expected input error wrapping ErrInvalidDuration", d)
		}
	}

	if _, err := Build([]Task{{ID: 1, Name: "Milestone", Duration: 0}, {ID: 2, Name: "Long", Duration: MaxDuration}}); err != nil {
		t.Errorf("expected boundary durations to be accepted, got %v", err)
	}
}

func TestBuild_NonPositiveDependencyIsDangling(t *testing.T) {
	for _, dep := range []int{0, -4} {
		_, err := Sequence([]Task{{ID: 1, Name: "A", Duration: 1, Dependencies: []int{dep}}})
		var dangling *DanglingDependencyError
		if !errors.As(err, &dangling) {
			t.Fatalf("dependency %d: expected dangling error, got %v", dep, err)
		}
		if dangling.MissingID != dep {
			t.Errorf("expected missing id %d, got %d", dep, dangling.MissingID)
		}
	}
}

func TestIsInputError(t *testing.T) {
	if IsInputError(errors.New("boom")) {
		t.Error("plain error should not be an input error")
	}
	if !IsInputError(&DependencyCycleError{Unsorted: 2}) {
		t.Error("cycle error should be an input error")
	}
}

func assertOrder(t *testing.T, order []Task, ids ...int) {
	t.Helper()
	if len(order) != len(ids) {
		t.Fatalf("expected %d tasks, got %d", len(ids), len(order))
	}
	for i, id := range ids {
		if order[i].ID != id {
			got := make([]int, len(order))
			for j, task := range order {
				got[j] = task.ID
			}
			t.Fatalf("expected order %v, got %v", ids, got)
		}
	}
}
