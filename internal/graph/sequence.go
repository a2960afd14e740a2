package graph

import "container/heap"

type intMinHeap []int

func (h intMinHeap) Len() int           { return len(h) }
func (h intMinHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h intMinHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *intMinHeap) Push(x any)        { *h = append(*h, x.(int)) }
func (h *intMinHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// Sequence orders the graph's tasks so every task comes after all of its
// dependencies (Kahn's algorithm). Among tasks that are ready at the same
// time the one that appears first in the input wins.
func (g *TaskGraph) Sequence() ([]*Task, error) {
	inDegree := make([]int, len(g.Tasks))
	ready := &intMinHeap{}
	for i, t := range g.Tasks {
		inDegree[i] = len(g.RevAdj[t.ID])
		if inDegree[i] == 0 {
			heap.Push(ready, i)
		}
	}

	order := make([]*Task, 0, len(g.Tasks))
	for ready.Len() > 0 {
		i := heap.Pop(ready).(int)
		t := g.Tasks[i]
		order = append(order, t)

		for _, dependent := range g.Adj[t.ID] {
			j := g.pos[dependent]
			inDegree[j]--
			if inDegree[j] == 0 {
				heap.Push(ready, j)
			}
		}
	}

	if len(order) != len(g.Tasks) {
		return nil, &DependencyCycleError{
			Cycle:    g.cycleWitness(inDegree),
			Unsorted: len(g.Tasks) - len(order),
		}
	}
	return order, nil
}

// cycleWitness walks backwards through unsorted tasks. Every unsorted task
// still has an unsorted dependency, so the walk must revisit a task; the
// revisited stretch is a cycle. Iterative, so deep graphs are safe.
func (g *TaskGraph) cycleWitness(inDegree []int) []int {
	start := -1
	for i, d := range inDegree {
		if d > 0 {
			start = i
			break
		}
	}
	if start < 0 {
		return nil
	}

	visitedAt := make(map[int]int)
	var walk []int
	cur := g.Tasks[start].ID
	for {
		if at, seen := visitedAt[cur]; seen {
			loop := append([]int(nil), walk[at:]...)
			// walk follows dependency edges backwards; flip it so the
			// witness reads in execution order.
			for i, j := 0, len(loop)-1; i < j; i, j = i+1, j-1 {
				loop[i], loop[j] = loop[j], loop[i]
			}
			return append(loop, loop[0])
		}
		visitedAt[cur] = len(walk)
		walk = append(walk, cur)

		next := -1
		for _, dep := range g.RevAdj[cur] {
			if inDegree[g.pos[dep]] > 0 {
				next = dep
				break
			}
		}
		if next < 0 {
			return nil
		}
		cur = next
	}
}

// Sequence validates tasks and returns a topologically ordered copy. It is
// the dry-run check a caller runs against existing tasks plus a candidate
// before committing the candidate.
func Sequence(tasks []Task) ([]Task, error) {
	g, err := Build(tasks)
	if err != nil {
		return nil, err
	}
	order, err := g.Sequence()
	if err != nil {
		return nil, err
	}
	out := make([]Task, len(order))
	for i, t := range order {
		out[i] = t.Clone()
	}
	return out, nil
}
