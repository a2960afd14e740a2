package cpm

import (
	"fmt"

	"github.com/joshharrison/critpath/internal/date"
	"github.com/joshharrison/critpath/internal/graph"
)

// backwardPass computes latest start/finish and slack in reverse
// topological order. g.Adj is the precomputed dependents map.
func backwardPass(result *Result, g *graph.TaskGraph) {
	for i := len(result.Tasks) - 1; i >= 0; i-- {
		ts := result.Tasks[i]
		dependents := g.Adj[ts.ID]

		if len(dependents) == 0 {
			ts.LatestFinish = result.ProjectFinish
		} else {
			for j, depID := range dependents {
				dep := result.byID[depID]
				if !dep.latestSet {
					panic(fmt.Sprintf("cpm: latest start of task %d read before it was computed (dependency of %d)", depID, ts.ID))
				}
				if j == 0 || dep.LatestStart.Before(ts.LatestFinish) {
					ts.LatestFinish = dep.LatestStart
				}
			}
		}

		ts.LatestStart = date.AddDays(ts.LatestFinish, -ts.Duration)
		ts.Slack = date.DaysBetween(ts.EarliestStart, ts.LatestStart)
		ts.latestSet = true
	}
}
