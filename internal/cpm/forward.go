package cpm

import "github.com/joshharrison/critpath/internal/date"

// forwardPass computes earliest start/finish and longest-path duration in
// topological order, so every dependency is already resolved when read.
func forwardPass(result *Result) {
	for _, ts := range result.Tasks {
		// Dependency-driven floor: latest dependency finish, or the
		// project start when there are none.
		floor := result.ProjectStart
		longestDep := 0.0
		for _, depID := range ts.Dependencies {
			dep := result.byID[depID]
			if dep.EarliestFinish.After(floor) {
				floor = dep.EarliestFinish
			}
			if dep.LongestPathDuration > longestDep {
				longestDep = dep.LongestPathDuration
			}
		}

		// A manual start only ever competes upward.
		candidate := floor
		if ts.ManualStart != nil && ts.ManualStart.After(candidate) {
			candidate = ts.ManualStart.Time
		}

		ts.EarliestStart = date.CeilDay(candidate)
		ts.EarliestFinish = date.AddDays(ts.EarliestStart, ts.Duration)
		ts.LongestPathDuration = longestDep + ts.Duration
	}
}
