package cpm

import "math"

// markCritical flags tasks on a maximum-length dependency chain and tasks
// with effectively zero slack. IsCritical is the union of both criteria.
func markCritical(result *Result) {
	criticalDuration := 0.0
	for _, ts := range result.Tasks {
		if ts.LongestPathDuration > criticalDuration {
			criticalDuration = ts.LongestPathDuration
		}
	}
	result.CriticalDuration = criticalDuration

	// Seeds: chain ends whose longest path is the project's.
	var work []*TaskSchedule
	visited := make(map[int]bool)
	for _, ts := range result.Tasks {
		if math.Abs(ts.LongestPathDuration-criticalDuration) < longestPathTolerance {
			work = append(work, ts)
			visited[ts.ID] = true
		}
	}

	// Walk back through dependencies that continue the same chain.
	for len(work) > 0 {
		ts := work[len(work)-1]
		work = work[:len(work)-1]
		ts.OnLongestChain = true

		for _, depID := range ts.Dependencies {
			if visited[depID] {
				continue
			}
			dep := result.byID[depID]
			if math.Abs(dep.LongestPathDuration+ts.Duration-ts.LongestPathDuration) < longestPathTolerance {
				visited[depID] = true
				work = append(work, dep)
			}
		}
	}

	for _, ts := range result.Tasks {
		ts.ZeroSlack = ts.Slack <= criticalSlackThreshold
		ts.IsCritical = ts.OnLongestChain || ts.ZeroSlack
	}
}
