package cpm

import (
	"sort"
	"time"
)

// computeWaves groups tasks by their earliest start.
func computeWaves(result *Result) []Wave {
	groups := make(map[int64][]int)
	first := make(map[int64]time.Time)
	var keys []int64
	for _, ts := range result.Tasks {
		key := ts.EarliestStart.UnixNano()
		if _, ok := groups[key]; !ok {
			keys = append(keys, key)
			first[key] = ts.EarliestStart
		}
		groups[key] = append(groups[key], ts.ID)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	waves := make([]Wave, len(keys))
	for i, key := range keys {
		taskIDs := groups[key]
		start := first[key]

		hasCritical := false
		for _, id := range taskIDs {
			result.byID[id].Wave = i
			if result.byID[id].IsCritical {
				hasCritical = true
			}
		}

		// Sort critical tasks first within wave
		sort.SliceStable(taskIDs, func(a, b int) bool {
			return result.byID[taskIDs[a]].IsCritical && !result.byID[taskIDs[b]].IsCritical
		})

		waves[i] = Wave{
			Index:      i,
			Start:      start,
			TaskIDs:    taskIDs,
			IsCritical: hasCritical,
		}
	}

	return waves
}
