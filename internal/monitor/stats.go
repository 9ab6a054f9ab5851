package monitor

import "time"

// DefaultRetention is the rolling window kept in per-host sample history.
const DefaultRetention = 7 * 24 * time.Hour

// nextRunnerStats appends exactly one sample for now and drops entries
// older than the retention window. History is rebuilt, never mutated in
// place. The labels snapshot prefers the current state's labels, falling
// back to the previous snapshot when the current one is empty.
func nextRunnerStats(previous RunnerStats, currentLabels string, sample SampleState, now time.Time, retention time.Duration) RunnerStats {
	cutoff := now.Add(-retention)
	history := make([]HistoryEntry, 0, len(previous.History)+1)
	for _, entry := range previous.History {
		ts, err := ParseTimestamp(entry.Timestamp)
		if err != nil {
			continue
		}
		if ts.Before(cutoff) {
			continue
		}
		history = append(history, entry)
	}
	history = append(history, HistoryEntry{Timestamp: FormatTimestamp(now), State: sample})

	labels := currentLabels
	if labels == "" {
		labels = previous.Labels
	}
	return RunnerStats{History: history, Labels: labels}
}
