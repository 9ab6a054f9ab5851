package monitor

import (
	"encoding/json"
	"strings"
)

// Status is the persisted availability status of one host.
type Status string

// Persisted status values used in the state document.
const (
	StatusUnknown Status = "unknown"
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
	StatusAbsent  Status = "absent"
)

// ParseStatus parses a persisted status value, defaulting to StatusUnknown
// for anything unrecognized so a malformed document never fails a run.
func ParseStatus(s string) Status {
	switch Status(strings.ToLower(s)) {
	case StatusOnline:
		return StatusOnline
	case StatusOffline:
		return StatusOffline
	case StatusAbsent:
		return StatusAbsent
	default:
		return StatusUnknown
	}
}

// SampleState is the per-run stats sample recorded for one host.
type SampleState string

// Sample states used in stats history entries.
const (
	SampleIdle    SampleState = "Idle"
	SampleActive  SampleState = "Active"
	SampleOffline SampleState = "Offline"
)

// ParseSampleState parses a history sample value case-insensitively.
// Returns false for unrecognized values; callers drop such entries.
func ParseSampleState(s string) (SampleState, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "idle":
		return SampleIdle, true
	case "active":
		return SampleActive, true
	case "offline":
		return SampleOffline, true
	default:
		return "", false
	}
}

// RunnerState is the persisted status record for one host. The two counters
// are mutually exclusive: a host is tracked either for missingness or for
// offline-while-present, never both in the same run.
type RunnerState struct {
	Status              Status `json:"status"`
	ConsecutiveOffline  int    `json:"consecutive_offline"`
	ConsecutiveMissing  int    `json:"consecutive_missing"`
	Labels              string `json:"labels"`
	LastKnownRunnerName string `json:"last_known_runner_name"`
}

// normalized returns a copy with the status re-parsed and counters clamped
// to non-negative values.
func (r RunnerState) normalized() RunnerState {
	r.Status = ParseStatus(string(r.Status))
	if r.ConsecutiveOffline < 0 {
		r.ConsecutiveOffline = 0
	}
	if r.ConsecutiveMissing < 0 {
		r.ConsecutiveMissing = 0
	}
	return r
}

// LastNotification tracks the previously posted alert message for
// edit-vs-new-post deduplication. The core only reads it; the caller writes
// a new value after a message is actually posted or edited.
type LastNotification struct {
	OfflineSet []string `json:"offline_set"`
	MessageID  string   `json:"message_id"`
	UpdatedAt  string   `json:"updated_at"`
}

// IsZero reports whether no notification has ever been recorded.
func (n LastNotification) IsZero() bool {
	return len(n.OfflineSet) == 0 && n.MessageID == "" && n.UpdatedAt == ""
}

// Clone returns a deep copy.
func (n LastNotification) Clone() LastNotification {
	n.OfflineSet = append([]string(nil), n.OfflineSet...)
	return n
}

// MarshalJSON serializes a never-recorded notification as an empty object,
// distinguishing "never notified" from "notified with nothing".
func (n LastNotification) MarshalJSON() ([]byte, error) {
	if n.IsZero() {
		return []byte("{}"), nil
	}
	type plain LastNotification
	p := plain(n)
	if p.OfflineSet == nil {
		p.OfflineSet = []string{}
	}
	return json.Marshal(p)
}

// MonitorState is the whole-system state document persisted across runs.
type MonitorState struct {
	LastRun          string                 `json:"last_run"`
	Runners          map[string]RunnerState `json:"runners"`
	LastNotification LastNotification       `json:"last_notification"`
}

// Normalized returns a defensive copy keyed by exactly the canonical host
// set: unknown keys are dropped, missing hosts get default records, and
// every field falls back to its zero value. A first-ever run with an empty
// document therefore yields a fully populated default state.
func (s MonitorState) Normalized(hosts *HostSet) MonitorState {
	runners := make(map[string]RunnerState, hosts.Len())
	for _, host := range hosts.Hosts() {
		runners[host] = s.Runners[host].normalized()
	}
	return MonitorState{
		LastRun:          s.LastRun,
		Runners:          runners,
		LastNotification: s.LastNotification.Clone(),
	}
}

// HistoryEntry is one stats sample for a host.
type HistoryEntry struct {
	Timestamp string      `json:"timestamp"`
	State     SampleState `json:"state"`
}

// RunnerStats is the persisted sample history and labels snapshot for one host.
type RunnerStats struct {
	History []HistoryEntry `json:"history"`
	Labels  string         `json:"labels"`
}

// normalized returns a copy with unrecognized or unparseable history
// entries dropped.
func (r RunnerStats) normalized() RunnerStats {
	history := make([]HistoryEntry, 0, len(r.History))
	for _, entry := range r.History {
		state, ok := ParseSampleState(string(entry.State))
		if !ok {
			continue
		}
		if _, err := ParseTimestamp(entry.Timestamp); err != nil {
			continue
		}
		history = append(history, HistoryEntry{Timestamp: entry.Timestamp, State: state})
	}
	return RunnerStats{History: history, Labels: r.Labels}
}

// MonitorStats is the whole-system stats document persisted across runs.
type MonitorStats struct {
	Runners     map[string]RunnerStats `json:"runners"`
	LastCleanup string                 `json:"last_cleanup"`
}

// Normalized returns a defensive copy keyed by exactly the canonical host
// set, with invalid history entries dropped.
func (s MonitorStats) Normalized(hosts *HostSet) MonitorStats {
	runners := make(map[string]RunnerStats, hosts.Len())
	for _, host := range hosts.Hosts() {
		runners[host] = s.Runners[host].normalized()
	}
	return MonitorStats{Runners: runners, LastCleanup: s.LastCleanup}
}
