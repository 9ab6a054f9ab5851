package monitor

import (
	"encoding/json"
	"testing"
)

func TestParseStatus_Fallback(t *testing.T) {
	cases := map[string]Status{
		"online":  StatusOnline,
		"OFFLINE": StatusOffline,
		"absent":  StatusAbsent,
		"unknown": StatusUnknown,
		"":        StatusUnknown,
		"weird":   StatusUnknown,
	}
	for in, want := range cases {
		if got := ParseStatus(in); got != want {
			t.Errorf("ParseStatus(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseSampleState(t *testing.T) {
	for in, want := range map[string]SampleState{
		"Idle": SampleIdle, "idle": SampleIdle, " ACTIVE ": SampleActive, "offline": SampleOffline,
	} {
		got, ok := ParseSampleState(in)
		if !ok || got != want {
			t.Errorf("ParseSampleState(%q) = (%q, %v), want (%q, true)", in, got, ok, want)
		}
	}
	if _, ok := ParseSampleState("busy"); ok {
		t.Error("ParseSampleState(\"busy\") accepted, want rejected")
	}
}

func TestMonitorState_Normalized_EmptyDocument(t *testing.T) {
	hosts := testHostSet(t, "a", "b")

	var state MonitorState
	if err := json.Unmarshal([]byte(`{}`), &state); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	norm := state.Normalized(hosts)
	if len(norm.Runners) != 2 {
		t.Fatalf("len(Runners) = %d, want 2", len(norm.Runners))
	}
	for _, host := range []string{"a", "b"} {
		r := norm.Runners[host]
		if r.Status != StatusUnknown || r.ConsecutiveOffline != 0 || r.ConsecutiveMissing != 0 || r.Labels != "" {
			t.Errorf("Runners[%q] = %+v, want defaults", host, r)
		}
	}
	if !norm.LastNotification.IsZero() {
		t.Errorf("LastNotification = %+v, want zero", norm.LastNotification)
	}
}

func TestMonitorState_Normalized_DropsForeignKeysAndClamps(t *testing.T) {
	hosts := testHostSet(t, "a")
	state := MonitorState{
		Runners: map[string]RunnerState{
			"a":     {Status: "bogus", ConsecutiveOffline: -3, ConsecutiveMissing: -1},
			"ghost": {Status: StatusOnline},
		},
	}

	norm := state.Normalized(hosts)
	if _, ok := norm.Runners["ghost"]; ok {
		t.Error("foreign host key survived normalization")
	}
	r := norm.Runners["a"]
	if r.Status != StatusUnknown {
		t.Errorf("Status = %q, want %q", r.Status, StatusUnknown)
	}
	if r.ConsecutiveOffline != 0 || r.ConsecutiveMissing != 0 {
		t.Errorf("counters = (%d, %d), want clamped to 0", r.ConsecutiveOffline, r.ConsecutiveMissing)
	}
}

func TestLastNotification_MarshalEmptyObject(t *testing.T) {
	data, err := json.Marshal(LastNotification{})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != "{}" {
		t.Errorf("empty LastNotification = %s, want {}", data)
	}

	populated := LastNotification{
		OfflineSet: []string{"a"},
		MessageID:  "42",
		UpdatedAt:  "2026-03-14T15:30:05Z",
	}
	data, err = json.Marshal(populated)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back LastNotification
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.MessageID != "42" || len(back.OfflineSet) != 1 || back.OfflineSet[0] != "a" {
		t.Errorf("round trip = %+v, want %+v", back, populated)
	}
}

func TestMonitorStats_Normalized_DropsInvalidHistory(t *testing.T) {
	hosts := testHostSet(t, "a")
	stats := MonitorStats{
		Runners: map[string]RunnerStats{
			"a": {
				History: []HistoryEntry{
					{Timestamp: "2026-03-14T15:30:05Z", State: "Idle"},
					{Timestamp: "2026-03-14T15:45:05Z", State: "Sleeping"},
					{Timestamp: "not a time", State: "Active"},
					{Timestamp: "2026-03-14T16:00:05Z", State: "active"},
				},
				Labels: "pr,bors",
			},
		},
	}

	norm := stats.Normalized(hosts)
	history := norm.Runners["a"].History
	if len(history) != 2 {
		t.Fatalf("len(history) = %d, want 2", len(history))
	}
	if history[0].State != SampleIdle || history[1].State != SampleActive {
		t.Errorf("history states = %q, %q; want Idle, Active", history[0].State, history[1].State)
	}
	if norm.Runners["a"].Labels != "pr,bors" {
		t.Errorf("Labels = %q, want %q", norm.Runners["a"].Labels, "pr,bors")
	}
}
