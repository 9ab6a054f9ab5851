package monitor

import (
	"reflect"
	"strings"
	"testing"
)

func offlineTransition(host string, checks int) Transition {
	return Transition{
		Host: host,
		NewState: RunnerState{
			Status:             StatusOffline,
			ConsecutiveOffline: checks,
			Labels:             "pr",
		},
		Sample:                  SampleOffline,
		PersistentOfflineChecks: checks,
	}
}

func absentTransition(host string, missing int, edge bool) Transition {
	return Transition{
		Host: host,
		NewState: RunnerState{
			Status:              StatusAbsent,
			ConsecutiveMissing:  missing,
			LastKnownRunnerName: host + "-777",
		},
		Sample:       SampleOffline,
		BecameAbsent: edge,
	}
}

func healthyTransition(host string) Transition {
	return Transition{
		Host:     host,
		NewState: RunnerState{Status: StatusOnline},
		Sample:   SampleIdle,
	}
}

func TestPlanAlerts_QuietRun(t *testing.T) {
	plan := planAlerts([]Transition{healthyTransition("a"), healthyTransition("b")}, LastNotification{}, "")
	if plan.ShouldNotify {
		t.Error("ShouldNotify = true for an all-healthy run, want false")
	}
	if plan.Message != "" {
		t.Errorf("Message = %q, want empty", plan.Message)
	}
	if len(plan.OfflineSet) != 0 {
		t.Errorf("OfflineSet = %v, want empty", plan.OfflineSet)
	}
}

func TestPlanAlerts_SectionOrderAndContent(t *testing.T) {
	transitions := []Transition{
		offlineTransition("down1", 2),
		absentTransition("gone1", 3, false),
		{
			Host:         "fresh",
			NewState:     RunnerState{Status: StatusOnline, LastKnownRunnerName: "fresh-1", Labels: "pr"},
			Sample:       SampleIdle,
			NewlyPresent: true,
		},
		{
			Host:             "healed",
			NewState:         RunnerState{Status: StatusOnline, Labels: "bors"},
			Sample:           SampleIdle,
			BackOnlineChecks: 4,
		},
	}

	plan := planAlerts(transitions, LastNotification{}, "https://example.test/runners")
	if !plan.ShouldNotify {
		t.Fatal("ShouldNotify = false, want true")
	}

	wantOrder := []string{
		"**[Runners](https://example.test/runners) back online:**",
		"**Runners newly present in API payload:**",
		"**Runners absent from API payload for multiple checks:**",
		"**[Runners](https://example.test/runners) offline for multiple checks:**",
	}
	pos := -1
	for _, heading := range wantOrder {
		idx := strings.Index(plan.Message, heading)
		if idx < 0 {
			t.Fatalf("message missing section %q:\n%s", heading, plan.Message)
		}
		if idx < pos {
			t.Errorf("section %q out of order", heading)
		}
		pos = idx
	}

	for _, line := range []string{
		"- `healed` (was offline for 4 checks, labels: `bors`)",
		"- `fresh` (currently seen as `fresh-1`, labels: `pr`)",
		"- `gone1` (3 consecutive missing checks, last seen as `gone1-777`, no labels)",
		"- `down1` (2 consecutive checks, labels: `pr`)",
	} {
		if !strings.Contains(plan.Message, line) {
			t.Errorf("message missing line %q:\n%s", line, plan.Message)
		}
	}

	wantSet := []string{"down1", "gone1"}
	if !reflect.DeepEqual(plan.OfflineSet, wantSet) {
		t.Errorf("OfflineSet = %v, want %v", plan.OfflineSet, wantSet)
	}
}

func TestPlanAlerts_PlainHeadingsWithoutURL(t *testing.T) {
	plan := planAlerts([]Transition{offlineTransition("a", 2)}, LastNotification{}, "")
	if !strings.Contains(plan.Message, "**Runners offline for multiple checks:**") {
		t.Errorf("message = %q, want plain heading without link", plan.Message)
	}
}

func TestPlanAlerts_EditWhenNothingNew(t *testing.T) {
	transitions := []Transition{
		offlineTransition("down1", 3),
		absentTransition("gone1", 4, false),
	}
	last := LastNotification{
		OfflineSet: []string{"gone1", "down1"}, // unsorted on purpose
		MessageID:  "msg-9",
		UpdatedAt:  "2026-03-14T11:45:00Z",
	}

	plan := planAlerts(transitions, last, "")
	if !plan.ShouldEdit {
		t.Error("ShouldEdit = false for unchanged offline set, want true")
	}
	if plan.LastMessageID != "msg-9" {
		t.Errorf("LastMessageID = %q, want %q", plan.LastMessageID, "msg-9")
	}
}

func TestPlanAlerts_FreshPostOnQualitativeChange(t *testing.T) {
	base := []Transition{offlineTransition("down1", 3)}
	last := LastNotification{OfflineSet: []string{"down1"}, MessageID: "msg-9"}

	cases := []struct {
		name  string
		extra Transition
	}{
		{"newly present", Transition{
			Host:         "fresh",
			NewState:     RunnerState{Status: StatusOnline},
			Sample:       SampleIdle,
			NewlyPresent: true,
		}},
		{"back online", Transition{
			Host:             "healed",
			NewState:         RunnerState{Status: StatusOnline},
			Sample:           SampleIdle,
			BackOnlineChecks: 2,
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			plan := planAlerts(append(append([]Transition(nil), base...), tc.extra), last, "")
			if !plan.ShouldNotify {
				t.Fatal("ShouldNotify = false, want true")
			}
			if plan.ShouldEdit {
				t.Error("ShouldEdit = true despite qualitative change, want fresh post")
			}
		})
	}
}

func TestPlanAlerts_NewAbsenceEntryForcesFreshPost(t *testing.T) {
	// gone1 was already in the offline set via persistent-offline; this
	// run it crosses into absence instead. Same offline set, but the
	// entry edge must force a new post.
	transitions := []Transition{absentTransition("gone1", 2, true)}
	last := LastNotification{OfflineSet: []string{"gone1"}, MessageID: "msg-9"}

	plan := planAlerts(transitions, last, "")
	if plan.ShouldEdit {
		t.Error("ShouldEdit = true on absence entry edge, want false")
	}
}

func TestPlanAlerts_NoEditWithoutTrackedMessage(t *testing.T) {
	transitions := []Transition{offlineTransition("down1", 3)}
	last := LastNotification{OfflineSet: []string{"down1"}}

	plan := planAlerts(transitions, last, "")
	if plan.ShouldEdit {
		t.Error("ShouldEdit = true without a tracked message id, want false")
	}
}

func TestPlanAlerts_OfflineSetChangeForcesFreshPost(t *testing.T) {
	transitions := []Transition{
		offlineTransition("down1", 3),
		offlineTransition("down2", 2),
	}
	last := LastNotification{OfflineSet: []string{"down1"}, MessageID: "msg-9"}

	plan := planAlerts(transitions, last, "")
	if plan.ShouldEdit {
		t.Error("ShouldEdit = true with a grown offline set, want false")
	}
}
