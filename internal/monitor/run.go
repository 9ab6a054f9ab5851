package monitor

import (
	"fmt"
	"time"

	"github.com/HerbHall/runnerwatch/internal/fleet"
)

// Config is the run-processing configuration.
type Config struct {
	// Hosts is the canonical host list. Required.
	Hosts []string
	// Retention is the rolling stats window; zero means DefaultRetention.
	Retention time.Duration
	// RunnersURL, when set, is linked from alert section headings.
	RunnersURL string
}

// RunResult is everything one monitoring pass produces.
type RunResult struct {
	// State and Stats are complete replacement documents.
	State MonitorState
	Stats MonitorStats

	ShouldNotify bool
	Message      string
	OfflineSet   []string
	ShouldEdit   bool
	// LastMessageID is the previously tracked message id, passed through
	// untouched; the notification channel assigns the new one.
	LastMessageID string

	// Transitions holds the per-host outcomes, in canonical host order.
	Transitions []Transition
	// Unresolved lists payload instance names that matched no canonical
	// host. Callers surface these as non-fatal warnings.
	Unresolved []string
}

// ProcessRun computes the next state, next stats, and alert decision for
// one monitoring pass. It is a pure function: the caller's previous
// state/stats are never mutated, and no I/O happens here.
func ProcessRun(cfg Config, payload *fleet.Payload, previousState MonitorState, previousStats MonitorStats, now time.Time) (*RunResult, error) {
	hosts, err := NewHostSet(cfg.Hosts)
	if err != nil {
		return nil, fmt.Errorf("monitor config: %w", err)
	}
	retention := cfg.Retention
	if retention <= 0 {
		retention = DefaultRetention
	}

	nowUTC := now.UTC()
	nowStamp := FormatTimestamp(nowUTC)

	observations, unresolved := aggregatePayload(hosts, payload)

	stateIn := previousState.Normalized(hosts)
	statsIn := previousStats.Normalized(hosts)

	// last_notification carries over unchanged; the caller replaces it
	// only after a message is actually posted or edited.
	newState := MonitorState{
		LastRun:          nowStamp,
		Runners:          make(map[string]RunnerState, hosts.Len()),
		LastNotification: stateIn.LastNotification.Clone(),
	}
	newStats := MonitorStats{
		Runners:     make(map[string]RunnerStats, hosts.Len()),
		LastCleanup: nowStamp,
	}

	transitions := make([]Transition, 0, hosts.Len())
	for _, host := range hosts.Hosts() {
		t := applyTransition(host, stateIn.Runners[host], observations[host])
		transitions = append(transitions, t)
		newState.Runners[host] = t.NewState
		newStats.Runners[host] = nextRunnerStats(statsIn.Runners[host], t.NewState.Labels, t.Sample, nowUTC, retention)
	}

	plan := planAlerts(transitions, stateIn.LastNotification, cfg.RunnersURL)

	return &RunResult{
		State:         newState,
		Stats:         newStats,
		ShouldNotify:  plan.ShouldNotify,
		Message:       plan.Message,
		OfflineSet:    plan.OfflineSet,
		ShouldEdit:    plan.ShouldEdit,
		LastMessageID: plan.LastMessageID,
		Transitions:   transitions,
		Unresolved:    unresolved,
	}, nil
}
