package monitor

// Alerting thresholds for the two per-host tracks. A host is reported
// absent after missing two consecutive payloads, and persistently offline
// after two consecutive present-but-offline observations.
const (
	absentThreshold  = 2
	offlineThreshold = 2
)

// Transition is the outcome of applying one run's observation to one host.
//
// The two counter-valued signals use zero as "not emitted":
// PersistentOfflineChecks carries the current offline streak length while
// it is at or past the alert threshold (re-emitted every run the streak
// continues); BackOnlineChecks carries the length of the offline streak a
// host just recovered from, only when that streak had reached the
// threshold.
type Transition struct {
	Host     string
	NewState RunnerState
	Sample   SampleState

	// NewlyPresent is set when the host reappears after having been
	// absent (previous consecutive_missing >= 2).
	NewlyPresent bool
	// BecameAbsent is set only on the edge run where consecutive_missing
	// first reaches the absent threshold, not on later re-confirmations.
	BecameAbsent bool

	PersistentOfflineChecks int
	BackOnlineChecks        int
}

// sampleFor converts the online/busy observation into a stats sample.
func sampleFor(online, busy bool) SampleState {
	switch {
	case !online:
		return SampleOffline
	case busy:
		return SampleActive
	default:
		return SampleIdle
	}
}

// applyTransition computes the next persisted state and transition signals
// for one host. Two mutually exclusive tracks are selected by presence:
//
// Presence track (host missing from the payload):
//
//	PRESENT -> MISSING_1 (status=offline) -> ABSENT (entry event) -> ABSENT ...
//
// Availability track (host present):
//
//	ONLINE -> OFFLINE_1 (no alert) -> OFFLINE_N (persistent-offline, N>=2)
//	       -> ONLINE (back-online event when recovering from OFFLINE_N)
//
// Missing and absent hosts sample as Offline; present hosts sample as
// Idle, Active, or Offline from the observation.
func applyTransition(host string, previous RunnerState, obs HostObservation) Transition {
	if !obs.Present {
		missing := previous.ConsecutiveMissing + 1
		status := StatusOffline
		if missing >= absentThreshold {
			status = StatusAbsent
		}
		return Transition{
			Host: host,
			NewState: RunnerState{
				Status:              status,
				ConsecutiveOffline:  0,
				ConsecutiveMissing:  missing,
				Labels:              previous.Labels,
				LastKnownRunnerName: previous.LastKnownRunnerName,
			},
			Sample:       SampleOffline,
			BecameAbsent: missing >= absentThreshold && previous.ConsecutiveMissing < absentThreshold,
		}
	}

	labels := labelsString(obs.Labels)
	if labels == "" {
		labels = previous.Labels
	}
	lastName := obs.LatestRunnerName
	if lastName == "" {
		lastName = previous.LastKnownRunnerName
	}
	next := Transition{
		Host:         host,
		NewlyPresent: previous.ConsecutiveMissing >= absentThreshold,
		Sample:       sampleFor(obs.Online, obs.Busy),
	}

	if obs.Online {
		if previous.Status == StatusOffline && previous.ConsecutiveOffline >= offlineThreshold {
			next.BackOnlineChecks = previous.ConsecutiveOffline
		}
		next.NewState = RunnerState{
			Status:              StatusOnline,
			ConsecutiveOffline:  0,
			ConsecutiveMissing:  0,
			Labels:              labels,
			LastKnownRunnerName: lastName,
		}
		return next
	}

	// Present but not online. The counter only chains across consecutive
	// offline-while-present runs; any other previous status restarts it.
	offline := 1
	if previous.Status == StatusOffline {
		offline = previous.ConsecutiveOffline + 1
	}
	if offline >= offlineThreshold {
		next.PersistentOfflineChecks = offline
	}
	next.NewState = RunnerState{
		Status:              StatusOffline,
		ConsecutiveOffline:  offline,
		ConsecutiveMissing:  0,
		Labels:              labels,
		LastKnownRunnerName: lastName,
	}
	return next
}
