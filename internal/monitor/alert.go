package monitor

import (
	"fmt"
	"sort"
	"strings"
)

// AlertPlan is the notification decision for one run.
type AlertPlan struct {
	// ShouldNotify is true when Message is non-empty.
	ShouldNotify bool
	// Message is the Markdown alert body.
	Message string
	// OfflineSet is the sorted set of hosts currently absent or
	// persistently offline. It is the stable dedupe key compared across
	// runs, independent of message content.
	OfflineSet []string
	// ShouldEdit is true when the previous message should be edited in
	// place instead of posting a new one.
	ShouldEdit bool
	// LastMessageID is the previously tracked message id, unchanged. The
	// caller records the real id after actually posting.
	LastMessageID string
}

func formatLabelText(labelsCSV string) string {
	if labelsCSV != "" {
		return fmt.Sprintf("labels: `%s`", labelsCSV)
	}
	return "no labels"
}

func formatLastSeenNameText(fullName string) string {
	if fullName != "" {
		return fmt.Sprintf("last seen as `%s`", fullName)
	}
	return "last full runner name unknown"
}

func formatCurrentNameText(fullName string) string {
	if fullName != "" {
		return fmt.Sprintf("currently seen as `%s`", fullName)
	}
	return "current full runner name unknown"
}

// formatSection renders one Markdown section: heading, blank line, bullets.
func formatSection(title string, lines []string) string {
	return title + "\n\n" + strings.Join(lines, "\n")
}

// runnersHeading renders a section heading, linking the word "Runners" to
// the fleet console when a URL is configured.
func runnersHeading(runnersURL, rest string) string {
	if runnersURL != "" {
		return fmt.Sprintf("**[Runners](%s) %s**", runnersURL, rest)
	}
	return fmt.Sprintf("**Runners %s**", rest)
}

// planAlerts converts one run's transitions into the alert message, dedupe
// key, and edit-vs-post decision.
//
// The message has up to four sections in fixed order: back online, newly
// present, absent for multiple checks, offline for multiple checks. The
// absent section reports every host currently absent with
// consecutive_missing >= 2 (including re-confirmations), while the
// edit-policy computation uses only the absence entry edge.
func planAlerts(transitions []Transition, last LastNotification, runnersURL string) AlertPlan {
	var backOnline, newlyPresent, absentEntries, absentNow, persistentOffline []Transition
	for _, t := range transitions {
		if t.BackOnlineChecks > 0 {
			backOnline = append(backOnline, t)
		}
		if t.NewlyPresent {
			newlyPresent = append(newlyPresent, t)
		}
		if t.BecameAbsent {
			absentEntries = append(absentEntries, t)
		}
		if t.NewState.Status == StatusAbsent && t.NewState.ConsecutiveMissing >= absentThreshold {
			absentNow = append(absentNow, t)
		}
		if t.PersistentOfflineChecks > 0 {
			persistentOffline = append(persistentOffline, t)
		}
	}

	offlineSet := make([]string, 0, len(transitions))
	seen := make(map[string]struct{})
	for _, t := range transitions {
		if t.NewState.Status != StatusAbsent && t.PersistentOfflineChecks == 0 {
			continue
		}
		if _, dup := seen[t.Host]; dup {
			continue
		}
		seen[t.Host] = struct{}{}
		offlineSet = append(offlineSet, t.Host)
	}
	sort.Strings(offlineSet)

	var sections []string
	if len(backOnline) > 0 {
		lines := make([]string, 0, len(backOnline))
		for _, t := range backOnline {
			lines = append(lines, fmt.Sprintf("- `%s` (was offline for %d checks, %s)",
				t.Host, t.BackOnlineChecks, formatLabelText(t.NewState.Labels)))
		}
		sections = append(sections, formatSection(runnersHeading(runnersURL, "back online:"), lines))
	}
	if len(newlyPresent) > 0 {
		lines := make([]string, 0, len(newlyPresent))
		for _, t := range newlyPresent {
			lines = append(lines, fmt.Sprintf("- `%s` (%s, %s)",
				t.Host, formatCurrentNameText(t.NewState.LastKnownRunnerName), formatLabelText(t.NewState.Labels)))
		}
		sections = append(sections, formatSection("**Runners newly present in API payload:**", lines))
	}
	if len(absentNow) > 0 {
		lines := make([]string, 0, len(absentNow))
		for _, t := range absentNow {
			lines = append(lines, fmt.Sprintf("- `%s` (%d consecutive missing checks, %s, %s)",
				t.Host, t.NewState.ConsecutiveMissing,
				formatLastSeenNameText(t.NewState.LastKnownRunnerName), formatLabelText(t.NewState.Labels)))
		}
		sections = append(sections, formatSection("**Runners absent from API payload for multiple checks:**", lines))
	}
	if len(persistentOffline) > 0 {
		lines := make([]string, 0, len(persistentOffline))
		for _, t := range persistentOffline {
			lines = append(lines, fmt.Sprintf("- `%s` (%d consecutive checks, %s)",
				t.Host, t.PersistentOfflineChecks, formatLabelText(t.NewState.Labels)))
		}
		sections = append(sections, formatSection(runnersHeading(runnersURL, "offline for multiple checks:"), lines))
	}

	message := strings.Join(sections, "\n\n")
	shouldNotify := message != ""

	lastSet := append([]string(nil), last.OfflineSet...)
	sort.Strings(lastSet)

	// Editing in place means "still broken, nothing new". Any recovery,
	// new presence, or first crossing into absence deserves a fresh post
	// even when the offline set is otherwise unchanged.
	shouldEdit := shouldNotify &&
		last.MessageID != "" &&
		equalStrings(offlineSet, lastSet) &&
		len(backOnline) == 0 &&
		len(newlyPresent) == 0 &&
		len(absentEntries) == 0

	return AlertPlan{
		ShouldNotify:  shouldNotify,
		Message:       message,
		OfflineSet:    offlineSet,
		ShouldEdit:    shouldEdit,
		LastMessageID: last.MessageID,
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
