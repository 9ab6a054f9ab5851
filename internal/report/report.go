// Package report renders the weekly Markdown summary from the rolling
// host stats.
package report

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/HerbHall/runnerwatch/internal/monitor"
)

// Weekly renders the weekly Markdown summary for the given canonical
// hosts. The interval is only used for the footnote describing how
// often samples were collected.
func Weekly(hosts []string, stats monitor.MonitorStats, generatedAt time.Time, interval time.Duration) (string, error) {
	hostSet, err := monitor.NewHostSet(hosts)
	if err != nil {
		return "", fmt.Errorf("report config: %w", err)
	}
	statsIn := stats.Normalized(hostSet)
	generated := generatedAt.UTC().Format("2006-01-02 15:04 UTC")

	lines := []string{
		"**Weekly Runner Statistics Report**",
		"",
		fmt.Sprintf("*Period: Last 7 days - Generated: %s*", generated),
		"",
		"| Runner | Idle | Active | Offline | Labels |",
		"|--------|------|---------|---------|--------|",
	}

	for _, host := range hostSet.Hosts() {
		runner := statsIn.Runners[host]
		history := runner.History
		var idlePct, activePct, offlinePct float64
		if total := len(history); total > 0 {
			var idle, active, offline int
			for _, item := range history {
				switch item.State {
				case monitor.SampleIdle:
					idle++
				case monitor.SampleActive:
					active++
				case monitor.SampleOffline:
					offline++
				}
			}
			idlePct = percent(idle, total)
			activePct = percent(active, total)
			offlinePct = percent(offline, total)
		}

		labelsDisplay := "-"
		if runner.Labels != "" {
			labelsDisplay = fmt.Sprintf("`%s`", runner.Labels)
		}
		lines = append(lines, fmt.Sprintf("| `%s` | %s%% | %s%% | %s%% | %s |",
			host, formatPercent(idlePct), formatPercent(activePct), formatPercent(offlinePct), labelsDisplay))
	}

	allIdlePct, allBusyPct := overallPercentages(hostSet, statsIn)

	totalDataPoints := 0
	for _, host := range hostSet.Hosts() {
		totalDataPoints += len(statsIn.Runners[host].History)
	}

	lines = append(lines,
		"",
		"**Overall Statistics:**",
		fmt.Sprintf("- **All runners idle**: %s%% of monitoring periods", formatPercent(allIdlePct)),
		fmt.Sprintf("- **All runners busy**: %s%% of monitoring periods", formatPercent(allBusyPct)),
		"",
		"**Legend:**",
		"- **Idle**: Runner online but not executing jobs",
		"- **Active**: Runner online and executing jobs",
		"- **Offline**: Runner not responding",
		"",
		fmt.Sprintf("*Statistics based on %d data points collected every %d minutes.*",
			totalDataPoints, int(interval.Minutes())),
	)
	return strings.Join(lines, "\n"), nil
}

type sampleAt struct {
	at    time.Time
	state monitor.SampleState
}

// overallPercentages computes how often every host was idle (or busy)
// at the same time, sampling each host's latest known state at or
// before every timestamp seen across the fleet. Hosts with no entry
// yet count as offline.
func overallPercentages(hostSet *monitor.HostSet, stats monitor.MonitorStats) (allIdle, allBusy float64) {
	perHost := make(map[string][]sampleAt, hostSet.Len())
	seen := make(map[time.Time]struct{})
	for _, host := range hostSet.Hosts() {
		var entries []sampleAt
		for _, item := range stats.Runners[host].History {
			ts, err := monitor.ParseTimestamp(item.Timestamp)
			if err != nil {
				continue
			}
			entries = append(entries, sampleAt{at: ts, state: item.State})
			seen[ts] = struct{}{}
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].at.Before(entries[j].at) })
		perHost[host] = entries
	}

	if len(seen) == 0 {
		return 0, 0
	}

	timestamps := make([]time.Time, 0, len(seen))
	for ts := range seen {
		timestamps = append(timestamps, ts)
	}
	sort.Slice(timestamps, func(i, j int) bool { return timestamps[i].Before(timestamps[j]) })

	var allIdleCount, allBusyCount int
	for _, ts := range timestamps {
		idle, busy := true, true
		for _, host := range hostSet.Hosts() {
			state := monitor.SampleOffline
			for _, entry := range perHost[host] {
				if entry.at.After(ts) {
					break
				}
				state = entry.state
			}
			if state != monitor.SampleIdle {
				idle = false
			}
			if state != monitor.SampleActive {
				busy = false
			}
		}
		if idle {
			allIdleCount++
		}
		if busy {
			allBusyCount++
		}
	}
	total := len(timestamps)
	return percent(allIdleCount, total), percent(allBusyCount, total)
}

func percent(count, total int) float64 {
	return math.Round(float64(count)*100.0/float64(total)*100) / 100
}

// formatPercent prints whole percentages with one decimal (100.0) and
// everything else with the decimals it needs (33.33, 12.5).
func formatPercent(v float64) string {
	if v == math.Trunc(v) {
		return strconv.FormatFloat(v, 'f', 1, 64)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
