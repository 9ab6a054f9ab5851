package monitor

import (
	"sort"
	"strings"

	"github.com/HerbHall/runnerwatch/internal/fleet"
)

// HostObservation is the collapsed one-run view of a host derived from zero
// or more raw instance records. Online and busy are always false when the
// host is absent from the payload.
type HostObservation struct {
	Present bool
	Online  bool
	Busy    bool
	Labels  []string
	// LatestRunnerName is the lexicographically maximal raw instance name
	// seen for this host in the payload, or "" when absent. The ordering
	// is a stable tie-break, not a true recency signal.
	LatestRunnerName string
}

// dedupeLabels returns items in original order with duplicates removed.
func dedupeLabels(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	ordered := make([]string, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		ordered = append(ordered, item)
	}
	return ordered
}

// labelsString serializes label names into stable comma-separated text.
func labelsString(labels []string) string {
	return strings.Join(dedupeLabels(labels), ",")
}

// aggregatePayload collapses the raw payload into exactly one observation
// per canonical host. The second result lists the distinct non-empty
// instance names that did not resolve to any canonical host, sorted;
// callers surface these as processing warnings.
func aggregatePayload(hosts *HostSet, payload *fleet.Payload) (map[string]HostObservation, []string) {
	grouped := make(map[string][]fleet.Runner, hosts.Len())
	unresolvedSet := make(map[string]struct{})
	if payload != nil {
		for _, runner := range payload.Runners {
			if runner.Name == "" {
				continue
			}
			host, ok := hosts.Resolve(runner.Name)
			if !ok {
				unresolvedSet[runner.Name] = struct{}{}
				continue
			}
			grouped[host] = append(grouped[host], runner)
		}
	}

	observations := make(map[string]HostObservation, hosts.Len())
	for _, host := range hosts.Hosts() {
		instances := grouped[host]
		if len(instances) == 0 {
			observations[host] = HostObservation{Labels: []string{}}
			continue
		}

		var online, busy bool
		latest := ""
		for _, inst := range instances {
			if inst.Online() {
				online = true
				// Busy from an offline instance must not count.
				if inst.Busy {
					busy = true
				}
			}
			if inst.Name > latest {
				latest = inst.Name
			}
		}

		// The instance whose raw name exactly equals the host identifier
		// is authoritative for labels; when only ephemeral sub-instances
		// reported, merge their labels in encounter order.
		var labels []string
		exact := false
		for _, inst := range instances {
			if inst.Name == host {
				labels = inst.LabelNames()
				exact = true
				break
			}
		}
		if !exact {
			var merged []string
			for _, inst := range instances {
				merged = append(merged, inst.LabelNames()...)
			}
			labels = dedupeLabels(merged)
		}

		observations[host] = HostObservation{
			Present:          true,
			Online:           online,
			Busy:             busy,
			Labels:           labels,
			LatestRunnerName: latest,
		}
	}

	unresolved := make([]string, 0, len(unresolvedSet))
	for name := range unresolvedSet {
		unresolved = append(unresolved, name)
	}
	sort.Strings(unresolved)
	return observations, unresolved
}
