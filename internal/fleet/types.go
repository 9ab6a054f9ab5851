// Package fleet defines the fleet-status API payload shapes and the HTTP
// client that fetches them.
package fleet

// StatusOnline is the instance status reported for a reachable runner.
const StatusOnline = "online"

// Label is one label object attached to a runner instance.
type Label struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Runner is one raw instance record from the fleet-status API. Ephemeral
// per-job instances appear alongside their parent host and share its name
// as a prefix.
type Runner struct {
	ID     int64   `json:"id"`
	Name   string  `json:"name"`
	Status string  `json:"status"`
	Busy   bool    `json:"busy"`
	OS     string  `json:"os"`
	Labels []Label `json:"labels"`
}

// Online reports whether the instance status is "online".
func (r Runner) Online() bool {
	return r.Status == StatusOnline
}

// LabelNames returns label names in API order, excluding empty names.
func (r Runner) LabelNames() []string {
	names := make([]string, 0, len(r.Labels))
	for _, l := range r.Labels {
		if l.Name != "" {
			names = append(names, l.Name)
		}
	}
	return names
}

// Payload is the top-level fleet-status API response.
type Payload struct {
	TotalCount int      `json:"total_count"`
	Runners    []Runner `json:"runners"`
}
