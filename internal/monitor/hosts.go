// Package monitor implements the run-processing core: payload aggregation,
// the per-host presence/availability state machine, rolling statistics, and
// alert planning. Everything in this package is a pure function of its
// inputs; fetching payloads, persisting documents, and delivering
// notifications are the caller's job.
package monitor

import (
	"fmt"
	"strings"
)

// HostSet is the fixed set of canonical host identifiers the monitor tracks.
// All persisted documents are keyed by exactly this set.
type HostSet struct {
	hosts []string
	index map[string]struct{}
}

// NewHostSet builds a HostSet from the configured host list. Host order is
// preserved; it determines iteration order for deterministic output.
func NewHostSet(hosts []string) (*HostSet, error) {
	if len(hosts) == 0 {
		return nil, fmt.Errorf("host set is empty")
	}
	index := make(map[string]struct{}, len(hosts))
	for _, h := range hosts {
		if h == "" {
			return nil, fmt.Errorf("host set contains an empty name")
		}
		if strings.Contains(h, "-") {
			return nil, fmt.Errorf("host %q: canonical names must not contain %q", h, "-")
		}
		if _, dup := index[h]; dup {
			return nil, fmt.Errorf("host %q appears more than once", h)
		}
		index[h] = struct{}{}
	}
	return &HostSet{hosts: append([]string(nil), hosts...), index: index}, nil
}

// Hosts returns the canonical hosts in configured order.
func (s *HostSet) Hosts() []string {
	return append([]string(nil), s.hosts...)
}

// Len returns the number of canonical hosts.
func (s *HostSet) Len() int {
	return len(s.hosts)
}

// Contains reports whether name is a canonical host identifier.
func (s *HostSet) Contains(name string) bool {
	_, ok := s.index[name]
	return ok
}

// Resolve maps a raw instance name to its canonical host. Ephemeral per-job
// instances share their parent host's name as a prefix followed by a dash
// ("hoskinson3-1770320856-1" resolves to "hoskinson3"). Returns false for
// names outside the canonical set.
func (s *HostSet) Resolve(name string) (string, bool) {
	if name == "" {
		return "", false
	}
	token, _, _ := strings.Cut(name, "-")
	if _, ok := s.index[token]; !ok {
		return "", false
	}
	return token, true
}
