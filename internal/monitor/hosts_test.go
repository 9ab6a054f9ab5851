package monitor

import "testing"

func testHostSet(t *testing.T, hosts ...string) *HostSet {
	t.Helper()
	if len(hosts) == 0 {
		hosts = []string{"hoskinson", "hoskinson1", "hoskinson2", "hoskinson3"}
	}
	set, err := NewHostSet(hosts)
	if err != nil {
		t.Fatalf("NewHostSet: %v", err)
	}
	return set
}

func TestNewHostSet_Invalid(t *testing.T) {
	cases := []struct {
		name  string
		hosts []string
	}{
		{"empty list", nil},
		{"empty name", []string{"a", ""}},
		{"duplicate", []string{"a", "b", "a"}},
		{"dash in name", []string{"a", "b-c"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewHostSet(tc.hosts); err == nil {
				t.Errorf("NewHostSet(%v) succeeded, want error", tc.hosts)
			}
		})
	}
}

func TestHostSet_Resolve(t *testing.T) {
	set := testHostSet(t)

	cases := []struct {
		name string
		want string
		ok   bool
	}{
		{"hoskinson3", "hoskinson3", true},
		{"hoskinson3-1770320856-1", "hoskinson3", true},
		{"hoskinson", "hoskinson", true},
		{"hoskinson-job-42", "hoskinson", true},
		{"unknown-host-x", "", false},
		{"hoskinson9", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := set.Resolve(tc.name)
		if ok != tc.ok || got != tc.want {
			t.Errorf("Resolve(%q) = (%q, %v), want (%q, %v)", tc.name, got, ok, tc.want, tc.ok)
		}
	}
}

func TestHostSet_HostsReturnsCopy(t *testing.T) {
	set := testHostSet(t, "a", "b")
	hosts := set.Hosts()
	hosts[0] = "mutated"
	if got := set.Hosts()[0]; got != "a" {
		t.Errorf("Hosts()[0] = %q after caller mutation, want %q", got, "a")
	}
}
