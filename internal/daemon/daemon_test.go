package daemon

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/HerbHall/runnerwatch/internal/config"
	"github.com/HerbHall/runnerwatch/internal/fleet"
	"github.com/HerbHall/runnerwatch/internal/monitor"
	"github.com/HerbHall/runnerwatch/internal/statefile"
)

type fakeFetcher struct {
	payload *fleet.Payload
	err     error
}

func (f *fakeFetcher) Fetch(ctx context.Context) (*fleet.Payload, error) {
	return f.payload, f.err
}

type fakeNotifier struct {
	posts   []string
	edits   []string
	editIDs []string
	postErr error
	editErr error
}

func (f *fakeNotifier) Post(ctx context.Context, message string) (string, error) {
	f.posts = append(f.posts, message)
	if f.postErr != nil {
		return "", f.postErr
	}
	return "m-1", nil
}

func (f *fakeNotifier) Edit(ctx context.Context, messageID, message string) error {
	f.editIDs = append(f.editIDs, messageID)
	f.edits = append(f.edits, message)
	return f.editErr
}

func (f *fakeNotifier) Type() string { return "fake" }

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Monitor: config.MonitorConfig{
			Hosts:     []string{"hoskinson", "hoskinson1"},
			Interval:  15 * time.Minute,
			StateFile: filepath.Join(dir, "state.json"),
			StatsFile: filepath.Join(dir, "stats.json"),
		},
	}
}

func healthyPayload() *fleet.Payload {
	return &fleet.Payload{
		TotalCount: 2,
		Runners: []fleet.Runner{
			{Name: "hoskinson", Status: fleet.StatusOnline},
			{Name: "hoskinson1", Status: fleet.StatusOnline},
		},
	}
}

func degradedPayload() *fleet.Payload {
	return &fleet.Payload{
		TotalCount: 1,
		Runners:    []fleet.Runner{{Name: "hoskinson", Status: fleet.StatusOnline}},
	}
}

func TestRunOnce_HappyPath(t *testing.T) {
	cfg := testConfig(t)
	notifier := &fakeNotifier{}
	d := New(cfg, &fakeFetcher{payload: healthyPayload()}, notifier, nil, zap.NewNop())

	if err := d.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	if len(notifier.posts) != 0 {
		t.Errorf("posts = %v, want none for a healthy fleet", notifier.posts)
	}

	state, err := statefile.LoadState(cfg.Monitor.StateFile)
	if err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	if state.Runners["hoskinson"].Status != monitor.StatusOnline {
		t.Errorf("persisted status = %q, want online", state.Runners["hoskinson"].Status)
	}
	stats, err := statefile.LoadStats(cfg.Monitor.StatsFile)
	if err != nil {
		t.Fatalf("LoadStats: %v", err)
	}
	if len(stats.Runners["hoskinson"].History) != 1 {
		t.Errorf("persisted history = %+v, want one sample", stats.Runners["hoskinson"].History)
	}

	st := d.Status()
	if st.LastError != "" || len(st.Hosts) != 2 {
		t.Errorf("Status() = %+v, want two healthy hosts", st)
	}
}

func TestRunOnce_PostsAndTracksMessage(t *testing.T) {
	cfg := testConfig(t)
	notifier := &fakeNotifier{}
	fetcher := &fakeFetcher{payload: degradedPayload()}
	d := New(cfg, fetcher, notifier, nil, zap.NewNop())

	// Two runs with hoskinson1 missing: the second crosses the
	// absence threshold and posts.
	for i := 0; i < 2; i++ {
		if err := d.RunOnce(context.Background()); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}
	if len(notifier.posts) != 1 {
		t.Fatalf("posts = %d, want 1", len(notifier.posts))
	}

	state, err := statefile.LoadState(cfg.Monitor.StateFile)
	if err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	ln := state.LastNotification
	if ln.MessageID != "m-1" {
		t.Errorf("MessageID = %q, want tracked post id", ln.MessageID)
	}
	if len(ln.OfflineSet) != 1 || ln.OfflineSet[0] != "hoskinson1" {
		t.Errorf("OfflineSet = %v, want [hoskinson1]", ln.OfflineSet)
	}

	// Third run, nothing changed: the tracked message is edited.
	if err := d.RunOnce(context.Background()); err != nil {
		t.Fatalf("third run: %v", err)
	}
	if len(notifier.edits) != 1 || notifier.editIDs[0] != "m-1" {
		t.Errorf("edits = %v ids %v, want one edit of m-1", notifier.edits, notifier.editIDs)
	}
	if len(notifier.posts) != 1 {
		t.Errorf("posts = %d after edit run, want still 1", len(notifier.posts))
	}
}

func TestRunOnce_EditFailureFallsBackToPost(t *testing.T) {
	cfg := testConfig(t)
	notifier := &fakeNotifier{editErr: errors.New("gone")}
	d := New(cfg, &fakeFetcher{payload: degradedPayload()}, notifier, nil, zap.NewNop())

	for i := 0; i < 3; i++ {
		if err := d.RunOnce(context.Background()); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}

	// Run 2 posts; run 3 tries to edit, fails, posts fresh.
	if len(notifier.edits) != 1 {
		t.Errorf("edits = %d, want 1 attempt", len(notifier.edits))
	}
	if len(notifier.posts) != 2 {
		t.Errorf("posts = %d, want 2 (fallback after failed edit)", len(notifier.posts))
	}
}

func TestRunOnce_FetchError(t *testing.T) {
	cfg := testConfig(t)
	d := New(cfg, &fakeFetcher{err: errors.New("api down")}, nil, nil, zap.NewNop())

	if err := d.RunOnce(context.Background()); err == nil {
		t.Fatal("RunOnce succeeded despite fetch error, want error")
	}

	state, err := statefile.LoadState(cfg.Monitor.StateFile)
	if err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	if len(state.Runners) != 0 {
		t.Errorf("state written despite fetch error: %+v", state)
	}
	if st := d.Status(); st.LastError == "" {
		t.Error("Status().LastError empty after failed run")
	}
}

func TestRunOnce_PostFailureStillPersists(t *testing.T) {
	cfg := testConfig(t)
	notifier := &fakeNotifier{postErr: errors.New("channel down")}
	d := New(cfg, &fakeFetcher{payload: degradedPayload()}, notifier, nil, zap.NewNop())

	for i := 0; i < 2; i++ {
		if err := d.RunOnce(context.Background()); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}

	state, err := statefile.LoadState(cfg.Monitor.StateFile)
	if err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	if state.Runners["hoskinson1"].Status != monitor.StatusAbsent {
		t.Errorf("status = %q, want state persisted despite delivery failure", state.Runners["hoskinson1"].Status)
	}
	if !state.LastNotification.IsZero() {
		t.Errorf("LastNotification = %+v, want untouched after failed post", state.LastNotification)
	}
}

func TestRunOnce_NoNotifierLogsOnly(t *testing.T) {
	cfg := testConfig(t)
	d := New(cfg, &fakeFetcher{payload: degradedPayload()}, nil, nil, zap.NewNop())

	for i := 0; i < 2; i++ {
		if err := d.RunOnce(context.Background()); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}

	state, err := statefile.LoadState(cfg.Monitor.StateFile)
	if err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	if !state.LastNotification.IsZero() {
		t.Errorf("LastNotification = %+v, want zero without a channel", state.LastNotification)
	}
}
