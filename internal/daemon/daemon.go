// Package daemon drives periodic monitoring runs: fetch the fleet
// payload, process it, persist the documents, archive the run, and
// deliver any alert. A failure in one stage never blocks the next run.
package daemon

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/HerbHall/runnerwatch/internal/archive"
	"github.com/HerbHall/runnerwatch/internal/config"
	"github.com/HerbHall/runnerwatch/internal/fleet"
	"github.com/HerbHall/runnerwatch/internal/monitor"
	"github.com/HerbHall/runnerwatch/internal/notify"
	"github.com/HerbHall/runnerwatch/internal/statefile"
)

// Fetcher retrieves the current fleet payload.
type Fetcher interface {
	Fetch(ctx context.Context) (*fleet.Payload, error)
}

// Daemon owns the run loop and the state it exposes to the status API.
type Daemon struct {
	cfg      *config.Config
	fetcher  Fetcher
	notifier notify.Notifier // nil: alerts go to the log only
	arch     *archive.Archive
	logger   *zap.Logger

	mu         sync.Mutex
	lastResult *monitor.RunResult
	lastRunAt  time.Time
	lastErr    error

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a daemon. notifier and arch may be nil to disable the
// corresponding stage.
func New(cfg *config.Config, fetcher Fetcher, notifier notify.Notifier, arch *archive.Archive, logger *zap.Logger) *Daemon {
	return &Daemon{
		cfg:      cfg,
		fetcher:  fetcher,
		notifier: notifier,
		arch:     arch,
		logger:   logger,
	}
}

// Start begins the run loop: one run immediately, then one per
// configured interval until Stop is called.
func (d *Daemon) Start(ctx context.Context) {
	d.ctx, d.cancel = context.WithCancel(ctx)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ticker := time.NewTicker(d.cfg.Monitor.Interval)
		defer ticker.Stop()

		d.runGuarded()

		for {
			select {
			case <-d.ctx.Done():
				return
			case <-ticker.C:
				d.runGuarded()
			}
		}
	}()
}

// Stop signals the loop to stop and waits for the in-flight run.
func (d *Daemon) Stop() {
	if d.cancel != nil {
		d.cancel()
	}
	d.wg.Wait()
}

func (d *Daemon) runGuarded() {
	ctx, cancel := context.WithTimeout(d.ctx, d.cfg.Monitor.Interval)
	defer cancel()

	if err := d.RunOnce(ctx); err != nil {
		d.logger.Error("monitoring run failed", zap.Error(err))
	}
}

// RunOnce performs a single monitoring pass.
func (d *Daemon) RunOnce(ctx context.Context) error {
	now := time.Now().UTC()

	prevState, err := statefile.LoadState(d.cfg.Monitor.StateFile)
	if err != nil {
		runsTotal.WithLabelValues("load_error").Inc()
		return d.finish(nil, now, err)
	}
	prevStats, err := statefile.LoadStats(d.cfg.Monitor.StatsFile)
	if err != nil {
		runsTotal.WithLabelValues("load_error").Inc()
		return d.finish(nil, now, err)
	}

	payload, err := d.fetcher.Fetch(ctx)
	if err != nil {
		runsTotal.WithLabelValues("fetch_error").Inc()
		return d.finish(nil, now, fmt.Errorf("fetch fleet: %w", err))
	}

	res, err := monitor.ProcessRun(monitor.Config{
		Hosts:      d.cfg.Monitor.Hosts,
		Retention:  d.cfg.Monitor.Retention,
		RunnersURL: d.cfg.Monitor.RunnersURL,
	}, payload, prevState, prevStats, now)
	if err != nil {
		runsTotal.WithLabelValues("process_error").Inc()
		return d.finish(nil, now, err)
	}

	for _, name := range res.Unresolved {
		d.logger.Warn("payload runner matched no canonical host", zap.String("name", name))
	}

	edited := d.deliver(ctx, res, now)

	if err := statefile.SaveState(d.cfg.Monitor.StateFile, res.State); err != nil {
		runsTotal.WithLabelValues("persist_error").Inc()
		return d.finish(res, now, err)
	}
	if err := statefile.SaveStats(d.cfg.Monitor.StatsFile, res.Stats); err != nil {
		runsTotal.WithLabelValues("persist_error").Inc()
		return d.finish(res, now, err)
	}

	d.archiveRun(ctx, res, payload, now, edited)
	d.updateMetrics(res, now)
	runsTotal.WithLabelValues("ok").Inc()
	return d.finish(res, now, nil)
}

// deliver sends the alert when the run calls for one and records the
// outcome in the run's state document. Returns whether an existing
// message was edited in place.
func (d *Daemon) deliver(ctx context.Context, res *monitor.RunResult, now time.Time) bool {
	if !res.ShouldNotify {
		return false
	}
	if d.notifier == nil {
		d.logger.Info("alert (no channel configured)", zap.String("message", res.Message))
		return false
	}

	channel := d.notifier.Type()
	if res.ShouldEdit {
		err := d.notifier.Edit(ctx, res.LastMessageID, res.Message)
		if err == nil {
			notificationsTotal.WithLabelValues(channel, "edit").Inc()
			res.State.LastNotification = monitor.LastNotification{
				OfflineSet: res.OfflineSet,
				MessageID:  res.LastMessageID,
				UpdatedAt:  monitor.FormatTimestamp(now),
			}
			return true
		}
		d.logger.Warn("edit failed, posting fresh message", zap.Error(err))
	}

	id, err := d.notifier.Post(ctx, res.Message)
	if err != nil {
		// Leave last_notification untouched so the next run retries
		// with the same dedupe context.
		d.logger.Error("alert delivery failed", zap.String("channel", channel), zap.Error(err))
		return false
	}
	notificationsTotal.WithLabelValues(channel, "post").Inc()
	res.State.LastNotification = monitor.LastNotification{
		OfflineSet: res.OfflineSet,
		MessageID:  id,
		UpdatedAt:  monitor.FormatTimestamp(now),
	}
	return false
}

func (d *Daemon) archiveRun(ctx context.Context, res *monitor.RunResult, payload *fleet.Payload, now time.Time, edited bool) {
	if d.arch == nil {
		return
	}

	samples := make([]archive.HostSample, 0, len(res.Transitions))
	for _, t := range res.Transitions {
		samples = append(samples, archive.HostSample{
			Host:               t.Host,
			Status:             string(t.NewState.Status),
			Sample:             string(t.Sample),
			ConsecutiveOffline: t.NewState.ConsecutiveOffline,
			ConsecutiveMissing: t.NewState.ConsecutiveMissing,
		})
	}
	rec := archive.RunRecord{
		RunAt:      now,
		TotalCount: payload.TotalCount,
		OfflineSet: res.OfflineSet,
		Unresolved: res.Unresolved,
		Notified:   res.ShouldNotify,
		Edited:     edited,
		MessageID:  res.State.LastNotification.MessageID,
	}
	if _, err := d.arch.RecordRun(ctx, rec, samples); err != nil {
		d.logger.Warn("archive run failed", zap.Error(err))
	}

	if _, err := d.arch.PruneBefore(ctx, now.Add(-d.retention())); err != nil {
		d.logger.Warn("archive prune failed", zap.Error(err))
	}
}

func (d *Daemon) retention() time.Duration {
	if d.cfg.Monitor.Retention > 0 {
		return d.cfg.Monitor.Retention
	}
	return monitor.DefaultRetention
}

func (d *Daemon) updateMetrics(res *monitor.RunResult, now time.Time) {
	for host, state := range res.State.Runners {
		up := 0.0
		if state.Status == monitor.StatusOnline {
			up = 1.0
		}
		hostUp.WithLabelValues(host).Set(up)
		hostConsecutiveOffline.WithLabelValues(host).Set(float64(state.ConsecutiveOffline))
		hostConsecutiveMissing.WithLabelValues(host).Set(float64(state.ConsecutiveMissing))
	}
	offlineSetSize.Set(float64(len(res.OfflineSet)))
	unresolvedNames.Set(float64(len(res.Unresolved)))
	lastRunTimestamp.Set(float64(now.Unix()))
}

func (d *Daemon) finish(res *monitor.RunResult, now time.Time, err error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if res != nil {
		d.lastResult = res
	}
	d.lastRunAt = now
	d.lastErr = err
	return err
}
