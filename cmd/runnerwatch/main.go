package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/HerbHall/runnerwatch/internal/archive"
	"github.com/HerbHall/runnerwatch/internal/config"
	"github.com/HerbHall/runnerwatch/internal/daemon"
	"github.com/HerbHall/runnerwatch/internal/fleet"
	"github.com/HerbHall/runnerwatch/internal/monitor"
	"github.com/HerbHall/runnerwatch/internal/notify"
	"github.com/HerbHall/runnerwatch/internal/report"
	"github.com/HerbHall/runnerwatch/internal/statefile"
	"github.com/HerbHall/runnerwatch/internal/version"
)

const usage = `Usage: runnerwatch <command> [flags]

Commands:
  check    run one monitoring pass and exit
  daemon   run the monitoring loop with the status server
  report   render the weekly statistics report
  version  print version information
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	switch os.Args[1] {
	case "check":
		runCheck(os.Args[2:])
	case "daemon":
		runDaemon(os.Args[2:])
	case "report":
		runReport(os.Args[2:])
	case "version":
		fmt.Println(version.String())
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}
}

// setup loads configuration and builds the process logger shared by all
// subcommands.
func setup(name string, args []string) (*config.Config, *viper.Viper, *zap.Logger) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	configPath := fs.String("config", "", "path to configuration file")
	fs.Parse(args) //nolint:errcheck // ExitOnError

	viperCfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.Parse(viperCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := config.NewLogger(viperCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	if f := viperCfg.ConfigFileUsed(); f != "" {
		logger.Info("configuration loaded", zap.String("source", f))
	} else {
		logger.Warn("no configuration file found, using defaults")
	}

	return cfg, viperCfg, logger
}

// buildNotifier constructs the configured alert channel, or nil when
// alerts should only be logged.
func buildNotifier(cfg *config.Config) (notify.Notifier, error) {
	switch cfg.Notify.Channel {
	case "":
		return nil, nil
	case "zulip":
		return notify.NewZulipNotifier(cfg.Notify.Zulip), nil
	case "discord":
		return notify.NewDiscordNotifier(cfg.Notify.Discord)
	case "webhook":
		return notify.NewWebhookNotifier(cfg.Notify.Webhook), nil
	default:
		return nil, fmt.Errorf("unknown notify channel %q", cfg.Notify.Channel)
	}
}

// openArchive opens and migrates the run archive, or returns nil when
// no archive path is configured.
func openArchive(ctx context.Context, cfg *config.Config, logger *zap.Logger) *archive.Archive {
	if cfg.Archive.Path == "" {
		return nil
	}
	arch, err := archive.Open(cfg.Archive.Path)
	if err != nil {
		logger.Fatal("failed to open archive", zap.Error(err))
	}
	if err := arch.CheckVersion(ctx, version.Version); err != nil {
		logger.Fatal("archive version check failed", zap.Error(err))
	}
	if err := arch.Migrate(ctx); err != nil {
		logger.Fatal("archive migration failed", zap.Error(err))
	}
	logger.Info("archive opened", zap.String("path", cfg.Archive.Path))
	return arch
}

func buildDaemon(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*daemon.Daemon, *archive.Archive) {
	if cfg.Fleet.URL == "" {
		logger.Fatal("fleet.url is required")
	}

	notifier, err := buildNotifier(cfg)
	if err != nil {
		logger.Fatal("failed to build notifier", zap.Error(err))
	}
	if notifier != nil {
		logger.Info("alert channel configured", zap.String("channel", notifier.Type()))
	}

	arch := openArchive(ctx, cfg, logger)
	client := fleet.NewClient(cfg.Fleet.URL, cfg.Fleet.Token, cfg.Fleet.Timeout)
	return daemon.New(cfg, client, notifier, arch, logger), arch
}

func runCheck(args []string) {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	configPath := fs.String("config", "", "path to configuration file")
	dryRun := fs.Bool("dry-run", false, "print the planned alert instead of posting; skip persistence")
	fs.Parse(args) //nolint:errcheck // ExitOnError

	cfg, _, logger := setup("check", []string{"-config", *configPath})
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Monitor.Interval)
	defer cancel()

	if *dryRun {
		runDryCheck(ctx, cfg, logger)
		return
	}

	d, arch := buildDaemon(ctx, cfg, logger)
	if arch != nil {
		defer arch.Close()
	}

	if err := d.RunOnce(ctx); err != nil {
		logger.Error("monitoring run failed", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("monitoring run complete")
}

// runDryCheck runs one pass without touching the documents, the archive,
// or the alert channel, and prints what the pass would have posted.
func runDryCheck(ctx context.Context, cfg *config.Config, logger *zap.Logger) {
	if cfg.Fleet.URL == "" {
		logger.Fatal("fleet.url is required")
	}

	prevState, err := statefile.LoadState(cfg.Monitor.StateFile)
	if err != nil {
		logger.Fatal("failed to load state", zap.Error(err))
	}
	prevStats, err := statefile.LoadStats(cfg.Monitor.StatsFile)
	if err != nil {
		logger.Fatal("failed to load stats", zap.Error(err))
	}

	client := fleet.NewClient(cfg.Fleet.URL, cfg.Fleet.Token, cfg.Fleet.Timeout)
	payload, err := client.Fetch(ctx)
	if err != nil {
		logger.Fatal("failed to fetch fleet payload", zap.Error(err))
	}

	res, err := monitor.ProcessRun(monitor.Config{
		Hosts:      cfg.Monitor.Hosts,
		Retention:  cfg.Monitor.Retention,
		RunnersURL: cfg.Monitor.RunnersURL,
	}, payload, prevState, prevStats, time.Now())
	if err != nil {
		logger.Fatal("run processing failed", zap.Error(err))
	}

	for _, name := range res.Unresolved {
		logger.Warn("payload runner matched no canonical host", zap.String("name", name))
	}
	if !res.ShouldNotify {
		fmt.Println("no alert would be sent")
		return
	}
	action := "post"
	if res.ShouldEdit {
		action = fmt.Sprintf("edit message %s", res.LastMessageID)
	}
	fmt.Printf("would %s:\n\n%s\n", action, res.Message)
}

func runDaemon(args []string) {
	cfg, _, logger := setup("daemon", args)
	defer func() { _ = logger.Sync() }()

	logger.Info("runnerwatch daemon starting", zap.String("version", version.Version))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d, arch := buildDaemon(ctx, cfg, logger)
	if arch != nil {
		defer arch.Close()
	}

	d.Start(ctx)

	srv := daemon.NewServer(cfg.Server.Addr, d, logger)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("status server error", zap.Error(err))
		}
	}()

	logger.Info("runnerwatch daemon ready",
		zap.String("addr", cfg.Server.Addr),
		zap.Duration("interval", cfg.Monitor.Interval),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received shutdown signal", zap.String("signal", sig.String()))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	d.Stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("status server shutdown error", zap.Error(err))
	}
	logger.Info("runnerwatch daemon stopped")
}

func runReport(args []string) {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	configPath := fs.String("config", "", "path to configuration file")
	post := fs.Bool("post", false, "deliver the report to the configured channel instead of printing it")
	fs.Parse(args) //nolint:errcheck // ExitOnError

	cfg, _, logger := setup("report", []string{"-config", *configPath})
	defer func() { _ = logger.Sync() }()

	stats, err := statefile.LoadStats(cfg.Monitor.StatsFile)
	if err != nil {
		logger.Fatal("failed to load stats", zap.Error(err))
	}

	rendered, err := report.Weekly(cfg.Monitor.Hosts, stats, time.Now(), cfg.Monitor.Interval)
	if err != nil {
		logger.Fatal("failed to render report", zap.Error(err))
	}

	if !*post {
		fmt.Println(rendered)
		return
	}

	notifier, err := buildNotifier(cfg)
	if err != nil {
		logger.Fatal("failed to build notifier", zap.Error(err))
	}
	if notifier == nil {
		logger.Fatal("report -post requires notify.channel to be configured")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := notifier.Post(ctx, rendered); err != nil {
		logger.Fatal("failed to post report", zap.Error(err))
	}
	logger.Info("weekly report posted", zap.String("channel", notifier.Type()))
}
