package daemon

import "github.com/prometheus/client_golang/prometheus"

var (
	runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "runnerwatch_runs_total",
			Help: "Monitoring runs by outcome.",
		},
		[]string{"outcome"},
	)
	notificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "runnerwatch_notifications_total",
			Help: "Alert deliveries by channel and kind.",
		},
		[]string{"channel", "kind"},
	)
	hostUp = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "runnerwatch_host_up",
			Help: "Whether the host's runner is online (1) or not (0).",
		},
		[]string{"host"},
	)
	hostConsecutiveOffline = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "runnerwatch_host_consecutive_offline",
			Help: "Consecutive checks the host has been present but offline.",
		},
		[]string{"host"},
	)
	hostConsecutiveMissing = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "runnerwatch_host_consecutive_missing",
			Help: "Consecutive checks the host has been missing from the payload.",
		},
		[]string{"host"},
	)
	offlineSetSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "runnerwatch_offline_set_size",
			Help: "Hosts currently considered down (absent or persistently offline).",
		},
	)
	unresolvedNames = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "runnerwatch_unresolved_names",
			Help: "Payload runner names that matched no canonical host in the last run.",
		},
	)
	lastRunTimestamp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "runnerwatch_last_run_timestamp_seconds",
			Help: "Unix time of the last completed monitoring run.",
		},
	)
)

func init() {
	prometheus.MustRegister(runsTotal)
	prometheus.MustRegister(notificationsTotal)
	prometheus.MustRegister(hostUp)
	prometheus.MustRegister(hostConsecutiveOffline)
	prometheus.MustRegister(hostConsecutiveMissing)
	prometheus.MustRegister(offlineSetSize)
	prometheus.MustRegister(unresolvedNames)
	prometheus.MustRegister(lastRunTimestamp)
}
