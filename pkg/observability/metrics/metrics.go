package metrics

import (
    "sync"

    "github.com/prometheus/client_golang/prometheus"
)

const namespace = "ovsdb_cluster"

var (
    once sync.Once

    IsLeader = prometheus.NewGaugeVec(prometheus.GaugeOpts{
        Namespace: namespace,
        Name:      "is_leader",
        Help:      "1 if this unit leads the database cluster, else 0",
    }, []string{"db"})

    ElectionTimer = prometheus.NewGaugeVec(prometheus.GaugeOpts{
        Namespace: namespace,
        Name:      "election_timer_ms",
        Help:      "Live election timer reported by cluster/status",
    }, []string{"db"})

    ElectionTimerChanges = prometheus.NewCounterVec(prometheus.CounterOpts{
        Namespace: namespace,
        Name:      "election_timer_changes_total",
        Help:      "Total change-election-timer steps issued by this unit",
    }, []string{"db"})

    ClusterServers = prometheus.NewGaugeVec(prometheus.GaugeOpts{
        Namespace: namespace,
        Name:      "cluster_servers",
        Help:      "Number of servers listed by cluster/status",
    }, []string{"db"})

    UnknownServers = prometheus.NewGaugeVec(prometheus.GaugeOpts{
        Namespace: namespace,
        Name:      "unknown_servers",
        Help:      "Cluster servers that could not be mapped to a unit",
    }, []string{"db"})

    KickRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
        Namespace: namespace,
        Name:      "kick_requests_total",
        Help:      "Total cluster/kick requests",
    }, []string{"db", "result"})

    LeaveAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
        Namespace: namespace,
        Name:      "leave_attempts_total",
        Help:      "Total cluster/leave attempts",
    }, []string{"db", "result"})

    DepartureWaits = prometheus.NewCounterVec(prometheus.CounterOpts{
        Namespace: namespace,
        Name:      "departure_waits_total",
        Help:      "Total waits for a departing server to leave both clusters",
    }, []string{"result"})

    CommandRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
        Namespace: namespace,
        Name:      "command_runs_total",
        Help:      "Total external control commands executed",
    }, []string{"command", "result"})

    HandlerRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
        Namespace: namespace,
        Name:      "handler_runs_total",
        Help:      "Total reconcile handler executions",
    }, []string{"handler", "result"})

    UpgradeLocked = prometheus.NewGauge(prometheus.GaugeOpts{
        Namespace: namespace,
        Name:      "upgrade_locked",
        Help:      "1 while membership changes are suppressed by the upgrade lock",
    })
)

// Result maps an error to the "result" label value.
func Result(err error) string {
    if err != nil { return "error" }
    return "ok"
}

// Bool converts a flag to a gauge value.
func Bool(b bool) float64 {
    if b { return 1 }
    return 0
}

// Register registers metrics into the default Prometheus registry (idempotent).
func Register() {
    once.Do(func() {
        prometheus.MustRegister(IsLeader)
        prometheus.MustRegister(ElectionTimer)
        prometheus.MustRegister(ElectionTimerChanges)
        prometheus.MustRegister(ClusterServers)
        prometheus.MustRegister(UnknownServers)
        prometheus.MustRegister(KickRequests)
        prometheus.MustRegister(LeaveAttempts)
        prometheus.MustRegister(DepartureWaits)
        prometheus.MustRegister(CommandRuns)
        prometheus.MustRegister(HandlerRuns)
        prometheus.MustRegister(UpgradeLocked)
    })
}
