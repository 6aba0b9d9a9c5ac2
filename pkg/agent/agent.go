// Package agent runs the reconcile loop that keeps the local OVSDB servers
// in step with the peer relation: joining the clusters, converging the
// election timer, handling departures and reporting workload status.
package agent

import (
    "context"
    "errors"
    "fmt"
    "log"
    "sync"
    "time"

    "github.com/hashicorp/go-multierror"

    "github.com/amirimatin/ovsdb-cluster/pkg/cluster"
    "github.com/amirimatin/ovsdb-cluster/pkg/internal/logutil"
    "github.com/amirimatin/ovsdb-cluster/pkg/observability/metrics"
    "github.com/amirimatin/ovsdb-cluster/pkg/observability/tracing"
    "github.com/amirimatin/ovsdb-cluster/pkg/peers"
    "github.com/amirimatin/ovsdb-cluster/pkg/state"
)

// Report summarizes the last pass.
type Report struct {
    Message       string    `json:"message"`
    Blocked       bool      `json:"blocked"`
    UpgradeLocked bool      `json:"upgradeLocked"`
    ClusterReady  bool      `json:"clusterReady"`
    Left          bool      `json:"left"`
    At            time.Time `json:"at"`
    Error         string    `json:"error,omitempty"`
}

type Agent struct {
    opts     Options
    rec      *cluster.Reconciler
    log      *log.Logger
    handlers []Handler

    mu        sync.Mutex
    pending   []peers.Departure
    last      Report
    announced bool
}

func New(opts Options) (*Agent, error) {
    if err := opts.Validate(); err != nil {
        return nil, err
    }
    opts.setDefaults()
    a := &Agent{opts: opts, rec: opts.Reconciler, log: opts.Logger}
    a.handlers = a.defaultHandlers()
    return a, nil
}

// Handlers returns the pass steps in execution order.
func (a *Agent) Handlers() []Handler { return append([]Handler(nil), a.handlers...) }

// Enqueue records a departure for the next pass.
func (a *Agent) Enqueue(d peers.Departure) {
    a.mu.Lock()
    a.pending = append(a.pending, d)
    a.mu.Unlock()
}

// Last returns the report of the most recent pass.
func (a *Agent) Last() Report {
    a.mu.Lock()
    defer a.mu.Unlock()
    return a.last
}

// Run executes a pass immediately, then on every tick and whenever a peer
// departs, until ctx is done.
func (a *Agent) Run(ctx context.Context) error {
    t := time.NewTicker(a.opts.Interval)
    defer t.Stop()
    deps := a.opts.Peers.Departures()
    a.passAndLog(ctx)
    for {
        select {
        case <-ctx.Done():
            return nil
        case <-t.C:
        case d, ok := <-deps:
            if !ok {
                deps = nil
                continue
            }
            logutil.Infof(a.log, "peer %s (%s) departed", d.Unit, d.Address)
            a.Enqueue(d)
            a.drain(deps)
        }
        a.passAndLog(ctx)
    }
}

func (a *Agent) drain(deps <-chan peers.Departure) {
    for {
        select {
        case d, ok := <-deps:
            if !ok { return }
            a.Enqueue(d)
        default:
            return
        }
    }
}

func (a *Agent) passAndLog(ctx context.Context) {
    r, err := a.Pass(ctx)
    if err != nil && !errors.Is(err, context.Canceled) {
        logutil.Errorf(a.log, "reconcile: %v", err)
    }
    if r.Message != "" {
        logutil.Infof(a.log, "status: %s", r.Message)
    }
}

// Pass builds the state and runs every handler whose guard holds. Handler
// failures do not stop the pass; they are returned together.
func (a *Agent) Pass(ctx context.Context) (Report, error) {
    ctx, end := tracing.StartSpan(ctx, "agent.pass", "unit", a.opts.LocalUnit)
    defer end()

    s, err := a.buildState(ctx)
    if err != nil { return Report{}, err }

    var errs *multierror.Error
    for _, h := range a.handlers {
        if !h.Guard(*s) {
            logutil.Debugf(a.log, "handler %s skipped", h.Name)
            continue
        }
        herr := h.Run(ctx, s)
        metrics.HandlerRuns.WithLabelValues(h.Name, metrics.Result(herr)).Inc()
        if herr != nil {
            errs = multierror.Append(errs, fmt.Errorf("%s: %w", h.Name, herr))
        }
    }

    r := Report{Message: s.Message, Blocked: s.Blocked, UpgradeLocked: s.UpgradeLocked, ClusterReady: s.ClusterReady, Left: s.Left, At: a.opts.Now()}
    err = errs.ErrorOrNil()
    if err != nil { r.Error = err.Error() }

    a.mu.Lock()
    if !s.departuresDone {
        a.pending = append(s.Departures, a.pending...)
    }
    a.last = r
    a.mu.Unlock()
    return r, err
}

// clusterReady consults the persisted flag first and the shared marker
// second, remembering a positive answer locally.
func (a *Agent) clusterReady(ctx context.Context) bool {
    if ok, err := a.opts.Store.Flag(state.ClusterReady); err == nil && ok { return true }
    ok, err := a.opts.Ready.Ready(ctx)
    if err != nil {
        logutil.Warnf(a.log, "cluster readiness unknown, not joining yet: %v", err)
        return false
    }
    if ok {
        if err := a.opts.Store.SetFlag(state.ClusterReady, true); err != nil {
            logutil.Warnf(a.log, "persist cluster readiness: %v", err)
        }
    }
    return ok
}

func (a *Agent) buildState(ctx context.Context) (*State, error) {
    a.mu.Lock()
    deps := a.pending
    a.pending = nil
    a.mu.Unlock()

    table := a.opts.Peers.Peers()
    s := &State{LocalUnit: a.opts.LocalUnit, LocalIP: table[a.opts.LocalUnit], Peers: table, Departures: deps}

    left, err := a.opts.Store.Flag(state.LeftCluster)
    if err != nil {
        a.mu.Lock()
        a.pending = append(deps, a.pending...)
        a.mu.Unlock()
        return nil, err
    }
    s.Left = left
    s.Bootstrap = a.opts.Bootstrap
    s.ClusterReady = a.clusterReady(ctx)
    a.mu.Lock()
    s.Announced = a.announced
    a.mu.Unlock()

    held, err := a.opts.Lock.Held(ctx)
    if err != nil {
        logutil.Warnf(a.log, "upgrade lock state unknown, treating as held: %v", err)
        held = true
    }
    s.UpgradeLocked = held
    metrics.UpgradeLocked.Set(metrics.Bool(held))

    if a.opts.ElectionTimer > 0 {
        s.TimerMs = int(a.opts.ElectionTimer.Milliseconds())
        s.TimerErr = a.rec.ValidateElectionTimer(s.TimerMs)
    }
    return s, nil
}
