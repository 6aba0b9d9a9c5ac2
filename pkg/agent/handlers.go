package agent

import (
    "context"
    "fmt"

    "github.com/hashicorp/go-multierror"

    "github.com/amirimatin/ovsdb-cluster/pkg/internal/logutil"
    "github.com/amirimatin/ovsdb-cluster/pkg/ovsdb"
    "github.com/amirimatin/ovsdb-cluster/pkg/peers"
    "github.com/amirimatin/ovsdb-cluster/pkg/state"
)

// State is the snapshot a reconcile pass works from. It is rebuilt at the
// start of every pass; handlers may update it for the handlers after them.
type State struct {
    LocalUnit string
    LocalIP   string
    Peers     peers.Table
    // Departures queued since the last pass that handled them.
    Departures []peers.Departure

    UpgradeLocked bool
    Left          bool

    // Bootstrap is set on the unit that creates the clusters. ClusterReady
    // means they exist and may be joined. Announced is set once this process
    // has published readiness.
    Bootstrap    bool
    ClusterReady bool
    Announced    bool

    TimerMs  int
    TimerErr error

    // Filled in by assess-status.
    Message string
    Blocked bool

    departuresDone bool
}

// Remote lists the addresses of the other units.
func (s State) Remote() []string { return s.Peers.Remote(s.LocalUnit) }

// mayMutate is false while membership must not change.
func (s State) mayMutate() bool {
    return !s.UpgradeLocked && !s.Left && s.LocalIP != ""
}

// Handler is one step of a pass. Run is only called when Guard holds.
type Handler struct {
    Name  string
    Guard func(State) bool
    Run   func(ctx context.Context, s *State) error
}

func (a *Agent) defaultHandlers() []Handler {
    return []Handler{
        {Name: "create-cluster", Guard: a.createGuard, Run: a.createCluster},
        {Name: "announce-ready", Guard: a.announceGuard, Run: a.announceReady},
        {Name: "join-cluster", Guard: a.joinGuard, Run: a.joinCluster},
        {Name: "election-timer", Guard: a.timerGuard, Run: a.electionTimer},
        {Name: "downscale", Guard: a.downscaleGuard, Run: a.downscale},
        {Name: "assess-status", Guard: func(State) bool { return true }, Run: a.assessStatus},
    }
}

func (a *Agent) createGuard(s State) bool { return s.mayMutate() && s.Bootstrap && !s.ClusterReady }

func (a *Agent) createCluster(ctx context.Context, s *State) error {
    var errs *multierror.Error
    for _, db := range []ovsdb.Database{ovsdb.Northbound, ovsdb.Southbound} {
        file, err := a.opts.Paths.DBPath(db)
        if err != nil {
            errs = multierror.Append(errs, err)
            continue
        }
        schema, err := a.opts.Paths.SchemaPath(db)
        if err != nil {
            errs = multierror.Append(errs, err)
            continue
        }
        local := ovsdb.ConnectionStrings([]string{s.LocalIP}, a.opts.clusterPort(db))
        if err := a.rec.CreateCluster(ctx, file, schema, local[0]); err != nil {
            errs = multierror.Append(errs, err)
        }
    }
    return errs.ErrorOrNil()
}

// Any unit whose servers are members of both clusters may announce, so
// readiness survives the loss of the unit that created them.
func (a *Agent) announceGuard(s State) bool { return !s.Announced && !s.Left && s.LocalIP != "" }

func (a *Agent) announceReady(ctx context.Context, s *State) error {
    if !a.rec.Formed(ctx) {
        logutil.Debugf(a.log, "local servers are not members of both clusters yet, not announcing readiness")
        return nil
    }
    if err := a.opts.Ready.MarkReady(ctx); err != nil { return err }
    if err := a.opts.Store.SetFlag(state.ClusterReady, true); err != nil { return err }
    a.mu.Lock()
    a.announced = true
    a.mu.Unlock()
    if !s.ClusterReady { logutil.Infof(a.log, "clusters formed, announcing readiness to peers") }
    s.Announced, s.ClusterReady = true, true
    return nil
}

func (a *Agent) joinGuard(s State) bool { return s.mayMutate() && s.ClusterReady && len(s.Remote()) > 0 }

func (a *Agent) joinCluster(ctx context.Context, s *State) error {
    var errs *multierror.Error
    for _, db := range []ovsdb.Database{ovsdb.Northbound, ovsdb.Southbound} {
        file, err := a.opts.Paths.DBPath(db)
        if err != nil {
            errs = multierror.Append(errs, err)
            continue
        }
        port := a.opts.clusterPort(db)
        local := ovsdb.ConnectionStrings([]string{s.LocalIP}, port)
        remote := ovsdb.ConnectionStrings(s.Remote(), port)
        if err := a.rec.JoinCluster(ctx, file, db.Schema(), local, remote); err != nil {
            errs = multierror.Append(errs, err)
        }
    }
    return errs.ErrorOrNil()
}

func (a *Agent) timerGuard(s State) bool {
    return s.mayMutate() && s.TimerMs > 0 && s.TimerErr == nil
}

func (a *Agent) electionTimer(ctx context.Context, s *State) error {
    var errs *multierror.Error
    for _, db := range []ovsdb.Database{ovsdb.Northbound, ovsdb.Southbound} {
        if err := a.rec.Converge(ctx, db, s.TimerMs); err != nil {
            errs = multierror.Append(errs, err)
        }
    }
    return errs.ErrorOrNil()
}

// Departures wait out an upgrade; they stay queued until the lock is gone.
func (a *Agent) downscaleGuard(s State) bool { return len(s.Departures) > 0 && !s.UpgradeLocked }

func (a *Agent) downscale(ctx context.Context, s *State) error {
    s.departuresDone = true
    gone := map[string]bool{}
    remote := false
    for _, d := range s.Departures {
        if d.Unit == s.LocalUnit {
            if s.Left {
                logutil.Debugf(a.log, "already left the cluster, ignoring departure of %s", d.Unit)
                continue
            }
            a.rec.LeaveCluster(ctx)
            if err := a.opts.Store.SetFlag(state.LeftCluster, true); err != nil {
                return err
            }
            s.Left = true
            continue
        }
        remote = true
        gone[d.Unit] = true
        if d.Address == "" { continue }
        if a.rec.WaitForDeparture(ctx, d.Address) {
            logutil.Infof(a.log, "%s (%s) has left the cluster", d.Unit, d.Address)
        } else {
            logutil.Warnf(a.log, "%s (%s) is still listed as a cluster member", d.Unit, d.Address)
        }
    }
    if !remote || s.Left { return nil }

    var allowed []string
    for _, u := range s.Peers.Units() {
        if !gone[u] { allowed = append(allowed, s.Peers[u]) }
    }
    if err := a.opts.Firewall.Configure(ctx, allowed); err != nil {
        logutil.Warnf(a.log, "Failed to reconfigure firewall after departure: %v. Use the 'cluster-kick' action to remove lingering cluster members.", err)
        return nil
    }
    logutil.Infof(a.log, "firewall updated for departed peers")
    return nil
}

func (a *Agent) assessStatus(ctx context.Context, s *State) error {
    switch {
    case s.TimerErr != nil:
        s.Blocked = true
        s.Message = fmt.Sprintf("invalid election timer configuration: %v", s.TimerErr)
    case s.Left:
        s.Message = "unit has left the cluster"
    default:
        s.Message = a.rec.StatusMessage(ctx)
        if !s.ClusterReady {
            wait := "waiting for the clusters to be initialized"
            if s.Bootstrap { wait = "initializing clusters" }
            s.Message = joinNonEmpty(wait, s.Message)
        }
        if s.UpgradeLocked {
            s.Message = joinNonEmpty("upgrade in progress, membership changes paused", s.Message)
        }
        if s.LocalIP == "" {
            s.Message = joinNonEmpty("waiting for local unit address", s.Message)
        }
    }
    return nil
}

func joinNonEmpty(a, b string) string {
    if b == "" { return a }
    return a + "; " + b
}
