package agent

import (
    "errors"
    "log"
    "time"

    "github.com/amirimatin/ovsdb-cluster/pkg/cluster"
    "github.com/amirimatin/ovsdb-cluster/pkg/firewall"
    "github.com/amirimatin/ovsdb-cluster/pkg/ovsdb"
    "github.com/amirimatin/ovsdb-cluster/pkg/peers"
    "github.com/amirimatin/ovsdb-cluster/pkg/readiness"
    "github.com/amirimatin/ovsdb-cluster/pkg/state"
    "github.com/amirimatin/ovsdb-cluster/pkg/upgradelock"
)

const DefaultInterval = 30 * time.Second

// Paths resolves the on-disk database and schema files. Implemented by
// *appctl.Client.
type Paths interface {
    DBPath(db ovsdb.Database) (string, error)
    SchemaPath(db ovsdb.Database) (string, error)
}

// Options configures an Agent.
type Options struct {
    Reconciler *cluster.Reconciler
    Paths      Paths
    Peers      peers.Source
    // LocalUnit is this unit's id in the peer table.
    LocalUnit string

    Store    *state.Store
    Lock     upgradelock.Checker
    Firewall firewall.Firewall

    // Bootstrap makes this unit the one that creates the clusters while
    // Ready reports them missing. Every other unit waits for Ready to join.
    Bootstrap bool
    Ready     readiness.Marker

    // ElectionTimer is the desired election timer. Zero leaves the live
    // value alone.
    ElectionTimer time.Duration
    // Interval between periodic passes.
    Interval time.Duration
    // Cluster ports; zero selects the database defaults.
    NBClusterPort int
    SBClusterPort int

    Logger *log.Logger
    Now    func() time.Time
}

// Validate performs a minimal validation of Options.
func (o Options) Validate() error {
    if o.Reconciler == nil {
        return errors.New("agent: nil Reconciler")
    }
    if o.Paths == nil {
        return errors.New("agent: nil Paths")
    }
    if o.Peers == nil {
        return errors.New("agent: nil Peers")
    }
    if o.LocalUnit == "" {
        return errors.New("agent: empty LocalUnit")
    }
    if o.Interval < 0 || o.ElectionTimer < 0 {
        return errors.New("agent: negative duration")
    }
    return nil
}

func (o *Options) setDefaults() {
    if o.Logger == nil { o.Logger = log.Default() }
    if o.Store == nil { o.Store = state.NewMemory() }
    if o.Lock == nil { o.Lock = upgradelock.None{} }
    if o.Ready == nil { o.Ready = readiness.NewStatic(false) }
    if o.Firewall == nil { o.Firewall = &firewall.Hook{Logger: o.Logger} }
    if o.Interval == 0 { o.Interval = DefaultInterval }
    if o.NBClusterPort == 0 { o.NBClusterPort = ovsdb.Northbound.ClusterPort() }
    if o.SBClusterPort == 0 { o.SBClusterPort = ovsdb.Southbound.ClusterPort() }
    if o.Now == nil { o.Now = time.Now }
}

func (o Options) clusterPort(db ovsdb.Database) int {
    if db == ovsdb.Northbound { return o.NBClusterPort }
    return o.SBClusterPort
}
