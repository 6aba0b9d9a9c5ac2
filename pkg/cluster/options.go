package cluster

import (
    "context"
    "errors"
    "log"
    "time"

    "github.com/spf13/afero"

    "github.com/amirimatin/ovsdb-cluster/pkg/ovsdb"
)

const (
    DefaultDepartureTimeout = 30 * time.Second
    DefaultPollInterval     = 5 * time.Second
    MinElectionTimer        = 1 * time.Second
    MaxElectionTimer        = 60 * time.Second
)

// Engine is the set of control operations the reconciler drives. It is
// implemented by *appctl.Client.
type Engine interface {
    Status(ctx context.Context, db ovsdb.Database) (*ovsdb.ClusterStatus, error)
    Kick(ctx context.Context, db ovsdb.Database, serverID string) error
    Leave(ctx context.Context, db ovsdb.Database) error
    ChangeElectionTimer(ctx context.Context, db ovsdb.Database, ms int) error
    JoinCluster(ctx context.Context, file, schema string, local, remote []string) error
    CreateCluster(ctx context.Context, file, schemaFile, local string) error
}

// Options configures a Reconciler. Zero durations take the package defaults.
type Options struct {
    // Engine runs the control commands (required).
    Engine Engine
    // Fs is consulted for the on-disk database files. Defaults to the OS.
    Fs     afero.Fs
    Logger *log.Logger

    DepartureTimeout time.Duration
    PollInterval     time.Duration

    // Bounds accepted by Converge.
    MinElectionTimer time.Duration
    MaxElectionTimer time.Duration

    // Sleep pauses between election timer steps. Tests replace it.
    Sleep func(ctx context.Context, d time.Duration) error
}

// Validate performs a minimal validation of Options.
func (o Options) Validate() error {
    if o.Engine == nil {
        return errors.New("cluster: nil Engine")
    }
    if o.DepartureTimeout < 0 || o.PollInterval < 0 {
        return errors.New("cluster: negative departure timing")
    }
    if o.MinElectionTimer > 0 && o.MaxElectionTimer > 0 && o.MinElectionTimer > o.MaxElectionTimer {
        return errors.New("cluster: min election timer above max")
    }
    return nil
}

func (o *Options) setDefaults() {
    if o.Fs == nil { o.Fs = afero.NewOsFs() }
    if o.Logger == nil { o.Logger = log.Default() }
    if o.DepartureTimeout == 0 { o.DepartureTimeout = DefaultDepartureTimeout }
    if o.PollInterval == 0 { o.PollInterval = DefaultPollInterval }
    if o.MinElectionTimer == 0 { o.MinElectionTimer = MinElectionTimer }
    if o.MaxElectionTimer == 0 { o.MaxElectionTimer = MaxElectionTimer }
    if o.Sleep == nil { o.Sleep = sleep }
}

func sleep(ctx context.Context, d time.Duration) error {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return ctx.Err()
    case <-t.C:
        return nil
    }
}
