package cluster

import (
    "context"
    "errors"
    "fmt"
    "log"
    "strings"
    "time"

    "github.com/avast/retry-go"
    "github.com/spf13/afero"

    "github.com/amirimatin/ovsdb-cluster/pkg/internal/logutil"
    "github.com/amirimatin/ovsdb-cluster/pkg/observability/metrics"
    "github.com/amirimatin/ovsdb-cluster/pkg/observability/tracing"
    "github.com/amirimatin/ovsdb-cluster/pkg/ovsdb"
)

// Reconciler orchestrates membership of the local OVSDB servers in the
// Northbound and Southbound clusters: bootstrap, forced removal of stale
// members, graceful departure and waiting for peers to depart.
type Reconciler struct {
    opts   Options
    engine Engine
    log    *log.Logger
}

// New constructs a Reconciler. It runs no commands.
func New(opts Options) (*Reconciler, error) {
    if err := opts.Validate(); err != nil {
        return nil, err
    }
    opts.setDefaults()
    return &Reconciler{opts: opts, engine: opts.Engine, log: opts.Logger}, nil
}

// ParseSchema maps exactly "Northbound" or "Southbound" to a database.
// Anything else, including the OVN_ schema names, is ErrInvalidSchema.
func ParseSchema(schema string) (ovsdb.Database, error) {
    switch schema {
    case "Northbound":
        return ovsdb.Northbound, nil
    case "Southbound":
        return ovsdb.Southbound, nil
    }
    return "", fmt.Errorf("%w: %q", ErrInvalidSchema, schema)
}

// JoinCluster creates dbFile as a new cluster member pointing at all remote
// peers. An existing file means the member was already bootstrapped and
// nothing is done.
func (r *Reconciler) JoinCluster(ctx context.Context, dbFile, schema string, local, remote []string) error {
    exists, err := afero.Exists(r.opts.Fs, dbFile)
    if err != nil { return fmt.Errorf("cluster: stat %s: %w", dbFile, err) }
    if exists {
        logutil.Debugf(r.log, "OVN database %q exists on disk, not creating a new one joining cluster", dbFile)
        return nil
    }
    ctx, end := tracing.StartSpan(ctx, "cluster.join", "schema", schema)
    defer end()
    logutil.Infof(r.log, "joining %s cluster: file=%s local=%v remote=%v", schema, dbFile, local, remote)
    if err := r.engine.JoinCluster(ctx, dbFile, schema, local, remote); err != nil {
        return fmt.Errorf("cluster: join %s cluster: %w", schema, err)
    }
    return nil
}

// CreateCluster initializes dbFile as the first and only member of a new
// cluster. Like JoinCluster it does nothing when the file already exists.
func (r *Reconciler) CreateCluster(ctx context.Context, dbFile, schemaFile, local string) error {
    exists, err := afero.Exists(r.opts.Fs, dbFile)
    if err != nil { return fmt.Errorf("cluster: stat %s: %w", dbFile, err) }
    if exists {
        logutil.Debugf(r.log, "OVN database %q exists on disk, not creating a new cluster", dbFile)
        return nil
    }
    ctx, end := tracing.StartSpan(ctx, "cluster.create", "schema", schemaFile)
    defer end()
    logutil.Infof(r.log, "creating cluster: file=%s schema=%s local=%s", dbFile, schemaFile, local)
    if err := r.engine.CreateCluster(ctx, dbFile, schemaFile, local); err != nil {
        return fmt.Errorf("cluster: create cluster in %s: %w", dbFile, err)
    }
    return nil
}

// Kick forcibly removes serverID from the cluster selected by schema. It is
// operator triggered and never retried.
func (r *Reconciler) Kick(ctx context.Context, schema, serverID string) error {
    db, err := ParseSchema(schema)
    if err != nil { return err }
    if strings.TrimSpace(serverID) == "" { return ErrNoServerID }
    ctx, end := tracing.StartSpan(ctx, "cluster.kick", "db", string(db), "server", serverID)
    defer end()
    err = r.engine.Kick(ctx, db, serverID)
    metrics.KickRequests.WithLabelValues(string(db), metrics.Result(err)).Inc()
    if err != nil {
        return fmt.Errorf("failed to kick %s cluster member %s: %w", displayName(db), serverID, err)
    }
    logutil.Infof(r.log, "requested kick of %s from %s cluster", serverID, displayName(db))
    return nil
}

// LeaveCluster removes the local servers from the Southbound and then the
// Northbound cluster. Both attempts are made regardless of the other's
// outcome. Failures are only logged since this runs during teardown.
func (r *Reconciler) LeaveCluster(ctx context.Context) {
    ctx, end := tracing.StartSpan(ctx, "cluster.leave")
    defer end()
    for _, db := range ovsdb.Databases {
        logutil.Infof(r.log, "Removing self from %s cluster", displayName(db))
        err := r.engine.Leave(ctx, db)
        metrics.LeaveAttempts.WithLabelValues(string(db), metrics.Result(err)).Inc()
        if err != nil {
            logutil.Warnf(r.log, "Failed to leave %s cluster: %v. You can use the 'cluster-kick' action on remaining units to remove lingering cluster members.", displayName(db), err)
        }
    }
}

// WaitForDeparture polls both clusters until no server with address ip is
// listed, using the configured timeout and poll interval.
func (r *Reconciler) WaitForDeparture(ctx context.Context, ip string) bool {
    return r.WaitForDepartureWithin(ctx, ip, r.opts.DepartureTimeout, r.opts.PollInterval)
}

// WaitForDepartureWithin reports whether ip left both clusters before the
// timeout. A cluster found clear is not polled again. It never fails; an
// unavailable status, or one from a server that is not itself a cluster
// member, counts as still present.
func (r *Reconciler) WaitForDepartureWithin(ctx context.Context, ip string, timeout, tick time.Duration) bool {
    ctx, end := tracing.StartSpan(ctx, "cluster.wait_for_departure", "ip", ip)
    defer end()
    if tick <= 0 { tick = DefaultPollInterval }
    attempts := uint(timeout / tick)
    if attempts == 0 { attempts = 1 }

    pending := map[ovsdb.Database]bool{ovsdb.Southbound: true, ovsdb.Northbound: true}
    err := retry.Do(
        func() error {
            for _, db := range ovsdb.Databases {
                if !pending[db] { continue }
                logutil.Infof(r.log, "Waiting for %s to leave %s cluster", ip, displayName(db))
                s, err := r.engine.Status(ctx, db)
                if err != nil {
                    logutil.Debugf(r.log, "%s status unavailable while waiting for %s: %v", displayName(db), ip, err)
                    continue
                }
                if !s.IsMember() {
                    logutil.Debugf(r.log, "local %s server is %q, its server list is stale", displayName(db), s.Status)
                    continue
                }
                if !IsMember(ip, s) { pending[db] = false }
            }
            if pending[ovsdb.Southbound] || pending[ovsdb.Northbound] { return errStillMember }
            return nil
        },
        retry.Attempts(attempts),
        retry.Delay(tick),
        retry.DelayType(retry.FixedDelay),
        retry.LastErrorOnly(true),
        retry.Context(ctx),
    )
    ok := err == nil
    metrics.DepartureWaits.WithLabelValues(metrics.Result(err)).Inc()
    if !ok && !errors.Is(err, errStillMember) {
        logutil.Debugf(r.log, "wait for %s aborted: %v", ip, err)
    }
    return ok
}

// IsMember reports whether any server in status is reachable at ip.
func IsMember(ip string, status *ovsdb.ClusterStatus) bool {
    if status == nil { return false }
    for _, srv := range status.Servers {
        a, err := ovsdb.ParseAddress(srv.Address)
        if err != nil { continue }
        if ovsdb.SameIP(ip, a) { return true }
    }
    return false
}

func displayName(db ovsdb.Database) string {
    switch db {
    case ovsdb.Northbound:
        return "Northbound"
    case ovsdb.Southbound:
        return "Southbound"
    }
    return string(db)
}
