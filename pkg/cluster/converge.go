package cluster

import (
    "context"
    "errors"
    "fmt"
    "time"

    "github.com/amirimatin/ovsdb-cluster/pkg/internal/logutil"
    "github.com/amirimatin/ovsdb-cluster/pkg/observability/metrics"
    "github.com/amirimatin/ovsdb-cluster/pkg/observability/tracing"
    "github.com/amirimatin/ovsdb-cluster/pkg/ovsdb"
)

// NextElectionTimer returns the next value on the way from cur to target.
// The engine refuses changes of more than 2x per step.
func NextElectionTimer(cur, target int) int {
    if target > cur {
        return min(cur*2, target)
    }
    return max(cur/2, target)
}

// ValidateElectionTimer checks targetMs against the configured bounds.
func (r *Reconciler) ValidateElectionTimer(targetMs int) error {
    lo, hi := int(r.opts.MinElectionTimer.Milliseconds()), int(r.opts.MaxElectionTimer.Milliseconds())
    if targetMs < lo || targetMs > hi {
        return fmt.Errorf("%w: %dms not in [%dms, %dms]", ErrTimerOutOfRange, targetMs, lo, hi)
    }
    return nil
}

// Converge walks the live election timer of db toward targetMs. Only the
// leader may change the timer; when this server is not (or stops being) the
// leader, or no status is available, Converge returns nil and leaves the rest
// to a later pass or another unit. Between steps it waits for one election
// window to pass.
func (r *Reconciler) Converge(ctx context.Context, db ovsdb.Database, targetMs int) error {
    if err := r.ValidateElectionTimer(targetMs); err != nil {
        logutil.Errorf(r.log, "refusing to change %s election timer: %v", displayName(db), err)
        return err
    }
    ctx, end := tracing.StartSpan(ctx, "cluster.converge", "db", string(db))
    defer end()

    status, err := r.engine.Status(ctx, db)
    if err != nil {
        if errors.Is(err, ovsdb.ErrNotReady) { return nil }
        return err
    }
    if !status.IsLeader() {
        logutil.Debugf(r.log, "not %s leader, leaving election timer alone", displayName(db))
        return nil
    }
    cur := status.ElectionTimer
    if cur == targetMs {
        logutil.Debugf(r.log, "Election timer already set to target value: %d == %d", targetMs, cur)
        return nil
    }
    for cur != targetMs && status.IsLeader() {
        next := NextElectionTimer(cur, targetMs)
        logutil.Infof(r.log, "change %s election timer %dms -> %dms", db.Schema(), cur, next)
        if err := r.engine.ChangeElectionTimer(ctx, db, next); err != nil {
            return fmt.Errorf("cluster: change %s election timer to %dms: %w", displayName(db), next, err)
        }
        metrics.ElectionTimerChanges.WithLabelValues(string(db)).Inc()
        if err := r.opts.Sleep(ctx, time.Duration(cur+next)*time.Millisecond); err != nil {
            return err
        }
        cur = next
        status, err = r.engine.Status(ctx, db)
        if err != nil {
            if errors.Is(err, ovsdb.ErrNotReady) { return nil }
            return err
        }
    }
    return nil
}
