package cluster

import (
    "context"
    "strings"

    "github.com/amirimatin/ovsdb-cluster/pkg/ovsdb"
)

// Formed reports whether the local servers are members of both clusters.
// An unavailable status counts as not formed.
func (r *Reconciler) Formed(ctx context.Context) bool {
    for _, db := range ovsdb.Databases {
        s, err := r.engine.Status(ctx, db)
        if err != nil || !s.IsMember() { return false }
    }
    return true
}

// StatusMessage returns the workload status line, e.g.
// "leader: ovnnb_db, ovnsb_db". It is empty when this unit leads neither
// database or no status is available.
func (r *Reconciler) StatusMessage(ctx context.Context) string {
    var led []string
    for _, db := range []ovsdb.Database{ovsdb.Northbound, ovsdb.Southbound} {
        s, err := r.engine.Status(ctx, db)
        if err == nil && s.IsLeader() {
            led = append(led, db.Name())
        }
    }
    if len(led) == 0 { return "" }
    return "leader: " + strings.Join(led, ", ")
}
