package cluster

import (
    "context"
    "fmt"

    "github.com/hashicorp/go-multierror"

    "github.com/amirimatin/ovsdb-cluster/pkg/observability/metrics"
    "github.com/amirimatin/ovsdb-cluster/pkg/observability/tracing"
    "github.com/amirimatin/ovsdb-cluster/pkg/ovsdb"
)

// ServerReport is one cluster server annotated with its unit.
type ServerReport struct {
    Address string `json:"Address" yaml:"Address"`
    Unit    string `json:"Unit" yaml:"Unit"`
}

// ClusterReport is the operator facing view of one database cluster.
type ClusterReport struct {
    ClusterID     string                  `json:"Cluster ID" yaml:"Cluster ID"`
    ServerID      string                  `json:"Server ID" yaml:"Server ID"`
    Address       string                  `json:"Address" yaml:"Address"`
    Status        string                  `json:"Status" yaml:"Status"`
    Role          string                  `json:"Role" yaml:"Role"`
    Term          uint64                  `json:"Term" yaml:"Term"`
    Leader        string                  `json:"Leader" yaml:"Leader"`
    Vote          string                  `json:"Vote" yaml:"Vote"`
    ElectionTimer int                     `json:"Election timer" yaml:"Election timer"`
    Log           string                  `json:"Log" yaml:"Log"`
    NotCommitted  int                     `json:"Entries not yet committed" yaml:"Entries not yet committed"`
    NotApplied    int                     `json:"Entries not yet applied" yaml:"Entries not yet applied"`
    Servers       map[string]ServerReport `json:"Servers" yaml:"Servers"`
    UnitMap       UnitMap                 `json:"Unit map" yaml:"Unit map"`
}

// StatusReport is the result of the cluster-status action.
type StatusReport struct {
    Southbound *ClusterReport `json:"southbound-cluster" yaml:"southbound-cluster"`
    Northbound *ClusterReport `json:"northbound-cluster" yaml:"northbound-cluster"`
}

// NewClusterReport formats status and maps its servers onto units.
func NewClusterReport(status *ovsdb.ClusterStatus, table map[string]string) (*ClusterReport, error) {
    um, err := MapUnits(status, table)
    if err != nil { return nil, err }
    rep := &ClusterReport{
        ClusterID:     status.ClusterID.String(),
        ServerID:      status.ServerID.String(),
        Address:       status.Address,
        Status:        status.Status,
        Role:          status.Role,
        Term:          status.Term,
        Leader:        status.Leader,
        Vote:          status.Vote,
        ElectionTimer: status.ElectionTimer,
        Log:           status.Log,
        NotCommitted:  status.NotCommitted,
        NotApplied:    status.NotApplied,
        Servers:       make(map[string]ServerReport, len(status.Servers)),
        UnitMap:       um,
    }
    for _, srv := range status.Servers {
        rep.Servers[srv.ID] = ServerReport{Address: srv.Address, Unit: um.Unit(srv.ID)}
    }
    metrics.UnknownServers.WithLabelValues(string(status.Database)).Set(float64(len(um.Unknown)))
    return rep, nil
}

// ClusterStatus implements the cluster-status action. table maps unit ids to
// their bound addresses and must include the local unit.
func (r *Reconciler) ClusterStatus(ctx context.Context, table map[string]string) (*StatusReport, error) {
    ctx, end := tracing.StartSpan(ctx, "cluster.status_action")
    defer end()
    out := &StatusReport{}
    for _, db := range ovsdb.Databases {
        s, err := r.engine.Status(ctx, db)
        if err != nil { return nil, fmt.Errorf("%s cluster: %w", displayName(db), err) }
        rep, err := NewClusterReport(s, table)
        if err != nil { return nil, err }
        if db == ovsdb.Southbound {
            out.Southbound = rep
        } else {
            out.Northbound = rep
        }
    }
    return out, nil
}

// KickRequest names the server to kick from each cluster. Empty ids are
// skipped.
type KickRequest struct {
    SouthboundID string `json:"sbServerId,omitempty"`
    NorthboundID string `json:"nbServerId,omitempty"`
}

// KickResult carries one message per attempted database.
type KickResult struct {
    Southbound string `json:"southbound,omitempty" yaml:"southbound,omitempty"`
    Northbound string `json:"northbound,omitempty" yaml:"northbound,omitempty"`
}

// KickServers implements the cluster-kick action. Each database is handled
// independently: a failure for one does not prevent the other attempt, and
// the returned error aggregates every failure.
func (r *Reconciler) KickServers(ctx context.Context, req KickRequest) (KickResult, error) {
    var res KickResult
    if req.SouthboundID == "" && req.NorthboundID == "" {
        return res, ErrNoServerID
    }
    var errs *multierror.Error
    if id := req.SouthboundID; id != "" {
        if err := r.Kick(ctx, "Southbound", id); err != nil {
            errs = multierror.Append(errs, err)
            res.Southbound = err.Error()
        } else {
            res.Southbound = "requested kick of " + id
        }
    }
    if id := req.NorthboundID; id != "" {
        if err := r.Kick(ctx, "Northbound", id); err != nil {
            errs = multierror.Append(errs, err)
            res.Northbound = err.Error()
        } else {
            res.Northbound = "requested kick of " + id
        }
    }
    return res, errs.ErrorOrNil()
}
