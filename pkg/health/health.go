// Package health implements Nagios style checks of the local OVSDB servers:
// Raft membership state and the listener configuration of the Connection
// table.
package health

import (
    "context"
    "fmt"
    "strings"

    "github.com/spf13/afero"

    "github.com/amirimatin/ovsdb-cluster/pkg/ovsdb"
)

// Severity doubles as the Nagios plugin exit code.
type Severity int

const (
    OK Severity = iota
    Warning
    Critical
    Unknown
)

func (s Severity) String() string {
    switch s {
    case OK:
        return "OK"
    case Warning:
        return "WARNING"
    case Critical:
        return "CRITICAL"
    }
    return "UNKNOWN"
}

type Alert struct {
    Severity Severity
    Msg      string
}

// Result is the single line reported to the monitoring system.
type Result struct {
    Severity Severity
    Detail   string
}

func (r Result) String() string { return r.Severity.String() + ": " + r.Detail }

// Aggregate reduces alerts to the highest severity. okDetail is reported when
// nothing is wrong.
func Aggregate(alerts []Alert, okDetail string) Result {
    var crit, warn []string
    for _, a := range alerts {
        switch a.Severity {
        case Critical, Unknown:
            crit = append(crit, a.Msg)
        case Warning:
            warn = append(warn, a.Msg)
        }
    }
    var parts []string
    res := Result{Severity: OK}
    if len(crit) > 0 {
        res.Severity = Critical
        parts = append(parts, fmt.Sprintf("critical[%d]: %s", len(crit), strings.Join(crit, ", ")))
    }
    if len(warn) > 0 {
        if res.Severity != Critical { res.Severity = Warning }
        parts = append(parts, fmt.Sprintf("warnings[%d]: %s", len(warn), strings.Join(warn, ", ")))
    }
    if len(parts) == 0 {
        res.Detail = okDetail
        return res
    }
    res.Detail = strings.Join(parts, "; ")
    return res
}

// StatusAlert classifies the Raft state of one server.
func StatusAlert(s *ovsdb.ClusterStatus) Alert {
    msg := fmt.Sprintf("status for %s in %s db is %s", s.ServerID.Short, s.Name, s.Status)
    switch s.Status {
    case ovsdb.StatusJoining, ovsdb.StatusLeaving, ovsdb.StatusLeft:
        return Alert{Severity: Warning, Msg: msg}
    case ovsdb.StatusFailed, ovsdb.StatusDisconnected:
        return Alert{Severity: Critical, Msg: msg}
    }
    return Alert{Severity: OK, Msg: msg}
}

// ExpectedConnections is the number of Connection rows each database should
// carry.
var ExpectedConnections = map[ovsdb.Database]int{ovsdb.Southbound: 2, ovsdb.Northbound: 1}

// ConnectionAlerts validates the listener targets and roles of db.
func ConnectionAlerts(conns []ovsdb.Connection, db ovsdb.Database) []Alert {
    var alerts []Alert
    if want := ExpectedConnections[db]; len(conns) != want {
        alerts = append(alerts, Alert{Critical, fmt.Sprintf("expected %d connections, got %d", want, len(conns))})
    }
    controllers := 0
    for _, c := range conns {
        alerts = append(alerts, roleTargetAlert(c, db))
        if db == ovsdb.Southbound {
            if c.Role == "ovn-controller" { controllers++ }
            if c.ReadOnly {
                alerts = append(alerts, Alert{Critical, c.UUID + ": connection is read only"})
            } else {
                alerts = append(alerts, Alert{OK, c.UUID + ": connection is not read_only"})
            }
        }
    }
    if db == ovsdb.Southbound && controllers != 1 {
        alerts = append(alerts, Alert{Critical, fmt.Sprintf("expected 1 ovn-controller connection, got %d", controllers)})
    }
    return alerts
}

func roleTargetAlert(c ovsdb.Connection, db ovsdb.Database) Alert {
    if db != ovsdb.Southbound {
        if c.Target != "pssl:6641" {
            return Alert{Critical, fmt.Sprintf("%s: unexpected target: %s", c.UUID, c.Target)}
        }
        return Alert{OK, c.UUID + ": target and role are OK"}
    }
    switch {
    case c.Target != "pssl:6642" && c.Target != "pssl:16642":
        return Alert{Critical, fmt.Sprintf("%s: unexpected target: %s", c.UUID, c.Target)}
    case c.Role != "ovn-controller" && c.Role != "":
        return Alert{Critical, fmt.Sprintf("%s: unexpected role: %s", c.UUID, c.Role)}
    case c.Target == "pssl:6642" && c.Role == "":
        return Alert{Warning, c.UUID + ": RBAC is disabled"}
    case c.Target == "pssl:16642" && c.Role != "":
        return Alert{Critical, fmt.Sprintf("%s: target pssl:16642 has role %s but expected \"\"", c.UUID, c.Role)}
    }
    return Alert{OK, c.UUID + ": target and role are OK"}
}

// Source is what the checks need from the control client.
type Source interface {
    Status(ctx context.Context, db ovsdb.Database) (*ovsdb.ClusterStatus, error)
    ListConnections(ctx context.Context, db ovsdb.Database) ([]ovsdb.Connection, error)
}

// Checker runs checks against a Source.
type Checker struct {
    Source Source
}

// CheckStatus reports the Raft state of the local server of db.
func (c Checker) CheckStatus(ctx context.Context, db ovsdb.Database) Result {
    s, err := c.Source.Status(ctx, db)
    if err != nil {
        return Result{Severity: Unknown, Detail: err.Error()}
    }
    return Aggregate([]Alert{StatusAlert(s)}, fmt.Sprintf("%s DB %s %s status is normal", s.Name, s.Role, s.ServerID.Short))
}

// CheckConnections validates the Connection table. Only the leader holds an
// authoritative view, so followers report OK without checking.
func (c Checker) CheckConnections(ctx context.Context, db ovsdb.Database) Result {
    s, err := c.Source.Status(ctx, db)
    if err != nil {
        return Result{Severity: Unknown, Detail: err.Error()}
    }
    if !s.IsLeader() {
        return Result{Severity: OK, Detail: "no-op (unit is not the DB leader)"}
    }
    conns, err := c.Source.ListConnections(ctx, db)
    if err != nil {
        return Result{Severity: Unknown, Detail: err.Error()}
    }
    return Aggregate(ConnectionAlerts(conns, db), fmt.Sprintf("OVN %s DB connections are normal", strings.ToUpper(db.Short())))
}

// WriteResult atomically replaces path with the result line for a monitoring
// agent to pick up.
func WriteResult(fs afero.Fs, path string, r Result) error {
    tmp := path + ".tmp"
    if err := afero.WriteFile(fs, tmp, []byte(r.String()), 0o644); err != nil {
        return fmt.Errorf("health: write %s: %w", tmp, err)
    }
    if err := fs.Rename(tmp, path); err != nil {
        return fmt.Errorf("health: rename %s: %w", tmp, err)
    }
    return nil
}
