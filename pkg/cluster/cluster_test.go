package cluster

import (
    "context"
    "errors"
    "io"
    "log"
    "strings"
    "testing"
    "time"

    "github.com/spf13/afero"

    "github.com/amirimatin/ovsdb-cluster/pkg/ovsdb"
)

func TestJoinCluster_Idempotent(t *testing.T) {
    fs := afero.NewMemMapFs()
    e := newFakeEngine()
    r, err := New(Options{Engine: e, Fs: fs, Logger: log.New(io.Discard, "", 0)})
    if err != nil { t.Fatalf("new: %v", err) }

    local := []string{"ssl:10.0.0.1:6644"}
    remote := []string{"ssl:10.0.0.2:6644", "ssl:10.0.0.3:6644"}
    if err := r.JoinCluster(context.Background(), "/var/lib/ovn/ovnsb_db.db", "OVN_Southbound", local, remote); err != nil { t.Fatalf("join: %v", err) }
    if calls := e.Calls(); len(calls) != 1 || !strings.HasPrefix(calls[0], "join /var/lib/ovn/ovnsb_db.db OVN_Southbound") { t.Fatalf("calls = %v", calls) }

    if err := afero.WriteFile(fs, "/var/lib/ovn/ovnsb_db.db", []byte("x"), 0o640); err != nil { t.Fatalf("write: %v", err) }
    if err := r.JoinCluster(context.Background(), "/var/lib/ovn/ovnsb_db.db", "OVN_Southbound", local, remote); err != nil { t.Fatalf("join: %v", err) }
    if n := len(e.Calls()); n != 1 { t.Fatalf("existing db file must not be rejoined, calls = %d", n) }
}

func TestCreateCluster_Idempotent(t *testing.T) {
    fs := afero.NewMemMapFs()
    e := newFakeEngine()
    r, err := New(Options{Engine: e, Fs: fs, Logger: log.New(io.Discard, "", 0)})
    if err != nil { t.Fatalf("new: %v", err) }

    ctx := context.Background()
    if err := r.CreateCluster(ctx, "/var/lib/ovn/ovnnb_db.db", "/usr/share/ovn/ovn-nb.ovsschema", "ssl:10.0.0.1:6643"); err != nil { t.Fatalf("create: %v", err) }
    want := "create /var/lib/ovn/ovnnb_db.db /usr/share/ovn/ovn-nb.ovsschema ssl:10.0.0.1:6643"
    if calls := e.Calls(); len(calls) != 1 || calls[0] != want { t.Fatalf("calls = %v", calls) }

    if err := afero.WriteFile(fs, "/var/lib/ovn/ovnnb_db.db", []byte("x"), 0o640); err != nil { t.Fatalf("write: %v", err) }
    if err := r.CreateCluster(ctx, "/var/lib/ovn/ovnnb_db.db", "/usr/share/ovn/ovn-nb.ovsschema", "ssl:10.0.0.1:6643"); err != nil { t.Fatalf("create: %v", err) }
    if n := len(e.Calls()); n != 1 { t.Fatalf("existing db file must not be recreated, calls = %d", n) }
}

func TestKick_InvalidSchema(t *testing.T) {
    e := newFakeEngine()
    r := newTestReconciler(e, nil)
    err := r.Kick(context.Background(), "foo", "aa11")
    if !errors.Is(err, ErrInvalidSchema) { t.Fatalf("err = %v", err) }
    if len(e.Calls()) != 0 { t.Fatalf("commands issued: %v", e.Calls()) }
}

func TestKick_Schemas(t *testing.T) {
    e := newFakeEngine()
    r := newTestReconciler(e, nil)
    for _, s := range []string{"Southbound", "Northbound"} {
        if err := r.Kick(context.Background(), s, "aa11"); err != nil { t.Fatalf("kick %s: %v", s, err) }
    }
    want := []string{"kick southbound aa11", "kick northbound aa11"}
    got := e.Calls()
    if len(got) != 2 || got[0] != want[0] || got[1] != want[1] { t.Fatalf("calls = %v", got) }
    if err := r.Kick(context.Background(), "Southbound", " "); !errors.Is(err, ErrNoServerID) { t.Fatalf("err = %v", err) }
}

func TestParseSchema_ExactNamesOnly(t *testing.T) {
    for _, s := range []string{"OVN_Northbound", "OVN_Southbound", "northbound", "Southbound ", ""} {
        if _, err := ParseSchema(s); !errors.Is(err, ErrInvalidSchema) { t.Fatalf("%q: err = %v", s, err) }
    }
    if db, err := ParseSchema("Northbound"); err != nil || db != ovsdb.Northbound { t.Fatalf("Northbound = %v, %v", db, err) }
    if db, err := ParseSchema("Southbound"); err != nil || db != ovsdb.Southbound { t.Fatalf("Southbound = %v, %v", db, err) }
}

func TestKick_FailureCarriesIDAndOutput(t *testing.T) {
    e := newFakeEngine()
    e.failKick[ovsdb.Southbound] = "unknown server 'aa11'"
    r := newTestReconciler(e, nil)
    err := r.Kick(context.Background(), "Southbound", "aa11")
    if err == nil { t.Fatalf("expected error") }
    msg := err.Error()
    if !strings.Contains(msg, "Southbound cluster member aa11") || !strings.Contains(msg, "unknown server") { t.Fatalf("msg = %q", msg) }
}

func TestLeaveCluster_Independent(t *testing.T) {
    e := newFakeEngine()
    e.failLeave[ovsdb.Southbound] = true
    r := newTestReconciler(e, nil)
    r.LeaveCluster(context.Background())
    got := e.Calls()
    if len(got) != 2 || got[0] != "leave southbound" || got[1] != "leave northbound" { t.Fatalf("calls = %v", got) }
}

func TestWaitForDeparture_EarlyExit(t *testing.T) {
    e := newFakeEngine()
    e.status[ovsdb.Southbound] = withServers(ovsdb.Southbound, "ssl:10.0.0.1:6644")
    e.status[ovsdb.Northbound] = withServers(ovsdb.Northbound, "ssl:10.0.0.1:6643")
    r := newTestReconciler(e, nil)

    start := time.Now()
    if !r.WaitForDepartureWithin(context.Background(), "10.0.0.9", time.Minute, 10*time.Second) { t.Fatalf("expected departure") }
    if time.Since(start) > 5*time.Second { t.Fatalf("did not exit early") }
    if e.statusN[ovsdb.Southbound] != 1 || e.statusN[ovsdb.Northbound] != 1 { t.Fatalf("polls = %v", e.statusN) }
}

func TestWaitForDeparture_PerClusterShortCircuit(t *testing.T) {
    e := newFakeEngine()
    e.status[ovsdb.Southbound] = withServers(ovsdb.Southbound, "ssl:10.0.0.1:6644")
    present := withServers(ovsdb.Northbound, "ssl:10.0.0.1:6643", "ssl:10.0.0.2:6643")
    gone := withServers(ovsdb.Northbound, "ssl:10.0.0.1:6643")
    e.statusSeq[ovsdb.Northbound] = []*ovsdb.ClusterStatus{present, present, gone}
    r := newTestReconciler(e, nil)

    if !r.WaitForDepartureWithin(context.Background(), "10.0.0.2", 50*time.Millisecond, time.Millisecond) { t.Fatalf("expected departure") }
    if e.statusN[ovsdb.Southbound] != 1 { t.Fatalf("southbound polled %d times, want 1", e.statusN[ovsdb.Southbound]) }
    if e.statusN[ovsdb.Northbound] != 3 { t.Fatalf("northbound polled %d times, want 3", e.statusN[ovsdb.Northbound]) }
}

func TestWaitForDeparture_Timeout(t *testing.T) {
    e := newFakeEngine()
    e.status[ovsdb.Southbound] = withServers(ovsdb.Southbound, "ssl:fd00::2:6644")
    e.status[ovsdb.Northbound] = withServers(ovsdb.Northbound)
    r := newTestReconciler(e, nil)

    if r.WaitForDepartureWithin(context.Background(), "fd00::2", 3*time.Millisecond, time.Millisecond) { t.Fatalf("expected timeout") }
    if e.statusN[ovsdb.Southbound] != 3 { t.Fatalf("southbound polled %d times, want 3", e.statusN[ovsdb.Southbound]) }
}

func TestWaitForDeparture_NotReadyCountsAsPresent(t *testing.T) {
    e := newFakeEngine()
    e.notReady[ovsdb.Southbound] = true
    e.status[ovsdb.Northbound] = withServers(ovsdb.Northbound)
    r := newTestReconciler(e, nil)
    if r.WaitForDepartureWithin(context.Background(), "10.0.0.2", 2*time.Millisecond, time.Millisecond) { t.Fatalf("unavailable status must not count as departed") }
}

func TestWaitForDeparture_DisconnectedServerCountsAsPresent(t *testing.T) {
    e := newFakeEngine()
    for _, db := range ovsdb.Databases {
        s := withServers(db, "ssl:10.0.0.1:6644")
        s.Status = "disconnected from the cluster (election timeout)"
        e.status[db] = s
    }
    r := newTestReconciler(e, nil)
    if r.WaitForDepartureWithin(context.Background(), "10.0.0.2", 3*time.Millisecond, time.Millisecond) {
        t.Fatalf("a disconnected server's list must not count as departed")
    }
    if e.statusN[ovsdb.Southbound] != 3 { t.Fatalf("southbound polled %d times, want 3", e.statusN[ovsdb.Southbound]) }
}

func TestIsMember(t *testing.T) {
    s := withServers(ovsdb.Southbound, "ssl:10.0.0.1:6644", "ssl:2001:db8::5:6644")
    if !IsMember("10.0.0.1", s) || !IsMember("2001:db8:0:0:0:0:0:5", s) { t.Fatalf("expected members") }
    if IsMember("10.0.0.11", s) || IsMember("10.0.0.1", nil) { t.Fatalf("unexpected member") }
}

func TestOptionsValidate(t *testing.T) {
    if err := (Options{}).Validate(); err == nil { t.Fatalf("nil engine must be rejected") }
    if err := (Options{Engine: newFakeEngine(), MinElectionTimer: 10 * time.Second, MaxElectionTimer: time.Second}).Validate(); err == nil { t.Fatalf("inverted bounds must be rejected") }
}
