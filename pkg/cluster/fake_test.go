package cluster

import (
    "context"
    "errors"
    "fmt"
    "log"
    "io"
    "sync"
    "time"

    "github.com/amirimatin/ovsdb-cluster/pkg/ovsdb"
)

// fakeEngine keeps a live election timer per database and records calls.
type fakeEngine struct {
    mu      sync.Mutex
    status  map[ovsdb.Database]*ovsdb.ClusterStatus
    // statusSeq, when set, is consumed before status.
    statusSeq map[ovsdb.Database][]*ovsdb.ClusterStatus
    notReady  map[ovsdb.Database]bool
    failKick  map[ovsdb.Database]string
    failLeave map[ovsdb.Database]bool
    // loseLeadershipAt drops the leader role once the timer reaches it.
    loseLeadershipAt int

    calls     []string
    timerSets map[ovsdb.Database][]int
    statusN   map[ovsdb.Database]int
}

func newFakeEngine() *fakeEngine {
    return &fakeEngine{
        status:    map[ovsdb.Database]*ovsdb.ClusterStatus{},
        statusSeq: map[ovsdb.Database][]*ovsdb.ClusterStatus{},
        notReady:  map[ovsdb.Database]bool{},
        failKick:  map[ovsdb.Database]string{},
        failLeave: map[ovsdb.Database]bool{},
        timerSets: map[ovsdb.Database][]int{},
        statusN:   map[ovsdb.Database]int{},
    }
}

func (f *fakeEngine) Status(_ context.Context, db ovsdb.Database) (*ovsdb.ClusterStatus, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    f.statusN[db]++
    if f.notReady[db] { return nil, ovsdb.ErrNotReady }
    if seq := f.statusSeq[db]; len(seq) > 0 {
        s := seq[0]
        if len(seq) > 1 { f.statusSeq[db] = seq[1:] }
        return s, nil
    }
    s, ok := f.status[db]
    if !ok { return nil, ovsdb.ErrNotReady }
    cp := *s
    return &cp, nil
}

func (f *fakeEngine) Kick(_ context.Context, db ovsdb.Database, id string) error {
    f.mu.Lock()
    defer f.mu.Unlock()
    f.calls = append(f.calls, fmt.Sprintf("kick %s %s", db, id))
    if out, ok := f.failKick[db]; ok { return errors.New(out) }
    return nil
}

func (f *fakeEngine) Leave(_ context.Context, db ovsdb.Database) error {
    f.mu.Lock()
    defer f.mu.Unlock()
    f.calls = append(f.calls, fmt.Sprintf("leave %s", db))
    if f.failLeave[db] { return errors.New("leave failed") }
    return nil
}

func (f *fakeEngine) ChangeElectionTimer(_ context.Context, db ovsdb.Database, ms int) error {
    f.mu.Lock()
    defer f.mu.Unlock()
    f.calls = append(f.calls, fmt.Sprintf("timer %s %d", db, ms))
    f.timerSets[db] = append(f.timerSets[db], ms)
    if s, ok := f.status[db]; ok {
        s.ElectionTimer = ms
        if f.loseLeadershipAt != 0 && ms >= f.loseLeadershipAt { s.Role = ovsdb.RoleFollower }
    }
    return nil
}

func (f *fakeEngine) JoinCluster(_ context.Context, file, schema string, local, remote []string) error {
    f.mu.Lock()
    defer f.mu.Unlock()
    f.calls = append(f.calls, fmt.Sprintf("join %s %s %v %v", file, schema, local, remote))
    return nil
}

func (f *fakeEngine) CreateCluster(_ context.Context, file, schemaFile, local string) error {
    f.mu.Lock()
    defer f.mu.Unlock()
    f.calls = append(f.calls, fmt.Sprintf("create %s %s %s", file, schemaFile, local))
    return nil
}

func (f *fakeEngine) Calls() []string {
    f.mu.Lock()
    defer f.mu.Unlock()
    return append([]string(nil), f.calls...)
}

func leaderStatus(db ovsdb.Database, timer int) *ovsdb.ClusterStatus {
    return &ovsdb.ClusterStatus{Database: db, Status: ovsdb.StatusMember, Role: ovsdb.RoleLeader, ElectionTimer: timer}
}

func withServers(db ovsdb.Database, addrs ...string) *ovsdb.ClusterStatus {
    s := &ovsdb.ClusterStatus{Database: db, Status: ovsdb.StatusMember, Role: ovsdb.RoleFollower}
    for i, a := range addrs {
        s.Servers = append(s.Servers, ovsdb.Server{ID: fmt.Sprintf("s%02d", i), Address: a})
    }
    return s
}

type sleepRecorder struct {
    mu    sync.Mutex
    waits []time.Duration
}

func (s *sleepRecorder) Sleep(_ context.Context, d time.Duration) error {
    s.mu.Lock()
    s.waits = append(s.waits, d)
    s.mu.Unlock()
    return nil
}

func newTestReconciler(e Engine, sl *sleepRecorder) *Reconciler {
    opts := Options{Engine: e, Logger: log.New(io.Discard, "", 0)}
    if sl != nil { opts.Sleep = sl.Sleep }
    r, err := New(opts)
    if err != nil { panic(err) }
    return r
}
