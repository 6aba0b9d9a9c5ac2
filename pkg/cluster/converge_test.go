package cluster

import (
    "context"
    "errors"
    "reflect"
    "testing"
    "time"

    "github.com/amirimatin/ovsdb-cluster/pkg/ovsdb"
)

func TestConverge_Increase(t *testing.T) {
    e := newFakeEngine()
    e.status[ovsdb.Southbound] = leaderStatus(ovsdb.Southbound, 1000)
    sl := &sleepRecorder{}
    r := newTestReconciler(e, sl)

    if err := r.Converge(context.Background(), ovsdb.Southbound, 42000); err != nil { t.Fatalf("converge: %v", err) }
    want := []int{2000, 4000, 8000, 16000, 32000, 42000}
    if got := e.timerSets[ovsdb.Southbound]; !reflect.DeepEqual(got, want) { t.Fatalf("steps = %v, want %v", got, want) }

    // one election window between each step: (cur+next) ms
    wantWaits := []time.Duration{3 * time.Second, 6 * time.Second, 12 * time.Second, 24 * time.Second, 48 * time.Second, 74 * time.Second}
    if !reflect.DeepEqual(sl.waits, wantWaits) { t.Fatalf("waits = %v, want %v", sl.waits, wantWaits) }
}

func TestConverge_Decrease(t *testing.T) {
    e := newFakeEngine()
    e.status[ovsdb.Northbound] = leaderStatus(ovsdb.Northbound, 42000)
    r := newTestReconciler(e, &sleepRecorder{})

    if err := r.Converge(context.Background(), ovsdb.Northbound, 1000); err != nil { t.Fatalf("converge: %v", err) }
    want := []int{21000, 10500, 5250, 2625, 1312, 1000}
    if got := e.timerSets[ovsdb.Northbound]; !reflect.DeepEqual(got, want) { t.Fatalf("steps = %v, want %v", got, want) }
}

func TestConverge_OutOfRange(t *testing.T) {
    for _, target := range []int{999, 60001, 0, -5} {
        e := newFakeEngine()
        e.status[ovsdb.Southbound] = leaderStatus(ovsdb.Southbound, 1000)
        r := newTestReconciler(e, &sleepRecorder{})
        err := r.Converge(context.Background(), ovsdb.Southbound, target)
        if !errors.Is(err, ErrTimerOutOfRange) { t.Fatalf("target %d: err = %v", target, err) }
        if len(e.Calls()) != 0 || e.statusN[ovsdb.Southbound] != 0 { t.Fatalf("target %d: commands issued: %v", target, e.Calls()) }
    }
}

func TestConverge_Bounds(t *testing.T) {
    e := newFakeEngine()
    e.status[ovsdb.Southbound] = leaderStatus(ovsdb.Southbound, 1000)
    r := newTestReconciler(e, &sleepRecorder{})
    for _, target := range []int{1000, 60000} {
        if err := r.ValidateElectionTimer(target); err != nil { t.Fatalf("%d should be accepted: %v", target, err) }
    }
}

func TestConverge_FollowerDoesNothing(t *testing.T) {
    e := newFakeEngine()
    s := leaderStatus(ovsdb.Southbound, 1000)
    s.Role = ovsdb.RoleFollower
    e.status[ovsdb.Southbound] = s
    r := newTestReconciler(e, &sleepRecorder{})
    if err := r.Converge(context.Background(), ovsdb.Southbound, 4000); err != nil { t.Fatalf("converge: %v", err) }
    if len(e.Calls()) != 0 { t.Fatalf("follower issued %v", e.Calls()) }
}

func TestConverge_NotReadyIsNotAnError(t *testing.T) {
    e := newFakeEngine()
    r := newTestReconciler(e, &sleepRecorder{})
    if err := r.Converge(context.Background(), ovsdb.Northbound, 4000); err != nil { t.Fatalf("converge: %v", err) }
}

func TestConverge_StopsOnLeadershipLoss(t *testing.T) {
    e := newFakeEngine()
    e.status[ovsdb.Southbound] = leaderStatus(ovsdb.Southbound, 1000)
    e.loseLeadershipAt = 4000
    r := newTestReconciler(e, &sleepRecorder{})
    if err := r.Converge(context.Background(), ovsdb.Southbound, 42000); err != nil { t.Fatalf("converge: %v", err) }
    if got := e.timerSets[ovsdb.Southbound]; !reflect.DeepEqual(got, []int{2000, 4000}) { t.Fatalf("steps = %v", got) }
}

func TestConverge_AlreadyAtTarget(t *testing.T) {
    e := newFakeEngine()
    e.status[ovsdb.Southbound] = leaderStatus(ovsdb.Southbound, 4000)
    r := newTestReconciler(e, &sleepRecorder{})
    if err := r.Converge(context.Background(), ovsdb.Southbound, 4000); err != nil { t.Fatalf("converge: %v", err) }
    if len(e.Calls()) != 0 { t.Fatalf("unexpected calls %v", e.Calls()) }
}

func TestConverge_StaleStatusAfterFinalStep(t *testing.T) {
    e := newFakeEngine()
    stale := leaderStatus(ovsdb.Southbound, 1000)
    e.statusSeq[ovsdb.Southbound] = []*ovsdb.ClusterStatus{stale}
    r := newTestReconciler(e, &sleepRecorder{})
    if err := r.Converge(context.Background(), ovsdb.Southbound, 2000); err != nil { t.Fatalf("converge: %v", err) }
    if got := e.timerSets[ovsdb.Southbound]; !reflect.DeepEqual(got, []int{2000}) { t.Fatalf("steps = %v, want [2000]", got) }
    if e.statusN[ovsdb.Southbound] != 2 { t.Fatalf("status polled %d times, want 2", e.statusN[ovsdb.Southbound]) }
}

func TestNextElectionTimer(t *testing.T) {
    cases := []struct{ cur, target, want int }{
        {1000, 42000, 2000},
        {32000, 42000, 42000},
        {42000, 1000, 21000},
        {2625, 1000, 1312},
        {1312, 1000, 1000},
        {3000, 3000, 3000},
    }
    for _, c := range cases {
        if got := NextElectionTimer(c.cur, c.target); got != c.want { t.Fatalf("next(%d,%d) = %d, want %d", c.cur, c.target, got, c.want) }
    }
}
