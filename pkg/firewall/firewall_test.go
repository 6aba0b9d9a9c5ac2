package firewall

import (
    "context"
    "errors"
    "io"
    "log"
    "strings"
    "testing"

    "github.com/amirimatin/ovsdb-cluster/pkg/ovsdb/appctl"
    "github.com/amirimatin/ovsdb-cluster/pkg/ovsdb/appctl/appctltest"
)

func TestHookRunsCommand(t *testing.T) {
    r := appctltest.New().On("ovsdb-fw", "", nil)
    h := ParseHook("/usr/local/bin/ovsdb-fw --ports 6641,6642,6643,6644", r, log.New(io.Discard, "", 0))
    if err := h.Configure(context.Background(), []string{"10.0.0.1", "10.0.0.2"}); err != nil { t.Fatalf("configure: %v", err) }
    calls := r.Calls()
    if len(calls) != 1 { t.Fatalf("calls = %v", calls) }
    if got := strings.Join(calls[0], " "); got != "/usr/local/bin/ovsdb-fw --ports 6641,6642,6643,6644 10.0.0.1 10.0.0.2" { t.Fatalf("command = %q", got) }
}

func TestHookFailure(t *testing.T) {
    r := appctltest.New().Fail("ovsdb-fw", "iptables: permission denied")
    h := ParseHook("ovsdb-fw", r, log.New(io.Discard, "", 0))
    err := h.Configure(context.Background(), []string{"10.0.0.1"})
    var ce *appctl.CommandError
    if !errors.As(err, &ce) { t.Fatalf("err = %v", err) }
}

func TestEmptyHookIsNoop(t *testing.T) {
    r := appctltest.New()
    h := ParseHook("  ", r, log.New(io.Discard, "", 0))
    if err := h.Configure(context.Background(), nil); err != nil { t.Fatalf("configure: %v", err) }
    if len(r.Calls()) != 0 { t.Fatalf("unexpected calls %v", r.Calls()) }
}
