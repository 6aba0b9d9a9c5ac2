package httpjson

import (
    "context"
    "errors"
    "net/http"
    "net/http/httptest"
    "strings"
    "sync/atomic"
    "testing"
    "time"

    "github.com/amirimatin/ovsdb-cluster/pkg/transport"
)

func newTestServer(t *testing.T, h transport.Handlers) string {
    t.Helper()
    ts := httptest.NewServer(Handler(h))
    t.Cleanup(ts.Close)
    return strings.TrimPrefix(ts.URL, "http://")
}

func TestStatusAndHealthz(t *testing.T) {
    addr := newTestServer(t, transport.Handlers{Status: func(context.Context) ([]byte, error) {
        return []byte(`{"southbound-cluster":{}}`), nil
    }})
    c := NewClient(time.Second)
    b, err := c.GetStatus(context.Background(), addr)
    if err != nil { t.Fatalf("status: %v", err) }
    if string(b) != `{"southbound-cluster":{}}` { t.Fatalf("body = %s", b) }

    resp, err := http.Get("http://" + addr + "/healthz")
    if err != nil { t.Fatalf("healthz: %v", err) }
    resp.Body.Close()
    if resp.StatusCode != http.StatusOK { t.Fatalf("healthz = %d", resp.StatusCode) }

    resp, err = http.Get("http://" + addr + "/metrics")
    if err != nil { t.Fatalf("metrics: %v", err) }
    resp.Body.Close()
    if resp.StatusCode != http.StatusOK { t.Fatalf("metrics = %d", resp.StatusCode) }
}

func TestReportNotSupported(t *testing.T) {
    addr := newTestServer(t, transport.Handlers{})
    ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
    defer cancel()
    if _, err := NewClient(time.Second).GetReport(ctx, addr); err == nil || !strings.Contains(err.Error(), "501") {
        t.Fatalf("err = %v", err)
    }
}

func TestKick(t *testing.T) {
    var calls atomic.Int32
    addr := newTestServer(t, transport.Handlers{Kick: func(_ context.Context, req transport.KickRequest) (transport.KickResponse, error) {
        calls.Add(1)
        resp := transport.KickResponse{}
        if req.SouthboundID != "" { resp.Southbound = "requested kick of " + req.SouthboundID }
        if req.NorthboundID != "" {
            resp.Northbound = "failed to kick Northbound cluster member " + req.NorthboundID
            return resp, errors.New(resp.Northbound)
        }
        return resp, nil
    }})
    c := NewClient(time.Second)
    resp, err := c.PostKick(context.Background(), addr, transport.KickRequest{SouthboundID: "aa11"})
    if err != nil { t.Fatalf("kick: %v", err) }
    if resp.Southbound != "requested kick of aa11" || resp.Northbound != "" { t.Fatalf("resp = %+v", resp) }

    resp, err = c.PostKick(context.Background(), addr, transport.KickRequest{SouthboundID: "aa11", NorthboundID: "bb22"})
    if err == nil { t.Fatalf("expected error") }
    if resp.Southbound != "requested kick of aa11" || !strings.Contains(resp.Northbound, "bb22") { t.Fatalf("resp = %+v", resp) }
    if calls.Load() != 2 { t.Fatalf("kick must not be retried, calls = %d", calls.Load()) }

    if _, err := c.PostKick(context.Background(), addr, transport.KickRequest{}); err == nil { t.Fatalf("empty request accepted") }
    if calls.Load() != 2 { t.Fatalf("empty request reached the handler") }
}
