package grpc

import (
    "context"
    "testing"
    "time"

    "github.com/amirimatin/ovsdb-cluster/pkg/transport"
)

func TestRoundTrip(t *testing.T) {
    ctx, cancel := context.WithCancel(context.Background())
    defer cancel()
    s := NewServer("127.0.0.1:0")
    err := s.Start(ctx, transport.Handlers{
        Status: func(context.Context) ([]byte, error) { return []byte(`{"northbound-cluster":{}}`), nil },
        Kick: func(_ context.Context, req transport.KickRequest) (transport.KickResponse, error) {
            return transport.KickResponse{Northbound: "requested kick of " + req.NorthboundID}, nil
        },
    })
    if err != nil { t.Fatalf("start: %v", err) }
    defer s.Stop(context.Background())

    c := NewClient(2 * time.Second)
    b, err := c.GetStatus(ctx, s.Addr())
    if err != nil { t.Fatalf("status: %v", err) }
    if string(b) != `{"northbound-cluster":{}}` { t.Fatalf("status = %s", b) }

    resp, err := c.PostKick(ctx, s.Addr(), transport.KickRequest{NorthboundID: "cc33"})
    if err != nil { t.Fatalf("kick: %v", err) }
    if resp.Northbound != "requested kick of cc33" { t.Fatalf("resp = %+v", resp) }

    if _, err := c.PostKick(ctx, s.Addr(), transport.KickRequest{}); err == nil { t.Fatalf("empty kick accepted") }
    if _, err := c.GetReport(ctx, s.Addr()); err == nil { t.Fatalf("report should be unsupported") }
}
