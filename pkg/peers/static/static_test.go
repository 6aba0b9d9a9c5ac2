package static

import (
    "testing"

    "github.com/amirimatin/ovsdb-cluster/pkg/peers"
)

func TestLocalAlwaysPresent(t *testing.T) {
    s := New("u/0", "10.0.0.1", peers.Table{"u/1": "10.0.0.2"})
    got := s.Peers()
    if len(got) != 2 || got["u/0"] != "10.0.0.1" { t.Fatalf("unexpected peers: %#v", got) }
    // Ensure returned table is a copy
    got["u/0"] = "x"
    if s.Peers()["u/0"] != "10.0.0.1" { t.Fatalf("expected defensive copy") }
}

func TestRemoveEmitsDeparture(t *testing.T) {
    s := New("u/0", "10.0.0.1", peers.Table{"u/1": "10.0.0.2"})
    if s.Remove("u/9") { t.Fatalf("unknown unit removed") }
    if !s.Remove("u/1") { t.Fatalf("remove failed") }
    d := <-s.Departures()
    if d.Unit != "u/1" || d.Address != "10.0.0.2" { t.Fatalf("departure = %+v", d) }
    if _, ok := s.Peers()["u/1"]; ok { t.Fatalf("u/1 still listed") }

    if !s.Remove("u/0") { t.Fatalf("local remove failed") }
    if d := <-s.Departures(); d.Unit != "u/0" { t.Fatalf("departure = %+v", d) }
    if _, ok := s.Peers()["u/0"]; !ok { t.Fatalf("local unit must stay listed") }
}
