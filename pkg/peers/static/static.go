package static

import (
    "sync"
    "time"

    "github.com/amirimatin/ovsdb-cluster/pkg/peers"
)

type staticPeers struct {
    mu    sync.Mutex
    local string
    table peers.Table
    deps  chan peers.Departure
}

// Source is a fixed peer table. Units leave it only through Remove.
type Source interface {
    peers.Source
    Remove(unit string) bool
}

// New returns a Source over table. The local unit is always included.
func New(localUnit, localIP string, table peers.Table) Source {
    t := table.Clone()
    t[localUnit] = localIP
    return &staticPeers{local: localUnit, table: t, deps: make(chan peers.Departure, 16)}
}

func (s *staticPeers) Peers() peers.Table {
    s.mu.Lock()
    defer s.mu.Unlock()
    return s.table.Clone()
}

func (s *staticPeers) Departures() <-chan peers.Departure { return s.deps }

// Remove drops unit from the table and emits a departure. Removing the local
// unit is allowed and signals that this unit is being torn down.
func (s *staticPeers) Remove(unit string) bool {
    s.mu.Lock()
    ip, ok := s.table[unit]
    if ok && unit != s.local { delete(s.table, unit) }
    s.mu.Unlock()
    if !ok { return false }
    select {
    case s.deps <- peers.Departure{Unit: unit, Address: ip, At: time.Now()}:
    default:
    }
    return true
}
