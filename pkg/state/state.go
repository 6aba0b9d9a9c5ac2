// Package state persists the few facts the agent must remember across
// restarts, such as having already left the cluster.
package state

import (
    "errors"
    "fmt"
    "os"
    "path/filepath"

    "github.com/hashicorp/raft"
    raftboltdb "github.com/hashicorp/raft-boltdb"
)

const (
    // LeftCluster is set once the local servers have left both clusters.
    LeftCluster = "left_cluster"
    // ClusterReady is set once the clusters are known to exist, so a
    // restarted unit joins without waiting for the marker again.
    ClusterReady = "cluster_ready"
)

// Store keeps flags in a raft.StableStore: bolt on disk when a data directory
// is configured, memory otherwise.
type Store struct {
    stable raft.StableStore
    bolt   *raftboltdb.BoltStore
}

// Open returns a disk backed store under dataDir, or an in-memory one when
// dataDir is empty.
func Open(dataDir string) (*Store, error) {
    if dataDir == "" {
        return NewMemory(), nil
    }
    if err := os.MkdirAll(dataDir, 0o755); err != nil { return nil, err }
    b, err := raftboltdb.NewBoltStore(filepath.Join(dataDir, "state.db"))
    if err != nil { return nil, fmt.Errorf("state: open: %w", err) }
    return &Store{stable: b, bolt: b}, nil
}

func NewMemory() *Store { return &Store{stable: raft.NewInmemStore()} }

// Flag reads a boolean; unknown keys are false.
func (s *Store) Flag(key string) (bool, error) {
    v, err := s.stable.GetUint64([]byte(key))
    if notFound(err) { return false, nil }
    if err != nil { return false, fmt.Errorf("state: read %s: %w", key, err) }
    return v == 1, nil
}

func (s *Store) SetFlag(key string, v bool) error {
    var n uint64
    if v { n = 1 }
    if err := s.stable.SetUint64([]byte(key), n); err != nil {
        return fmt.Errorf("state: write %s: %w", key, err)
    }
    return nil
}

func (s *Store) Close() error {
    if s.bolt != nil { return s.bolt.Close() }
    return nil
}

// raft.InmemStore reports a missing key with its own "not found" error.
func notFound(err error) bool {
    return err != nil && (errors.Is(err, raftboltdb.ErrKeyNotFound) || err.Error() == "not found")
}
