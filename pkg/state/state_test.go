package state

import "testing"

func TestFlags(t *testing.T) {
    for name, open := range map[string]func(t *testing.T) *Store{
        "memory": func(t *testing.T) *Store { return NewMemory() },
        "bolt": func(t *testing.T) *Store {
            s, err := Open(t.TempDir())
            if err != nil { t.Fatalf("open: %v", err) }
            return s
        },
    } {
        t.Run(name, func(t *testing.T) {
            s := open(t)
            defer s.Close()
            left, err := s.Flag(LeftCluster)
            if err != nil || left { t.Fatalf("unset flag = %v, %v", left, err) }
            if err := s.SetFlag(LeftCluster, true); err != nil { t.Fatalf("set: %v", err) }
            left, err = s.Flag(LeftCluster)
            if err != nil || !left { t.Fatalf("flag = %v, %v", left, err) }
        })
    }
}

func TestBoltPersists(t *testing.T) {
    dir := t.TempDir()
    s, err := Open(dir)
    if err != nil { t.Fatalf("open: %v", err) }
    if err := s.SetFlag(LeftCluster, true); err != nil { t.Fatalf("set: %v", err) }
    if err := s.Close(); err != nil { t.Fatalf("close: %v", err) }

    s, err = Open(dir)
    if err != nil { t.Fatalf("reopen: %v", err) }
    defer s.Close()
    if left, err := s.Flag(LeftCluster); err != nil || !left { t.Fatalf("flag after reopen = %v, %v", left, err) }
}
