// Package upgradelock tells the agent whether a cluster-wide upgrade is in
// progress. Membership changes are suppressed while it is.
package upgradelock

import (
    "context"
    "fmt"

    "github.com/spf13/afero"
)

// Checker reports whether an upgrade lock is held elsewhere.
type Checker interface {
    Held(ctx context.Context) (bool, error)
}

// None never reports a held lock.
type None struct{}

func (None) Held(context.Context) (bool, error) { return false, nil }

// File treats the existence of a marker file as a held lock. Operators create
// it around package upgrades on hosts without a coordination service.
type File struct {
    Fs   afero.Fs
    Path string
}

func (f File) Held(context.Context) (bool, error) {
    fs := f.Fs
    if fs == nil { fs = afero.NewOsFs() }
    ok, err := afero.Exists(fs, f.Path)
    if err != nil { return false, fmt.Errorf("upgradelock: %w", err) }
    return ok, nil
}

// Any is held when any of its checkers is. The first error wins.
type Any []Checker

func (a Any) Held(ctx context.Context) (bool, error) {
    for _, c := range a {
        held, err := c.Held(ctx)
        if err != nil || held { return held, err }
    }
    return false, nil
}
