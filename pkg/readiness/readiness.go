// Package readiness shares whether the Northbound and Southbound clusters
// have been created. The designated unit creates them; every other unit
// waits for the marker before joining.
package readiness

import (
    "context"
    "sync"

    "github.com/hashicorp/go-multierror"
)

// Marker is a cluster-wide "ready to join" flag.
type Marker interface {
    Ready(ctx context.Context) (bool, error)
    MarkReady(ctx context.Context) error
}

// Static is a process local marker, seeded from configuration on hosts
// without a shared backend.
type Static struct {
    mu    sync.Mutex
    ready bool
}

func NewStatic(ready bool) *Static { return &Static{ready: ready} }

func (s *Static) Ready(context.Context) (bool, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    return s.ready, nil
}

func (s *Static) MarkReady(context.Context) error {
    s.mu.Lock()
    s.ready = true
    s.mu.Unlock()
    return nil
}

// Any is ready when any of its markers is. An error only surfaces when no
// marker reports ready. MarkReady sets every marker.
type Any []Marker

func (a Any) Ready(ctx context.Context) (bool, error) {
    var errs *multierror.Error
    for _, m := range a {
        ok, err := m.Ready(ctx)
        if ok { return true, nil }
        if err != nil { errs = multierror.Append(errs, err) }
    }
    return false, errs.ErrorOrNil()
}

func (a Any) MarkReady(ctx context.Context) error {
    var errs *multierror.Error
    for _, m := range a {
        if err := m.MarkReady(ctx); err != nil { errs = multierror.Append(errs, err) }
    }
    return errs.ErrorOrNil()
}
