package ovsdb

import (
    "errors"
    "fmt"
)

var (
    // ErrNotReady means no cluster status could be retrieved yet. Callers
    // retry on the next pass instead of failing.
    ErrNotReady        = errors.New("ovsdb: cluster status not available yet")
    ErrUnknownDatabase = errors.New("ovsdb: unknown database")
)

// ParseError reports cluster status output that could not be interpreted,
// typically a member address that is not scheme:ip:port.
type ParseError struct {
    Field string
    Value string
    Msg   string
}

func (e *ParseError) Error() string {
    if e.Field == "" {
        return fmt.Sprintf("ovsdb: failed to parse cluster status: %s: %q", e.Msg, e.Value)
    }
    return fmt.Sprintf("ovsdb: failed to parse cluster status: %s %s: %q", e.Field, e.Msg, e.Value)
}
