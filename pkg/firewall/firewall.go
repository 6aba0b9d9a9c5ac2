// Package firewall reprograms perimeter access to the OVSDB ports when the
// set of cluster peers changes.
package firewall

import (
    "context"
    "fmt"
    "log"
    "strings"

    "github.com/amirimatin/ovsdb-cluster/pkg/internal/logutil"
    "github.com/amirimatin/ovsdb-cluster/pkg/ovsdb/appctl"
)

// Firewall allows the given peer addresses and denies everyone else.
type Firewall interface {
    Configure(ctx context.Context, allowed []string) error
}

// Hook delegates to an operator supplied command, called as
// "<command> <args...> <addr...>". An empty command only logs.
type Hook struct {
    Command []string
    Runner  appctl.Runner
    Logger  *log.Logger
}

// ParseHook splits a command line on whitespace.
func ParseHook(cmdline string, r appctl.Runner, l *log.Logger) *Hook {
    return &Hook{Command: strings.Fields(cmdline), Runner: r, Logger: l}
}

func (h *Hook) Configure(ctx context.Context, allowed []string) error {
    if len(h.Command) == 0 {
        logutil.Infof(h.Logger, "firewall: no hook configured, allowed peers %v", allowed)
        return nil
    }
    r := h.Runner
    if r == nil { r = appctl.ExecRunner{} }
    args := append(append([]string(nil), h.Command[1:]...), allowed...)
    if _, err := r.Run(ctx, h.Command[0], args...); err != nil {
        return fmt.Errorf("firewall: %w", err)
    }
    logutil.Infof(h.Logger, "firewall: allowed peers %v", allowed)
    return nil
}
