//go:build !linux

package firewall

import (
    "context"
    "errors"
    "log"
)

// NFTables is only available on Linux.
type NFTables struct {
    Table  string
    Ports  PortRange
    Logger *log.Logger
}

func (n *NFTables) Configure(context.Context, []string) error {
    return errors.New("firewall: nftables is only supported on linux")
}
