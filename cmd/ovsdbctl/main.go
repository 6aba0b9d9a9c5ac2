package main

import (
    "errors"
    "log"
    "os"

    "github.com/spf13/cobra"

    ovsdbcli "github.com/amirimatin/ovsdb-cluster/pkg/cli"
)

func main() {
    if err := newRoot().Execute(); err != nil {
        var ee *ovsdbcli.ExitError
        if errors.As(err, &ee) {
            if ee.Err != nil { log.Print(ee.Err) }
            os.Exit(ee.Code)
        }
        log.Fatal(err)
    }
}

func newRoot() *cobra.Command {
    root := &cobra.Command{
        Use:           "ovsdbctl",
        Short:         "OVN Northbound/Southbound cluster membership agent and tools",
        SilenceUsage:  true,
        SilenceErrors: true,
    }
    ovsdbcli.AddAll(root)
    return root
}
