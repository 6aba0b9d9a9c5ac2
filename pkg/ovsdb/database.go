package ovsdb

import (
    "fmt"
    "strings"
)

// Database identifies one of the two OVN OVSDB clusters.
type Database string

const (
    Northbound Database = "northbound"
    Southbound Database = "southbound"
)

// Databases lists both databases in the order the agent processes them when
// leaving: Southbound first, then Northbound.
var Databases = []Database{Southbound, Northbound}

// Name returns the ovsdb-server instance name (e.g. "ovnsb_db").
func (d Database) Name() string {
    switch d {
    case Northbound:
        return "ovnnb_db"
    case Southbound:
        return "ovnsb_db"
    }
    return ""
}

// Schema returns the OVSDB schema name passed to cluster/* commands.
func (d Database) Schema() string {
    switch d {
    case Northbound:
        return "OVN_Northbound"
    case Southbound:
        return "OVN_Southbound"
    }
    return ""
}

// Short returns "nb" or "sb".
func (d Database) Short() string {
    switch d {
    case Northbound:
        return "nb"
    case Southbound:
        return "sb"
    }
    return ""
}

// Socket returns the control socket file name relative to the run directory.
func (d Database) Socket() string { return d.Name() + ".ctl" }

// File returns the on-disk database file name relative to the data directory.
func (d Database) File() string { return d.Name() + ".db" }

// SchemaFile returns the packaged schema file name (e.g. "ovn-sb.ovsschema").
func (d Database) SchemaFile() string {
    if !d.Valid() { return "" }
    return "ovn-" + d.Short() + ".ovsschema"
}

// ClusterPort is the default Raft cluster port of the database.
func (d Database) ClusterPort() int {
    if d == Northbound {
        return 6643
    }
    return 6644
}

// Valid reports whether d is one of the known databases.
func (d Database) Valid() bool { return d == Northbound || d == Southbound }

func (d Database) String() string { return string(d) }

// ParseDatabase accepts the forms used across tooling: "nb"/"sb",
// "northbound"/"southbound", "ovnnb_db"/"ovnsb_db" and the schema names.
func ParseDatabase(s string) (Database, error) {
    switch strings.ToLower(strings.TrimSpace(s)) {
    case "nb", "northbound", "ovnnb_db", "ovn_northbound":
        return Northbound, nil
    case "sb", "southbound", "ovnsb_db", "ovn_southbound":
        return Southbound, nil
    }
    return "", fmt.Errorf("%w: %q", ErrUnknownDatabase, s)
}

// ConnectionStrings builds "ssl:<ip>:<port>" for every address.
func ConnectionStrings(addrs []string, port int) []string {
    out := make([]string, 0, len(addrs))
    for _, a := range addrs {
        a = strings.TrimSpace(a)
        if a == "" { continue }
        out = append(out, FormatAddress("ssl", a, port))
    }
    return out
}
