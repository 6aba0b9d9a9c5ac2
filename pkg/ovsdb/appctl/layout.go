package appctl

import (
    "errors"
    "fmt"
    "path/filepath"
    "strings"

    "github.com/spf13/afero"

    "github.com/amirimatin/ovsdb-cluster/pkg/ovsdb"
)

var ErrNoLayout = errors.New("appctl: no known control socket layout found")

// Layout is one installed arrangement of the engine: which control tool to
// call and where sockets and database files live.
type Layout struct {
    Name    string
    Tool    string
    RunDir  string
    DataDir string

    // SchemaDir holds the packaged .ovsschema files.
    SchemaDir string
}

var (
    // Modern is the per-engine layout of current OVN packages.
    Modern = Layout{Name: "ovn", Tool: "ovn-appctl", RunDir: "/var/run/ovn", DataDir: "/var/lib/ovn", SchemaDir: "/usr/share/ovn"}
    // Legacy keeps OVN sockets in the shared Open vSwitch directories.
    Legacy = Layout{Name: "openvswitch", Tool: "ovs-appctl", RunDir: "/var/run/openvswitch", DataDir: "/var/lib/openvswitch", SchemaDir: "/usr/share/openvswitch"}
)

// Layouts lists the known layouts in probe order.
var Layouts = []Layout{Modern, Legacy}

// LayoutByName resolves "ovn"/"modern" or "openvswitch"/"legacy".
func LayoutByName(name string) (Layout, error) {
    switch strings.ToLower(strings.TrimSpace(name)) {
    case "ovn", "modern":
        return Modern, nil
    case "openvswitch", "ovs", "legacy":
        return Legacy, nil
    }
    return Layout{}, fmt.Errorf("%w: %q", ErrNoLayout, name)
}

// SocketPath is the control socket of db under this layout.
func (l Layout) SocketPath(db ovsdb.Database) string { return filepath.Join(l.RunDir, db.Socket()) }

// DBPath is the on-disk database file of db under this layout.
func (l Layout) DBPath(db ovsdb.Database) string { return filepath.Join(l.DataDir, db.File()) }

// SchemaPath is the packaged schema of db under this layout.
func (l Layout) SchemaPath(db ovsdb.Database) string { return filepath.Join(l.SchemaDir, db.SchemaFile()) }

// Detect returns the first layout whose run directory holds a control socket
// for either database.
func Detect(fs afero.Fs, candidates ...Layout) (Layout, error) {
    if len(candidates) == 0 { candidates = Layouts }
    for _, l := range candidates {
        for _, db := range ovsdb.Databases {
            ok, err := afero.Exists(fs, l.SocketPath(db))
            if err != nil { return Layout{}, err }
            if ok { return l, nil }
        }
    }
    return Layout{}, ErrNoLayout
}
