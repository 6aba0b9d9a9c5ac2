// Package peers tracks the deployment units taking part in the OVSDB
// clusters and the address each one binds its servers to.
package peers

import (
    "context"
    "errors"
    "fmt"
    "net/netip"
    "sort"
    "strings"
    "time"
)

var ErrLocalMissing = errors.New("peers: local unit missing from peer table")

// Table maps a unit id (e.g. "ovn-central/0") to its bound IP address.
type Table map[string]string

func (t Table) Clone() Table {
    out := make(Table, len(t))
    for k, v := range t { out[k] = v }
    return out
}

// Units returns the unit ids in sorted order.
func (t Table) Units() []string {
    out := make([]string, 0, len(t))
    for u := range t { out = append(out, u) }
    sort.Strings(out)
    return out
}

// Remote returns the addresses of every unit except local, ordered by unit.
func (t Table) Remote(local string) []string {
    var out []string
    for _, u := range t.Units() {
        if u == local { continue }
        out = append(out, t[u])
    }
    return out
}

// Validate checks that local is present and every address is an IP.
func (t Table) Validate(local string) error {
    if _, ok := t[local]; !ok { return fmt.Errorf("%w: %q", ErrLocalMissing, local) }
    for u, ip := range t {
        if _, err := netip.ParseAddr(ip); err != nil {
            return fmt.Errorf("peers: unit %s has invalid address %q", u, ip)
        }
    }
    return nil
}

// ParseTable converts "unit=ip,unit=ip" into a Table. Whitespace and empty
// entries are ignored.
func ParseTable(csv string) (Table, error) {
    t := Table{}
    for _, p := range strings.Split(csv, ",") {
        if err := t.addEntry(p); err != nil { return nil, err }
    }
    return t, nil
}

func (t Table) addEntry(entry string) error {
    entry = strings.TrimSpace(entry)
    if entry == "" { return nil }
    unit, ip, ok := strings.Cut(entry, "=")
    unit, ip = strings.TrimSpace(unit), strings.Trim(strings.TrimSpace(ip), "[]")
    if !ok || unit == "" || ip == "" {
        return fmt.Errorf("peers: entry %q is not unit=ip", entry)
    }
    if _, dup := t[unit]; dup {
        return fmt.Errorf("peers: duplicate unit %q", unit)
    }
    t[unit] = ip
    return nil
}

// ParseLines reads one or more comma separated "unit=ip" entries per line.
// Lines starting with '#' are comments.
func ParseLines(text string) (Table, error) {
    t := Table{}
    for _, line := range strings.Split(text, "\n") {
        line = strings.TrimSpace(line)
        if line == "" || strings.HasPrefix(line, "#") { continue }
        for _, p := range strings.Split(line, ",") {
            if err := t.addEntry(p); err != nil { return nil, err }
        }
    }
    return t, nil
}

// Departure reports a unit that has been removed from the deployment.
type Departure struct {
    Unit    string
    Address string
    At      time.Time
}

// Source is a live view of the peer relation.
type Source interface {
    // Peers returns the current table, always including the local unit.
    Peers() Table
    // Departures delivers units as they leave.
    Departures() <-chan Departure
}

// HealthReporter is implemented by sources that can score their own
// health. -1 means the source is not running.
type HealthReporter interface {
    HealthScore() int
}

// Starter is implemented by sources that run in the background.
type Starter interface {
    Start(ctx context.Context) error
    Stop() error
}
