package cluster

import (
    "sort"

    "github.com/goccy/go-json"

    "github.com/amirimatin/ovsdb-cluster/pkg/ovsdb"
)

// Unknown is the key under which unmapped cluster members are listed.
const Unknown = "UNKNOWN"

// UnitMap relates cluster server ids to deployment units.
type UnitMap struct {
    // Units maps a server id to the unit bound to its address.
    Units map[string]string
    // Unknown holds server ids no unit claims, in status order. These are
    // usually units removed without a graceful departure.
    Unknown []string
}

// MapUnits correlates every server of status with the unit whose IP it
// advertises. table maps unit id to IP. An unparseable server address is a
// *ovsdb.ParseError rather than an UNKNOWN entry.
func MapUnits(status *ovsdb.ClusterStatus, table map[string]string) (UnitMap, error) {
    m := UnitMap{Units: map[string]string{}}
    if status == nil { return m, nil }
    units := make([]string, 0, len(table))
    for u := range table { units = append(units, u) }
    sort.Strings(units)

    for _, srv := range status.Servers {
        a, err := ovsdb.ParseAddress(srv.Address)
        if err != nil { return UnitMap{}, err }
        found := ""
        for _, u := range units {
            if ovsdb.SameIP(table[u], a) {
                found = u
                break
            }
        }
        if found == "" {
            m.Unknown = append(m.Unknown, srv.ID)
            continue
        }
        m.Units[srv.ID] = found
    }
    return m, nil
}

// Unit returns the unit of serverID or Unknown.
func (m UnitMap) Unit(serverID string) string {
    if u, ok := m.Units[serverID]; ok { return u }
    return Unknown
}

func (m UnitMap) flat() map[string]any {
    out := make(map[string]any, len(m.Units)+1)
    for id, u := range m.Units { out[id] = u }
    if len(m.Unknown) > 0 { out[Unknown] = m.Unknown }
    return out
}

// MarshalYAML renders {server: unit, ..., UNKNOWN: [server, ...]}.
func (m UnitMap) MarshalYAML() (interface{}, error) { return m.flat(), nil }

func (m UnitMap) MarshalJSON() ([]byte, error) { return json.Marshal(m.flat()) }

func (m *UnitMap) UnmarshalJSON(b []byte) error {
    var raw map[string]json.RawMessage
    if err := json.Unmarshal(b, &raw); err != nil { return err }
    m.Units = map[string]string{}
    m.Unknown = nil
    for k, v := range raw {
        if k == Unknown {
            if err := json.Unmarshal(v, &m.Unknown); err != nil { return err }
            continue
        }
        var u string
        if err := json.Unmarshal(v, &u); err != nil { return err }
        m.Units[k] = u
    }
    return nil
}
