package firewall

import (
    "fmt"
    "net/netip"
)

// DefaultTable is the nftables table owned by the agent.
const DefaultTable = "ovsdb_cluster"

// PortRange is an inclusive TCP port range.
type PortRange struct{ From, To uint16 }

// DefaultPorts covers the Northbound and Southbound Raft ports.
var DefaultPorts = PortRange{From: 6643, To: 6644}

// splitFamilies parses allowed into 4 and 16 byte keys. Duplicates are
// dropped.
func splitFamilies(allowed []string) (v4, v6 [][]byte, err error) {
    seen := map[netip.Addr]bool{}
    for _, s := range allowed {
        a, perr := netip.ParseAddr(s)
        if perr != nil { return nil, nil, fmt.Errorf("firewall: invalid peer address %q", s) }
        a = a.Unmap()
        if seen[a] { continue }
        seen[a] = true
        if a.Is4() {
            b := a.As4()
            v4 = append(v4, b[:])
        } else {
            b := a.As16()
            v6 = append(v6, b[:])
        }
    }
    return v4, v6, nil
}
