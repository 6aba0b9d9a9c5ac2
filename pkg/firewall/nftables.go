//go:build linux

package firewall

import (
    "context"
    "fmt"
    "log"

    "github.com/google/nftables"
    "github.com/google/nftables/binaryutil"
    "github.com/google/nftables/expr"
    "golang.org/x/sys/unix"

    "github.com/amirimatin/ovsdb-cluster/pkg/internal/logutil"
)

// NFTables owns a dedicated inet table that drops traffic to the cluster
// ports from any address outside the allowed set. The whole table is
// replaced in one batch on every Configure.
type NFTables struct {
    Table  string
    Ports  PortRange
    Logger *log.Logger
}

func (n *NFTables) Configure(ctx context.Context, allowed []string) error {
    if err := ctx.Err(); err != nil { return err }
    v4, v6, err := splitFamilies(allowed)
    if err != nil { return err }
    ports := n.Ports
    if ports == (PortRange{}) { ports = DefaultPorts }
    name := n.Table
    if name == "" { name = DefaultTable }

    c, err := nftables.New()
    if err != nil { return fmt.Errorf("firewall: nftables: %w", err) }

    table := &nftables.Table{Family: nftables.TableFamilyINet, Name: name}
    // add+delete+add replaces the table whether or not it existed.
    c.AddTable(table)
    c.DelTable(table)
    c.AddTable(table)

    set4 := &nftables.Set{Table: table, Name: "peers4", KeyType: nftables.TypeIPAddr}
    set6 := &nftables.Set{Table: table, Name: "peers6", KeyType: nftables.TypeIP6Addr}
    if err := c.AddSet(set4, elements(v4)); err != nil { return fmt.Errorf("firewall: nftables set: %w", err) }
    if err := c.AddSet(set6, elements(v6)); err != nil { return fmt.Errorf("firewall: nftables set: %w", err) }

    chain := c.AddChain(&nftables.Chain{
        Name:     "input",
        Table:    table,
        Type:     nftables.ChainTypeFilter,
        Hooknum:  nftables.ChainHookInput,
        Priority: nftables.ChainPriorityFilter,
    })
    c.AddRule(&nftables.Rule{Table: table, Chain: chain, Exprs: dropUnlisted(ports, unix.NFPROTO_IPV4, 12, 4, set4)})
    c.AddRule(&nftables.Rule{Table: table, Chain: chain, Exprs: dropUnlisted(ports, unix.NFPROTO_IPV6, 8, 16, set6)})

    if err := c.Flush(); err != nil { return fmt.Errorf("firewall: nftables flush: %w", err) }
    logutil.Infof(n.Logger, "firewall: nftables table %s allows %d peers on ports %d-%d", name, len(allowed), ports.From, ports.To)
    return nil
}

func elements(ips [][]byte) []nftables.SetElement {
    out := make([]nftables.SetElement, 0, len(ips))
    for _, ip := range ips { out = append(out, nftables.SetElement{Key: ip}) }
    return out
}

// dropUnlisted matches "meta nfproto <family> tcp dport <ports> <saddr> != @set drop".
func dropUnlisted(p PortRange, family byte, saddrOff, saddrLen uint32, set *nftables.Set) []expr.Any {
    return []expr.Any{
        &expr.Meta{Key: expr.MetaKeyNFPROTO, Register: 1},
        &expr.Cmp{Op: expr.CmpOpEq, Register: 1, Data: []byte{family}},
        &expr.Meta{Key: expr.MetaKeyL4PROTO, Register: 1},
        &expr.Cmp{Op: expr.CmpOpEq, Register: 1, Data: []byte{unix.IPPROTO_TCP}},
        &expr.Payload{DestRegister: 1, Base: expr.PayloadBaseTransportHeader, Offset: 2, Len: 2},
        &expr.Range{Op: expr.CmpOpEq, Register: 1, FromData: binaryutil.BigEndian.PutUint16(p.From), ToData: binaryutil.BigEndian.PutUint16(p.To)},
        &expr.Payload{DestRegister: 1, Base: expr.PayloadBaseNetworkHeader, Offset: saddrOff, Len: saddrLen},
        &expr.Lookup{SourceRegister: 1, SetName: set.Name, SetID: set.ID, Invert: true},
        &expr.Verdict{Kind: expr.VerdictDrop},
    }
}
