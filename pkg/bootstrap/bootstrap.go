// Package bootstrap assembles an agent from a flat Config: engine client,
// reconciler, peer source, marker store, upgrade locks, firewall hook and
// the management API.
package bootstrap

import (
    "context"
    "crypto/tls"
    "errors"
    "fmt"
    "log"
    "strings"
    "time"

    "github.com/goccy/go-json"
    "github.com/hashicorp/go-multierror"
    "github.com/spf13/afero"

    "github.com/amirimatin/ovsdb-cluster/pkg/agent"
    "github.com/amirimatin/ovsdb-cluster/pkg/cluster"
    "github.com/amirimatin/ovsdb-cluster/pkg/firewall"
    "github.com/amirimatin/ovsdb-cluster/pkg/internal/logutil"
    "github.com/amirimatin/ovsdb-cluster/pkg/observability/metrics"
    "github.com/amirimatin/ovsdb-cluster/pkg/ovsdb"
    "github.com/amirimatin/ovsdb-cluster/pkg/ovsdb/appctl"
    "github.com/amirimatin/ovsdb-cluster/pkg/peers"
    pfile "github.com/amirimatin/ovsdb-cluster/pkg/peers/file"
    pml "github.com/amirimatin/ovsdb-cluster/pkg/peers/memberlist"
    pstatic "github.com/amirimatin/ovsdb-cluster/pkg/peers/static"
    "github.com/amirimatin/ovsdb-cluster/pkg/readiness"
    etcdready "github.com/amirimatin/ovsdb-cluster/pkg/readiness/etcd"
    tlsx "github.com/amirimatin/ovsdb-cluster/pkg/security/tlsconfig"
    "github.com/amirimatin/ovsdb-cluster/pkg/state"
    "github.com/amirimatin/ovsdb-cluster/pkg/transport"
    mgmtgrpc "github.com/amirimatin/ovsdb-cluster/pkg/transport/grpc"
    "github.com/amirimatin/ovsdb-cluster/pkg/transport/httpjson"
    "github.com/amirimatin/ovsdb-cluster/pkg/upgradelock"
    etcdlock "github.com/amirimatin/ovsdb-cluster/pkg/upgradelock/etcd"
)

// Config defines the inputs of an agent with sensible defaults.
type Config struct {
    // Identity
    Unit         string // e.g. "ovn-central/0"
    BoundAddress string // IP the local OVSDB servers bind to

    // Engine
    Layout    string // "" probes, else "ovn" or "openvswitch"
    OvsdbTool string

    // Peer relation
    PeerKind    string // "static" (default), "file" or "memberlist"
    PeersCSV    string // unit=ip,... for static
    PeerFile    string // for file
    PeerEnv     string // for file; overrides the file when set
    PeerRefresh time.Duration
    MemBind     string // gossip host:port for memberlist
    MemAdv      string
    MemSeedsCSV string

    // Election timer in seconds; 0 leaves the live value alone.
    ElectionTimer    int
    MinElectionTimer int
    MaxElectionTimer int

    Interval         time.Duration
    DepartureTimeout time.Duration
    PollInterval     time.Duration
    NBClusterPort    int
    SBClusterPort    int

    // Persistence; empty keeps markers in memory.
    DataDir string
    // LeaveOnExit leaves both clusters and announces the departure when the
    // agent stops.
    LeaveOnExit bool

    // Cluster creation. The Bootstrap unit creates both clusters until one
    // of the readiness markers reports them formed; ClusterReady seeds the
    // local marker for units told so by the operator.
    Bootstrap    bool
    ClusterReady bool

    // Upgrade coordination and the shared readiness key (all optional)
    UpgradeLockFile  string
    EtcdEndpointsCSV string
    EtcdPrefix       string
    EtcdReadyKey     string

    // Firewall: "hook" (default) runs FirewallHook; "nftables" manages
    // FirewallTable directly.
    FirewallKind  string
    FirewallHook  string
    FirewallTable string

    // Management API
    MgmtAddr  string // empty disables it
    MgmtProto string // "http" (default) or "grpc"

    // TLS (optional) for management API
    TLSEnable     bool
    TLSCA         string
    TLSCert       string
    TLSKey        string
    TLSServerName string
    TLSSkipVerify bool

    Fs     afero.Fs
    Runner appctl.Runner
    Logger *log.Logger
}

func (c *Config) setDefaults() {
    if c.Logger == nil { c.Logger = log.Default() }
    if c.Fs == nil { c.Fs = afero.NewOsFs() }
    if c.Runner == nil { c.Runner = appctl.ExecRunner{} }
}

// Engine builds the control client and reconciler. One-shot commands use it
// without the rest of the agent.
func Engine(cfg Config) (*appctl.Client, *cluster.Reconciler, error) {
    cfg.setDefaults()
    opts := appctl.Options{Runner: cfg.Runner, Fs: cfg.Fs, OvsdbTool: cfg.OvsdbTool, Logger: cfg.Logger}
    if cfg.Layout != "" {
        l, err := appctl.LayoutByName(cfg.Layout)
        if err != nil { return nil, nil, err }
        opts.Layout = &l
    }
    client := appctl.New(opts)
    rec, err := cluster.New(cluster.Options{
        Engine:           client,
        Fs:               cfg.Fs,
        Logger:           cfg.Logger,
        DepartureTimeout: cfg.DepartureTimeout,
        PollInterval:     cfg.PollInterval,
        MinElectionTimer: time.Duration(cfg.MinElectionTimer) * time.Second,
        MaxElectionTimer: time.Duration(cfg.MaxElectionTimer) * time.Second,
    })
    if err != nil { return nil, nil, err }
    return client, rec, nil
}

// PeerSource builds the configured peer relation.
func PeerSource(cfg Config) (peers.Source, error) {
    cfg.setDefaults()
    switch cfg.PeerKind {
    case "file":
        if cfg.PeerFile == "" && cfg.PeerEnv == "" { return nil, errors.New("bootstrap: file peers need a path or env var") }
        return pfile.New(pfile.Options{Path: cfg.PeerFile, Env: cfg.PeerEnv, Refresh: cfg.PeerRefresh, LocalUnit: cfg.Unit, LocalIP: cfg.BoundAddress, Fs: cfg.Fs, Logger: cfg.Logger}), nil
    case "memberlist":
        return pml.New(pml.Options{Unit: cfg.Unit, BoundAddress: cfg.BoundAddress, Bind: cfg.MemBind, Advertise: cfg.MemAdv, Seeds: splitCSV(cfg.MemSeedsCSV), Logger: cfg.Logger})
    case "", "static":
        t, err := peers.ParseTable(cfg.PeersCSV)
        if err != nil { return nil, err }
        return pstatic.New(cfg.Unit, cfg.BoundAddress, t), nil
    }
    return nil, fmt.Errorf("bootstrap: unknown peer kind %q", cfg.PeerKind)
}

// UpgradeLock combines the file marker and the etcd lock. The returned
// closer releases the etcd client.
func UpgradeLock(cfg Config) (upgradelock.Checker, func() error, error) {
    cfg.setDefaults()
    var checkers upgradelock.Any
    closer := func() error { return nil }
    if cfg.UpgradeLockFile != "" {
        checkers = append(checkers, upgradelock.File{Fs: cfg.Fs, Path: cfg.UpgradeLockFile})
    }
    if eps := splitCSV(cfg.EtcdEndpointsCSV); len(eps) > 0 {
        l, err := etcdlock.New(etcdlock.Options{Endpoints: eps, Prefix: cfg.EtcdPrefix, Logger: cfg.Logger})
        if err != nil { return nil, nil, err }
        checkers = append(checkers, l)
        closer = l.Close
    }
    if len(checkers) == 0 { return upgradelock.None{}, closer, nil }
    return checkers, closer, nil
}

// Readiness combines the configured flag, a gossip peer source and the etcd
// key into one marker. The returned closer releases the etcd client.
func Readiness(cfg Config, src peers.Source) (readiness.Marker, func() error, error) {
    cfg.setDefaults()
    markers := readiness.Any{readiness.NewStatic(cfg.ClusterReady)}
    closer := func() error { return nil }
    if m, ok := src.(readiness.Marker); ok {
        markers = append(markers, m)
    }
    if eps := splitCSV(cfg.EtcdEndpointsCSV); len(eps) > 0 {
        m, err := etcdready.New(etcdready.Options{Endpoints: eps, Key: cfg.EtcdReadyKey, Unit: cfg.Unit})
        if err != nil { return nil, nil, err }
        markers = append(markers, m)
        closer = m.Close
    }
    return markers, closer, nil
}

// Firewall returns the configured firewall collaborator.
func Firewall(cfg Config) firewall.Firewall {
    cfg.setDefaults()
    if cfg.FirewallKind == "nftables" {
        nb, sb := cfg.NBClusterPort, cfg.SBClusterPort
        if nb == 0 { nb = ovsdb.Northbound.ClusterPort() }
        if sb == 0 { sb = ovsdb.Southbound.ClusterPort() }
        ports := firewall.PortRange{From: uint16(min(nb, sb)), To: uint16(max(nb, sb))}
        return &firewall.NFTables{Table: cfg.FirewallTable, Ports: ports, Logger: cfg.Logger}
    }
    return firewall.ParseHook(cfg.FirewallHook, cfg.Runner, cfg.Logger)
}

// TLS returns the server and client configs, both nil when disabled.
func TLS(cfg Config) (*tls.Config, *tls.Config, error) {
    cfg.setDefaults()
    o := tlsx.Options{Enable: cfg.TLSEnable, CAFile: cfg.TLSCA, CertFile: cfg.TLSCert, KeyFile: cfg.TLSKey, InsecureSkipVerify: cfg.TLSSkipVerify, ServerName: cfg.TLSServerName, Fs: cfg.Fs}
    if !o.Enable { return nil, nil, nil }
    srv, err := o.Server()
    if err != nil { return nil, nil, err }
    cli, err := o.Client()
    if err != nil { return nil, nil, err }
    return srv, cli, nil
}

// Client returns a management client for the configured protocol.
func Client(cfg Config, timeout time.Duration) (transport.RPCClient, error) {
    _, cliTLS, err := TLS(cfg)
    if err != nil { return nil, err }
    if cfg.MgmtProto == "grpc" {
        c := mgmtgrpc.NewClient(timeout)
        if cliTLS != nil { c.UseTLS(cliTLS) }
        return c, nil
    }
    c := httpjson.NewClient(timeout)
    if cliTLS != nil { c.UseTLS(cliTLS) }
    return c, nil
}

// Node is an assembled agent.
type Node struct {
    cfg        Config
    Client     *appctl.Client
    Reconciler *cluster.Reconciler
    Agent      *agent.Agent
    Peers      peers.Source
    Store      *state.Store
    Server     transport.RPCServer

    closeCoord func() error
}

// Build assembles a Node without starting anything.
func Build(cfg Config) (*Node, error) {
    cfg.setDefaults()
    if cfg.Unit == "" { return nil, errors.New("bootstrap: empty unit") }
    client, rec, err := Engine(cfg)
    if err != nil { return nil, err }
    src, err := PeerSource(cfg)
    if err != nil { return nil, err }
    store, err := state.Open(cfg.DataDir)
    if err != nil { return nil, err }
    lock, closeLock, err := UpgradeLock(cfg)
    if err != nil {
        _ = store.Close()
        return nil, err
    }
    ready, closeReady, err := Readiness(cfg, src)
    if err != nil {
        _ = store.Close()
        _ = closeLock()
        return nil, err
    }
    closeCoord := func() error {
        var errs *multierror.Error
        if err := closeLock(); err != nil { errs = multierror.Append(errs, err) }
        if err := closeReady(); err != nil { errs = multierror.Append(errs, err) }
        return errs.ErrorOrNil()
    }
    a, err := agent.New(agent.Options{
        Reconciler:    rec,
        Paths:         client,
        Peers:         src,
        LocalUnit:     cfg.Unit,
        Store:         store,
        Lock:          lock,
        Firewall:      Firewall(cfg),
        Bootstrap:     cfg.Bootstrap,
        Ready:         ready,
        ElectionTimer: time.Duration(cfg.ElectionTimer) * time.Second,
        Interval:      cfg.Interval,
        NBClusterPort: cfg.NBClusterPort,
        SBClusterPort: cfg.SBClusterPort,
        Logger:        cfg.Logger,
    })
    if err != nil {
        _ = store.Close()
        _ = closeCoord()
        return nil, err
    }
    n := &Node{cfg: cfg, Client: client, Reconciler: rec, Agent: a, Peers: src, Store: store, closeCoord: closeCoord}

    if cfg.MgmtAddr != "" {
        srvTLS, _, err := TLS(cfg)
        if err != nil {
            _ = n.Close()
            return nil, err
        }
        switch cfg.MgmtProto {
        case "grpc":
            s := mgmtgrpc.NewServer(cfg.MgmtAddr)
            if srvTLS != nil { s.UseTLS(srvTLS) }
            n.Server = s
        default:
            s := httpjson.NewServer(cfg.MgmtAddr, cfg.Logger)
            if srvTLS != nil { s.UseTLS(srvTLS) }
            n.Server = s
        }
    }
    return n, nil
}

// Handlers exposes the cluster-status and cluster-kick actions.
func (n *Node) Handlers() transport.Handlers {
    return transport.Handlers{
        Status: func(ctx context.Context) ([]byte, error) {
            rep, err := n.Reconciler.ClusterStatus(ctx, n.Peers.Peers())
            if err != nil { return nil, err }
            return json.Marshal(rep)
        },
        Kick: func(ctx context.Context, req transport.KickRequest) (transport.KickResponse, error) {
            res, err := n.Reconciler.KickServers(ctx, cluster.KickRequest{SouthboundID: req.SouthboundID, NorthboundID: req.NorthboundID})
            out := transport.KickResponse{Southbound: res.Southbound, Northbound: res.Northbound}
            if err != nil { out.Error = err.Error() }
            return out, err
        },
        Report: func(context.Context) ([]byte, error) { return json.Marshal(n.report()) },
    }
}

// nodeReport is the agent's last report plus, for gossip peer sources, the
// memberlist awareness score (0 is healthy).
type nodeReport struct {
    agent.Report
    GossipHealth *int `json:"gossipHealth,omitempty"`
}

func (n *Node) report() nodeReport {
    out := nodeReport{Report: n.Agent.Last()}
    if hr, ok := n.Peers.(peers.HealthReporter); ok {
        score := hr.HealthScore()
        out.GossipHealth = &score
    }
    return out
}

// Run starts the peer source and management API and runs the agent until
// ctx is done.
func (n *Node) Run(ctx context.Context) error {
    metrics.Register()
    // The peer source outlives ctx so that a departure can still be
    // announced after the agent stops; Close stops it.
    peerCtx, stopPeers := context.WithCancel(context.Background())
    defer stopPeers()
    if st, ok := n.Peers.(peers.Starter); ok {
        if err := st.Start(peerCtx); err != nil { return err }
    }
    if n.Server != nil {
        if err := n.Server.Start(ctx, n.Handlers()); err != nil { return err }
        logutil.Infof(n.cfg.Logger, "management endpoint listening at %s (status/kick/metrics/healthz)", n.Server.Addr())
    }
    err := n.Agent.Run(ctx)
    if n.cfg.LeaveOnExit {
        n.leave()
    }
    return err
}

func (n *Node) leave() {
    ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
    defer cancel()
    n.Agent.Enqueue(peers.Departure{Unit: n.cfg.Unit, Address: n.cfg.BoundAddress, At: time.Now()})
    if _, err := n.Agent.Pass(ctx); err != nil {
        logutil.Warnf(n.cfg.Logger, "final pass: %v", err)
    }
    if l, ok := n.Peers.(interface{ Leave() error }); ok {
        if err := l.Leave(); err != nil {
            logutil.Warnf(n.cfg.Logger, "announce departure: %v", err)
        }
    }
}

// Close releases the store, the peer source and the etcd clients.
func (n *Node) Close() error {
    var errs *multierror.Error
    if n.Server != nil {
        if err := n.Server.Stop(context.Background()); err != nil { errs = multierror.Append(errs, err) }
    }
    if st, ok := n.Peers.(peers.Starter); ok {
        if err := st.Stop(); err != nil { errs = multierror.Append(errs, err) }
    }
    if err := n.Store.Close(); err != nil { errs = multierror.Append(errs, err) }
    if n.closeCoord != nil {
        if err := n.closeCoord(); err != nil { errs = multierror.Append(errs, err) }
    }
    return errs.ErrorOrNil()
}

func splitCSV(s string) []string {
    var out []string
    for _, p := range strings.Split(s, ",") {
        if p = strings.TrimSpace(p); p != "" { out = append(out, p) }
    }
    return out
}
