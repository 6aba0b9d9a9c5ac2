package memberlist

import (
    "context"
    "fmt"
    "log"
    "net"
    "strconv"
    "sync"
    "time"

    "github.com/goccy/go-json"
    "github.com/hashicorp/memberlist"

    "github.com/amirimatin/ovsdb-cluster/pkg/internal/logutil"
    "github.com/amirimatin/ovsdb-cluster/pkg/peers"
)

// MetaBoundAddress is the node metadata key carrying the address a unit
// binds its OVSDB servers to.
const MetaBoundAddress = "bound-address"

// MetaClusterReady is set to "true" by a unit that has seen both clusters
// formed.
const MetaClusterReady = "cluster-ready"

// Options configures the gossip based peer relation.
type Options struct {
    // Unit is the local unit id, used as the memberlist node name.
    Unit string
    // BoundAddress is the local OVSDB bind IP advertised to peers.
    BoundAddress string

    // Bind is the gossip bind address in host:port form (e.g. ":7946").
    Bind string
    // Advertise is the gossip address peers use to reach this node.
    // If empty, memberlist derives it from Bind.
    Advertise string
    // Seeds are gossip addresses joined on Start.
    Seeds []string

    // Logger is optional. If nil, log.Default() is used.
    Logger *log.Logger

    // Tuning parameters (optional). Zero means use defaults.
    ProbeInterval time.Duration
    ProbeTimeout  time.Duration
    SuspicionMult int
}

// Source is a peers.Source backed by HashiCorp memberlist.
type Source struct {
    mu     sync.RWMutex
    opts   Options
    ml     *memberlist.Memberlist
    deps   chan peers.Departure
    closed bool
    ready  bool
    node   *nodeDelegate

    bind, advertise hostPort
}

type hostPort struct {
    host string
    port int
}

// New constructs a memberlist peer source. It does no network activity.
func New(opts Options) (*Source, error) {
    if opts.Unit == "" {
        return nil, fmt.Errorf("memberlist: empty Unit")
    }
    if opts.Bind == "" {
        return nil, fmt.Errorf("memberlist: empty Bind address")
    }
    if opts.BoundAddress == "" {
        return nil, fmt.Errorf("memberlist: empty BoundAddress")
    }
    if opts.Logger == nil {
        opts.Logger = log.Default()
    }
    src := &Source{opts: opts, deps: make(chan peers.Departure, 64), node: &nodeDelegate{}}
    src.node.set(src.meta())
    var err error
    if src.bind, err = splitHostPort(opts.Bind); err != nil {
        return nil, fmt.Errorf("memberlist: invalid bind address %q: %w", opts.Bind, err)
    }
    if opts.Advertise != "" {
        if src.advertise, err = splitHostPort(opts.Advertise); err != nil {
            return nil, fmt.Errorf("memberlist: invalid advertise address %q: %w", opts.Advertise, err)
        }
    }
    return src, nil
}

// Start creates the memberlist instance and joins the configured seeds. A
// failed join is logged since peers may join us later.
func (s *Source) Start(ctx context.Context) error {
    s.mu.Lock()
    if s.ml != nil {
        s.mu.Unlock()
        return nil
    }
    ml, err := memberlist.Create(s.config())
    if err != nil {
        s.mu.Unlock()
        return err
    }
    s.ml = ml
    s.mu.Unlock()

    if len(s.opts.Seeds) > 0 {
        if n, err := ml.Join(s.opts.Seeds); err != nil {
            logutil.Warnf(s.opts.Logger, "memberlist: joined %d of %v: %v", n, s.opts.Seeds, err)
        } else {
            logutil.Infof(s.opts.Logger, "memberlist: joined %d peers", n)
        }
    }

    go func() {
        <-ctx.Done()
        _ = s.Stop()
    }()
    return nil
}

func (s *Source) config() *memberlist.Config {
    cfg := memberlist.DefaultLANConfig()
    cfg.Name = s.opts.Unit
    cfg.BindAddr = s.bind.host
    cfg.BindPort = s.bind.port
    if s.advertise.host != "" {
        cfg.AdvertiseAddr = s.advertise.host
        cfg.AdvertisePort = s.advertise.port
    }
    if s.opts.ProbeInterval > 0 { cfg.ProbeInterval = s.opts.ProbeInterval }
    if s.opts.ProbeTimeout > 0 { cfg.ProbeTimeout = s.opts.ProbeTimeout }
    if s.opts.SuspicionMult > 0 { cfg.SuspicionMult = s.opts.SuspicionMult }
    cfg.LogOutput = s.opts.Logger.Writer()
    cfg.Delegate = s.node
    cfg.Events = &eventDelegate{emit: s.emit, log: s.opts.Logger}
    return cfg
}

func (s *Source) meta() []byte {
    m := map[string]string{MetaBoundAddress: s.opts.BoundAddress}
    if s.ready { m[MetaClusterReady] = "true" }
    b, _ := json.Marshal(m)
    return b
}

// Ready reports whether this or any live node has announced the clusters as
// formed.
func (s *Source) Ready(context.Context) (bool, error) {
    s.mu.RLock()
    defer s.mu.RUnlock()
    if s.ready { return true, nil }
    if s.ml == nil { return false, nil }
    for _, n := range s.ml.Members() {
        if nodeMeta(n)[MetaClusterReady] == "true" { return true, nil }
    }
    return false, nil
}

// MarkReady advertises readiness in the local node metadata.
func (s *Source) MarkReady(ctx context.Context) error {
    s.mu.Lock()
    s.ready = true
    s.node.set(s.meta())
    ml := s.ml
    s.mu.Unlock()
    if ml == nil { return nil }
    timeout := time.Second
    if dl, ok := ctx.Deadline(); ok { timeout = time.Until(dl) }
    if err := ml.UpdateNode(timeout); err != nil {
        return fmt.Errorf("memberlist: announce readiness: %w", err)
    }
    return nil
}

// Addr is the local gossip address, useful when binding to port 0.
func (s *Source) Addr() string {
    s.mu.RLock()
    defer s.mu.RUnlock()
    if s.ml == nil { return "" }
    n := s.ml.LocalNode()
    return net.JoinHostPort(n.Addr.String(), strconv.Itoa(int(n.Port)))
}

// Join adds further gossip seeds after Start.
func (s *Source) Join(seeds []string) error {
    s.mu.RLock()
    ml := s.ml
    s.mu.RUnlock()
    if ml == nil {
        return fmt.Errorf("memberlist: not started")
    }
    if len(seeds) == 0 {
        return nil
    }
    _, err := ml.Join(seeds)
    return err
}

// Peers maps each live node's unit id to its bound address. The local unit
// is always present.
func (s *Source) Peers() peers.Table {
    t := peers.Table{s.opts.Unit: s.opts.BoundAddress}
    s.mu.RLock()
    defer s.mu.RUnlock()
    if s.ml == nil {
        return t
    }
    for _, n := range s.ml.Members() {
        if ip := boundAddress(n); ip != "" {
            t[n.Name] = ip
        }
    }
    return t
}

func (s *Source) Departures() <-chan peers.Departure { return s.deps }

// Leave broadcasts our departure so the remaining units start their
// downscale handling.
func (s *Source) Leave() error {
    s.mu.RLock()
    ml := s.ml
    s.mu.RUnlock()
    if ml == nil {
        return nil
    }
    return ml.Leave(time.Second)
}

func (s *Source) Stop() error {
    s.mu.Lock()
    defer s.mu.Unlock()
    if s.closed {
        return nil
    }
    s.closed = true
    if s.ml != nil {
        _ = s.ml.Shutdown()
        s.ml = nil
    }
    close(s.deps)
    return nil
}

// HealthScore exposes memberlist's awareness score, -1 when not started.
func (s *Source) HealthScore() int {
    s.mu.RLock()
    defer s.mu.RUnlock()
    if s.ml == nil {
        return -1
    }
    return s.ml.GetHealthScore()
}

func (s *Source) emit(d peers.Departure) {
    s.mu.RLock()
    defer s.mu.RUnlock()
    if s.closed { return }
    select {
    case s.deps <- d:
    default:
        logutil.Warnf(s.opts.Logger, "memberlist: dropping departure of %s: channel full", d.Unit)
    }
}

func boundAddress(n *memberlist.Node) string { return nodeMeta(n)[MetaBoundAddress] }

func nodeMeta(n *memberlist.Node) map[string]string {
    meta := map[string]string{}
    if n == nil || len(n.Meta) == 0 { return meta }
    if err := json.Unmarshal(n.Meta, &meta); err != nil { return map[string]string{} }
    return meta
}

// eventDelegate turns explicit leaves into departures. A node that merely
// failed is expected back and keeps its place in the clusters.
type eventDelegate struct {
    emit func(peers.Departure)
    log  *log.Logger
}

func (d *eventDelegate) NotifyJoin(*memberlist.Node)   {}
func (d *eventDelegate) NotifyUpdate(*memberlist.Node) {}

func (d *eventDelegate) NotifyLeave(n *memberlist.Node) {
    if d.emit == nil || n == nil { return }
    if n.State != memberlist.StateLeft {
        logutil.Warnf(d.log, "memberlist: %s is unreachable, not treating it as departed", n.Name)
        return
    }
    d.emit(peers.Departure{Unit: n.Name, Address: boundAddress(n), At: time.Now()})
}

// nodeDelegate propagates the bound address and readiness as node metadata.
type nodeDelegate struct {
    mu   sync.RWMutex
    meta []byte
}

func (d *nodeDelegate) set(meta []byte) {
    d.mu.Lock()
    d.meta = meta
    d.mu.Unlock()
}

func (d *nodeDelegate) NodeMeta(limit int) []byte {
    d.mu.RLock()
    defer d.mu.RUnlock()
    if len(d.meta) <= limit { return d.meta }
    if limit <= 0 { return nil }
    return d.meta[:limit]
}

func (d *nodeDelegate) NotifyMsg([]byte)                       {}
func (d *nodeDelegate) GetBroadcasts(int, int) [][]byte        { return nil }
func (d *nodeDelegate) LocalState(join bool) []byte            { return nil }
func (d *nodeDelegate) MergeRemoteState(buf []byte, join bool) {}

func splitHostPort(hp string) (hostPort, error) {
    host, ps, err := net.SplitHostPort(hp)
    if err != nil { return hostPort{}, err }
    p, err := strconv.Atoi(ps)
    if err != nil || p < 0 || p > 65535 {
        return hostPort{}, fmt.Errorf("invalid port: %q", ps)
    }
    return hostPort{host: host, port: p}, nil
}
