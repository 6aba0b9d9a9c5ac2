// Package cli provides the ovsdbctl cobra commands so that other binaries
// can embed them.
package cli

import (
    "context"
    "errors"
    "fmt"
    "io"
    "log"
    "os"
    "os/signal"
    "strings"
    "syscall"
    "time"

    "github.com/goccy/go-json"
    "github.com/spf13/cobra"
    "github.com/spf13/pflag"
    "gopkg.in/yaml.v2"

    "github.com/amirimatin/ovsdb-cluster/pkg/bootstrap"
    "github.com/amirimatin/ovsdb-cluster/pkg/cluster"
    "github.com/amirimatin/ovsdb-cluster/pkg/firewall"
    "github.com/amirimatin/ovsdb-cluster/pkg/health"
    "github.com/amirimatin/ovsdb-cluster/pkg/internal/logutil"
    "github.com/amirimatin/ovsdb-cluster/pkg/observability/tracing"
    "github.com/amirimatin/ovsdb-cluster/pkg/ovsdb"
    "github.com/amirimatin/ovsdb-cluster/pkg/peers"
    etcdready "github.com/amirimatin/ovsdb-cluster/pkg/readiness/etcd"
    "github.com/amirimatin/ovsdb-cluster/pkg/transport"
    etcdlock "github.com/amirimatin/ovsdb-cluster/pkg/upgradelock/etcd"
)

// ExitError carries a process exit code, used by check to report Nagios
// states.
type ExitError struct {
    Code int
    Err  error
}

func (e *ExitError) Error() string {
    if e.Err == nil { return fmt.Sprintf("exit status %d", e.Code) }
    return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// AddAll attaches every subcommand to root.
func AddAll(root *cobra.Command) {
    root.AddCommand(
        NewRunCmd(),
        NewStatusCmd(),
        NewKickCmd(),
        NewReportCmd(),
        NewJoinCmd(),
        NewCreateCmd(),
        NewLeaveCmd(),
        NewElectionTimerCmd(),
        NewWaitDepartureCmd(),
        NewCheckCmd(),
        NewUpgradeCmd(),
    )
}

// engineFlags are shared by the commands that drive the local servers.
type engineFlags struct {
    layout, tool       string
    minTimer, maxTimer int
}

func (e *engineFlags) register(fs *pflag.FlagSet) {
    fs.StringVar(&e.layout, "layout", "", "engine layout: ovn|openvswitch (default: probe the run directories)")
    fs.StringVar(&e.tool, "ovsdb-tool", "ovsdb-tool", "ovsdb-tool binary used to join a cluster")
    fs.IntVar(&e.minTimer, "min-election-timer", 1, "lowest accepted election timer (seconds)")
    fs.IntVar(&e.maxTimer, "max-election-timer", 60, "highest accepted election timer (seconds)")
}

func (e *engineFlags) config() bootstrap.Config {
    return bootstrap.Config{Layout: e.layout, OvsdbTool: e.tool, MinElectionTimer: e.minTimer, MaxElectionTimer: e.maxTimer, Logger: logger()}
}

// mgmtFlags select and secure the management endpoint.
type mgmtFlags struct {
    addr, proto                     string
    timeout                         time.Duration
    tlsEnable, tlsSkip              bool
    tlsCA, tlsCert, tlsKey, tlsName string
}

func (m *mgmtFlags) register(fs *pflag.FlagSet, defAddr string) {
    fs.StringVar(&m.addr, "addr", defAddr, "management address (host:port)")
    fs.StringVar(&m.proto, "mgmt-proto", "http", "management RPC protocol: http|grpc")
    fs.DurationVar(&m.timeout, "timeout", 5*time.Second, "request timeout")
    fs.BoolVar(&m.tlsEnable, "tls-enable", false, "enable mTLS for management transport")
    fs.StringVar(&m.tlsCA, "tls-ca", "", "path to CA cert (PEM)")
    fs.StringVar(&m.tlsCert, "tls-cert", "", "path to certificate (PEM)")
    fs.StringVar(&m.tlsKey, "tls-key", "", "path to private key (PEM)")
    fs.BoolVar(&m.tlsSkip, "tls-skip-verify", false, "skip server cert verification (DEV ONLY)")
    fs.StringVar(&m.tlsName, "tls-server-name", "", "expected server name (for TLS validation)")
}

func (m *mgmtFlags) apply(cfg *bootstrap.Config) {
    cfg.MgmtAddr, cfg.MgmtProto = m.addr, m.proto
    cfg.TLSEnable, cfg.TLSCA, cfg.TLSCert, cfg.TLSKey = m.tlsEnable, m.tlsCA, m.tlsCert, m.tlsKey
    cfg.TLSSkipVerify, cfg.TLSServerName = m.tlsSkip, m.tlsName
}

func (m *mgmtFlags) client() (transport.RPCClient, error) {
    var cfg bootstrap.Config
    m.apply(&cfg)
    return bootstrap.Client(cfg, m.timeout)
}

// NewRunCmd returns the "run" command which starts the reconcile agent.
func NewRunCmd() *cobra.Command {
    var (
        cfg         bootstrap.Config
        eng         engineFlags
        mgmt        mgmtFlags
        traceEnable bool
    )
    cmd := &cobra.Command{
        Use:   "run",
        Short: "Run the cluster reconcile agent",
        RunE: func(cmd *cobra.Command, args []string) error {
            if cfg.Unit == "" || cfg.BoundAddress == "" { return errors.New("missing required flags: --unit and --address") }
            ctx, cancel := signalContext()
            defer cancel()
            if traceEnable {
                shutdown, err := tracing.Setup(true)
                if err != nil {
                    log.Printf("tracing setup error: %v", err)
                } else {
                    defer func() { _ = shutdown(context.Background()) }()
                }
            }
            base := eng.config()
            cfg.Layout, cfg.OvsdbTool, cfg.MinElectionTimer, cfg.MaxElectionTimer = base.Layout, base.OvsdbTool, base.MinElectionTimer, base.MaxElectionTimer
            mgmt.apply(&cfg)
            cfg.Logger = logger()
            n, err := bootstrap.Build(cfg)
            if err != nil { return err }
            defer n.Close()
            logutil.Infof(cfg.Logger, "agent running for %s (%s); press Ctrl+C to exit", cfg.Unit, cfg.BoundAddress)
            return n.Run(ctx)
        },
    }
    f := cmd.Flags()
    f.StringVar(&cfg.Unit, "unit", "", "local unit id, e.g. ovn-central/0 (required)")
    f.StringVar(&cfg.BoundAddress, "address", "", "IP the local OVSDB servers bind to (required)")
    f.StringVar(&cfg.PeerKind, "peers-kind", "static", "peer relation backend: static|file|memberlist")
    f.StringVar(&cfg.PeersCSV, "peers", "", "static peers as unit=ip,unit=ip")
    f.StringVar(&cfg.PeerFile, "peers-file", "", "file with unit=ip entries (peers-kind=file)")
    f.StringVar(&cfg.PeerEnv, "peers-env", "", "env var with unit=ip entries; overrides the file when set")
    f.DurationVar(&cfg.PeerRefresh, "peers-refresh", 5*time.Second, "peer file refresh interval")
    f.StringVar(&cfg.MemBind, "mem-bind", ":7946", "gossip bind addr (peers-kind=memberlist)")
    f.StringVar(&cfg.MemAdv, "mem-adv", "", "gossip advertise addr (optional)")
    f.StringVar(&cfg.MemSeedsCSV, "join", "", "comma-separated gossip seeds (host:port)")
    f.IntVar(&cfg.ElectionTimer, "election-timer", 0, "desired election timer in seconds (0 leaves it alone)")
    f.DurationVar(&cfg.Interval, "interval", 30*time.Second, "reconcile interval")
    f.DurationVar(&cfg.DepartureTimeout, "departure-timeout", cluster.DefaultDepartureTimeout, "how long to wait for a departed peer to leave the clusters")
    f.DurationVar(&cfg.PollInterval, "poll-interval", cluster.DefaultPollInterval, "cluster status poll interval while waiting")
    f.IntVar(&cfg.NBClusterPort, "nb-cluster-port", ovsdb.Northbound.ClusterPort(), "Northbound Raft port")
    f.IntVar(&cfg.SBClusterPort, "sb-cluster-port", ovsdb.Southbound.ClusterPort(), "Southbound Raft port")
    f.StringVar(&cfg.DataDir, "data", "", "directory for persistent markers (empty: memory)")
    f.BoolVar(&cfg.LeaveOnExit, "leave-on-exit", false, "leave both clusters when stopping (unit removal)")
    f.StringVar(&cfg.UpgradeLockFile, "upgrade-lock-file", "", "marker file that pauses membership changes while present")
    f.StringVar(&cfg.EtcdEndpointsCSV, "etcd", "", "comma-separated etcd endpoints for the shared upgrade lock")
    f.StringVar(&cfg.EtcdPrefix, "etcd-prefix", etcdlock.DefaultPrefix, "etcd key prefix of the upgrade lock")
    f.StringVar(&cfg.EtcdReadyKey, "etcd-ready-key", etcdready.DefaultKey, "etcd key announcing that the clusters exist")
    f.BoolVar(&cfg.Bootstrap, "bootstrap", false, "create both clusters on this unit if no peer reports them ready (exactly one unit)")
    f.BoolVar(&cfg.ClusterReady, "cluster-ready", false, "treat the clusters as already created and join them")
    f.StringVar(&cfg.FirewallKind, "firewall", "hook", "firewall collaborator: hook|nftables")
    f.StringVar(&cfg.FirewallHook, "firewall-hook", "", "command run with the allowed peer addresses after a departure")
    f.StringVar(&cfg.FirewallTable, "firewall-table", firewall.DefaultTable, "nftables table owned by the agent (firewall=nftables)")
    f.BoolVar(&traceEnable, "trace", false, "enable OpenTelemetry stdout tracing (dev)")
    eng.register(f)
    mgmt.register(f, ":17946")
    return cmd
}

// NewStatusCmd returns the "status" command (cluster-status action).
func NewStatusCmd() *cobra.Command {
    var (
        mgmt   mgmtFlags
        eng    engineFlags
        format string
        local  bool
        table  string
        unit   string
        addr   string
    )
    cmd := &cobra.Command{
        Use:   "status",
        Short: "Show both clusters with servers mapped to units",
        RunE: func(cmd *cobra.Command, args []string) error {
            ctx, cancel := context.WithTimeout(context.Background(), mgmt.timeout)
            defer cancel()
            var rep *cluster.StatusReport
            if local {
                t, err := localTable(table, unit, addr)
                if err != nil { return err }
                _, rec, err := bootstrap.Engine(eng.config())
                if err != nil { return err }
                if rep, err = rec.ClusterStatus(ctx, t); err != nil { return fmt.Errorf("status error: %w", err) }
            } else {
                client, err := mgmt.client()
                if err != nil { return err }
                data, err := client.GetStatus(ctx, mgmt.addr)
                if err != nil { return fmt.Errorf("status error: %w", err) }
                rep = &cluster.StatusReport{}
                if err := json.Unmarshal(data, rep); err != nil { return fmt.Errorf("decode status: %w", err) }
            }
            return render(cmd.OutOrStdout(), format, rep, statusSlice(rep))
        },
    }
    mgmt.register(cmd.Flags(), "127.0.0.1:17946")
    eng.register(cmd.Flags())
    cmd.Flags().StringVar(&format, "format", "yaml", "output format: yaml|json")
    cmd.Flags().BoolVar(&local, "local", false, "query the local servers directly instead of the agent")
    cmd.Flags().StringVar(&table, "peers", "", "unit=ip table of the other units, used with --local")
    cmd.Flags().StringVar(&unit, "unit", "", "local unit name (required with --local)")
    cmd.Flags().StringVar(&addr, "address", "", "local bound address (required with --local)")
    return cmd
}

// localTable is the unit table for a --local status: the peers plus the
// local unit, so the local server maps to a unit instead of UNKNOWN.
func localTable(csv, unit, addr string) (peers.Table, error) {
    unit, addr = strings.TrimSpace(unit), strings.Trim(strings.TrimSpace(addr), "[]")
    if unit == "" || addr == "" { return nil, errors.New("--unit and --address are required with --local") }
    t, err := peers.ParseTable(csv)
    if err != nil { return nil, err }
    if other, dup := t[unit]; dup && other != addr {
        return nil, fmt.Errorf("unit %q is listed in --peers as %s, not %s", unit, other, addr)
    }
    t[unit] = addr
    return t, nil
}

func statusSlice(rep *cluster.StatusReport) yaml.MapSlice {
    return yaml.MapSlice{
        {Key: "southbound-cluster", Value: rep.Southbound},
        {Key: "northbound-cluster", Value: rep.Northbound},
    }
}

// NewKickCmd returns the "kick" command (cluster-kick action).
func NewKickCmd() *cobra.Command {
    var (
        mgmt       mgmtFlags
        eng        engineFlags
        sbID, nbID string
        format     string
        local      bool
    )
    cmd := &cobra.Command{
        Use:   "kick",
        Short: "Forcibly remove a server from the Southbound and/or Northbound cluster",
        RunE: func(cmd *cobra.Command, args []string) error {
            if sbID == "" && nbID == "" { return errors.New("at least one of --sb-server-id or --nb-server-id is required") }
            ctx, cancel := context.WithTimeout(context.Background(), mgmt.timeout)
            defer cancel()
            var (
                res transport.KickResponse
                err error
            )
            if local {
                _, rec, eerr := bootstrap.Engine(eng.config())
                if eerr != nil { return eerr }
                var kr cluster.KickResult
                kr, err = rec.KickServers(ctx, cluster.KickRequest{SouthboundID: sbID, NorthboundID: nbID})
                res = transport.KickResponse{Southbound: kr.Southbound, Northbound: kr.Northbound}
            } else {
                client, cerr := mgmt.client()
                if cerr != nil { return cerr }
                res, err = client.PostKick(ctx, mgmt.addr, transport.KickRequest{SouthboundID: sbID, NorthboundID: nbID})
            }
            out := yaml.MapSlice{}
            if res.Southbound != "" { out = append(out, yaml.MapItem{Key: "southbound", Value: res.Southbound}) }
            if res.Northbound != "" { out = append(out, yaml.MapItem{Key: "northbound", Value: res.Northbound}) }
            if len(out) > 0 {
                if rerr := render(cmd.OutOrStdout(), format, cluster.KickResult{Southbound: res.Southbound, Northbound: res.Northbound}, out); rerr != nil { return rerr }
            }
            if err != nil { return fmt.Errorf("kick error: %w", err) }
            return nil
        },
    }
    mgmt.register(cmd.Flags(), "127.0.0.1:17946")
    eng.register(cmd.Flags())
    cmd.Flags().StringVar(&sbID, "sb-server-id", "", "Southbound server id to kick")
    cmd.Flags().StringVar(&nbID, "nb-server-id", "", "Northbound server id to kick")
    cmd.Flags().StringVar(&format, "format", "yaml", "output format: yaml|json")
    cmd.Flags().BoolVar(&local, "local", false, "kick through the local servers instead of the agent")
    return cmd
}

// NewReportCmd returns the "report" command showing the agent's last pass.
func NewReportCmd() *cobra.Command {
    var mgmt mgmtFlags
    cmd := &cobra.Command{
        Use:   "report",
        Short: "Show the outcome of the agent's last reconcile pass",
        RunE: func(cmd *cobra.Command, args []string) error {
            ctx, cancel := context.WithTimeout(context.Background(), mgmt.timeout)
            defer cancel()
            client, err := mgmt.client()
            if err != nil { return err }
            data, err := client.GetReport(ctx, mgmt.addr)
            if err != nil { return fmt.Errorf("report error: %w", err) }
            return writeLine(cmd.OutOrStdout(), data)
        },
    }
    mgmt.register(cmd.Flags(), "127.0.0.1:17946")
    return cmd
}

// NewJoinCmd returns the "join" command which bootstraps one local database
// into an existing cluster.
func NewJoinCmd() *cobra.Command {
    var (
        eng         engineFlags
        db, localIP string
        remoteCSV   string
        port        int
        dbFile      string
    )
    cmd := &cobra.Command{
        Use:   "join",
        Short: "Create the local database file as a member of an existing cluster",
        RunE: func(cmd *cobra.Command, args []string) error {
            d, err := ovsdb.ParseDatabase(db)
            if err != nil { return err }
            if localIP == "" || remoteCSV == "" { return errors.New("missing required flags: --address and --remote") }
            client, rec, err := bootstrap.Engine(eng.config())
            if err != nil { return err }
            if dbFile == "" {
                if dbFile, err = client.DBPath(d); err != nil { return err }
            }
            if port == 0 { port = d.ClusterPort() }
            local := ovsdb.ConnectionStrings([]string{localIP}, port)
            remote := ovsdb.ConnectionStrings(splitList(remoteCSV), port)
            ctx, cancel := signalContext()
            defer cancel()
            return rec.JoinCluster(ctx, dbFile, d.Schema(), local, remote)
        },
    }
    eng.register(cmd.Flags())
    cmd.Flags().StringVar(&db, "db", "", "database: nb|sb (required)")
    cmd.Flags().StringVar(&localIP, "address", "", "local bound IP (required)")
    cmd.Flags().StringVar(&remoteCSV, "remote", "", "comma-separated remote peer IPs (required)")
    cmd.Flags().IntVar(&port, "port", 0, "cluster port (default: the database's)")
    cmd.Flags().StringVar(&dbFile, "file", "", "database file (default: from the layout)")
    return cmd
}

// NewCreateCmd returns the "create" command which initializes one local
// database as the first member of a new cluster.
func NewCreateCmd() *cobra.Command {
    var (
        eng              engineFlags
        db, localIP      string
        port             int
        dbFile, schemaFn string
    )
    cmd := &cobra.Command{
        Use:   "create",
        Short: "Create the local database file as the first member of a new cluster",
        RunE: func(cmd *cobra.Command, args []string) error {
            d, err := ovsdb.ParseDatabase(db)
            if err != nil { return err }
            if strings.TrimSpace(localIP) == "" { return errors.New("missing required flag: --address") }
            client, rec, err := bootstrap.Engine(eng.config())
            if err != nil { return err }
            if dbFile == "" {
                if dbFile, err = client.DBPath(d); err != nil { return err }
            }
            if schemaFn == "" {
                if schemaFn, err = client.SchemaPath(d); err != nil { return err }
            }
            if port == 0 { port = d.ClusterPort() }
            local := ovsdb.ConnectionStrings([]string{localIP}, port)
            ctx, cancel := signalContext()
            defer cancel()
            return rec.CreateCluster(ctx, dbFile, schemaFn, local[0])
        },
    }
    eng.register(cmd.Flags())
    cmd.Flags().StringVar(&db, "db", "", "database: nb|sb (required)")
    cmd.Flags().StringVar(&localIP, "address", "", "local bound IP (required)")
    cmd.Flags().IntVar(&port, "port", 0, "cluster port (default: the database's)")
    cmd.Flags().StringVar(&dbFile, "file", "", "database file (default: from the layout)")
    cmd.Flags().StringVar(&schemaFn, "schema", "", "schema file (default: from the layout)")
    return cmd
}

// NewLeaveCmd returns the "leave" command.
func NewLeaveCmd() *cobra.Command {
    var eng engineFlags
    cmd := &cobra.Command{
        Use:   "leave",
        Short: "Leave the Southbound and Northbound clusters",
        RunE: func(cmd *cobra.Command, args []string) error {
            _, rec, err := bootstrap.Engine(eng.config())
            if err != nil { return err }
            ctx, cancel := signalContext()
            defer cancel()
            rec.LeaveCluster(ctx)
            return nil
        },
    }
    eng.register(cmd.Flags())
    return cmd
}

// NewElectionTimerCmd returns the "election-timer" command.
func NewElectionTimerCmd() *cobra.Command {
    var (
        eng    engineFlags
        db     string
        target int
    )
    cmd := &cobra.Command{
        Use:   "election-timer",
        Short: "Step the election timer towards a target (leader only)",
        RunE: func(cmd *cobra.Command, args []string) error {
            dbs := []ovsdb.Database{ovsdb.Northbound, ovsdb.Southbound}
            if db != "" {
                d, err := ovsdb.ParseDatabase(db)
                if err != nil { return err }
                dbs = []ovsdb.Database{d}
            }
            _, rec, err := bootstrap.Engine(eng.config())
            if err != nil { return err }
            ctx, cancel := signalContext()
            defer cancel()
            for _, d := range dbs {
                if err := rec.Converge(ctx, d, target*1000); err != nil { return err }
            }
            return nil
        },
    }
    eng.register(cmd.Flags())
    cmd.Flags().StringVar(&db, "db", "", "database: nb|sb (default: both)")
    cmd.Flags().IntVar(&target, "target", 0, "target election timer in seconds (required)")
    return cmd
}

// NewWaitDepartureCmd returns the "wait-departure" command.
func NewWaitDepartureCmd() *cobra.Command {
    var (
        eng           engineFlags
        ip            string
        timeout, poll time.Duration
    )
    cmd := &cobra.Command{
        Use:   "wait-departure",
        Short: "Wait until a peer address is gone from both clusters",
        RunE: func(cmd *cobra.Command, args []string) error {
            if ip == "" { return errors.New("missing required flag: --ip") }
            _, rec, err := bootstrap.Engine(eng.config())
            if err != nil { return err }
            ctx, cancel := signalContext()
            defer cancel()
            if !rec.WaitForDepartureWithin(ctx, ip, timeout, poll) {
                return &ExitError{Code: 1, Err: fmt.Errorf("%s is still a cluster member after %s", ip, timeout)}
            }
            fmt.Fprintf(cmd.OutOrStdout(), "%s has left both clusters\n", ip)
            return nil
        },
    }
    eng.register(cmd.Flags())
    cmd.Flags().StringVar(&ip, "ip", "", "address of the departing peer (required)")
    cmd.Flags().DurationVar(&timeout, "timeout", cluster.DefaultDepartureTimeout, "give up after this long")
    cmd.Flags().DurationVar(&poll, "poll", cluster.DefaultPollInterval, "poll interval")
    return cmd
}

// NewCheckCmd returns the "check" command, a Nagios plugin.
func NewCheckCmd() *cobra.Command {
    var (
        eng                engineFlags
        db, output         string
        connections, certs bool
        certPaths          string
        timeout            time.Duration
    )
    cmd := &cobra.Command{
        Use:   "check",
        Short: "Nagios check of cluster membership, the connection table or certificate expiry",
        RunE: func(cmd *cobra.Command, args []string) error {
            client, _, err := bootstrap.Engine(eng.config())
            if err != nil { return &ExitError{Code: int(health.Unknown), Err: err} }
            var res health.Result
            if certs {
                res = health.CheckCerts(client.Fs(), splitList(certPaths), time.Now())
            } else {
                d, err := ovsdb.ParseDatabase(db)
                if err != nil { return &ExitError{Code: int(health.Unknown), Err: err} }
                ctx, cancel := context.WithTimeout(context.Background(), timeout)
                defer cancel()
                c := health.Checker{Source: client}
                res = c.CheckStatus(ctx, d)
                if connections { res = c.CheckConnections(ctx, d) }
            }
            if output != "" {
                if err := health.WriteResult(client.Fs(), output, res); err != nil { return &ExitError{Code: int(health.Unknown), Err: err} }
            }
            fmt.Fprintln(cmd.OutOrStdout(), res.String())
            if res.Severity != health.OK { return &ExitError{Code: int(res.Severity)} }
            return nil
        },
    }
    eng.register(cmd.Flags())
    cmd.Flags().StringVar(&db, "db", "", "database: nb|sb (required unless --certs)")
    cmd.Flags().BoolVar(&certs, "certs", false, "check certificate expiry instead of a database")
    cmd.Flags().StringVar(&certPaths, "cert-paths", "", "comma-separated certificates (default: the OVN host and central certs)")
    cmd.Flags().BoolVar(&connections, "connections", false, "check the Connection table instead of Raft membership")
    cmd.Flags().StringVar(&output, "output", "", "also write the result line to this file")
    cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "command timeout")
    return cmd
}

// NewUpgradeCmd returns "upgrade hold", which keeps the shared upgrade lock
// until interrupted.
func NewUpgradeCmd() *cobra.Command {
    parent := &cobra.Command{Use: "upgrade", Short: "Upgrade coordination"}
    var (
        endpoints, prefix string
        ttl               int
    )
    hold := &cobra.Command{
        Use:   "hold",
        Short: "Hold the upgrade lock until interrupted; agents pause membership changes meanwhile",
        RunE: func(cmd *cobra.Command, args []string) error {
            l, err := etcdlock.New(etcdlock.Options{Endpoints: splitList(endpoints), Prefix: prefix, TTL: ttl, Logger: logger()})
            if err != nil { return err }
            defer l.Close()
            ctx, cancel := signalContext()
            defer cancel()
            if err := l.Acquire(ctx); err != nil { return err }
            fmt.Fprintln(cmd.OutOrStdout(), "upgrade lock held; press Ctrl+C to release")
            <-ctx.Done()
            rctx, rcancel := context.WithTimeout(context.Background(), 5*time.Second)
            defer rcancel()
            return l.Release(rctx)
        },
    }
    hold.Flags().StringVar(&endpoints, "etcd", "127.0.0.1:2379", "comma-separated etcd endpoints")
    hold.Flags().StringVar(&prefix, "etcd-prefix", etcdlock.DefaultPrefix, "etcd key prefix of the upgrade lock")
    hold.Flags().IntVar(&ttl, "ttl", 60, "lock session TTL in seconds")
    parent.AddCommand(hold)
    return parent
}

func render(w io.Writer, format string, v interface{}, ordered yaml.MapSlice) error {
    switch format {
    case "json":
        b, err := json.MarshalIndent(v, "", "  ")
        if err != nil { return err }
        return writeLine(w, b)
    case "yaml", "":
        b, err := yaml.Marshal(ordered)
        if err != nil { return err }
        _, err = w.Write(b)
        return err
    }
    return fmt.Errorf("unknown format %q", format)
}

func writeLine(w io.Writer, b []byte) error {
    if _, err := w.Write(b); err != nil { return err }
    if len(b) == 0 || b[len(b)-1] != '\n' {
        _, err := w.Write([]byte("\n"))
        return err
    }
    return nil
}

func splitList(s string) []string {
    var out []string
    for _, p := range strings.Split(s, ",") {
        if p = strings.TrimSpace(p); p != "" { out = append(out, p) }
    }
    return out
}

func logger() *log.Logger { return log.New(os.Stderr, "", log.LstdFlags) }

func signalContext() (context.Context, context.CancelFunc) {
    return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
