package appctl

import (
    "context"
    "errors"
    "fmt"
    "log"
    "os/exec"
    "strconv"
    "sync"

    "github.com/spf13/afero"

    "github.com/amirimatin/ovsdb-cluster/pkg/internal/logutil"
    "github.com/amirimatin/ovsdb-cluster/pkg/observability/metrics"
    "github.com/amirimatin/ovsdb-cluster/pkg/observability/tracing"
    "github.com/amirimatin/ovsdb-cluster/pkg/ovsdb"
)

// Options configures a Client.
type Options struct {
    Runner Runner
    Fs     afero.Fs
    // Layout pins the engine layout and disables probing.
    Layout *Layout
    // OvsdbTool is the bootstrap tool, "ovsdb-tool" by default.
    OvsdbTool string
    // LookPath finds installed control tools when no server is running yet.
    // Defaults to exec.LookPath.
    LookPath func(file string) (string, error)
    Logger   *log.Logger
}

// Client issues control commands against the local OVSDB servers. The layout
// is probed lazily and cached once found; a failed probe is retried on the
// next call because the servers may simply not be up yet.
type Client struct {
    runner   Runner
    fs       afero.Fs
    tool     string
    lookPath func(string) (string, error)
    log      *log.Logger

    mu     sync.Mutex
    layout *Layout
}

func New(opts Options) *Client {
    c := &Client{runner: opts.Runner, fs: opts.Fs, tool: opts.OvsdbTool, lookPath: opts.LookPath, log: opts.Logger}
    if c.runner == nil { c.runner = ExecRunner{} }
    if c.lookPath == nil { c.lookPath = exec.LookPath }
    if c.fs == nil { c.fs = afero.NewOsFs() }
    if c.tool == "" { c.tool = "ovsdb-tool" }
    if c.log == nil { c.log = log.Default() }
    if opts.Layout != nil {
        l := *opts.Layout
        c.layout = &l
    }
    return c
}

// Fs is the filesystem the client probes.
func (c *Client) Fs() afero.Fs { return c.fs }

// Layout returns the detected engine layout.
func (c *Client) Layout() (Layout, error) {
    c.mu.Lock()
    defer c.mu.Unlock()
    if c.layout != nil { return *c.layout, nil }
    l, err := Detect(c.fs)
    if err != nil { return Layout{}, err }
    logutil.Debugf(c.log, "appctl: detected %s layout (%s)", l.Name, l.Tool)
    c.layout = &l
    return l, nil
}

// DBPath is the database file of db. It resolves without a running server,
// since the file has to be created before the server can start.
func (c *Client) DBPath(db ovsdb.Database) (string, error) {
    l, err := c.dataLayout()
    if err != nil { return "", err }
    return l.DBPath(db), nil
}

// SchemaPath is the packaged schema file of db, resolved like DBPath.
func (c *Client) SchemaPath(db ovsdb.Database) (string, error) {
    l, err := c.dataLayout()
    if err != nil { return "", err }
    return l.SchemaPath(db), nil
}

// dataLayout picks the layout for on-disk paths. A pinned or detected layout
// wins. Before any server runs it falls back to the first layout whose data
// directory exists, then to the first whose control tool is installed, then
// to Modern. Fallbacks are not cached so a later socket still decides.
func (c *Client) dataLayout() (Layout, error) {
    l, err := c.Layout()
    if err == nil { return l, nil }
    if !errors.Is(err, ErrNoLayout) { return Layout{}, err }
    for _, l := range Layouts {
        ok, err := afero.DirExists(c.fs, l.DataDir)
        if err != nil { return Layout{}, err }
        if ok { return l, nil }
    }
    for _, l := range Layouts {
        if _, err := c.lookPath(l.Tool); err == nil { return l, nil }
    }
    logutil.Debugf(c.log, "appctl: no layout found on disk, assuming %s", Modern.Name)
    return Modern, nil
}

// Status runs cluster/status. Any failure to reach the server, including an
// undetectable layout, is reported as ovsdb.ErrNotReady; malformed output is
// a *ovsdb.ParseError.
func (c *Client) Status(ctx context.Context, db ovsdb.Database) (*ovsdb.ClusterStatus, error) {
    out, err := c.appctl(ctx, db, "cluster/status", db.Schema())
    if err != nil {
        logutil.Debugf(c.log, "appctl: %s cluster status unavailable: %v", db, err)
        return nil, fmt.Errorf("%w: %w", ovsdb.ErrNotReady, err)
    }
    s, err := ovsdb.ParseStatus(db, string(out))
    if err != nil { return nil, err }
    metrics.IsLeader.WithLabelValues(string(db)).Set(metrics.Bool(s.IsLeader()))
    metrics.ElectionTimer.WithLabelValues(string(db)).Set(float64(s.ElectionTimer))
    metrics.ClusterServers.WithLabelValues(string(db)).Set(float64(len(s.Servers)))
    return s, nil
}

// Kick forcibly removes serverID from the cluster.
func (c *Client) Kick(ctx context.Context, db ovsdb.Database, serverID string) error {
    _, err := c.appctl(ctx, db, "cluster/kick", db.Schema(), serverID)
    return err
}

// Leave asks the local server to leave the cluster gracefully.
func (c *Client) Leave(ctx context.Context, db ovsdb.Database) error {
    _, err := c.appctl(ctx, db, "cluster/leave", db.Schema())
    return err
}

// ChangeElectionTimer sets the live election timer. Only the leader may do so.
func (c *Client) ChangeElectionTimer(ctx context.Context, db ovsdb.Database, ms int) error {
    _, err := c.appctl(ctx, db, "cluster/change-election-timer", db.Schema(), strconv.Itoa(ms))
    return err
}

// JoinCluster creates a new clustered database file pointing at the given
// local and remote connection strings.
func (c *Client) JoinCluster(ctx context.Context, file, schema string, local, remote []string) error {
    args := append([]string{"join-cluster", file, schema}, local...)
    args = append(args, remote...)
    _, err := c.run(ctx, "join-cluster", c.tool, args...)
    return err
}

// CreateCluster initializes file as the first member of a new cluster from
// the schema file, listening on local.
func (c *Client) CreateCluster(ctx context.Context, file, schemaFile, local string) error {
    _, err := c.run(ctx, "create-cluster", c.tool, "create-cluster", file, schemaFile, local)
    return err
}

// ListConnections returns the Connection table of db in JSON form.
func (c *Client) ListConnections(ctx context.Context, db ovsdb.Database) ([]ovsdb.Connection, error) {
    out, err := c.run(ctx, "list-connection", "ovn-"+db.Short()+"ctl", "--format=json", "list", "connection")
    if err != nil { return nil, err }
    return ovsdb.ParseConnections(out)
}

func (c *Client) appctl(ctx context.Context, db ovsdb.Database, cmd string, args ...string) ([]byte, error) {
    l, err := c.Layout()
    if err != nil { return nil, err }
    full := append([]string{"-t", l.SocketPath(db), cmd}, args...)
    return c.run(ctx, cmd, l.Tool, full...)
}

func (c *Client) run(ctx context.Context, label, name string, args ...string) ([]byte, error) {
    ctx, end := tracing.StartSpan(ctx, "appctl."+label, "command", name)
    defer end()
    out, err := c.runner.Run(ctx, name, args...)
    metrics.CommandRuns.WithLabelValues(label, metrics.Result(err)).Inc()
    return out, err
}
