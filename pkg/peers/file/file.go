package file

import (
    "log"
    "os"
    "strings"
    "sync"
    "time"

    "github.com/spf13/afero"

    "github.com/amirimatin/ovsdb-cluster/pkg/internal/logutil"
    "github.com/amirimatin/ovsdb-cluster/pkg/peers"
)

// Options configures a file backed peer table.
type Options struct {
    // Path to a file with "unit=ip" entries, one or more per line.
    Path string
    // Env overrides the file when non-empty.
    Env string
    // Refresh controls cache staleness; if zero, defaults to 5s.
    Refresh time.Duration

    LocalUnit string
    LocalIP   string

    Fs     afero.Fs
    Logger *log.Logger
}

type impl struct {
    opts  Options
    mu    sync.Mutex
    last  time.Time
    mtime time.Time
    cache peers.Table
    deps  chan peers.Departure
}

// New returns a Source that rereads the file when it changes. A unit that
// disappears from the file between two reads is reported as departed.
func New(opts Options) peers.Source {
    if opts.Refresh <= 0 { opts.Refresh = 5 * time.Second }
    if opts.Fs == nil { opts.Fs = afero.NewOsFs() }
    if opts.Logger == nil { opts.Logger = log.Default() }
    return &impl{opts: opts, deps: make(chan peers.Departure, 16)}
}

func (i *impl) Departures() <-chan peers.Departure { return i.deps }

func (i *impl) Peers() peers.Table {
    i.mu.Lock()
    defer i.mu.Unlock()
    // ENV takes precedence
    if v := strings.TrimSpace(os.Getenv(i.opts.Env)); i.opts.Env != "" && v != "" {
        if t, err := peers.ParseTable(v); err == nil {
            i.update(t)
        } else {
            logutil.Warnf(i.opts.Logger, "peers: ignoring %s: %v", i.opts.Env, err)
        }
        return i.snapshot()
    }
    if i.opts.Path == "" { return i.snapshot() }
    stat, err := i.opts.Fs.Stat(i.opts.Path)
    if err != nil {
        logutil.Debugf(i.opts.Logger, "peers: stat %s: %v", i.opts.Path, err)
        return i.snapshot()
    }
    now := time.Now()
    if i.cache == nil || stat.ModTime().After(i.mtime) || now.Sub(i.last) >= i.opts.Refresh {
        b, err := afero.ReadFile(i.opts.Fs, i.opts.Path)
        if err == nil {
            var t peers.Table
            t, err = peers.ParseLines(string(b))
            if err == nil { i.update(t) }
        }
        if err != nil { logutil.Warnf(i.opts.Logger, "peers: reading %s: %v", i.opts.Path, err) }
        i.last = now
        i.mtime = stat.ModTime()
    }
    return i.snapshot()
}

func (i *impl) update(t peers.Table) {
    if i.cache != nil {
        for u, ip := range i.cache {
            if _, ok := t[u]; ok || u == i.opts.LocalUnit { continue }
            select {
            case i.deps <- peers.Departure{Unit: u, Address: ip, At: time.Now()}:
            default:
                logutil.Warnf(i.opts.Logger, "peers: dropping departure of %s: channel full", u)
            }
        }
    }
    i.cache = t
}

func (i *impl) snapshot() peers.Table {
    out := i.cache.Clone()
    if i.opts.LocalUnit != "" { out[i.opts.LocalUnit] = i.opts.LocalIP }
    return out
}
