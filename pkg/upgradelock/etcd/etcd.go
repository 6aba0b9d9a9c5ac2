package etcd

import (
    "context"
    "errors"
    "fmt"
    "log"
    "sync"
    "time"

    clientv3 "go.etcd.io/etcd/client/v3"
    "go.etcd.io/etcd/client/v3/concurrency"

    "github.com/amirimatin/ovsdb-cluster/pkg/internal/logutil"
)

const DefaultPrefix = "/ovsdb-cluster/upgrade"

// Options configures the etcd backed upgrade lock.
type Options struct {
    Endpoints   []string
    Prefix      string
    DialTimeout time.Duration
    // TTL of the holder session in seconds.
    TTL    int
    Logger *log.Logger
}

func (o Options) Validate() error {
    if len(o.Endpoints) == 0 {
        return errors.New("upgradelock: no etcd endpoints")
    }
    return nil
}

// Lock is an upgrade lock shared by every unit through an etcd mutex.
type Lock struct {
    opts Options
    cli  *clientv3.Client

    mu      sync.Mutex
    session *concurrency.Session
    mutex   *concurrency.Mutex
}

// New connects to etcd. It does not take the lock.
func New(opts Options) (*Lock, error) {
    if err := opts.Validate(); err != nil { return nil, err }
    if opts.Prefix == "" { opts.Prefix = DefaultPrefix }
    if opts.DialTimeout == 0 { opts.DialTimeout = 5 * time.Second }
    if opts.TTL == 0 { opts.TTL = 60 }
    if opts.Logger == nil { opts.Logger = log.Default() }
    cli, err := clientv3.New(clientv3.Config{Endpoints: opts.Endpoints, DialTimeout: opts.DialTimeout})
    if err != nil { return nil, fmt.Errorf("upgradelock: connect: %w", err) }
    return &Lock{opts: opts, cli: cli}, nil
}

// Held reports whether another holder has a key under the lock prefix.
func (l *Lock) Held(ctx context.Context) (bool, error) {
    resp, err := l.cli.Get(ctx, l.opts.Prefix, clientv3.WithPrefix(), clientv3.WithKeysOnly())
    if err != nil { return false, fmt.Errorf("upgradelock: %w", err) }
    keys := make([]string, 0, len(resp.Kvs))
    for _, kv := range resp.Kvs { keys = append(keys, string(kv.Key)) }
    return heldByOther(keys, l.ownKey()), nil
}

// Acquire blocks until this process holds the lock.
func (l *Lock) Acquire(ctx context.Context) error {
    l.mu.Lock()
    defer l.mu.Unlock()
    if l.mutex != nil { return nil }
    s, err := concurrency.NewSession(l.cli, concurrency.WithTTL(l.opts.TTL))
    if err != nil { return fmt.Errorf("upgradelock: session: %w", err) }
    m := concurrency.NewMutex(s, l.opts.Prefix)
    if err := m.Lock(ctx); err != nil {
        _ = s.Close()
        return fmt.Errorf("upgradelock: lock: %w", err)
    }
    l.session, l.mutex = s, m
    logutil.Infof(l.opts.Logger, "upgrade lock acquired (%s)", m.Key())
    return nil
}

// Release gives the lock up. Releasing an unheld lock is a no-op.
func (l *Lock) Release(ctx context.Context) error {
    l.mu.Lock()
    defer l.mu.Unlock()
    if l.mutex == nil { return nil }
    err := l.mutex.Unlock(ctx)
    if cerr := l.session.Close(); err == nil { err = cerr }
    l.session, l.mutex = nil, nil
    if err != nil { return fmt.Errorf("upgradelock: release: %w", err) }
    logutil.Infof(l.opts.Logger, "upgrade lock released")
    return nil
}

func (l *Lock) Close() error {
    _ = l.Release(context.Background())
    return l.cli.Close()
}

func (l *Lock) ownKey() string {
    l.mu.Lock()
    defer l.mu.Unlock()
    if l.mutex == nil { return "" }
    return l.mutex.Key()
}

func heldByOther(keys []string, own string) bool {
    for _, k := range keys {
        if k != own { return true }
    }
    return false
}
