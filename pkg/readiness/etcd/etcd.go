// Package etcd keeps the cluster readiness marker as a single etcd key.
package etcd

import (
    "context"
    "errors"
    "fmt"
    "time"

    clientv3 "go.etcd.io/etcd/client/v3"
)

const DefaultKey = "/ovsdb-cluster/ready"

type Options struct {
    Endpoints   []string
    Key         string
    DialTimeout time.Duration
    // Unit is stored as the value, naming who announced readiness.
    Unit string
}

func (o Options) Validate() error {
    if len(o.Endpoints) == 0 {
        return errors.New("readiness: no etcd endpoints")
    }
    return nil
}

func (o *Options) setDefaults() {
    if o.Key == "" { o.Key = DefaultKey }
    if o.DialTimeout == 0 { o.DialTimeout = 5 * time.Second }
}

type Marker struct {
    opts Options
    cli  *clientv3.Client
}

// New connects to etcd. It reads and writes nothing.
func New(opts Options) (*Marker, error) {
    if err := opts.Validate(); err != nil { return nil, err }
    opts.setDefaults()
    cli, err := clientv3.New(clientv3.Config{Endpoints: opts.Endpoints, DialTimeout: opts.DialTimeout})
    if err != nil { return nil, fmt.Errorf("readiness: connect: %w", err) }
    return &Marker{opts: opts, cli: cli}, nil
}

// Ready reports whether the key exists.
func (m *Marker) Ready(ctx context.Context) (bool, error) {
    resp, err := m.cli.Get(ctx, m.opts.Key, clientv3.WithCountOnly())
    if err != nil { return false, fmt.Errorf("readiness: %w", err) }
    return resp.Count > 0, nil
}

// MarkReady writes the key. It never expires; deleting it re-arms creation.
func (m *Marker) MarkReady(ctx context.Context) error {
    if _, err := m.cli.Put(ctx, m.opts.Key, m.opts.Unit); err != nil {
        return fmt.Errorf("readiness: mark: %w", err)
    }
    return nil
}

func (m *Marker) Close() error { return m.cli.Close() }
