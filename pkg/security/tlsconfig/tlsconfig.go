// Package tlsconfig builds mutual TLS configs for the management API from
// PEM files. Certificates are re-read periodically so rotated files take
// effect without a restart.
package tlsconfig

import (
    "crypto/tls"
    "crypto/x509"
    "errors"
    "fmt"
    "sync"
    "time"

    "github.com/spf13/afero"
)

// ReloadInterval bounds how long a loaded key pair is reused.
const ReloadInterval = 10 * time.Second

var ErrMissingKeyPair = errors.New("tlsconfig: cert and key required")

// Options defines mTLS configuration inputs.
type Options struct {
    Enable             bool
    CAFile             string
    CertFile           string
    KeyFile            string
    InsecureSkipVerify bool
    ServerName         string
    // Fs is where the PEM files are read from. Defaults to the OS.
    Fs afero.Fs
}

func (o Options) fs() afero.Fs {
    if o.Fs == nil { return afero.NewOsFs() }
    return o.Fs
}

func (o Options) pool() (*x509.CertPool, error) {
    if o.CAFile == "" { return nil, nil }
    pem, err := afero.ReadFile(o.fs(), o.CAFile)
    if err != nil { return nil, fmt.Errorf("tlsconfig: read CA: %w", err) }
    pool := x509.NewCertPool()
    if !pool.AppendCertsFromPEM(pem) {
        return nil, fmt.Errorf("tlsconfig: no certificates in %s", o.CAFile)
    }
    return pool, nil
}

// Server returns a server config, or nil when TLS is disabled. With a CA
// configured, clients must present a certificate signed by it.
func (o Options) Server() (*tls.Config, error) {
    if !o.Enable { return nil, nil }
    if o.CertFile == "" || o.KeyFile == "" { return nil, ErrMissingKeyPair }
    kp := &keyPair{fs: o.fs(), cert: o.CertFile, key: o.KeyFile}
    if _, err := kp.get(); err != nil { return nil, err }
    pool, err := o.pool()
    if err != nil { return nil, err }
    cfg := &tls.Config{MinVersion: tls.VersionTLS12}
    if pool != nil {
        cfg.ClientCAs = pool
        cfg.ClientAuth = tls.RequireAndVerifyClientCert
    }
    cfg.GetCertificate = func(*tls.ClientHelloInfo) (*tls.Certificate, error) { return kp.get() }
    return cfg, nil
}

// Client returns a client config, or nil when TLS is disabled. The client
// certificate is optional.
func (o Options) Client() (*tls.Config, error) {
    if !o.Enable { return nil, nil }
    pool, err := o.pool()
    if err != nil { return nil, err }
    cfg := &tls.Config{MinVersion: tls.VersionTLS12, RootCAs: pool, ServerName: o.ServerName, InsecureSkipVerify: o.InsecureSkipVerify} //nolint:gosec
    if o.CertFile != "" && o.KeyFile != "" {
        kp := &keyPair{fs: o.fs(), cert: o.CertFile, key: o.KeyFile}
        if _, err := kp.get(); err != nil { return nil, err }
        cfg.GetClientCertificate = func(*tls.CertificateRequestInfo) (*tls.Certificate, error) { return kp.get() }
    }
    return cfg, nil
}

// keyPair caches a certificate for ReloadInterval.
type keyPair struct {
    fs        afero.Fs
    cert, key string

    mu     sync.Mutex
    cached *tls.Certificate
    loaded time.Time
}

func (k *keyPair) get() (*tls.Certificate, error) {
    k.mu.Lock()
    defer k.mu.Unlock()
    if k.cached != nil && time.Since(k.loaded) < ReloadInterval {
        return k.cached, nil
    }
    certPEM, err := afero.ReadFile(k.fs, k.cert)
    if err != nil { return nil, fmt.Errorf("tlsconfig: read cert: %w", err) }
    keyPEM, err := afero.ReadFile(k.fs, k.key)
    if err != nil { return nil, fmt.Errorf("tlsconfig: read key: %w", err) }
    c, err := tls.X509KeyPair(certPEM, keyPEM)
    if err != nil { return nil, fmt.Errorf("tlsconfig: %w", err) }
    k.cached, k.loaded = &c, time.Now()
    return k.cached, nil
}
