package health

import (
    "crypto/ecdsa"
    "crypto/elliptic"
    "crypto/rand"
    "crypto/x509"
    "crypto/x509/pkix"
    "encoding/pem"
    "math/big"
    "strings"
    "testing"
    "time"

    "github.com/spf13/afero"
)

func certPEM(t *testing.T, notAfter time.Time) []byte {
    t.Helper()
    key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
    if err != nil { t.Fatalf("key: %v", err) }
    tmpl := &x509.Certificate{
        SerialNumber: big.NewInt(1),
        Subject:      pkix.Name{CommonName: "ovn-central"},
        NotBefore:    notAfter.Add(-365 * 24 * time.Hour),
        NotAfter:     notAfter,
    }
    der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
    if err != nil { t.Fatalf("cert: %v", err) }
    return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
}

func TestCheckCerts(t *testing.T) {
    now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
    cases := []struct {
        name     string
        notAfter time.Time
        missing  bool
        want     Severity
        detail   string
    }{
        {name: "healthy", notAfter: now.Add(90 * 24 * time.Hour), want: OK, detail: "all certs healthy"},
        {name: "soon", notAfter: now.Add(5 * 24 * time.Hour), want: Warning, detail: "expire soon"},
        {name: "expired", notAfter: now.Add(-time.Hour), want: Critical, detail: "has expired"},
        {name: "missing", missing: true, want: Critical, detail: "does not exist"},
    }
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            fs := afero.NewMemMapFs()
            if !tc.missing {
                if err := afero.WriteFile(fs, "/etc/ovn/cert_host", certPEM(t, tc.notAfter), 0o644); err != nil { t.Fatalf("write: %v", err) }
            }
            r := CheckCerts(fs, []string{"/etc/ovn/cert_host"}, now)
            if r.Severity != tc.want || !strings.Contains(r.Detail, tc.detail) { t.Fatalf("got %s", r) }
        })
    }
}

func TestCheckCerts_Garbage(t *testing.T) {
    fs := afero.NewMemMapFs()
    _ = afero.WriteFile(fs, "/c.pem", []byte("not a cert"), 0o644)
    if r := CheckCerts(fs, []string{"/c.pem"}, time.Now()); r.Severity != Critical { t.Fatalf("got %s", r) }
}
