package health

import (
    "crypto/x509"
    "encoding/pem"
    "fmt"
    "time"

    "github.com/spf13/afero"
)

// DefaultCerts are the OVN certificates checked when none are given.
var DefaultCerts = []string{"/etc/ovn/cert_host", "/etc/ovn/ovn-central.crt"}

// CertWarnDays is how close to expiry a certificate turns WARNING.
const CertWarnDays = 10

// CheckCerts reports the first certificate that is missing, unreadable,
// expired or about to expire.
func CheckCerts(fs afero.Fs, paths []string, now time.Time) Result {
    if len(paths) == 0 { paths = DefaultCerts }
    for _, p := range paths {
        ok, err := afero.Exists(fs, p)
        if err != nil || !ok {
            return Result{Severity: Critical, Detail: fmt.Sprintf("cert '%s' does not exist.", p)}
        }
        b, err := afero.ReadFile(fs, p)
        if err != nil {
            return Result{Severity: Critical, Detail: fmt.Sprintf("cert '%s' is not readable.", p)}
        }
        notAfter, err := expiry(b)
        if err != nil {
            return Result{Severity: Critical, Detail: fmt.Sprintf("%s: %v", p, err)}
        }
        days := int(notAfter.Sub(now).Hours() / 24)
        if days <= 0 {
            return Result{Severity: Critical, Detail: fmt.Sprintf("%s: cert has expired.", p)}
        }
        if days < CertWarnDays {
            return Result{Severity: Warning, Detail: fmt.Sprintf("%s: cert will expire soon (less than %d days).", p, CertWarnDays)}
        }
    }
    return Result{Severity: OK, Detail: "all certs healthy"}
}

func expiry(b []byte) (time.Time, error) {
    blk, _ := pem.Decode(b)
    if blk == nil { return time.Time{}, fmt.Errorf("no PEM certificate") }
    c, err := x509.ParseCertificate(blk.Bytes)
    if err != nil { return time.Time{}, err }
    return c.NotAfter, nil
}
