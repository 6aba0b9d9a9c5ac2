package httpjson

import (
    "bytes"
    "context"
    "crypto/tls"
    "errors"
    "fmt"
    "io"
    "net/http"
    "time"

    "github.com/avast/retry-go"
    "github.com/goccy/go-json"

    "github.com/amirimatin/ovsdb-cluster/pkg/transport"
)

// Client is a thin HTTP client for the management API. Reads are retried
// with backoff; kicks are sent exactly once.
type Client struct {
    httpc     *http.Client
    transport *http.Transport
    isTLS     bool
}

// NewClient constructs a new Client with the given timeout.
func NewClient(timeout time.Duration) *Client {
    if timeout <= 0 { timeout = 3 * time.Second }
    tr := &http.Transport{}
    return &Client{httpc: &http.Client{Timeout: timeout, Transport: tr}, transport: tr}
}

// UseTLS sets the TLS config for the underlying HTTP client and switches the
// request scheme to https.
func (c *Client) UseTLS(cfg *tls.Config) *Client {
    if c.transport != nil { c.transport.TLSClientConfig = cfg }
    c.isTLS = cfg != nil
    return c
}

func (c *Client) url(addr, path string) string {
    scheme := "http"
    if c.isTLS { scheme = "https" }
    return fmt.Sprintf("%s://%s%s", scheme, addr, path)
}

func (c *Client) GetStatus(ctx context.Context, addr string) ([]byte, error) {
    return c.get(ctx, c.url(addr, "/status"))
}

func (c *Client) GetReport(ctx context.Context, addr string) ([]byte, error) {
    return c.get(ctx, c.url(addr, "/report"))
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
    var out []byte
    err := retry.Do(
        func() error {
            req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
            if err != nil { return retry.Unrecoverable(err) }
            resp, err := c.httpc.Do(req)
            if err != nil { return err }
            defer resp.Body.Close()
            b, err := io.ReadAll(resp.Body)
            if err != nil { return err }
            if resp.StatusCode != http.StatusOK {
                return fmt.Errorf("status %d: %s", resp.StatusCode, bytes.TrimSpace(b))
            }
            out = b
            return nil
        },
        retry.Attempts(3),
        retry.Delay(100*time.Millisecond),
        retry.DelayType(retry.BackOffDelay),
        retry.LastErrorOnly(true),
        retry.Context(ctx),
    )
    return out, err
}

// PostKick sends one kick request. Per-database messages are returned even
// when the server reports a failure.
func (c *Client) PostKick(ctx context.Context, addr string, req transport.KickRequest) (transport.KickResponse, error) {
    var out transport.KickResponse
    body, err := json.Marshal(req)
    if err != nil { return out, err }
    httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(addr, "/kick"), bytes.NewReader(body))
    if err != nil { return out, err }
    httpReq.Header.Set("Content-Type", "application/json")
    resp, err := c.httpc.Do(httpReq)
    if err != nil { return out, err }
    defer resp.Body.Close()
    b, _ := io.ReadAll(resp.Body)
    if json.Unmarshal(b, &out) != nil && resp.StatusCode != http.StatusOK {
        return out, fmt.Errorf("kick status %d: %s", resp.StatusCode, bytes.TrimSpace(b))
    }
    if resp.StatusCode != http.StatusOK {
        if out.Error != "" { return out, errors.New(out.Error) }
        return out, fmt.Errorf("kick status %d", resp.StatusCode)
    }
    return out, nil
}

var _ transport.RPCClient = (*Client)(nil)
