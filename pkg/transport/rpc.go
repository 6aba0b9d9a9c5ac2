// Package transport defines the management API of the agent: the cluster
// status and cluster-kick operations, served over HTTP/JSON or gRPC.
package transport

import "context"

// StatusFunc returns the JSON encoded cluster status report. Using []byte
// keeps this package free of cluster types.
type StatusFunc func(ctx context.Context) ([]byte, error)

// KickRequest names the server to kick from each cluster.
type KickRequest struct {
    SouthboundID string `json:"sbServerId,omitempty"`
    NorthboundID string `json:"nbServerId,omitempty"`
}

// KickResponse carries one message per attempted database and the combined
// error, if any.
type KickResponse struct {
    Southbound string `json:"southbound,omitempty"`
    Northbound string `json:"northbound,omitempty"`
    Error      string `json:"error,omitempty"`
}

// KickFunc handles cluster-kick requests.
type KickFunc func(ctx context.Context, req KickRequest) (KickResponse, error)

// ReportFunc returns the JSON encoded summary of the last reconcile pass.
type ReportFunc func(ctx context.Context) ([]byte, error)

// Handlers bundles the operations a server exposes. Nil handlers answer
// "not supported".
type Handlers struct {
    Status StatusFunc
    Kick   KickFunc
    Report ReportFunc
}

// RPCServer exposes the management endpoints.
type RPCServer interface {
    Start(ctx context.Context, h Handlers) error
    Addr() string
    Stop(ctx context.Context) error
}

// RPCClient calls a management endpoint using the chosen protocol.
type RPCClient interface {
    GetStatus(ctx context.Context, addr string) ([]byte, error)
    GetReport(ctx context.Context, addr string) ([]byte, error)
    PostKick(ctx context.Context, addr string, req KickRequest) (KickResponse, error)
}
