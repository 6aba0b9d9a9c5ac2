package ovsdb

import "github.com/google/uuid"

// Well-known values of the Status field.
const (
    StatusMember       = "cluster member"
    StatusJoining      = "joining cluster"
    StatusLeaving      = "leaving cluster"
    StatusLeft         = "left cluster"
    StatusFailed       = "failed"
    StatusDisconnected = "disconnected from the cluster (election timeout)"
)

// Well-known values of the Role field.
const (
    RoleLeader    = "leader"
    RoleFollower  = "follower"
    RoleCandidate = "candidate"
)

// ID is a consensus identifier as printed by cluster/status: a short hex
// prefix optionally followed by the full UUID in parentheses.
type ID struct {
    Short string
    UUID  uuid.UUID
}

// String prefers the long form when it is known.
func (i ID) String() string {
    if i.UUID != uuid.Nil {
        return i.UUID.String()
    }
    return i.Short
}

// Server is one entry of the Servers block.
type Server struct {
    ID      string
    Address string
    Self    bool
    // Details holds the remainder of the line (next_index, match_index...).
    Details string
}

// Field is a key/value pair kept in output order.
type Field struct {
    Key   string
    Value string
}

// ClusterStatus is an immutable snapshot of one cluster/status invocation.
type ClusterStatus struct {
    Database       Database
    Name           string
    ClusterID      ID
    ServerID       ID
    Address        string
    Status         string
    Role           string
    Term           uint64
    Leader         string
    Vote           string
    ElectionTimer  int
    Log            string
    NotCommitted   int
    NotApplied     int
    Connections    string
    Disconnections int
    Servers        []Server
    // Extra keeps any keys this package does not model.
    Extra []Field
}

// IsLeader reports whether this server is the cluster leader.
func (s *ClusterStatus) IsLeader() bool { return s != nil && s.Role == RoleLeader }

// IsMember reports whether the server is a healthy cluster member. Only then
// may membership operations be considered safe.
func (s *ClusterStatus) IsMember() bool { return s != nil && s.Status == StatusMember }
