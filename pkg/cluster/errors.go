package cluster

import "errors"

var (
    ErrInvalidSchema   = errors.New("cluster: schema must be Northbound or Southbound")
    ErrTimerOutOfRange = errors.New("cluster: election timer target out of range")
    ErrNoServerID      = errors.New("cluster: at least one server ID to kick must be specified")
    errStillMember     = errors.New("cluster: server is still a cluster member")
)
