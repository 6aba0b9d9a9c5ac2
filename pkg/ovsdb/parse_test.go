package ovsdb

import (
    "errors"
    "reflect"
    "testing"
)

const sampleStatus = `c5b2
Name: OVN_Southbound
Cluster ID: 7d2b (7d2b8dc2-4b2f-4a39-9ad0-b1d6e9a3c1b5)
Server ID: c5b2 (c5b2a1f4-3a07-4c8e-8e59-5e0c9c1e0f55)
Address: ssl:10.5.0.13:6644
Status: cluster member
Role: leader
Term: 8
Leader: self
Vote: self

Last Election started 410230 ms ago, reason: timeout
Election timer: 4000
Log: [2, 19]
Entries not yet committed: 0
Entries not yet applied: 0
Connections: ->0000 ->0000 <-0000 <-0000
Disconnections: 1
Servers:
    c5b2 (c5b2 at ssl:10.5.0.13:6644) (self) next_index=11 match_index=18
    0f31 (0f31 at ssl:10.5.0.14:6644) next_index=19 match_index=18 last msg 1040 ms ago
    a9e4 (a9e4 at ssl:fd00::15:6644) next_index=19 match_index=18 last msg 1040 ms ago
`

func TestParseStatus_Sample(t *testing.T) {
    s, err := ParseStatus(Southbound, sampleStatus)
    if err != nil { t.Fatalf("parse: %v", err) }
    if s.Name != "OVN_Southbound" || s.Database != Southbound { t.Fatalf("name/db = %q/%q", s.Name, s.Database) }
    if s.ClusterID.Short != "7d2b" || s.ClusterID.String() != "7d2b8dc2-4b2f-4a39-9ad0-b1d6e9a3c1b5" { t.Fatalf("cluster id = %+v", s.ClusterID) }
    if s.ServerID.Short != "c5b2" { t.Fatalf("server id = %+v", s.ServerID) }
    if !s.IsLeader() || !s.IsMember() { t.Fatalf("expected leader member, got role=%q status=%q", s.Role, s.Status) }
    if s.Term != 8 || s.ElectionTimer != 4000 || s.Disconnections != 1 { t.Fatalf("numbers: %+v", s) }
    if s.Log != "[2, 19]" { t.Fatalf("log = %q", s.Log) }
    if len(s.Servers) != 3 { t.Fatalf("servers = %d", len(s.Servers)) }
    if !s.Servers[0].Self || s.Servers[1].Self { t.Fatalf("self flags wrong: %+v", s.Servers) }
    if s.Servers[0].Details != "next_index=11 match_index=18" { t.Fatalf("details = %q", s.Servers[0].Details) }
    if s.Servers[2].Address != "ssl:fd00::15:6644" { t.Fatalf("ipv6 server address = %q", s.Servers[2].Address) }
    if len(s.Extra) != 1 || s.Extra[0].Key != "Last Election started 410230 ms ago, reason" { t.Fatalf("extra = %+v", s.Extra) }
}

func TestParseStatus_Idempotent(t *testing.T) {
    a, err := ParseStatus(Southbound, sampleStatus)
    if err != nil { t.Fatalf("parse a: %v", err) }
    b, err := ParseStatus(Southbound, sampleStatus)
    if err != nil { t.Fatalf("parse b: %v", err) }
    if !reflect.DeepEqual(a, b) { t.Fatalf("parsing twice differs:\n%+v\n%+v", a, b) }
    if !reflect.DeepEqual(ParseFields(sampleStatus), ParseFields(sampleStatus)) { t.Fatalf("fields differ") }
}

func TestParseFields_FirstColonOnly(t *testing.T) {
    fields := ParseFields("Address: ssl:10.0.0.1:6644\nno colon here\n\nRole: follower\n")
    if len(fields) != 2 { t.Fatalf("fields = %+v", fields) }
    if fields[0].Key != "Address" || fields[0].Value != "ssl:10.0.0.1:6644" { t.Fatalf("Address = %+v", fields[0]) }
    if fields[1].Key != "Role" || fields[1].Value != "follower" { t.Fatalf("Role = %+v", fields[1]) }
}

func TestParseStatus_MalformedServerAddress(t *testing.T) {
    out := "Status: cluster member\nServers:\n    aa11 (aa11 at ssl:not-an-ip:6644)\n"
    _, err := ParseStatus(Northbound, out)
    var pe *ParseError
    if !errors.As(err, &pe) { t.Fatalf("err = %v, want *ParseError", err) }
}

func TestParseStatus_BadNumber(t *testing.T) {
    _, err := ParseStatus(Northbound, "Election timer: soon\n")
    var pe *ParseError
    if !errors.As(err, &pe) || pe.Field != "Election timer" { t.Fatalf("err = %v", err) }
}

func TestClusterStatus_NilSafe(t *testing.T) {
    var s *ClusterStatus
    if s.IsLeader() || s.IsMember() { t.Fatalf("nil status must be neither leader nor member") }
}
