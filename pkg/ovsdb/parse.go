package ovsdb

import (
    "strconv"
    "strings"

    "github.com/google/uuid"
)

// Entry is one "Key: value" line of appctl output. Indented lines following
// it are collected in Lines.
type Entry struct {
    Key   string
    Value string
    Lines []string
}

// ParseFields splits line-oriented "Key: value" output on the first colon of
// each line. Lines without a colon are ignored; indented lines are attached to
// the most recently seen key. Order is preserved.
func ParseFields(out string) []Entry {
    var entries []Entry
    cur := -1
    for _, line := range strings.Split(out, "\n") {
        line = strings.TrimRight(line, "\r")
        if strings.TrimSpace(line) == "" { continue }
        if (line[0] == ' ' || line[0] == '\t') && cur >= 0 {
            entries[cur].Lines = append(entries[cur].Lines, strings.TrimSpace(line))
            continue
        }
        k, v, ok := strings.Cut(line, ":")
        if !ok { continue }
        entries = append(entries, Entry{Key: strings.TrimSpace(k), Value: strings.TrimSpace(v)})
        cur = len(entries) - 1
    }
    return entries
}

// ParseStatus parses cluster/status output for db.
func ParseStatus(db Database, out string) (*ClusterStatus, error) {
    s := &ClusterStatus{Database: db}
    for _, e := range ParseFields(out) {
        var err error
        switch e.Key {
        case "Name":
            s.Name = e.Value
        case "Cluster ID":
            s.ClusterID, err = parseID(e.Key, e.Value)
        case "Server ID":
            s.ServerID, err = parseID(e.Key, e.Value)
        case "Address":
            s.Address = e.Value
        case "Status":
            s.Status = e.Value
        case "Role":
            s.Role = e.Value
        case "Term":
            s.Term, err = parseUint(e.Key, e.Value)
        case "Leader":
            s.Leader = e.Value
        case "Vote":
            s.Vote = e.Value
        case "Election timer":
            s.ElectionTimer, err = parseInt(e.Key, e.Value)
        case "Log":
            s.Log = e.Value
        case "Entries not yet committed":
            s.NotCommitted, err = parseInt(e.Key, e.Value)
        case "Entries not yet applied":
            s.NotApplied, err = parseInt(e.Key, e.Value)
        case "Connections":
            s.Connections = e.Value
        case "Disconnections":
            s.Disconnections, err = parseInt(e.Key, e.Value)
        case "Servers":
            s.Servers, err = parseServers(e.Lines)
        default:
            s.Extra = append(s.Extra, Field{Key: e.Key, Value: e.Value})
        }
        if err != nil { return nil, err }
    }
    return s, nil
}

// parseID reads "7d2b (7d2b8dc2-...)" or just the short form.
func parseID(field, v string) (ID, error) {
    parts := strings.Fields(v)
    if len(parts) == 0 {
        return ID{}, nil
    }
    id := ID{Short: parts[0]}
    if len(parts) > 1 {
        long := strings.Trim(parts[1], "()")
        u, err := uuid.Parse(long)
        if err != nil {
            return ID{}, &ParseError{Field: field, Value: v, Msg: "has invalid UUID"}
        }
        id.UUID = u
    }
    return id, nil
}

func parseInt(field, v string) (int, error) {
    n, err := strconv.Atoi(v)
    if err != nil { return 0, &ParseError{Field: field, Value: v, Msg: "is not an integer"} }
    return n, nil
}

func parseUint(field, v string) (uint64, error) {
    n, err := strconv.ParseUint(v, 10, 64)
    if err != nil { return 0, &ParseError{Field: field, Value: v, Msg: "is not an integer"} }
    return n, nil
}

// parseServers reads lines of the form
//
//    c5b2 (c5b2 at ssl:10.5.0.13:6644) (self) next_index=11 match_index=11
func parseServers(lines []string) ([]Server, error) {
    out := make([]Server, 0, len(lines))
    for _, line := range lines {
        id, rest, _ := strings.Cut(line, " ")
        _, after, ok := strings.Cut(rest, " at ")
        if !ok {
            return nil, &ParseError{Field: "server", Value: line, Msg: "has unexpected format"}
        }
        addr, tail, ok := strings.Cut(after, ")")
        if !ok {
            return nil, &ParseError{Field: "server", Value: line, Msg: "has unexpected format"}
        }
        if _, err := ParseAddress(addr); err != nil {
            return nil, err
        }
        srv := Server{ID: id, Address: addr}
        if strings.Contains(tail, "(self)") {
            srv.Self = true
            tail = strings.Replace(tail, "(self)", "", 1)
        }
        srv.Details = strings.TrimSpace(tail)
        out = append(out, srv)
    }
    return out, nil
}
