package ovsdb

import (
    "fmt"

    "github.com/goccy/go-json"
)

// Row is one record of a "-f json list <table>" listing keyed by column.
type Row map[string]any

// ParseTable decodes the {"headings": [...], "data": [[...], ...]} form
// printed by ovn-nbctl/ovn-sbctl and zips every data row positionally
// against the headings.
func ParseTable(raw []byte) ([]Row, error) {
    var t struct {
        Headings []string `json:"headings"`
        Data     [][]any  `json:"data"`
    }
    if err := json.Unmarshal(raw, &t); err != nil {
        return nil, &ParseError{Field: "table listing", Value: truncate(string(raw)), Msg: "is not valid JSON"}
    }
    rows := make([]Row, 0, len(t.Data))
    for i, d := range t.Data {
        if len(d) != len(t.Headings) {
            return nil, &ParseError{Field: "table listing", Value: fmt.Sprintf("row %d", i), Msg: "does not match headings"}
        }
        r := make(Row, len(d))
        for j, h := range t.Headings {
            r[h] = d[j]
        }
        rows = append(rows, r)
    }
    return rows, nil
}

// String returns a string column or "" when absent or of another type.
func (r Row) String(col string) string {
    s, _ := r[col].(string)
    return s
}

// Bool returns a boolean column.
func (r Row) Bool(col string) bool {
    b, _ := r[col].(bool)
    return b
}

// UUID unwraps an OVSDB ["uuid", "<id>"] pair.
func (r Row) UUID(col string) string {
    pair, ok := r[col].([]any)
    if !ok || len(pair) != 2 { return "" }
    if tag, _ := pair[0].(string); tag != "uuid" { return "" }
    s, _ := pair[1].(string)
    return s
}

// Connection is the subset of the Connection table the health checks use.
type Connection struct {
    UUID     string
    Target   string
    Role     string
    ReadOnly bool
}

// ParseConnections decodes a Connection table listing.
func ParseConnections(raw []byte) ([]Connection, error) {
    rows, err := ParseTable(raw)
    if err != nil { return nil, err }
    out := make([]Connection, 0, len(rows))
    for _, r := range rows {
        out = append(out, Connection{
            UUID:     r.UUID("_uuid"),
            Target:   r.String("target"),
            Role:     r.String("role"),
            ReadOnly: r.Bool("read_only"),
        })
    }
    return out, nil
}

func truncate(s string) string {
    if len(s) > 64 { return s[:64] + "..." }
    return s
}
