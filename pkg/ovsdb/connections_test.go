package ovsdb

import (
    "errors"
    "testing"
)

const sampleConnections = `{"data":[[["uuid","7e2f1ab1-02f5-4ba4-9b4b-3f3c2e6e9d01"],["map",[]],10000,["set",[]],false,["map",[]],"ovn-controller",["map",[]],"pssl:6642"],[["uuid","a1b2c3d4-0000-4000-8000-000000000002"],["map",[]],10000,["set",[]],false,["map",[]],"",["map",[]],"pssl:16642"]],"headings":["_uuid","external_ids","inactivity_probe","is_connected","read_only","other_config","role","status","target"]}`

func TestParseConnections(t *testing.T) {
    conns, err := ParseConnections([]byte(sampleConnections))
    if err != nil { t.Fatalf("parse: %v", err) }
    if len(conns) != 2 { t.Fatalf("len = %d", len(conns)) }
    if conns[0].UUID != "7e2f1ab1-02f5-4ba4-9b4b-3f3c2e6e9d01" { t.Fatalf("uuid = %q", conns[0].UUID) }
    if conns[0].Role != "ovn-controller" || conns[0].Target != "pssl:6642" || conns[0].ReadOnly { t.Fatalf("conn[0] = %+v", conns[0]) }
    if conns[1].Role != "" || conns[1].Target != "pssl:16642" { t.Fatalf("conn[1] = %+v", conns[1]) }
}

func TestParseTable_Errors(t *testing.T) {
    var pe *ParseError
    if _, err := ParseTable([]byte("not json")); !errors.As(err, &pe) { t.Fatalf("err = %v", err) }
    if _, err := ParseTable([]byte(`{"headings":["a","b"],"data":[["x"]]}`)); !errors.As(err, &pe) { t.Fatalf("err = %v", err) }
    rows, err := ParseTable([]byte(`{"headings":["a"],"data":[]}`))
    if err != nil || len(rows) != 0 { t.Fatalf("rows = %v, err = %v", rows, err) }
}
