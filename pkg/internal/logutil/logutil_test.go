package logutil

import (
    "bytes"
    "log"
    "strings"
    "testing"

    "github.com/goccy/go-json"
)

func TestTextLevels(t *testing.T) {
    SetJSON(false)
    SetDebug(false)
    var buf bytes.Buffer
    l := log.New(&buf, "", 0)

    Debugf(l, "hidden %d", 1)
    if buf.Len() != 0 { t.Fatalf("debug output leaked: %q", buf.String()) }

    Warnf(l, "departing unit %s", "ovn-central/2")
    if got := buf.String(); got != "WARN departing unit ovn-central/2\n" { t.Fatalf("got %q", got) }

    buf.Reset()
    SetDebug(true)
    defer SetDebug(false)
    Debugf(l, "step %d", 2)
    if !strings.HasPrefix(buf.String(), "DEBUG step 2") { t.Fatalf("got %q", buf.String()) }
}

func TestJSONMode(t *testing.T) {
    SetJSON(true)
    defer SetJSON(false)
    var buf bytes.Buffer
    l := log.New(&buf, "", 0)
    Errorf(l, "kick %s failed", "aa11")

    var evt map[string]any
    if err := json.Unmarshal(buf.Bytes(), &evt); err != nil { t.Fatalf("unmarshal %q: %v", buf.String(), err) }
    if evt["level"] != "error" || evt["msg"] != "kick aa11 failed" { t.Fatalf("evt = %v", evt) }
}
