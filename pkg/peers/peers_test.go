package peers

import (
    "errors"
    "reflect"
    "testing"
)

func TestParseTable(t *testing.T) {
    got, err := ParseTable(" ovn-central/0=10.0.0.1 , ,ovn-central/1=[fd00::2]")
    if err != nil { t.Fatalf("parse: %v", err) }
    want := Table{"ovn-central/0": "10.0.0.1", "ovn-central/1": "fd00::2"}
    if !reflect.DeepEqual(got, want) { t.Fatalf("got %v", got) }

    for _, bad := range []string{"ovn-central/0", "=10.0.0.1", "a=1.1.1.1,a=1.1.1.2"} {
        if _, err := ParseTable(bad); err == nil { t.Fatalf("%q: expected error", bad) }
    }
}

func TestParseLines(t *testing.T) {
    got, err := ParseLines("# peers\nu/0=10.0.0.1\n\nu/1=10.0.0.2, u/2=10.0.0.3\n")
    if err != nil { t.Fatalf("parse: %v", err) }
    if len(got) != 3 || got["u/2"] != "10.0.0.3" { t.Fatalf("got %v", got) }
}

func TestTableHelpers(t *testing.T) {
    tb := Table{"u/2": "10.0.0.3", "u/0": "10.0.0.1", "u/1": "10.0.0.2"}
    if got := tb.Remote("u/1"); !reflect.DeepEqual(got, []string{"10.0.0.1", "10.0.0.3"}) { t.Fatalf("remote = %v", got) }
    if err := tb.Validate("u/0"); err != nil { t.Fatalf("validate: %v", err) }
    if err := tb.Validate("u/9"); !errors.Is(err, ErrLocalMissing) { t.Fatalf("err = %v", err) }
    c := tb.Clone()
    c["u/0"] = "x"
    if tb["u/0"] != "10.0.0.1" { t.Fatalf("clone aliases original") }
    bad := Table{"u/0": "not-ip"}
    if err := bad.Validate("u/0"); err == nil { t.Fatalf("invalid ip accepted") }
}
