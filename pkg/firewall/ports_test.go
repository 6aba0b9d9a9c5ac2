package firewall

import "testing"

func TestSplitFamilies(t *testing.T) {
    v4, v6, err := splitFamilies([]string{"10.0.0.1", "::ffff:10.0.0.1", "fd00::2", "10.0.0.3"})
    if err != nil { t.Fatalf("split: %v", err) }
    if len(v4) != 2 || len(v6) != 1 { t.Fatalf("v4=%v v6=%v", v4, v6) }
    if len(v4[0]) != 4 || len(v6[0]) != 16 { t.Fatalf("key sizes %d/%d", len(v4[0]), len(v6[0])) }
    if v4[1][3] != 3 { t.Fatalf("second v4 = %v", v4[1]) }
}

func TestSplitFamiliesRejectsHostnames(t *testing.T) {
    if _, _, err := splitFamilies([]string{"ovn-central-0"}); err == nil { t.Fatalf("expected error") }
}
