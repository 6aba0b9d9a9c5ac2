package etcd

import (
    "testing"
    "time"
)

func TestOptions(t *testing.T) {
    if err := (Options{}).Validate(); err == nil { t.Fatalf("empty endpoints accepted") }
    o := Options{Endpoints: []string{"127.0.0.1:2379"}}
    if err := o.Validate(); err != nil { t.Fatalf("validate: %v", err) }
    o.setDefaults()
    if o.Key != DefaultKey || o.DialTimeout != 5*time.Second { t.Fatalf("defaults = %+v", o) }
}
