package metrics

import (
    "errors"
    "testing"

    "github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegisterIdempotent(t *testing.T) {
    Register()
    Register()
}

func TestResultLabels(t *testing.T) {
    KickRequests.WithLabelValues("southbound", Result(nil)).Inc()
    KickRequests.WithLabelValues("southbound", Result(errors.New("boom"))).Inc()
    KickRequests.WithLabelValues("southbound", Result(errors.New("boom"))).Inc()
    if got := testutil.ToFloat64(KickRequests.WithLabelValues("southbound", "error")); got != 2 { t.Fatalf("error count = %v", got) }
    if got := testutil.ToFloat64(KickRequests.WithLabelValues("southbound", "ok")); got != 1 { t.Fatalf("ok count = %v", got) }
    if Bool(true) != 1 || Bool(false) != 0 { t.Fatalf("Bool conversion wrong") }
}
