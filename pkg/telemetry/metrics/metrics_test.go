package metrics

import (
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"emberhold/realmd/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// Helper function to create test config
func testConfig() *config.MetricsConfig {
	return &config.MetricsConfig{
		Enabled:             true,
		Namespace:           "test",
		SaveDurationBuckets: []float64{0.1, 1, 10},
	}
}

func TestCollector_NewCollector(t *testing.T) {
	cfg := testConfig()
	registry := prometheus.NewRegistry()

	collector := NewCollector(cfg, registry)

	if collector == nil {
		t.Fatal("Expected non-nil collector")
	}
	if collector.Registry() != registry {
		t.Error("Collector registry not set correctly")
	}
}

func TestCollector_DefaultsNamespace(t *testing.T) {
	cfg := &config.MetricsConfig{Enabled: true}
	NewCollector(cfg, nil)

	if cfg.Namespace != config.DefaultMetricsNamespace {
		t.Errorf("expected namespace %q, got %q", config.DefaultMetricsNamespace, cfg.Namespace)
	}
}

func TestCollector_PacketCounters(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())

	collector.RecordDatagramReceived()
	collector.RecordDatagramReceived()
	collector.RecordDatagramDropped("checksum")
	collector.RecordDatagramDropped("checksum")
	collector.RecordDatagramDropped("unknown_session")
	collector.RecordDatagramDelivered()

	if got := testutil.ToFloat64(collector.packets.received); got != 2 {
		t.Errorf("expected 2 received, got %v", got)
	}
	if got := testutil.ToFloat64(collector.packets.dropped.WithLabelValues("checksum")); got != 2 {
		t.Errorf("expected 2 checksum drops, got %v", got)
	}
	if got := testutil.ToFloat64(collector.packets.dropped.WithLabelValues("unknown_session")); got != 1 {
		t.Errorf("expected 1 unknown_session drop, got %v", got)
	}
	if got := testutil.ToFloat64(collector.packets.delivered); got != 1 {
		t.Errorf("expected 1 delivered, got %v", got)
	}
}

func TestCollector_PoolAndSends(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())

	collector.SetPoolAvailable(57)
	collector.RecordPoolMiss()
	collector.RecordSend("ok", time.Millisecond)
	collector.RecordSend("slow", 150*time.Millisecond)
	collector.RecordSend("queue_full", 0)

	if got := testutil.ToFloat64(collector.packets.poolAvailable); got != 57 {
		t.Errorf("expected pool gauge 57, got %v", got)
	}
	if got := testutil.ToFloat64(collector.packets.poolMisses); got != 1 {
		t.Errorf("expected 1 pool miss, got %v", got)
	}
	if got := testutil.ToFloat64(collector.packets.sends.WithLabelValues("slow")); got != 1 {
		t.Errorf("expected 1 slow send, got %v", got)
	}
	if got := testutil.CollectAndCount(collector.packets.sendDuration); got != 1 {
		t.Errorf("expected send histogram to be collected once, got %d", got)
	}
}

func TestCollector_Lifecycle(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())

	collector.SetServerOpen(true)
	collector.SetSchemaVersion(4)
	collector.RecordMigration(nil)
	collector.RecordMigration(errors.New("boom"))
	collector.RecordStep("StartUDP", true, 2*time.Millisecond)
	collector.RecordSave(time.Second, 12, nil)
	collector.RecordSave(time.Second, 0, errors.New("disk full"))
	collector.RecordSaveSkipped()

	if got := testutil.ToFloat64(collector.lifecycle.open); got != 1 {
		t.Errorf("expected open gauge 1, got %v", got)
	}
	if got := testutil.ToFloat64(collector.lifecycle.schemaVersion); got != 4 {
		t.Errorf("expected schema version 4, got %v", got)
	}
	if got := testutil.ToFloat64(collector.lifecycle.migrations.WithLabelValues("error")); got != 1 {
		t.Errorf("expected 1 failed migration, got %v", got)
	}
	if got := testutil.ToFloat64(collector.lifecycle.saves.WithLabelValues("ok")); got != 1 {
		t.Errorf("expected 1 ok save, got %v", got)
	}
	if got := testutil.ToFloat64(collector.lifecycle.saves.WithLabelValues("skipped")); got != 1 {
		t.Errorf("expected 1 skipped save, got %v", got)
	}
	if got := testutil.ToFloat64(collector.lifecycle.playersSaved); got != 12 {
		t.Errorf("expected 12 players saved, got %v", got)
	}

	collector.SetServerOpen(false)
	if got := testutil.ToFloat64(collector.lifecycle.open); got != 0 {
		t.Errorf("expected open gauge 0, got %v", got)
	}
}

func TestCollector_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false
	collector := NewCollector(cfg, prometheus.NewRegistry())

	collector.RecordDatagramReceived()

	if got := testutil.ToFloat64(collector.packets.received); got != 0 {
		t.Errorf("expected disabled collector to record nothing, got %v", got)
	}
}

func TestCollector_NilSafe(t *testing.T) {
	var collector *Collector

	// None of these may panic.
	collector.RecordDatagramReceived()
	collector.RecordDatagramDropped("empty")
	collector.RecordSend("ok", time.Millisecond)
	collector.SetServerOpen(true)
	collector.RecordSave(time.Second, 1, nil)
}

func TestCollector_Handler(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())
	collector.RecordDatagramDropped("endpoint_mismatch")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `test_udp_datagrams_dropped_total{reason="endpoint_mismatch"} 1`) {
		t.Errorf("expected drop counter in output, got:\n%s", rec.Body.String())
	}
}

func TestCollector_HandlerCountsScrapes(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())
	h := collector.Handler()

	for i := 0; i < 2; i++ {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/metrics", nil))
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), `promhttp_metric_handler_requests_total{code="200"} 2`) {
		t.Errorf("expected two counted scrapes, got:\n%s", rec.Body.String())
	}
}

func TestScrapeErrorLog(t *testing.T) {
	var buf strings.Builder
	l := scrapeErrorLog{slog.New(slog.NewTextHandler(&buf, nil))}
	l.Println("collector", "failed")

	if !strings.Contains(buf.String(), "metrics scrape error") || !strings.Contains(buf.String(), "collector") {
		t.Errorf("unexpected log output %q", buf.String())
	}
}
