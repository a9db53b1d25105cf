package metrics

import (
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func gather(t *testing.T, reg *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	t.Fatalf("%s metric not found", name)
	return nil
}

func labelValue(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}

func TestNewCollector_ReturnsNonNil(t *testing.T) {
	reg := prometheus.NewRegistry()
	if c := NewCollector(reg); c == nil {
		t.Fatal("expected non-nil Collector")
	}
}

func TestRecordHandshake_CountsByResult(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHandshake("success")
	c.RecordHandshake("success")
	c.RecordHandshake("login_failed")

	mf := gather(t, reg, "glucoshare_handshakes_total")
	if len(mf.GetMetric()) != 2 {
		t.Fatalf("expected 2 series, got %d", len(mf.GetMetric()))
	}
	for _, m := range mf.GetMetric() {
		want := 1.0
		if labelValue(m, "result") == "success" {
			want = 2
		}
		if got := m.GetCounter().GetValue(); got != want {
			t.Errorf("handshakes{result=%s} = %v, want %v", labelValue(m, "result"), got, want)
		}
	}
}

func TestRecordFetch_ObservesLatency(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordFetch("success", 200*time.Millisecond)
	c.RecordFetch("error", time.Second)

	fetches := gather(t, reg, "glucoshare_fetch_total")
	if len(fetches.GetMetric()) != 2 {
		t.Errorf("expected 2 series, got %d", len(fetches.GetMetric()))
	}

	latency := gather(t, reg, "glucoshare_fetch_latency_seconds")
	h := latency.GetMetric()[0].GetHistogram()
	if h.GetSampleCount() != 2 {
		t.Errorf("sample count = %d, want 2", h.GetSampleCount())
	}
	if math.Abs(h.GetSampleSum()-1.2) > 1e-9 {
		t.Errorf("sample sum = %v, want 1.2", h.GetSampleSum())
	}
}

func TestRecordSessionRetry_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordSessionRetry()

	mf := gather(t, reg, "glucoshare_session_retries_total")
	if val := mf.GetMetric()[0].GetCounter().GetValue(); val != 1 {
		t.Errorf("session_retries_total = %v, want 1", val)
	}
}

func TestRecordReading_SetsGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordReading(142, time.Unix(1691455258, 0))

	if val := gather(t, reg, "glucoshare_last_glucose_mgdl").GetMetric()[0].GetGauge().GetValue(); val != 142 {
		t.Errorf("last_glucose_mgdl = %v, want 142", val)
	}
	if val := gather(t, reg, "glucoshare_last_reading_timestamp_seconds").GetMetric()[0].GetGauge().GetValue(); val != 1691455258 {
		t.Errorf("last_reading_timestamp_seconds = %v, want 1691455258", val)
	}
}

func TestHandler_ServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordSessionRetry()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "glucoshare_session_retries_total 1") {
		t.Errorf("body missing retries counter:\n%s", body)
	}
}
