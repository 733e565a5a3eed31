package status

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/prometheus/common/model"

	"github.com/quantfold/botkeeper/internal/supervisor"
)

// fakeSource serves a fixed supervisor snapshot.
type fakeSource struct {
	status supervisor.Status
}

func (f *fakeSource) Status() supervisor.Status { return f.status }

func newTestServer(t *testing.T, src Source, reg *prometheus.Registry) *httptest.Server {
	t.Helper()
	s := NewServer(ServerConfig{
		Addr:     "127.0.0.1:0",
		Version:  "test",
		Source:   src,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Gatherer: reg,
	})
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func TestStatusEndpoint(t *testing.T) {
	src := &fakeSource{status: supervisor.Status{
		State:              "running",
		Running:            true,
		WorkerAlive:        true,
		PID:                1234,
		RestartAttempts:    2,
		MaxRestartAttempts: 5,
		Uptime:             90 * time.Second,
		LastExitCode:       1,
	}}
	ts := newTestServer(t, src, prometheus.NewRegistry())

	resp, err := http.Get(ts.URL + "/status")
	if err != nil {
		t.Fatalf("GET /status error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status code = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var body statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}

	if body.Service != "botkeeper" {
		t.Errorf("service = %q, want botkeeper", body.Service)
	}
	if !body.Supervisor.Running || !body.Supervisor.WorkerAlive {
		t.Errorf("supervisor snapshot = %+v, want running worker", body.Supervisor)
	}
	if body.Supervisor.RestartAttempts != 2 || body.Supervisor.MaxRestartAttempts != 5 {
		t.Errorf("attempts = %d/%d, want 2/5",
			body.Supervisor.RestartAttempts, body.Supervisor.MaxRestartAttempts)
	}
	if body.Supervisor.PID != 1234 {
		t.Errorf("pid = %d, want 1234", body.Supervisor.PID)
	}
}

func TestHealthEndpoints(t *testing.T) {
	ts := newTestServer(t, &fakeSource{}, prometheus.NewRegistry())

	for _, path := range []string{"/health", "/healthz"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s error = %v", path, err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s status = %d, want 200", path, resp.StatusCode)
		}
		if strings.TrimSpace(string(body)) != "ok" {
			t.Errorf("GET %s body = %q, want ok", path, body)
		}
	}
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	g := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "botkeeper_test_gauge",
		Help: "test gauge",
	})
	reg.MustRegister(g)
	g.Set(7)

	ts := newTestServer(t, &fakeSource{}, reg)

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status code = %d, want 200", resp.StatusCode)
	}

	parser := expfmt.NewTextParser(model.UTF8Validation)
	families, err := parser.TextToMetricFamilies(resp.Body)
	if err != nil {
		t.Fatalf("parsing metrics exposition: %v", err)
	}

	mf, ok := families["botkeeper_test_gauge"]
	if !ok {
		t.Fatal("botkeeper_test_gauge not exposed")
	}
	if got := mf.GetMetric()[0].GetGauge().GetValue(); got != 7 {
		t.Errorf("botkeeper_test_gauge = %v, want 7", got)
	}
}

func TestStatusMethodNotAllowed(t *testing.T) {
	ts := newTestServer(t, &fakeSource{}, prometheus.NewRegistry())

	resp, err := http.Post(ts.URL+"/status", "application/json", strings.NewReader("{}"))
	if err != nil {
		t.Fatalf("POST /status error = %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("POST /status status = %d, want 405", resp.StatusCode)
	}
}
