// internal/uplink/http_test.go
package uplink

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mkarlsen/meshtemp/internal/config"
)

func sampleReport() Report {
	return Report{
		NodeID:    "cabin-gw",
		At:        time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Mesh:      "connected",
		UptimeSec: 3600,
		Sensors: []SensorReport{
			{Identity: "28ff1c6a90150328", Label: "Lake Water: ", Celsius: 4.75, Valid: true},
			{Identity: "28ff8d2c90150341", Label: "Outside Air: ", Celsius: -12.5, Valid: false},
		},
		Failures: 1,
	}
}

func TestHTTPPublish_DeliversReport(t *testing.T) {
	var (
		gotPath        string
		gotContentType string
		gotBody        []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	p := NewHTTPPublisher(config.HTTPConfig{Endpoint: srv.URL + "/ingest", TimeoutMs: 1000})
	if err := p.Publish(context.Background(), sampleReport()); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if gotPath != "/ingest" {
		t.Fatalf("path: got %q", gotPath)
	}
	if gotContentType != "application/json" {
		t.Fatalf("content type: got %q", gotContentType)
	}
	// Collector-side consumers key on these names.
	if !bytes.Contains(gotBody, []byte(`"node_id":"cabin-gw"`)) {
		t.Fatalf("body missing node_id: %s", gotBody)
	}

	var got Report
	if err := json.Unmarshal(gotBody, &got); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if got.NodeID != "cabin-gw" || got.Mesh != "connected" || got.Failures != 1 {
		t.Fatalf("report header fields: %+v", got)
	}
	if len(got.Sensors) != 2 || got.Sensors[0].Label != "Lake Water: " || got.Sensors[1].Valid {
		t.Fatalf("report sensors: %+v", got.Sensors)
	}
}

func TestHTTPPublish_CollectorErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "collector down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewHTTPPublisher(config.HTTPConfig{Endpoint: srv.URL, TimeoutMs: 1000})
	if err := p.Publish(context.Background(), sampleReport()); err == nil {
		t.Fatalf("expected error on 500")
	}
}

func TestHTTPPublish_UnreachableCollector(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	endpoint := srv.URL
	srv.Close()

	p := NewHTTPPublisher(config.HTTPConfig{Endpoint: endpoint, TimeoutMs: 500})
	if err := p.Publish(context.Background(), sampleReport()); err == nil {
		t.Fatalf("expected error for unreachable collector")
	}
}
