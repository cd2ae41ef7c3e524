// Package integration provides end-to-end integration tests for veilpipe.
package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/veilpipe/veilpipe/internal/config"
	"github.com/veilpipe/veilpipe/internal/pipeline"
	"github.com/veilpipe/veilpipe/internal/schema"
	"github.com/veilpipe/veilpipe/internal/store"
)

// newUpstream serves deterministic person records in the upstream envelope
// format, honoring the _quantity parameter.
func newUpstream() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		quantity := 0
		fmt.Sscanf(r.URL.Query().Get("_quantity"), "%d", &quantity)

		data := make([]map[string]interface{}, quantity)
		for i := range data {
			country := "Germany"
			provider := "gmail.com"
			if i%3 == 0 {
				country = "United States"
				provider = "yahoo.com"
			}
			data[i] = map[string]interface{}{
				"firstname": fmt.Sprintf("First%d", i),
				"lastname":  fmt.Sprintf("Last%d", i),
				"email":     fmt.Sprintf("user%d@%s", i, provider),
				"phone":     "+1555000000",
				"birthday":  "1960-02-11",
				"gender":    "female",
				"website":   "https://example.com",
				"image":     "https://example.com/p.png",
				"address": map[string]interface{}{
					"street":         "123 Main St",
					"streetName":     "Main St",
					"buildingNumber": "123",
					"city":           "Berlin",
					"zipcode":        "10115",
					"country":        country,
					"latitude":       52.5200066123,
					"longitude":      13.4049540456,
				},
			}
		}

		json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "OK",
			"code":   200,
			"data":   data,
		})
	}))
}

// TestPipelineFlow tests the end-to-end flow:
// fetch → anonymize → store → views → report → snapshot → archive
func TestPipelineFlow(t *testing.T) {
	upstream := newUpstream()
	defer upstream.Close()

	tempDir, err := os.MkdirTemp("", "veilpipe-integration-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	cfg := config.DefaultConfig()
	cfg.TotalPersons = 30
	cfg.OutputPath = filepath.Join(tempDir, "persons.db")
	cfg.ReportPath = filepath.Join(tempDir, "report.json")
	cfg.SnapshotPath = filepath.Join(tempDir, "persons.csv.sz")
	cfg.Source.APIURL = upstream.URL
	cfg.Source.RetryAttempts = 0
	cfg.Source.Timeout = 10 * time.Second
	cfg.Archive.Type = "local"
	cfg.Archive.Path = filepath.Join(tempDir, "archive")

	result, err := pipeline.Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("pipeline run failed: %v", err)
	}
	if result.Stored != 30 {
		t.Fatalf("expected 30 stored records, got %d", result.Stored)
	}

	// Report carries the aggregate metrics.
	reportData, err := os.ReadFile(cfg.ReportPath)
	if err != nil {
		t.Fatalf("report not written: %v", err)
	}
	var report map[string]interface{}
	if err := json.Unmarshal(reportData, &report); err != nil {
		t.Fatalf("report is not valid JSON: %v", err)
	}
	pct, ok := report["germany_gmail_percentage"].(float64)
	if !ok {
		t.Fatal("germany_gmail_percentage missing from report")
	}
	if pct != 100.0 {
		t.Errorf("expected all German records on gmail.com, got %.2f%%", pct)
	}

	// Snapshot restores into a fresh database with the same row count.
	restored, err := store.Open(store.MemoryPath, schema.PersonSchema(), schema.ReportingViews())
	if err != nil {
		t.Fatalf("failed to open restore target: %v", err)
	}
	defer restored.Close()

	imported := restored.ImportSnapshot(cfg.SnapshotPath)
	if imported != 30 {
		t.Fatalf("expected 30 imported records, got %d", imported)
	}

	rows := restored.ExecuteQuery("SELECT COUNT(*) AS n FROM persons WHERE firstname = '****'")
	if len(rows) != 1 || rows[0]["n"] != int64(30) {
		t.Errorf("restored database should hold 30 masked records, got %v", rows)
	}

	// Archive holds both run artifacts.
	runDir := filepath.Join(cfg.Archive.Path, "runs", result.RunID)
	for _, name := range []string{"report.json", "persons.csv.sz"} {
		if _, err := os.Stat(filepath.Join(runDir, name)); err != nil {
			t.Errorf("archived artifact %s missing: %v", name, err)
		}
	}
}

// TestPipelineUpstreamOutage verifies a dead upstream aborts the run without
// writing any artifacts.
func TestPipelineUpstreamOutage(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer upstream.Close()

	tempDir, err := os.MkdirTemp("", "veilpipe-outage-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	cfg := config.DefaultConfig()
	cfg.TotalPersons = 10
	cfg.OutputPath = filepath.Join(tempDir, "persons.db")
	cfg.ReportPath = filepath.Join(tempDir, "report.json")
	cfg.SnapshotPath = ""
	cfg.Source.APIURL = upstream.URL
	cfg.Source.RetryAttempts = 1
	cfg.Source.Timeout = 5 * time.Second

	if _, err := pipeline.Run(context.Background(), cfg); err == nil {
		t.Fatal("expected pipeline to fail against a dead upstream")
	}
	if _, err := os.Stat(cfg.ReportPath); !os.IsNotExist(err) {
		t.Error("no report should be written on an aborted run")
	}
}
