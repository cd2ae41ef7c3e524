// Package pipeline orchestrates a full collection run: fetch raw records,
// anonymize them, persist to SQLite, build reporting views, and export
// artifacts.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"path"
	"time"

	"github.com/google/uuid"

	"github.com/veilpipe/veilpipe/internal/anonymize"
	"github.com/veilpipe/veilpipe/internal/archive"
	"github.com/veilpipe/veilpipe/internal/config"
	"github.com/veilpipe/veilpipe/internal/fetch"
	"github.com/veilpipe/veilpipe/internal/report"
	"github.com/veilpipe/veilpipe/internal/schema"
	"github.com/veilpipe/veilpipe/internal/store"
)

// Result summarizes a completed run.
type Result struct {
	RunID      string
	Fetched    int
	Anonymized int
	Stored     int
	ReportPath string
}

// Run executes the pipeline end to end. The only fatal storage condition is
// a stored-count mismatch; report and snapshot failures degrade with warnings
// so a long collection run is never thrown away at the last step.
func Run(ctx context.Context, cfg *config.Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("pipeline: invalid configuration: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	runID := uuid.New().String()[:8]
	start := time.Now()
	log.Printf("pipeline: run %s starting (%d persons)", runID, cfg.TotalPersons)

	client := fetch.NewClient(cfg.Source.APIURL, cfg.Source.RetryAttempts, cfg.Source.Timeout)
	raws, err := client.PersonsAll(ctx, cfg.TotalPersons, cfg.Gender, cfg.BirthdayStart)
	if err != nil {
		return nil, fmt.Errorf("pipeline: collection failed: %w", err)
	}

	engine := anonymize.NewEngine(schema.PersonSchema())
	records := engine.AnonymizeAll(raws)
	log.Printf("pipeline: run %s anonymized %d of %d records", runID, len(records), len(raws))
	for _, fs := range engine.Stats().TopFallbackFields(3) {
		log.Printf("pipeline: run %s field %q fell back %d times", runID, fs.Field, fs.Fallbacks)
	}

	st, err := store.Open(cfg.OutputPath, schema.PersonSchema(), schema.ReportingViews())
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	defer st.Close()

	if err := st.CreateSchema(); err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	stored, err := st.StorePersons(records)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	st.CreateViews()

	reporter := report.New(st)
	if !reporter.SaveReport(cfg.ReportPath) {
		log.Printf("[WARN] pipeline: run %s report not written", runID)
	}

	if cfg.SnapshotPath != "" {
		if !st.ExportSnapshot(cfg.SnapshotPath) {
			log.Printf("[WARN] pipeline: run %s snapshot not written", runID)
		}
	}

	if err := archiveArtifacts(ctx, cfg, runID); err != nil {
		log.Printf("[WARN] pipeline: run %s archive upload failed: %v", runID, err)
	}

	log.Printf("pipeline: run %s completed in %v (fetched=%d stored=%d)",
		runID, time.Since(start).Round(time.Millisecond), len(raws), stored)

	return &Result{
		RunID:      runID,
		Fetched:    len(raws),
		Anonymized: len(records),
		Stored:     stored,
		ReportPath: cfg.ReportPath,
	}, nil
}

// archiveArtifacts uploads the run's report and snapshot to the configured
// archive backend under runs/<runID>/.
func archiveArtifacts(ctx context.Context, cfg *config.Config, runID string) error {
	backend, err := openArchive(ctx, cfg)
	if err != nil || backend == nil {
		return err
	}

	artifacts := map[string]string{
		cfg.ReportPath:   "report.json",
		cfg.SnapshotPath: "persons.csv.sz",
	}
	for localPath, name := range artifacts {
		if localPath == "" {
			continue
		}
		objectPath := path.Join("runs", runID, name)
		if err := backend.Upload(ctx, localPath, objectPath); err != nil {
			return err
		}
		log.Printf("pipeline: archived %s", objectPath)
	}
	return nil
}

func openArchive(ctx context.Context, cfg *config.Config) (archive.ObjectStore, error) {
	switch cfg.Archive.Type {
	case "none", "":
		return nil, nil
	case "local":
		return archive.NewLocal(cfg.Archive.Path)
	case "s3":
		return archive.NewS3(ctx, cfg.Archive.S3.Bucket, archive.S3Config{
			Region:   cfg.Archive.S3.Region,
			Endpoint: cfg.Archive.S3.Endpoint,
		})
	default:
		return nil, fmt.Errorf("unknown archive type: %s", cfg.Archive.Type)
	}
}
