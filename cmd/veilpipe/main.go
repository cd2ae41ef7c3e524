// Package main implements the veilpipe binary. It runs the full collection
// pipeline once: fetch persons, anonymize, store, report, and archive.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/veilpipe/veilpipe/internal/config"
	"github.com/veilpipe/veilpipe/internal/pipeline"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	// Parse command line flags
	var (
		configFile    string
		envFile       string
		totalPersons  int
		gender        string
		birthdayStart string
		outputPath    string
		reportPath    string
		snapshotPath  string
		apiURL        string
		showVersion   bool
		showHelp      bool
	)

	flag.StringVar(&configFile, "config", "", "Path to configuration file (YAML or JSON)")
	flag.StringVar(&envFile, "env-file", "", "Path to .env file (default .env, missing file is ignored)")
	flag.IntVar(&totalPersons, "persons", 0, "Number of person records to collect")
	flag.StringVar(&gender, "gender", "", "Restrict collection to a gender: male, female")
	flag.StringVar(&birthdayStart, "birthday-start", "", "Earliest birthday to request (YYYY-MM-DD)")
	flag.StringVar(&outputPath, "output", "", "SQLite database path (:memory: for in-memory)")
	flag.StringVar(&reportPath, "report", "", "Aggregate report output path")
	flag.StringVar(&snapshotPath, "snapshot", "", "Compressed CSV snapshot path")
	flag.StringVar(&apiURL, "api-url", "", "Upstream person source base URL")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showHelp, "help", false, "Show help message")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Veilpipe - Schema-Driven Personal Data Anonymization Pipeline\n\n")
		fmt.Fprintf(os.Stderr, "Usage: veilpipe [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  veilpipe --persons 30000 --output /data/persons.db\n")
		fmt.Fprintf(os.Stderr, "  veilpipe --gender female --birthday-start 1950-01-01\n")
		fmt.Fprintf(os.Stderr, "  veilpipe --config /etc/veilpipe/config.yaml\n")
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  VEILPIPE_TOTAL_PERSONS   Number of records to collect\n")
		fmt.Fprintf(os.Stderr, "  VEILPIPE_API_URL         Upstream person source base URL\n")
		fmt.Fprintf(os.Stderr, "  VEILPIPE_OUTPUT_PATH     SQLite database path\n")
		fmt.Fprintf(os.Stderr, "  VEILPIPE_ARCHIVE_TYPE    Archive backend (none, local, s3)\n")
	}

	flag.Parse()

	if showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if showVersion {
		fmt.Printf("veilpipe version %s (commit: %s)\n", version, commit)
		os.Exit(0)
	}

	// Load configuration
	cfg, err := loadConfig(configFile, envFile, totalPersons, gender, birthdayStart, outputPath, reportPath, snapshotPath, apiURL)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	printBanner(cfg)

	// Cancel the run on SIGINT/SIGTERM
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		sig := <-sigCh
		log.Printf("Received signal: %v", sig)
		cancel()
	}()

	result, err := pipeline.Run(ctx, cfg)
	if err != nil {
		log.Fatalf("Pipeline failed: %v", err)
	}

	log.Printf("Run %s: stored %d of %d collected records", result.RunID, result.Stored, result.Fetched)
	log.Printf("Report: %s", result.ReportPath)
}

// loadConfig loads configuration from file, environment, and command line flags.
func loadConfig(configFile, envFile string, totalPersons int, gender, birthdayStart, outputPath, reportPath, snapshotPath, apiURL string) (*config.Config, error) {
	var cfg *config.Config
	var err error

	// Start with defaults or load from file
	if configFile != "" {
		cfg, err = config.LoadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	} else {
		cfg = config.DefaultConfig()
	}

	// Apply environment variables, optionally sourced from a .env file
	if err := config.LoadDotEnv(envFile); err != nil {
		return nil, err
	}
	config.LoadFromEnv(cfg)

	// Apply command line flags (highest priority)
	if totalPersons > 0 {
		cfg.TotalPersons = totalPersons
	}
	if gender != "" {
		cfg.Gender = gender
	}
	if birthdayStart != "" {
		cfg.BirthdayStart = birthdayStart
	}
	if outputPath != "" {
		cfg.OutputPath = outputPath
	}
	if reportPath != "" {
		cfg.ReportPath = reportPath
	}
	if snapshotPath != "" {
		cfg.SnapshotPath = snapshotPath
	}
	if apiURL != "" {
		cfg.Source.APIURL = apiURL
	}

	return cfg, nil
}

// printBanner prints the startup banner with configuration summary.
func printBanner(cfg *config.Config) {
	log.Printf("╔═══════════════════════════════════════════════════════════╗")
	log.Printf("║                      VEILPIPE                             ║")
	log.Printf("║   Schema-Driven Personal Data Anonymization Pipeline      ║")
	log.Printf("╚═══════════════════════════════════════════════════════════╝")
	log.Printf("")
	log.Printf("Configuration:")
	log.Printf("  Persons:   %d", cfg.TotalPersons)
	if cfg.Gender != "" {
		log.Printf("  Gender:    %s", cfg.Gender)
	}
	log.Printf("  Birthdays: from %s", cfg.BirthdayStart)
	log.Printf("  Source:    %s", cfg.Source.APIURL)
	log.Printf("  Output:    %s", cfg.OutputPath)
	log.Printf("  Report:    %s", cfg.ReportPath)
	if cfg.SnapshotPath != "" {
		log.Printf("  Snapshot:  %s", cfg.SnapshotPath)
	}
	if cfg.Archive.Type != "none" && cfg.Archive.Type != "" {
		log.Printf("  Archive:   %s", cfg.Archive.Type)
	}
	log.Printf("")
}
