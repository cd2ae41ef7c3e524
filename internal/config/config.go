// Package config provides unified configuration for the veilpipe pipeline.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the full pipeline configuration.
type Config struct {
	// TotalPersons is the number of records to collect from the upstream source
	TotalPersons int `json:"total_persons" yaml:"total_persons"`

	// Gender optionally restricts collected records: male, female, or empty for both
	Gender string `json:"gender" yaml:"gender"`

	// BirthdayStart is the earliest birthday to request (YYYY-MM-DD)
	BirthdayStart string `json:"birthday_start" yaml:"birthday_start"`

	// OutputPath is the SQLite database file, or :memory: for an in-memory run
	OutputPath string `json:"output_path" yaml:"output_path"`

	// ReportPath is where the aggregate JSON report is written
	ReportPath string `json:"report_path" yaml:"report_path"`

	// SnapshotPath is where the compressed CSV snapshot is written; empty disables it
	SnapshotPath string `json:"snapshot_path" yaml:"snapshot_path"`

	// Upstream source configuration
	Source SourceConfig `json:"source" yaml:"source"`

	// Archive configuration for run artifacts
	Archive ArchiveConfig `json:"archive" yaml:"archive"`
}

// SourceConfig holds upstream data source configuration.
type SourceConfig struct {
	// APIURL is the base URL of the upstream person source
	APIURL string `json:"api_url" yaml:"api_url"`

	// RetryAttempts is the number of retries after a failed request
	RetryAttempts int `json:"retry_attempts" yaml:"retry_attempts"`

	// Timeout bounds each upstream request
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

// ArchiveConfig holds archive configuration for run artifacts.
type ArchiveConfig struct {
	// Type is the archive backend: none, local, s3
	Type string `json:"type" yaml:"type"`

	// Path is the local archive path (for local type)
	Path string `json:"path" yaml:"path"`

	// S3 configuration (for s3 type)
	S3 S3Config `json:"s3" yaml:"s3"`
}

// S3Config holds S3 archive configuration.
type S3Config struct {
	// Bucket is the S3 bucket name
	Bucket string `json:"bucket" yaml:"bucket"`

	// Region is the AWS region
	Region string `json:"region" yaml:"region"`

	// Endpoint is the S3 endpoint (for S3-compatible storage)
	Endpoint string `json:"endpoint" yaml:"endpoint"`
}

// DefaultConfig returns the default configuration for local runs.
func DefaultConfig() *Config {
	return &Config{
		TotalPersons:  30000,
		Gender:        "",
		BirthdayStart: "1900-01-01",
		OutputPath:    "./data/veilpipe/persons.db",
		ReportPath:    "./data/veilpipe/report.json",
		SnapshotPath:  "./data/veilpipe/persons.csv.sz",
		Source: SourceConfig{
			APIURL:        "https://fakerapi.it/api/v2",
			RetryAttempts: 3,
			Timeout:       30 * time.Second,
		},
		Archive: ArchiveConfig{
			Type: "none",
			Path: "./data/veilpipe/archive",
		},
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.TotalPersons <= 0 {
		return fmt.Errorf("total_persons must be positive, got %d", c.TotalPersons)
	}

	switch c.Gender {
	case "", "male", "female":
		// Valid values
	default:
		return fmt.Errorf("invalid gender: %s (must be male, female, or empty)", c.Gender)
	}

	if _, err := time.Parse("2006-01-02", c.BirthdayStart); err != nil {
		return fmt.Errorf("invalid birthday_start: %s (must be YYYY-MM-DD)", c.BirthdayStart)
	}

	if c.OutputPath == "" {
		return fmt.Errorf("output_path is required")
	}

	if c.ReportPath == "" {
		return fmt.Errorf("report_path is required")
	}

	if c.Source.APIURL == "" {
		return fmt.Errorf("source.api_url is required")
	}

	if c.Source.RetryAttempts < 0 {
		return fmt.Errorf("source.retry_attempts must not be negative, got %d", c.Source.RetryAttempts)
	}

	switch c.Archive.Type {
	case "none", "local", "s3":
		// Valid backends
	default:
		return fmt.Errorf("invalid archive type: %s (must be none, local, or s3)", c.Archive.Type)
	}

	if c.Archive.Type == "s3" && c.Archive.S3.Bucket == "" {
		return fmt.Errorf("archive.s3.bucket is required when archive type is s3")
	}

	return nil
}

// LoadFromFile loads configuration from a YAML or JSON file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file format: %s", ext)
	}

	return cfg, nil
}

// LoadDotEnv loads environment variables from a .env file if one exists.
// A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables use the VEILPIPE_ prefix.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("VEILPIPE_TOTAL_PERSONS"); v != "" {
		fmt.Sscanf(v, "%d", &cfg.TotalPersons)
	}
	if v := os.Getenv("VEILPIPE_GENDER"); v != "" {
		cfg.Gender = v
	}
	if v := os.Getenv("VEILPIPE_BIRTHDAY_START"); v != "" {
		cfg.BirthdayStart = v
	}
	if v := os.Getenv("VEILPIPE_OUTPUT_PATH"); v != "" {
		cfg.OutputPath = v
	}
	if v := os.Getenv("VEILPIPE_REPORT_PATH"); v != "" {
		cfg.ReportPath = v
	}
	if v := os.Getenv("VEILPIPE_SNAPSHOT_PATH"); v != "" {
		cfg.SnapshotPath = v
	}

	// Source configuration
	if v := os.Getenv("VEILPIPE_API_URL"); v != "" {
		cfg.Source.APIURL = v
	}
	if v := os.Getenv("VEILPIPE_RETRY_ATTEMPTS"); v != "" {
		fmt.Sscanf(v, "%d", &cfg.Source.RetryAttempts)
	}
	if v := os.Getenv("VEILPIPE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Source.Timeout = d
		}
	}

	// Archive configuration
	if v := os.Getenv("VEILPIPE_ARCHIVE_TYPE"); v != "" {
		cfg.Archive.Type = v
	}
	if v := os.Getenv("VEILPIPE_ARCHIVE_PATH"); v != "" {
		cfg.Archive.Path = v
	}
	if v := os.Getenv("VEILPIPE_S3_BUCKET"); v != "" {
		cfg.Archive.S3.Bucket = v
	}
	if v := os.Getenv("VEILPIPE_S3_REGION"); v != "" {
		cfg.Archive.S3.Region = v
	}
	if v := os.Getenv("VEILPIPE_S3_ENDPOINT"); v != "" {
		cfg.Archive.S3.Endpoint = v
	}
}

// EnsureDirectories creates the parent directories of all output paths.
func (c *Config) EnsureDirectories() error {
	paths := []string{c.OutputPath, c.ReportPath, c.SnapshotPath}

	dirs := make([]string, 0, len(paths)+1)
	for _, p := range paths {
		if p == "" || p == ":memory:" {
			continue
		}
		dirs = append(dirs, filepath.Dir(p))
	}
	if c.Archive.Type == "local" && c.Archive.Path != "" {
		dirs = append(dirs, c.Archive.Path)
	}

	for _, dir := range dirs {
		if dir == "" || dir == "." {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}
