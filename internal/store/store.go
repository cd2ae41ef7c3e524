// Package store persists anonymized person records in an embedded SQLite
// database and materializes the schema registry's reporting views.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/veilpipe/veilpipe/internal/schema"
	"github.com/veilpipe/veilpipe/pkg/types"
)

// ErrStoreCountMismatch signals that the records committed across all batches
// do not add up to the input length. This is a data-integrity violation and
// aborts the store step; batch-level failures on their own do not.
var ErrStoreCountMismatch = errors.New("stored record count does not match input")

// defaultBatchSize is the number of records inserted per transaction.
const defaultBatchSize = 5000

// MemoryPath opens the database in memory instead of on disk.
const MemoryPath = ":memory:"

// Store owns the single database connection for a pipeline run. There are no
// concurrent writers; batching is a throughput device, not a concurrency one.
type Store struct {
	db        *sql.DB
	path      string
	schema    schema.TableSchema
	views     []schema.ViewDefinition
	batchSize int
}

// Open opens (or creates) the database at path and binds it to the given
// schema descriptor. Parent directories are created as needed. Pass
// MemoryPath for an in-memory database.
func Open(path string, ts schema.TableSchema, views []schema.ViewDefinition) (*Store, error) {
	dsn := path
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("store: failed to create database directory: %w", err)
		}
		dsn = path + "?_journal_mode=WAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: failed to open database: %w", err)
	}
	// Single writer owns the connection for the lifetime of the run.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	log.Printf("store: opened database at %s", path)
	return &Store{
		db:        db,
		path:      path,
		schema:    ts,
		views:     views,
		batchSize: defaultBatchSize,
	}, nil
}

// CreateSchema idempotently creates the table from the registry's DDL.
// No-op if the table already exists.
func (s *Store) CreateSchema() error {
	if _, err := s.db.Exec(s.schema.CreateTableSQL()); err != nil {
		return fmt.Errorf("store: failed to create table %s: %w", s.schema.Name, err)
	}
	return nil
}

// CreateViews (re)creates every declared view against the current table name.
// A failure on one view is logged and does not prevent creation of the rest.
func (s *Store) CreateViews() {
	created := 0
	for _, view := range s.views {
		sqlText, err := view.CreateViewSQL(s.schema.Name)
		if err != nil {
			log.Printf("[WARN] store: skipping view %s: %v", view.Name, err)
			continue
		}
		if _, err := s.db.Exec(fmt.Sprintf("DROP VIEW IF EXISTS %s", view.Name)); err != nil {
			log.Printf("[WARN] store: failed to drop view %s: %v", view.Name, err)
			continue
		}
		if _, err := s.db.Exec(sqlText); err != nil {
			log.Printf("[WARN] store: failed to create view %s: %v", view.Name, err)
			continue
		}
		created++
	}
	log.Printf("store: created %d of %d views", created, len(s.views))
}

// StorePersons inserts records in fixed-size batches, each batch as one
// transaction. A failing batch is logged and skipped entirely; processing
// continues with the next batch. If the final tally does not equal the input
// length the call fails with ErrStoreCountMismatch.
func (s *Store) StorePersons(records []types.AnonymizedRecord) (int, error) {
	if len(records) == 0 {
		log.Printf("[WARN] store: no records to store")
		return 0, nil
	}

	columns := s.schema.FieldNames()
	insertSQL := s.buildInsertSQL(columns)

	total := 0
	for start := 0; start < len(records); start += s.batchSize {
		end := start + s.batchSize
		if end > len(records) {
			end = len(records)
		}
		batch := records[start:end]

		if err := s.insertBatch(insertSQL, columns, batch); err != nil {
			log.Printf("[WARN] store: batch %d-%d failed, skipping: %v", start, end, err)
			continue
		}
		total += len(batch)
	}

	log.Printf("store: stored %d of %d records", total, len(records))
	if total != len(records) {
		return total, fmt.Errorf("store: %w: stored %d of %d", ErrStoreCountMismatch, total, len(records))
	}
	return total, nil
}

func (s *Store) buildInsertSQL(columns []string) string {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		s.schema.Name, strings.Join(columns, ", "), placeholders)
}

// insertBatch inserts one batch inside a transaction so a failure rolls the
// whole batch back.
func (s *Store) insertBatch(insertSQL string, columns []string, batch []types.AnonymizedRecord) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(insertSQL)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	args := make([]interface{}, len(columns))
	for _, record := range batch {
		for i, col := range columns {
			args[i] = record[col] // absent fields insert as NULL
		}
		if _, err := stmt.Exec(args...); err != nil {
			return fmt.Errorf("failed to insert record: %w", err)
		}
	}

	return tx.Commit()
}

// ExecuteQuery runs a parametrized query and returns rows as field-to-value
// maps in column order. Any execution error degrades to an empty result set;
// the query and parameters are logged, nothing is raised to the caller.
func (s *Store) ExecuteQuery(query string, args ...interface{}) []map[string]interface{} {
	empty := []map[string]interface{}{}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		s.logQueryFailure(query, args, err)
		return empty
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		s.logQueryFailure(query, args, err)
		return empty
	}

	results := []map[string]interface{}{}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		pointers := make([]interface{}, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			s.logQueryFailure(query, args, err)
			return empty
		}

		row := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			row[col] = values[i]
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		s.logQueryFailure(query, args, err)
		return empty
	}

	return results
}

func (s *Store) logQueryFailure(query string, args []interface{}, err error) {
	log.Printf("[WARN] store: query failed: %v", err)
	log.Printf("[WARN] store: query: %s", query)
	log.Printf("[WARN] store: parameters: %v", args)
}

// ViewData returns up to limit rows from a view.
func (s *Store) ViewData(viewName string, limit int) []map[string]interface{} {
	return s.ExecuteQuery(fmt.Sprintf("SELECT * FROM %s LIMIT %d", viewName, limit))
}

// TableName returns the name of the persons table this store materializes.
func (s *Store) TableName() string {
	return s.schema.Name
}

// Close closes the database connection.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("store: failed to close database: %w", err)
	}
	log.Printf("store: closed database at %s", s.path)
	return nil
}
