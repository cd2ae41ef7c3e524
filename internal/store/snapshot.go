package store

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/golang/snappy"
)

// nullMarker encodes SQL NULL in snapshot files, keeping it distinct from an
// empty string.
const nullMarker = `\N`

// ExportSnapshot writes the whole table to a snappy-compressed CSV file,
// creating parent directories as needed. I/O errors are swallowed into a
// logged false result.
func (s *Store) ExportSnapshot(path string) bool {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		log.Printf("[WARN] store: snapshot export failed: %v", err)
		return false
	}

	columns := s.schema.FieldNames()
	rows, err := s.db.Query(fmt.Sprintf("SELECT %s FROM %s", strings.Join(columns, ", "), s.schema.Name))
	if err != nil {
		log.Printf("[WARN] store: snapshot export failed: %v", err)
		return false
	}
	defer rows.Close()

	f, err := os.Create(path)
	if err != nil {
		log.Printf("[WARN] store: snapshot export failed: %v", err)
		return false
	}
	defer f.Close()

	sw := snappy.NewBufferedWriter(f)
	w := csv.NewWriter(sw)

	if err := w.Write(columns); err != nil {
		log.Printf("[WARN] store: snapshot export failed: %v", err)
		return false
	}

	count := 0
	values := make([]interface{}, len(columns))
	pointers := make([]interface{}, len(columns))
	for i := range values {
		pointers[i] = &values[i]
	}
	record := make([]string, len(columns))

	for rows.Next() {
		if err := rows.Scan(pointers...); err != nil {
			log.Printf("[WARN] store: snapshot export failed: %v", err)
			return false
		}
		for i, v := range values {
			record[i] = formatSnapshotValue(v)
		}
		if err := w.Write(record); err != nil {
			log.Printf("[WARN] store: snapshot export failed: %v", err)
			return false
		}
		count++
	}
	if err := rows.Err(); err != nil {
		log.Printf("[WARN] store: snapshot export failed: %v", err)
		return false
	}

	w.Flush()
	if err := w.Error(); err != nil {
		log.Printf("[WARN] store: snapshot export failed: %v", err)
		return false
	}
	if err := sw.Close(); err != nil {
		log.Printf("[WARN] store: snapshot export failed: %v", err)
		return false
	}

	log.Printf("store: exported %d records to %s", count, path)
	return true
}

// ImportSnapshot loads a snapshot previously written by ExportSnapshot,
// creating the table first if absent. Returns the number of records in the
// table after import; failures are swallowed into a logged zero.
func (s *Store) ImportSnapshot(path string) int {
	if err := s.CreateSchema(); err != nil {
		log.Printf("[WARN] store: snapshot import failed: %v", err)
		return 0
	}

	f, err := os.Open(path)
	if err != nil {
		log.Printf("[WARN] store: snapshot import failed: %v", err)
		return 0
	}
	defer f.Close()

	r := csv.NewReader(snappy.NewReader(f))
	header, err := r.Read()
	if err != nil {
		log.Printf("[WARN] store: snapshot import failed: %v", err)
		return 0
	}

	typesByColumn := make(map[string]string, len(s.schema.Fields))
	for _, field := range s.schema.Fields {
		typesByColumn[field.Name] = field.StorageType
	}

	records, err := r.ReadAll()
	if err != nil {
		log.Printf("[WARN] store: snapshot import failed: %v", err)
		return 0
	}

	tx, err := s.db.Begin()
	if err != nil {
		log.Printf("[WARN] store: snapshot import failed: %v", err)
		return 0
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(s.buildInsertSQL(header))
	if err != nil {
		log.Printf("[WARN] store: snapshot import failed: %v", err)
		return 0
	}
	defer stmt.Close()

	for _, record := range records {
		args := make([]interface{}, len(header))
		for i, raw := range record {
			args[i] = parseSnapshotValue(raw, typesByColumn[header[i]])
		}
		if _, err := stmt.Exec(args...); err != nil {
			log.Printf("[WARN] store: snapshot import failed: %v", err)
			return 0
		}
	}

	if err := tx.Commit(); err != nil {
		log.Printf("[WARN] store: snapshot import failed: %v", err)
		return 0
	}

	var count int
	if err := s.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", s.schema.Name)).Scan(&count); err != nil {
		log.Printf("[WARN] store: snapshot import failed: %v", err)
		return 0
	}

	log.Printf("store: imported %d records from %s", len(records), path)
	return count
}

func formatSnapshotValue(v interface{}) string {
	switch value := v.(type) {
	case nil:
		return nullMarker
	case string:
		return value
	case []byte:
		return string(value)
	case int64:
		return strconv.FormatInt(value, 10)
	case float64:
		return strconv.FormatFloat(value, 'g', -1, 64)
	default:
		return fmt.Sprint(value)
	}
}

func parseSnapshotValue(raw, storageType string) interface{} {
	if raw == nullMarker {
		return nil
	}
	switch storageType {
	case "REAL":
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return f
		}
		return nil
	case "INTEGER":
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return n
		}
		return nil
	default:
		return raw
	}
}
