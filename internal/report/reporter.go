// Package report computes aggregate metrics over the anonymized corpus and
// assembles them into a composite report. Every metric issues exactly one
// query and degrades to a fully defaulted value instead of raising.
package report

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/veilpipe/veilpipe/internal/store"
)

// viewSliceLimit bounds the per-view slices included in the composite report.
const viewSliceLimit = 5

// seniorBucketCount is how many decade buckets the age threshold expands into.
const seniorBucketCount = 5

// Report is the composite reporting artifact.
type Report struct {
	GermanyGmailPercentage float64                  `json:"germany_gmail_percentage"`
	TopGmailCountries      []map[string]interface{} `json:"top_gmail_countries"`
	SeniorsWithGmail       int                      `json:"seniors_with_gmail"`
	EmailProviderStats     []map[string]interface{} `json:"email_provider_stats"`
	CountryStats           []map[string]interface{} `json:"country_stats"`
	AgeGroupStats          []map[string]interface{} `json:"age_group_stats"`
}

// Reporter generates analytical reports from the stored corpus.
type Reporter struct {
	store *store.Store
	table string
}

// New creates a reporter over the given store.
func New(s *store.Store) *Reporter {
	return &Reporter{store: s, table: s.TableName()}
}

// GermanyGmailPercentage returns the share of Germany's population using a
// gmail.com address, as a percentage of Germany's rows. Defaults to 0 when
// unresolvable.
func (r *Reporter) GermanyGmailPercentage() float64 {
	rows := r.store.ExecuteQuery(`
		SELECT country_percentage AS percentage
		FROM email_by_country
		WHERE country = 'Germany' AND email_provider = 'gmail.com'`)

	if len(rows) == 0 {
		log.Printf("[WARN] report: no Germany gmail rows, defaulting to 0")
		return 0.0
	}
	percentage, ok := rows[0]["percentage"].(float64)
	if !ok {
		log.Printf("[WARN] report: unexpected percentage type %T, defaulting to 0", rows[0]["percentage"])
		return 0.0
	}
	return percentage
}

// TopGmailCountries returns up to limit countries ranked by gmail.com usage,
// highest count first. Defaults to an empty sequence when unresolvable.
func (r *Reporter) TopGmailCountries(limit int) []map[string]interface{} {
	rows := r.store.ExecuteQuery(`
		WITH gmail_countries AS (
			SELECT
				country,
				user_count,
				RANK() OVER (ORDER BY user_count DESC) AS rank
			FROM email_by_country
			WHERE email_provider = 'gmail.com'
		)
		SELECT rank, country, user_count
		FROM gmail_countries
		WHERE rank <= :limit
		ORDER BY rank`,
		sql.Named("limit", limit))

	if len(rows) == 0 {
		log.Printf("[WARN] report: no gmail countries found")
	}
	return rows
}

// SeniorsWithGmail counts records at or above the age threshold that use a
// gmail.com address. The threshold expands into the finite set of decade
// bucket labels at or above it. Defaults to 0 when unresolvable.
func (r *Reporter) SeniorsWithGmail(ageThreshold int) int {
	labels := make([]interface{}, 0, seniorBucketCount)
	for i := 0; i < seniorBucketCount; i++ {
		start := ageThreshold + i*10
		labels = append(labels, fmt.Sprintf("[%d-%d]", start, start+10))
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(labels)), ", ")
	query := fmt.Sprintf(`
		SELECT COUNT(*) AS senior_count
		FROM %s
		WHERE email = 'gmail.com' AND birthday IN (%s)`, r.table, placeholders)

	rows := r.store.ExecuteQuery(query, labels...)
	if len(rows) == 0 {
		log.Printf("[WARN] report: senior count query returned nothing, defaulting to 0")
		return 0
	}
	count, ok := rows[0]["senior_count"].(int64)
	if !ok {
		log.Printf("[WARN] report: unexpected senior count type %T, defaulting to 0", rows[0]["senior_count"])
		return 0
	}
	return int(count)
}

// FullReport assembles all metrics plus fixed-size slices of each reporting
// view. Every metric is independently fault-isolated: a failed metric
// contributes its default value rather than aborting the report.
func (r *Reporter) FullReport() Report {
	return Report{
		GermanyGmailPercentage: r.GermanyGmailPercentage(),
		TopGmailCountries:      r.TopGmailCountries(3),
		SeniorsWithGmail:       r.SeniorsWithGmail(60),
		EmailProviderStats:     r.store.ViewData("email_provider_stats", viewSliceLimit),
		CountryStats:           r.store.ViewData("country_stats", viewSliceLimit),
		AgeGroupStats:          r.store.ViewData("age_group_stats", 10),
	}
}

// SaveReport generates the composite report and writes it as JSON, creating
// parent directories as needed. I/O and serialization errors are swallowed
// into a logged false result.
func (r *Reporter) SaveReport(path string) bool {
	report := r.FullReport()

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Printf("[WARN] report: failed to save report: %v", err)
			return false
		}
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		log.Printf("[WARN] report: failed to save report: %v", err)
		return false
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		log.Printf("[WARN] report: failed to save report: %v", err)
		return false
	}

	log.Printf("report: saved report to %s", path)
	return true
}
