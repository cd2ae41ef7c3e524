// Package anonymize transforms raw person records into anonymized records
// under the per-field policies declared by the table schema.
package anonymize

import (
	"fmt"
	"log"
	"time"

	"github.com/veilpipe/veilpipe/internal/observability"
	"github.com/veilpipe/veilpipe/internal/schema"
	"github.com/veilpipe/veilpipe/pkg/types"
)

// DefaultRadiusKm is the coordinate perturbation radius.
const DefaultRadiusKm = 10

// Engine applies the schema's field policies to raw records, one at a time.
// Construct it with the schema descriptor; it holds no global state.
type Engine struct {
	schema     schema.TableSchema
	retained   []schema.FieldDefinition
	masked     []string
	transforms map[string]Transform
	radiusKm   int
	now        func() time.Time
	stats      *observability.RunStats
}

// NewEngine creates an engine for the given table schema.
func NewEngine(ts schema.TableSchema) *Engine {
	e := &Engine{
		schema:     ts,
		retained:   ts.RetainedFields(),
		masked:     ts.MaskedFieldNames(),
		transforms: make(map[string]Transform),
		radiusKm:   DefaultRadiusKm,
		now:        time.Now,
		stats:      observability.NewRunStats(),
	}

	for _, f := range e.retained {
		e.transforms[f.Name] = e.transformFor(f)
	}
	return e
}

// transformFor binds a field definition to its transform. Derived fields
// dispatch on the field name; the schema declares which fields are derived
// and the engine knows how each derivation works.
func (e *Engine) transformFor(f schema.FieldDefinition) Transform {
	if f.Policy == schema.PolicyPassthrough {
		return passthrough
	}
	switch f.Name {
	case "email":
		return emailDomain
	case "birthday":
		return func(v interface{}) (Outcome, error) { return ageBucket(v, e.now()) }
	case "latitude", "longitude":
		return func(v interface{}) (Outcome, error) { return perturbCoordinate(v, e.radiusKm) }
	default:
		log.Printf("[WARN] anonymize: derived field %q has no known derivation, passing through", f.Name)
		return passthrough
	}
}

// Anonymize transforms a single raw record. Retained fields are written first
// in schema declaration order, then any masked fields found on the record.
// A schema field absent from the record is logged and omitted, never
// defaulted. The returned record contains no raw PII.
func (e *Engine) Anonymize(raw types.RawRecord) (types.AnonymizedRecord, error) {
	if raw == nil {
		return nil, fmt.Errorf("anonymize: nil record")
	}

	out := make(types.AnonymizedRecord, len(e.schema.Fields))

	for _, f := range e.retained {
		value, ok := raw.Lookup(f.Name)
		if !ok {
			log.Printf("[WARN] anonymize: field %q not found in record", f.Name)
			continue
		}
		result, err := e.transforms[f.Name](value)
		if err != nil {
			return nil, err
		}
		if result.Fallback {
			e.stats.RecordFallback(f.Name)
			log.Printf("[WARN] anonymize: field %q fell back to sentinel", f.Name)
		}
		out[f.Name] = result.Value
	}

	for _, name := range e.masked {
		if _, ok := raw.Lookup(name); !ok {
			log.Printf("[WARN] anonymize: masked field %q not found in record", name)
			continue
		}
		out[name] = types.MaskSentinel
	}

	return out, nil
}

// AnonymizeAll transforms records independently, dropping any record whose
// transform fails. Partial success is expected and not fatal.
func (e *Engine) AnonymizeAll(raws []types.RawRecord) []types.AnonymizedRecord {
	out := make([]types.AnonymizedRecord, 0, len(raws))
	for i, raw := range raws {
		record, err := e.Anonymize(raw)
		if err != nil {
			e.stats.RecordSkipped()
			log.Printf("[WARN] anonymize: skipping record %d: %v", i, err)
			continue
		}
		e.stats.RecordProcessed()
		out = append(out, record)
	}
	log.Printf("anonymize: anonymized %d of %d records", len(out), len(raws))
	return out
}

// Stats returns the engine's run statistics tracker.
func (e *Engine) Stats() *observability.RunStats {
	return e.stats
}
