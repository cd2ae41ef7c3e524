// Package types provides core data types for the veilpipe anonymization pipeline.
package types

// Sentinel values written in place of values that must not be retained.
const (
	// MaskSentinel replaces every masked field value.
	MaskSentinel = "****"

	// EmailFallback replaces an email that cannot be reduced to its domain.
	EmailFallback = "****@****"

	// AgeUnknown replaces a birthdate that cannot be parsed.
	AgeUnknown = "[unknown]"
)

// RawRecord is an untyped person record as delivered by the upstream source.
// Values may live at the top level or nested one level inside an "address"
// sub-mapping whose keys can alias top-level field names.
// A RawRecord is consumed exactly once and is never persisted.
type RawRecord map[string]interface{}

// Lookup resolves a field by name, checking the top level first and then the
// address sub-mapping. The returned bool reports whether the field was found;
// a found field may still carry a nil (JSON null) value.
func (r RawRecord) Lookup(name string) (interface{}, bool) {
	if v, ok := r[name]; ok {
		return v, true
	}
	if addr, ok := r["address"].(map[string]interface{}); ok {
		if v, ok := addr[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// AnonymizedRecord is the transformed form of a RawRecord. It contains only
// fields declared by the table schema; masked fields always hold MaskSentinel
// and raw PII never appears. Once built it is read-only.
type AnonymizedRecord map[string]interface{}
