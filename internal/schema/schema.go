// Package schema declares the anonymized person table and its reporting views
// as plain data. Table DDL and view DDL are pure functions of the descriptors,
// so regenerating from an unchanged descriptor set reproduces identical text.
package schema

import (
	"fmt"
	"strings"
)

// Policy determines how a field's value is treated during anonymization.
type Policy string

const (
	// PolicyMasked fields are always replaced by the mask sentinel.
	PolicyMasked Policy = "masked"

	// PolicyPassthrough fields are copied unchanged.
	PolicyPassthrough Policy = "passthrough"

	// PolicyDerived fields are generalized (email domain, age bucket,
	// perturbed coordinate) before being retained.
	PolicyDerived Policy = "derived"
)

// TablePlaceholder is the literal token a view query uses to reference the
// owning table. Substitution is purely textual.
const TablePlaceholder = "{table}"

// FieldDefinition describes a single column: its name, SQLite storage type,
// and the privacy policy applied during anonymization. Immutable once declared.
type FieldDefinition struct {
	Name        string
	StorageType string
	Description string
	Policy      Policy
}

// TableSchema is an ordered sequence of field definitions for one table.
// Field names are unique and each field has exactly one policy.
type TableSchema struct {
	Name   string
	Fields []FieldDefinition
}

// FieldNames returns all field names in declaration order.
func (t TableSchema) FieldNames() []string {
	names := make([]string, len(t.Fields))
	for i, f := range t.Fields {
		names[i] = f.Name
	}
	return names
}

// MaskedFieldNames returns the names of fields with PolicyMasked, in
// declaration order.
func (t TableSchema) MaskedFieldNames() []string {
	var names []string
	for _, f := range t.Fields {
		if f.Policy == PolicyMasked {
			names = append(names, f.Name)
		}
	}
	return names
}

// RetainedFields returns the fields whose values survive anonymization
// (passthrough and derived), in declaration order.
func (t TableSchema) RetainedFields() []FieldDefinition {
	var fields []FieldDefinition
	for _, f := range t.Fields {
		if f.Policy != PolicyMasked {
			fields = append(fields, f)
		}
	}
	return fields
}

// RetainedFieldNames returns the names of fields with PolicyPassthrough or
// PolicyDerived, in declaration order.
func (t TableSchema) RetainedFieldNames() []string {
	var names []string
	for _, f := range t.RetainedFields() {
		names = append(names, f.Name)
	}
	return names
}

// CreateTableSQL generates the CREATE TABLE statement for this schema.
// The output is deterministic: one "name storage_type" pair per line in
// declaration order, so idempotent schema creation can rely on byte-for-byte
// identical regeneration.
func (t TableSchema) CreateTableSQL() string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", t.Name)
	for i, f := range t.Fields {
		b.WriteString("\t")
		b.WriteString(f.Name)
		b.WriteString(" ")
		b.WriteString(f.StorageType)
		if i < len(t.Fields)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString(")")
	return b.String()
}

// ViewDefinition describes a named reporting view. The query references the
// owning table through TablePlaceholder, substituted at materialization time.
type ViewDefinition struct {
	Name        string
	Query       string
	Description string
}

// TemplateError reports a view query that never references its owning table.
type TemplateError struct {
	View string
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("schema: view %q query does not contain the %s placeholder", e.View, TablePlaceholder)
}

// CreateViewSQL generates the CREATE VIEW statement with the table placeholder
// replaced by tableName. Substitution only touches the literal placeholder
// token. Returns a *TemplateError when the query carries no placeholder at all.
func (v ViewDefinition) CreateViewSQL(tableName string) (string, error) {
	if !strings.Contains(v.Query, TablePlaceholder) {
		return "", &TemplateError{View: v.Name}
	}
	query := strings.ReplaceAll(v.Query, TablePlaceholder, tableName)
	return fmt.Sprintf("CREATE VIEW %s AS %s", v.Name, query), nil
}
