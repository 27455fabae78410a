package repository

import (
	"strconv"
	"strings"
)

// LeadColumns lists the leads table columns in scan order. It must match the
// schema in the postgres migrations and the sqlite initSchema.
var LeadColumns = TableColumns{
	TableName: "leads",
	Columns: []string{
		"id",
		"name",
		"email",
		"goal",
		"experience",
		"frequency",
		"timeline",
		"source",
		"fingerprint",
		"created_at",
		"updated_at",
	},
}

// TableColumns builds column lists and placeholders for one table so that
// queries in each driver stay in step with the schema.
type TableColumns struct {
	TableName string
	Columns   []string
}

// Select returns the comma separated column list.
func (tc TableColumns) Select() string {
	return strings.Join(tc.Columns, ", ")
}

// Placeholders returns PostgreSQL style placeholders ($1, $2, ...).
func (tc TableColumns) Placeholders() string {
	ph := make([]string, len(tc.Columns))
	for i := range tc.Columns {
		ph[i] = "$" + strconv.Itoa(i+1)
	}
	return strings.Join(ph, ", ")
}

// QuestionMarks returns SQLite style placeholders (?, ?, ...).
func (tc TableColumns) QuestionMarks() string {
	return strings.TrimSuffix(strings.Repeat("?, ", len(tc.Columns)), ", ")
}

// ExcludedSet returns "col = excluded.col" for every column not in keep, for
// use in ON CONFLICT ... DO UPDATE SET. Both drivers accept this form.
func (tc TableColumns) ExcludedSet(keep ...string) string {
	skip := make(map[string]bool, len(keep))
	for _, col := range keep {
		skip[col] = true
	}
	var parts []string
	for _, col := range tc.Columns {
		if !skip[col] {
			parts = append(parts, col+" = excluded."+col)
		}
	}
	return strings.Join(parts, ", ")
}

// Count returns the number of columns.
func (tc TableColumns) Count() int {
	return len(tc.Columns)
}
