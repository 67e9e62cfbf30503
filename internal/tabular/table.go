package tabular

import (
	"strings"
)

// DefaultColumn is the canonical identifier column name.
const DefaultColumn = "Uid"

// DefaultAliases are header names accepted in place of the canonical column.
var DefaultAliases = []string{"uid", "uids", "user_id", "userid", "client_id", "clientid", "identifier"}

// Column is one named column of a decoded table.
type Column struct {
	Name   string
	Values []string
}

// Table is a decoded file in column-oriented form. All cells are strings;
// decoders never infer types.
type Table struct {
	Columns []Column
}

// Names returns the column headers in order.
func (t *Table) Names() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// fromRows builds a column-oriented table from a header row and data rows.
// Short rows are padded with empty cells; extra cells are dropped.
func fromRows(header []string, rows [][]string) *Table {
	t := &Table{Columns: make([]Column, len(header))}
	for i, h := range header {
		t.Columns[i] = Column{Name: strings.TrimSpace(h), Values: make([]string, 0, len(rows))}
	}
	for _, row := range rows {
		for i := range t.Columns {
			var cell string
			if i < len(row) {
				cell = row[i]
			}
			t.Columns[i].Values = append(t.Columns[i].Values, cell)
		}
	}
	return t
}

// Resolution describes how the identifier column was found.
type Resolution string

const (
	ResolvedSingleColumn Resolution = "single-column"
	ResolvedCanonical    Resolution = "canonical"
)

// resolvedAlias returns the Resolution for a matched alias header.
func resolvedAlias(name string) Resolution {
	return Resolution("alias:" + name)
}

// columnNormalizer applies the identifier column rules to a Table.
type columnNormalizer struct {
	canonical string
	aliases   []string
}

// normalize projects t down to the identifier column.
//
//  1. A table with exactly one column is the identifier column, whatever its header.
//  2. Otherwise the canonical name, then each alias in order, is looked up
//     case-insensitively and the first hit is used.
//  3. If nothing matched, the column is missing.
func (n columnNormalizer) normalize(t *Table) (Column, Resolution, bool) {
	if len(t.Columns) == 1 {
		c := t.Columns[0]
		return Column{Name: n.canonical, Values: c.Values}, ResolvedSingleColumn, true
	}

	candidates := append([]string{n.canonical}, n.aliases...)
	for i, want := range candidates {
		for _, c := range t.Columns {
			if !strings.EqualFold(c.Name, want) {
				continue
			}
			how := ResolvedCanonical
			if i > 0 {
				how = resolvedAlias(c.Name)
			}
			return Column{Name: n.canonical, Values: c.Values}, how, true
		}
	}
	return Column{}, "", false
}

// compact trims cells and drops blanks.
func compact(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
