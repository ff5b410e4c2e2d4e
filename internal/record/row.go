package record

import (
	"strings"

	"github.com/tablesql/tablesql/internal/queryerr"
	"github.com/tablesql/tablesql/internal/strutil"
)

// Row is an ordered set of Columns, addressable positionally or by
// (optionally table-qualified) name.
type Row struct {
	Schema  Schema
	Columns []Column
}

// NewRow returns an empty row bound to schema, with every column unset.
func NewRow(schema Schema) Row {
	cols := make([]Column, len(schema.Columns))
	for i, m := range schema.Columns {
		cols[i] = NewUnset(m)
	}
	return Row{Schema: schema, Columns: cols}
}

// NewRowFromValues builds a row from one raw text value per schema column,
// resolving each value's backslash escapes the way a literal parsed out of
// an INSERT statement is stored.
func NewRowFromValues(schema Schema, values []string) (Row, error) {
	if len(values) != len(schema.Columns) {
		return Row{}, queryerr.New("expected %d values, got %d", len(schema.Columns), len(values))
	}
	cols := make([]Column, len(values))
	for i, v := range values {
		col, err := NewValue(strutil.Unescape(v), schema.Columns[i])
		if err != nil {
			return Row{}, err
		}
		cols[i] = col
	}
	return Row{Schema: schema, Columns: cols}, nil
}

// ParseRow decodes one table-file data line into a Row bound to schema.
// Cells are whitespace-separated, quote-aware (a quoted cell may contain
// escaped spaces and quotes).
func ParseRow(schema Schema, line string) (Row, error) {
	raws := splitQuotedFields(line)
	if len(raws) != len(schema.Columns) {
		return Row{}, queryerr.New("row has %d cells, schema has %d columns", len(raws), len(schema.Columns))
	}
	cols := make([]Column, len(raws))
	for i, r := range raws {
		col, err := NewValue(r, schema.Columns[i])
		if err != nil {
			return Row{}, err
		}
		cols[i] = col
	}
	return Row{Schema: schema, Columns: cols}, nil
}

// CellAt extracts just the index-th cell of a serialized row line without
// decoding the rest of the row, for scans that only inspect one column.
func CellAt(line string, index int) (string, bool) {
	fields := splitQuotedFields(line)
	if index < 0 || index >= len(fields) {
		return "", false
	}
	return fields[index], true
}

// splitQuotedFields splits line on runs of whitespace, except inside a
// pair of unescaped double quotes, and strips the surrounding quotes from
// each resulting field.
func splitQuotedFields(line string) []string {
	var fields []string
	var cur strings.Builder
	inQuotes := false
	escaped := false
	hasField := false
	flush := func() {
		if hasField {
			fields = append(fields, cur.String())
			cur.Reset()
			hasField = false
		}
	}
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case escaped:
			cur.WriteByte(c)
			escaped = false
			hasField = true
		case c == '\\':
			escaped = true
			hasField = true
		case c == '"':
			inQuotes = !inQuotes
			hasField = true
		case (c == ' ' || c == '\t') && !inQuotes:
			flush()
		default:
			cur.WriteByte(c)
			hasField = true
		}
	}
	flush()
	return fields
}

// Serialize renders the row as a table-file data line: quoted,
// backslash-escaped cells separated by single spaces.
func (r Row) Serialize() string {
	parts := make([]string, len(r.Columns))
	for i, c := range r.Columns {
		parts[i] = `"` + strutil.GetEscapedString(c.Sentinel()) + `"`
	}
	return strings.Join(parts, " ")
}

// GetColumn looks up a column by name, optionally qualified as
// "table.column". An unqualified name that matches more than one column
// (as can happen in a joined row) is an ambiguous-column error raised at
// lookup time.
func (r Row) GetColumn(name string) (Column, error) {
	col, found, err := r.LookupColumn(name)
	if err != nil {
		return Column{}, err
	}
	if !found {
		return Column{}, queryerr.New("column %s does not exist", name)
	}
	return col, nil
}

// LookupColumn is GetColumn's non-erroring-on-absence counterpart: it
// reports found=false for a name that matches nothing (so a caller can
// fall back to treating the token as a literal instead), but still
// surfaces an error for a genuinely ambiguous unqualified name.
func (r Row) LookupColumn(name string) (col Column, found bool, err error) {
	colName, tableName := name, ""
	if idx := strings.IndexByte(name, '.'); idx >= 0 {
		tableName = strutil.ExtractQuoted(name[:idx])
		colName = strutil.ExtractQuoted(name[idx+1:])
	}
	for _, c := range r.Columns {
		if c.Metadata.ColumnName != colName {
			continue
		}
		if tableName == "" {
			if found {
				return Column{}, false, queryerr.New("ambiguous column: %s", colName)
			}
			col = c
			found = true
		} else if c.Metadata.TableName == tableName {
			col = c
			found = true
		}
	}
	return col, found, nil
}

// GetColumnIndex returns the position of an unqualified column name, or
// -1 if it is not present.
func (r Row) GetColumnIndex(name string) int {
	for i, c := range r.Columns {
		if c.Metadata.ColumnName == name {
			return i
		}
	}
	return -1
}

// OrderAndFilterColumns replaces the row's columns with exactly the named
// columns, in the given order (used for SELECT's column projection). An
// empty name list is a no-op, meaning "all columns, as stored".
func (r *Row) OrderAndFilterColumns(names []string) error {
	if len(names) == 0 {
		return nil
	}
	newCols := make([]Column, len(names))
	for i, name := range names {
		c, err := r.GetColumn(name)
		if err != nil {
			return err
		}
		newCols[i] = c
	}
	r.Columns = newCols
	return nil
}

// Merge appends other's columns onto r, used to combine a probe row with
// its matched (or blank) build-side row in a join.
func (r *Row) Merge(other Row) {
	r.Columns = append(r.Columns, other.Columns...)
}

// FillBlank returns a new row of count empty-string-valued cells bound to
// schema's first count columns. This is the join's
// fill-on-no-match quirk: an unmatched probe row is merged with blank
// cells, not NULLs.
func FillBlank(schema Schema, count int) Row {
	cols := make([]Column, count)
	for i := 0; i < count; i++ {
		c, _ := NewValue("", schema.Columns[i])
		cols[i] = c
	}
	return Row{Schema: schema, Columns: cols}
}
