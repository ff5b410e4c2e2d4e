package record

import (
	"strings"

	"github.com/tablesql/tablesql/internal/queryerr"
)

// Schema is the ordered list of column metadata for a table (or, for a
// joined stream, the concatenation of two tables' schemas with the probe
// side first).
type Schema struct {
	TableName string
	Columns   []ColumnMetadata
}

// NewSchema builds a Schema for table from cols, validating that no column
// name repeats.
func NewSchema(table string, cols []ColumnMetadata) (Schema, error) {
	seen := make(map[string]bool, len(cols))
	pkSeen := false
	for _, c := range cols {
		if seen[c.ColumnName] {
			return Schema{}, queryerr.New("duplicate column name: %s", c.ColumnName)
		}
		seen[c.ColumnName] = true
		if c.PrimaryKey {
			if pkSeen {
				return Schema{}, queryerr.New("table %s declares more than one primary key", table)
			}
			pkSeen = true
		}
	}
	return Schema{TableName: table, Columns: cols}, nil
}

// ParseSchema decodes a table file's header line (tab-separated
// per-column metadata tokens) into a Schema.
func ParseSchema(table, line string) (Schema, error) {
	tokens := strings.Split(line, "\t")
	cols := make([]ColumnMetadata, 0, len(tokens))
	for _, tok := range tokens {
		if strings.TrimSpace(tok) == "" {
			continue
		}
		m, err := parseColumnMetadata(table, tok)
		if err != nil {
			return Schema{}, err
		}
		cols = append(cols, m)
	}
	return NewSchema(table, cols)
}

// Serialize renders the Schema as the tab-separated header line written as
// the first line of a table file.
func (s Schema) Serialize() string {
	parts := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		parts[i] = c.serialize()
	}
	return strings.Join(parts, "\t")
}

// HasColumn reports whether name (unqualified) exists in the schema.
func (s Schema) HasColumn(name string) bool {
	for _, c := range s.Columns {
		if c.ColumnName == name {
			return true
		}
	}
	return false
}

// IndexOf returns the position of the unqualified column name, or -1.
func (s Schema) IndexOf(name string) int {
	for i, c := range s.Columns {
		if c.ColumnName == name {
			return i
		}
	}
	return -1
}

// Merge appends other's columns to s, used to build a joined schema
// (probe schema first, build schema second).
func (s *Schema) Merge(other Schema) {
	s.Columns = append(s.Columns, other.Columns...)
}

// Clone returns an independent copy of the schema's column slice.
func (s Schema) Clone() Schema {
	cols := make([]ColumnMetadata, len(s.Columns))
	copy(cols, s.Columns)
	return Schema{TableName: s.TableName, Columns: cols}
}
