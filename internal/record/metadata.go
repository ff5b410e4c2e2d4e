// Package record implements the typed column/value model: ColumnMetadata,
// Schema, Column, and Row, and their on-disk text serialization.
package record

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tablesql/tablesql/internal/queryerr"
	"github.com/tablesql/tablesql/internal/strutil"
)

// Kind is the scalar type family a column's raw text is interpreted
// under.
type Kind int

const (
	KindInt Kind = iota
	KindBigInt
	KindFloat
	KindDouble
	KindChar
	KindVarchar
	KindDate
	KindTime
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindBigInt:
		return "bigint"
	case KindFloat:
		return "float"
	case KindDouble:
		return "double"
	case KindChar:
		return "char"
	case KindVarchar:
		return "varchar"
	case KindDate:
		return "date"
	case KindTime:
		return "time"
	default:
		return "unknown"
	}
}

// ColumnMetadata describes one column of a table: its declared SQL type,
// the table it belongs to, and any constraints (NOT NULL, PRIMARY KEY, a
// foreign-key reference).
type ColumnMetadata struct {
	ColumnName string
	TableName  string
	Type       string // raw declared type, e.g. "varchar(25)"
	Kind       Kind
	Length     int // meaningful for char/varchar only
	References string // "table.column", or "" if none
	PrimaryKey bool
	NotNull    bool
}

// ParseType decodes a raw declared type string (e.g. "int", "varchar(25)")
// into a Kind and, for char/varchar, a length.
func ParseType(raw string) (Kind, int, error) {
	lower := strutil.Fold(raw)
	switch {
	case lower == "int":
		return KindInt, 0, nil
	case lower == "bigint":
		return KindBigInt, 0, nil
	case lower == "float":
		return KindFloat, 0, nil
	case lower == "double":
		return KindDouble, 0, nil
	case lower == "date":
		return KindDate, 0, nil
	case lower == "time":
		return KindTime, 0, nil
	case strings.HasPrefix(lower, "char(") || strings.HasPrefix(lower, "varchar("):
		open := strings.IndexByte(raw, '(')
		close := strings.IndexByte(raw, ')')
		if open < 0 || close < 0 || close < open {
			return 0, 0, queryerr.New("invalid type declaration: %s", raw)
		}
		n, err := strconv.Atoi(strings.TrimSpace(raw[open+1 : close]))
		if err != nil || n <= 0 {
			return 0, 0, queryerr.New("invalid length for type: %s", raw)
		}
		if strings.HasPrefix(lower, "char(") {
			return KindChar, n, nil
		}
		return KindVarchar, n, nil
	default:
		return 0, 0, queryerr.New("unknown column type: %s", raw)
	}
}

// NewColumnMetadata builds a ColumnMetadata from parsed fields, resolving
// Kind/Length from Type.
func NewColumnMetadata(name, table, typ, references string, primaryKey, notNull bool) (ColumnMetadata, error) {
	kind, length, err := ParseType(typ)
	if err != nil {
		return ColumnMetadata{}, err
	}
	if primaryKey {
		notNull = true // primary-key implies not-null
	}
	return ColumnMetadata{
		ColumnName: name,
		TableName:  table,
		Type:       typ,
		Kind:       kind,
		Length:     length,
		References: references,
		PrimaryKey: primaryKey,
		NotNull:    notNull,
	}, nil
}

// serialize renders one column's metadata as the five quoted/boolean
// tokens used in a table file's header line.
func (m ColumnMetadata) serialize() string {
	ref := m.References
	return fmt.Sprintf("%q %q %q %t %t", m.ColumnName, m.Type, ref, m.PrimaryKey, m.NotNull)
}

func parseColumnMetadata(table, token string) (ColumnMetadata, error) {
	fields := strutil.Split(token, ' ', true)
	if len(fields) != 5 {
		return ColumnMetadata{}, queryerr.New("malformed column metadata: %s", token)
	}
	name := strutil.ExtractQuoted(fields[0])
	typ := strutil.ExtractQuoted(fields[1])
	ref := strutil.ExtractQuoted(fields[2])
	pk := strutil.Fold(fields[3]) == "true"
	notNull := strutil.Fold(fields[4]) == "true"
	return NewColumnMetadata(name, table, typ, ref, pk, notNull)
}
