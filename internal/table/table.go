// Package table implements the streaming table engine: reading rows from
// a backing local table file or a remote HTTP-sourced table, filtering by
// restriction, projecting columns, de-duplicating, ordering, and — for
// local tables only — insert/update/delete with constraint validation and
// an atomic temp-file-rename rewrite discipline.
package table

import (
	"sort"
	"strings"

	"github.com/tablesql/tablesql/internal/record"
	"github.com/tablesql/tablesql/internal/restriction"
)

// Cursor streams rows one at a time. Next returns (row, true, nil) for
// each row, (zero, false, nil) at end of stream, or a non-nil error on
// failure.
type Cursor interface {
	Next() (record.Row, bool, error)
	Close() error
}

// Table is the read-side contract shared by a local file-backed table and
// a hash-joined stream: enough to open a streaming cursor and report a row
// count used by the join operator to pick its build side.
type Table interface {
	Schema() record.Schema
	RowCount() (int, error)
	Open() (Cursor, error)
}

// sliceCursor serves rows from an in-memory slice, used once a stream has
// been fully materialized (ORDER BY results, or a remote table's fetched
// rows).
type sliceCursor struct {
	rows []record.Row
	pos  int
}

func NewSliceCursor(rows []record.Row) Cursor {
	return &sliceCursor{rows: rows}
}

func (c *sliceCursor) Next() (record.Row, bool, error) {
	if c.pos >= len(c.rows) {
		return record.Row{}, false, nil
	}
	r := c.rows[c.pos]
	c.pos++
	return r, true, nil
}

func (c *sliceCursor) Close() error { return nil }

// restrictedCursor filters an inner cursor's rows through a compiled
// restriction, yielding only matching rows.
type restrictedCursor struct {
	inner Cursor
	r     restriction.Restriction
}

// NewRestrictedCursor wraps inner so that only rows satisfying r are
// yielded.
func NewRestrictedCursor(inner Cursor, r restriction.Restriction) Cursor {
	return &restrictedCursor{inner: inner, r: r}
}

func (c *restrictedCursor) Next() (record.Row, bool, error) {
	for {
		row, ok, err := c.inner.Next()
		if err != nil || !ok {
			return row, ok, err
		}
		match, err := c.r.Apply(row)
		if err != nil {
			return record.Row{}, false, err
		}
		if match {
			return row, true, nil
		}
	}
}

func (c *restrictedCursor) Close() error { return c.inner.Close() }

// projectingCursor applies column projection (SELECT's column list) to
// every row of an inner cursor.
type projectingCursor struct {
	inner Cursor
	cols  []string
}

func NewProjectingCursor(inner Cursor, cols []string) Cursor {
	if len(cols) == 0 {
		return inner
	}
	return &projectingCursor{inner: inner, cols: cols}
}

func (c *projectingCursor) Next() (record.Row, bool, error) {
	row, ok, err := c.inner.Next()
	if err != nil || !ok {
		return row, ok, err
	}
	if err := row.OrderAndFilterColumns(c.cols); err != nil {
		return record.Row{}, false, err
	}
	return row, true, nil
}

func (c *projectingCursor) Close() error { return c.inner.Close() }

// distinctCursor drops rows whose fingerprint (each column's unqualified
// name and value, in order) has already been seen.
type distinctCursor struct {
	inner Cursor
	seen  map[string]bool
}

func NewDistinctCursor(inner Cursor) Cursor {
	return &distinctCursor{inner: inner, seen: make(map[string]bool)}
}

func (c *distinctCursor) Next() (record.Row, bool, error) {
	for {
		row, ok, err := c.inner.Next()
		if err != nil || !ok {
			return row, ok, err
		}
		key := fingerprint(row)
		if !c.seen[key] {
			c.seen[key] = true
			return row, true, nil
		}
	}
}

func (c *distinctCursor) Close() error { return c.inner.Close() }

func fingerprint(row record.Row) string {
	var b strings.Builder
	for _, col := range row.Columns {
		b.WriteString(col.Metadata.ColumnName)
		b.WriteByte('=')
		b.WriteString(col.Sentinel())
		b.WriteByte(';')
	}
	return b.String()
}

// Materialize drains cur into a slice, for operators (ORDER BY) that need
// every row at once.
func Materialize(cur Cursor) ([]record.Row, error) {
	var rows []record.Row
	for {
		row, ok, err := cur.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// SortRows stably sorts rows by the named columns (comma list already
// split by the caller), ascending unless desc is set. Ties on all columns
// preserve input order, matching a stable sort.
func SortRows(rows []record.Row, cols []string, desc bool) error {
	var sortErr error
	sort.SliceStable(rows, func(i, j int) bool {
		if sortErr != nil {
			return false
		}
		for _, name := range cols {
			a, err := rows[i].GetColumn(name)
			if err != nil {
				sortErr = err
				return false
			}
			b, err := rows[j].GetColumn(name)
			if err != nil {
				sortErr = err
				return false
			}
			cmp := record.Compare(a, b)
			if cmp == 0 {
				continue
			}
			if desc {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
	return sortErr
}
