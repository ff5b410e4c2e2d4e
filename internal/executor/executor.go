// Package executor dispatches a parsed Query to the schema, table, and
// join engines, enforcing CREATE/DROP-time reference checks and applying
// SELECT's operators in the fixed order restriction, ORDER BY, column
// projection, DISTINCT — the DISTINCT fingerprint is always taken from
// the already-projected row, per extractRow's projection-then-fingerprint
// order.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tablesql/tablesql/internal/join"
	"github.com/tablesql/tablesql/internal/queryerr"
	"github.com/tablesql/tablesql/internal/record"
	"github.com/tablesql/tablesql/internal/restriction"
	"github.com/tablesql/tablesql/internal/sql/parser"
	"github.com/tablesql/tablesql/internal/table"
	"github.com/tablesql/tablesql/internal/tablelock"
)

// Executor runs parsed queries against the table files rooted at Dir.
type Executor struct {
	Dir          string
	FetchTimeout time.Duration
	Locks        *tablelock.Registry
	Log          *slog.Logger
}

// New returns an Executor rooted at dir.
func New(dir string, fetchTimeout time.Duration) *Executor {
	return &Executor{
		Dir:          dir,
		FetchTimeout: fetchTimeout,
		Locks:        tablelock.NewRegistry(),
		Log:          slog.Default(),
	}
}

// ExecSQL parses and executes one semicolon-terminated SQL statement.
func (e *Executor) ExecSQL(ctx context.Context, sql string) (*Result, error) {
	q, err := parser.Parse(sql)
	if err != nil {
		return nil, err
	}
	switch q.Kind {
	case parser.KindCreate:
		return e.execCreate(q)
	case parser.KindDrop:
		return e.execDrop(q)
	case parser.KindInsert:
		return e.execInsert(q)
	case parser.KindUpdate:
		return e.execUpdate(q)
	case parser.KindDelete:
		return e.execDelete(q)
	case parser.KindSelect:
		return e.execSelect(ctx, q)
	default:
		return nil, queryerr.New("unsupported statement")
	}
}

func (e *Executor) execCreate(q parser.Query) (*Result, error) {
	unlock := e.Locks.Lock(q.Table)
	defer unlock()

	cols := make([]record.ColumnMetadata, 0, len(q.Columns))
	declared := make(map[string]string, len(q.Columns))
	for _, cd := range q.Columns {
		declared[cd.Name] = cd.Type
	}
	for _, cd := range q.Columns {
		ref := cd.References
		if ref != "" {
			// An unqualified reference target ("REFERENCES (col)", no
			// table prefix) names a column of this same table being
			// declared; normalize it to the fully qualified form every
			// runtime check (and the on-disk schema) expects.
			if !strings.Contains(ref, ".") {
				ref = q.Table + "." + ref
			}
			if err := e.validateReferenceTarget(q.Table, ref, cd.Type, declared); err != nil {
				return nil, err
			}
		}
		m, err := record.NewColumnMetadata(cd.Name, q.Table, cd.Type, ref, cd.PrimaryKey, cd.NotNull)
		if err != nil {
			return nil, err
		}
		cols = append(cols, m)
	}
	schema, err := record.NewSchema(q.Table, cols)
	if err != nil {
		return nil, err
	}
	if _, err := table.Create(e.Dir, schema); err != nil {
		return nil, err
	}
	return &Result{Message: fmt.Sprintf("Table %s created.", q.Table)}, nil
}

// validateReferenceTarget checks that a REFERENCES target names either a
// column declared in the same CREATE TABLE statement, or an existing
// column of an already-created table, with the same declared type as the
// referencing column.
func (e *Executor) validateReferenceTarget(selfTable, ref, declaredType string, declaredInSelf map[string]string) error {
	parts := strings.SplitN(ref, ".", 2)
	if len(parts) != 2 {
		return queryerr.New("malformed reference: %s", ref)
	}
	refTable, refCol := parts[0], parts[1]
	if refTable == selfTable {
		refType, ok := declaredInSelf[refCol]
		if !ok {
			return queryerr.New("reference %s does not name a column in this table", ref)
		}
		if refType != declaredType {
			return queryerr.New("column %s does not have data type %s", refCol, declaredType)
		}
		return nil
	}
	other, err := table.Open(e.Dir, refTable)
	if err != nil {
		return err
	}
	idx := other.Schema().IndexOf(refCol)
	if idx < 0 {
		return queryerr.New("referenced column %s does not exist", ref)
	}
	if other.Schema().Columns[idx].Type != declaredType {
		return queryerr.New("column %s in table %s does not have data type %s", refCol, refTable, declaredType)
	}
	return nil
}

func (e *Executor) execDrop(q parser.Query) (*Result, error) {
	unlock := e.Locks.Lock(q.Table)
	defer unlock()

	if err := e.checkNoLiveReferences(q.Table); err != nil {
		return nil, err
	}
	if err := table.Drop(e.Dir, q.Table); err != nil {
		return nil, err
	}
	return &Result{Message: fmt.Sprintf("Table %s dropped.", q.Table)}, nil
}

// checkNoLiveReferences streams every row of the table being dropped and,
// for each cell holding a value, verifies no column in any other table
// still references that value. A table that is referenced only by schema,
// with no live referencing rows, may still be dropped.
func (e *Executor) checkNoLiveReferences(tableName string) error {
	base, err := table.Open(e.Dir, tableName)
	if err != nil {
		return err
	}
	cur, err := base.Open()
	if err != nil {
		return err
	}
	defer cur.Close()
	for {
		row, ok, err := cur.Next()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		for _, col := range row.Columns {
			if !col.HasValue() {
				continue
			}
			if err := table.ValidateReferencedBy(e.Dir, tableName, col.Metadata.ColumnName, col.String()); err != nil {
				return err
			}
		}
	}
}

func (e *Executor) execInsert(q parser.Query) (*Result, error) {
	unlock := e.Locks.Lock(q.Table)
	defer unlock()

	base, err := table.Open(e.Dir, q.Table)
	if err != nil {
		return nil, err
	}
	values, err := coerceInsertValues(base.Schema(), q.InsertColumns, q.InsertValues)
	if err != nil {
		return nil, err
	}
	if err := base.Insert(values); err != nil {
		return nil, err
	}
	return &Result{AffectedRows: 1, Message: "1 row inserted."}, nil
}

// coerceInsertValues reorders an INSERT's column/value lists into one
// value per schema column, in schema order. Every schema column must be
// named by the statement (or the column list omitted entirely, making the
// value list positional).
func coerceInsertValues(schema record.Schema, cols, vals []string) ([]string, error) {
	if len(cols) == 0 {
		if len(vals) != len(schema.Columns) {
			return nil, queryerr.New("expected %d values, got %d", len(schema.Columns), len(vals))
		}
		return vals, nil
	}
	if len(cols) != len(vals) {
		return nil, queryerr.New("number of columns and values must match")
	}
	byName := make(map[string]string, len(cols))
	for i, name := range cols {
		if !schema.HasColumn(name) {
			return nil, queryerr.New("unknown column: %s", name)
		}
		byName[name] = vals[i]
	}
	out := make([]string, len(schema.Columns))
	for i, m := range schema.Columns {
		v, ok := byName[m.ColumnName]
		if !ok {
			return nil, queryerr.New("column not specified: %s", m.ColumnName)
		}
		out[i] = v
	}
	return out, nil
}

func (e *Executor) execUpdate(q parser.Query) (*Result, error) {
	unlock := e.Locks.Lock(q.Table)
	defer unlock()

	base, err := table.Open(e.Dir, q.Table)
	if err != nil {
		return nil, err
	}
	r, err := compileRestriction(q.Where)
	if err != nil {
		return nil, err
	}
	n, err := base.Update(r, q.AssignCols, q.AssignVals)
	if err != nil {
		return nil, err
	}
	return &Result{AffectedRows: n, Message: fmt.Sprintf("%d row(s) updated.", n)}, nil
}

func (e *Executor) execDelete(q parser.Query) (*Result, error) {
	unlock := e.Locks.Lock(q.Table)
	defer unlock()

	base, err := table.Open(e.Dir, q.Table)
	if err != nil {
		return nil, err
	}
	r, err := compileRestriction(q.Where)
	if err != nil {
		return nil, err
	}
	n, err := base.Delete(r)
	if err != nil {
		return nil, err
	}
	return &Result{AffectedRows: n, Message: fmt.Sprintf("%d row(s) deleted.", n)}, nil
}

func compileRestriction(tokens []string) (restriction.Restriction, error) {
	return restriction.Compile(tokens)
}

func (e *Executor) execSelect(ctx context.Context, q parser.Query) (*Result, error) {
	var tbls []table.Table
	var unlocks []func()
	defer func() {
		for _, u := range unlocks {
			u()
		}
	}()
	for _, ref := range q.From {
		if ref.URL != "" {
			e.Log.Info("fetching remote table", "url", ref.URL)
			remote, err := table.Fetch(ctx, ref.URL, e.FetchTimeout)
			if err != nil {
				return nil, err
			}
			tbls = append(tbls, remote)
			continue
		}
		unlocks = append(unlocks, e.Locks.RLock(ref.Name))
		base, err := table.Open(e.Dir, ref.Name)
		if err != nil {
			return nil, err
		}
		tbls = append(tbls, base)
	}

	// Each additional table joins onto the running result, re-reading the
	// same join-condition string; the join operator picks out the triples
	// that bind a column on each side of the pair being joined.
	src := tbls[0]
	for _, t := range tbls[1:] {
		joined, err := join.New(src, t, q.JoinCondition)
		if err != nil {
			return nil, err
		}
		src = joined
	}

	r, err := compileRestriction(q.Where)
	if err != nil {
		return nil, err
	}
	cur, err := src.Open()
	if err != nil {
		return nil, err
	}
	defer cur.Close()
	cur = table.NewRestrictedCursor(cur, r)

	if q.OrderByCols != "" {
		rows, err := table.Materialize(cur)
		if err != nil {
			return nil, err
		}
		cols := strings.Split(q.OrderByCols, ",")
		if err := table.SortRows(rows, cols, q.OrderDesc); err != nil {
			return nil, err
		}
		cur = table.NewSliceCursor(rows)
	}
	cur = table.NewProjectingCursor(cur, q.SelectColumns)
	if q.Distinct {
		cur = table.NewDistinctCursor(cur)
	}

	rows, err := table.Materialize(cur)
	if err != nil {
		return nil, err
	}

	var columns, types []string
	if len(rows) > 0 {
		for _, c := range rows[0].Columns {
			columns = append(columns, c.Metadata.ColumnName)
			types = append(types, c.Metadata.Type)
		}
	} else {
		columns, types = selectedColumnInfo(src.Schema(), q.SelectColumns)
	}
	out := make([][]string, len(rows))
	for i, row := range rows {
		cells := make([]string, len(row.Columns))
		for j, c := range row.Columns {
			cells[j] = c.String()
		}
		out[i] = cells
	}
	return &Result{Columns: columns, ColumnTypes: types, Rows: out, AffectedRows: len(rows)}, nil
}

func selectedColumnInfo(schema record.Schema, requested []string) (names, types []string) {
	if len(requested) > 0 {
		names = make([]string, len(requested))
		types = make([]string, len(requested))
		for i, r := range requested {
			name := r
			if idx := strings.IndexByte(r, '.'); idx >= 0 {
				name = r[idx+1:]
			}
			names[i] = name
			if idx := schema.IndexOf(name); idx >= 0 {
				types[i] = schema.Columns[idx].Type
			}
		}
		return names, types
	}
	names = make([]string, len(schema.Columns))
	types = make([]string, len(schema.Columns))
	for i, c := range schema.Columns {
		names[i] = c.ColumnName
		types[i] = c.Type
	}
	return names, types
}
