package table

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/tablesql/tablesql/internal/queryerr"
	"github.com/tablesql/tablesql/internal/record"
	"github.com/tablesql/tablesql/internal/restriction"
)

// Insert validates and appends one row built from values (one raw text
// value per schema column, in schema order) to the table file.
func (b *Base) Insert(values []string) error {
	row, err := record.NewRowFromValues(b.schema, values)
	if err != nil {
		return err
	}
	if err := b.validateConstraints(row, -1); err != nil {
		return err
	}
	f, err := os.OpenFile(Path(b.dir, b.name), os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("table: insert: %w", err)
	}
	defer f.Close()
	if _, err := fmt.Fprintln(f, row.Serialize()); err != nil {
		return fmt.Errorf("table: insert: %w", err)
	}
	return nil
}

// validateConstraints checks NOT NULL, primary-key uniqueness, and
// foreign-key references for row. skipRowIndex excludes a row position
// from the PK uniqueness scan (used by Update, to not compare a row
// against its own pre-update self).
func (b *Base) validateConstraints(row record.Row, skipRowIndex int) error {
	for i, col := range row.Columns {
		m := col.Metadata
		if col.HasValue() {
			if err := record.ValidateType(col.String(), m); err != nil {
				return err
			}
		}
		if m.NotNull && col.IsNull() {
			return queryerr.New("column %s cannot be null", m.ColumnName)
		}
		if m.PrimaryKey && col.HasValue() {
			if err := b.checkDuplicatePK(i, col, skipRowIndex); err != nil {
				return err
			}
		}
		if m.References != "" && col.HasValue() {
			if err := b.validateReference(m, col.String()); err != nil {
				return err
			}
		}
	}
	return nil
}

// checkDuplicatePK scans the table file decoding only the target column
// position of each row, not the whole row, to see whether value already
// occurs.
func (b *Base) checkDuplicatePK(colIndex int, value record.Column, skipRowIndex int) error {
	f, err := os.Open(Path(b.dir, b.name))
	if err != nil {
		return fmt.Errorf("table: pk scan: %w", err)
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	scanner.Scan() // header
	idx := -1
	for scanner.Scan() {
		idx++
		if idx == skipRowIndex {
			continue
		}
		existing, ok := record.CellAt(scanner.Text(), colIndex)
		if ok && existing == value.String() {
			return queryerr.New("Primary key must be unique: column %s already has value %s", value.Metadata.ColumnName, value.String())
		}
	}
	return scanner.Err()
}

func (b *Base) validateReference(m record.ColumnMetadata, value string) error {
	parts := strings.SplitN(m.References, ".", 2)
	if len(parts) != 2 {
		return queryerr.New("malformed reference: %s", m.References)
	}
	refTable, refCol := parts[0], parts[1]
	target, err := Open(b.dir, refTable)
	if err != nil {
		return err
	}
	cur, err := target.Open()
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
			break
		}
		col, err := row.GetColumn(refCol)
		if err != nil {
			return err
		}
		if col.HasValue() && col.String() == value {
			return nil
		}
	}
	return queryerr.New("value %s does not reference %s", value, m.References)
}

// ValidateReferencedBy reports an error if some column in some other table
// in dir currently has a foreign key pointing at table.column = oldValue,
// guarding an UPDATE or DELETE that would otherwise orphan it. Every
// candidate table file is scanned concurrently; the first live reference
// found cancels the rest.
func ValidateReferencedBy(dir, table, column, oldValue string) error {
	names, err := ListTables(dir)
	if err != nil {
		return err
	}
	g, ctx := errgroup.WithContext(context.Background())
	for _, candidate := range names {
		candidate := candidate
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			return checkReferencedByIn(dir, candidate, table, column, oldValue)
		})
	}
	return g.Wait()
}

func checkReferencedByIn(dir, candidateTable, table, column, oldValue string) error {
	tbl, err := Open(dir, candidateTable)
	if err != nil {
		return err
	}
	for _, m := range tbl.Schema().Columns {
		if m.References != table+"."+column {
			continue
		}
		if err := scanForLiveReference(tbl, m.ColumnName, candidateTable, oldValue); err != nil {
			return err
		}
	}
	return nil
}

func scanForLiveReference(tbl *Base, colName, candidateTable, oldValue string) error {
	cur, err := tbl.Open()
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
		col, err := row.GetColumn(colName)
		if err != nil {
			return err
		}
		if col.HasValue() && col.String() == oldValue {
			return queryerr.New("column %s.%s references a value being modified or deleted",
				candidateTable, colName)
		}
	}
}

// Update rewrites every row matching r, applying assignments (column name
// -> new raw text value) to each match, via a temp-file-then-rename
// rewrite of the whole table.
func (b *Base) Update(r restriction.Restriction, assignCols, assignVals []string) (int, error) {
	if r.IsEmpty() {
		for _, colName := range assignCols {
			idx := b.schema.IndexOf(colName)
			if idx >= 0 && b.schema.Columns[idx].PrimaryKey {
				return 0, queryerr.New("cannot update primary key column %s without a WHERE restriction", colName)
			}
		}
	}
	rows, err := b.readAllRows()
	if err != nil {
		return 0, err
	}
	affected := 0
	for i := range rows {
		match, err := r.Apply(rows[i])
		if err != nil {
			return 0, err
		}
		if !match {
			continue
		}
		updated := rows[i]
		updated.Columns = append([]record.Column(nil), rows[i].Columns...)
		for j, colName := range assignCols {
			idx := updated.GetColumnIndex(colName)
			if idx < 0 {
				return 0, queryerr.New("column %s does not exist", colName)
			}
			col, err := record.NewValue(assignVals[j], updated.Columns[idx].Metadata)
			if err != nil {
				return 0, err
			}
			updated.Columns[idx] = col
		}
		if err := b.validateConstraints(updated, i); err != nil {
			return 0, err
		}
		for _, colName := range assignCols {
			idx := rows[i].GetColumnIndex(colName)
			oldCol := rows[i].Columns[idx]
			if !oldCol.HasValue() {
				continue
			}
			newCol := updated.Columns[idx]
			if newCol.HasValue() && newCol.String() == oldCol.String() {
				continue // unchanged, nothing to guard
			}
			if err := ValidateReferencedBy(b.dir, b.name, colName, oldCol.String()); err != nil {
				return 0, err
			}
		}
		rows[i] = updated
		affected++
	}
	if err := b.rewrite(rows); err != nil {
		return 0, err
	}
	return affected, nil
}

// Delete removes every row matching r via the same temp-file-then-rename
// rewrite, guarding every non-null cell of each deleted row against being
// currently referenced by a foreign key.
func (b *Base) Delete(r restriction.Restriction) (int, error) {
	rows, err := b.readAllRows()
	if err != nil {
		return 0, err
	}
	var kept []record.Row
	affected := 0
	for _, row := range rows {
		match, err := r.Apply(row)
		if err != nil {
			return 0, err
		}
		if !match {
			kept = append(kept, row)
			continue
		}
		for _, col := range row.Columns {
			if col.HasValue() {
				if err := ValidateReferencedBy(b.dir, b.name, col.Metadata.ColumnName, col.String()); err != nil {
					return 0, err
				}
			}
		}
		affected++
	}
	if err := b.rewrite(kept); err != nil {
		return 0, err
	}
	return affected, nil
}

func (b *Base) readAllRows() ([]record.Row, error) {
	cur, err := b.Open()
	if err != nil {
		return nil, err
	}
	defer cur.Close()
	return Materialize(cur)
}

// rewrite writes rows to a fresh temp file and renames it over the table
// file, so a crash mid-write never leaves a half-written table.
func (b *Base) rewrite(rows []record.Row) error {
	tmp := tempPath(b.dir, b.name)
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("table: rewrite: %w", err)
	}
	if _, err := fmt.Fprintln(f, b.schema.Serialize()); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("table: rewrite header: %w", err)
	}
	for _, row := range rows {
		if _, err := fmt.Fprintln(f, row.Serialize()); err != nil {
			f.Close()
			os.Remove(tmp)
			return fmt.Errorf("table: rewrite row: %w", err)
		}
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("table: rewrite close: %w", err)
	}
	if err := os.Rename(tmp, Path(b.dir, b.name)); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("table: rewrite rename: %w", err)
	}
	return nil
}
