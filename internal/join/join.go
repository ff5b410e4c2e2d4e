// Package join implements the hash-join operator composing two streaming
// tables into one: the smaller-row-count side is loaded into an in-memory
// build map keyed by its join-condition columns, and the larger side is
// streamed probe-wise against that map.
package join

import (
	"strings"

	"github.com/tablesql/tablesql/internal/queryerr"
	"github.com/tablesql/tablesql/internal/record"
	"github.com/tablesql/tablesql/internal/restriction"
	"github.com/tablesql/tablesql/internal/table"
)

// Joined is a read-only, streaming hash join of two tables. It cannot be
// mutated: INSERT/UPDATE/DELETE against a joined result is always a hard
// error, matching a single base table being the only valid DML target.
type Joined struct {
	probe     table.Table
	build     table.Table
	schema    record.Schema
	joinMap   map[string]record.Row
	columnMap map[string]string // probe-side column name as written in the condition -> build-side column name
}

// New builds a Joined table from table1 and table2. joinCondition is the
// space-joined "col = col [col = col ...]" token string extracted by the
// parser (triples follow one another with no AND between them); an empty string means no equi-join condition was given, and
// rows are zipped in lock-step, the build side wrapping around when it
// runs out (not a full cross product).
func New(table1, table2 table.Table, joinCondition string) (*Joined, error) {
	build, probe, err := assignBuildAndProbe(table1, table2)
	if err != nil {
		return nil, err
	}
	schema := probe.Schema().Clone()
	schema.Merge(build.Schema())

	j := &Joined{
		probe:     probe,
		build:     build,
		schema:    schema,
		joinMap:   make(map[string]record.Row),
		columnMap: make(map[string]string),
	}
	if strings.TrimSpace(joinCondition) == "" {
		return j, nil
	}
	parts := strings.Fields(joinCondition)
	if err := j.parseJoinCondition(parts); err != nil {
		return nil, err
	}
	return j, nil
}

func assignBuildAndProbe(t1, t2 table.Table) (build, probe table.Table, err error) {
	n1, err := t1.RowCount()
	if err != nil {
		return nil, nil, err
	}
	n2, err := t2.RowCount()
	if err != nil {
		return nil, nil, err
	}
	if n1 > n2 {
		return t2, t1, nil
	}
	return t1, t2, nil
}

// parseJoinCondition walks "col = col" triples, deciding per triple which
// side is the build table's column (by checking its schema), and
// populates columnMap + buildJoinMap. Equality is the only supported join
// operator.
func (j *Joined) parseJoinCondition(parts []string) error {
	if len(parts)%3 != 0 {
		return queryerr.New("malformed join condition")
	}
	var buildCols []string
	for i := 0; i < len(parts); i += 3 {
		if parts[i+1] != "=" {
			return queryerr.New("joins currently only support the = operator")
		}
		left, right := parts[i], parts[i+2]
		if j.build.Schema().HasColumn(unqualify(left)) {
			j.columnMap[right] = unqualify(left)
			buildCols = append(buildCols, unqualify(left))
		} else {
			j.columnMap[left] = unqualify(right)
			buildCols = append(buildCols, unqualify(right))
		}
	}
	return j.buildJoinMap(buildCols)
}

func unqualify(s string) string {
	if idx := strings.IndexByte(s, '.'); idx >= 0 {
		return s[idx+1:]
	}
	return s
}

// buildJoinMap scans the build table once, populating joinMap keyed by
// "colName=value" for every name in colNames. A duplicate key overwrites
// the previous row: the last matching build row wins.
func (j *Joined) buildJoinMap(colNames []string) error {
	cur, err := j.build.Open()
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
		for _, name := range colNames {
			col, err := row.GetColumn(name)
			if err != nil {
				continue
			}
			j.joinMap[name+"="+col.String()] = row
		}
	}
	return nil
}

func (j *Joined) Schema() record.Schema { return j.schema }
func (j *Joined) RowCount() (int, error) { return j.probe.RowCount() }

// Open returns a fresh cursor over the joined stream.
func (j *Joined) Open() (table.Cursor, error) {
	probeCur, err := j.probe.Open()
	if err != nil {
		return nil, err
	}
	buildCur, err := j.build.Open()
	if err != nil {
		probeCur.Close()
		return nil, err
	}
	return &cursor{j: j, probe: probeCur, build: buildCur}, nil
}

type cursor struct {
	j     *Joined
	probe table.Cursor
	build table.Cursor
}

func (c *cursor) Close() error {
	err1 := c.probe.Close()
	err2 := c.build.Close()
	if err1 != nil {
		return err1
	}
	return err2
}

func (c *cursor) Next() (record.Row, bool, error) {
	for {
		row, ok, err := c.probe.Next()
		if err != nil || !ok {
			return row, ok, err
		}
		if len(c.j.joinMap) == 0 {
			build, ok, err := c.build.Next()
			if err != nil {
				return record.Row{}, false, err
			}
			if !ok {
				// build side exhausted: wrap around and take its first row.
				fresh, err := c.j.build.Open()
				if err != nil {
					return record.Row{}, false, err
				}
				c.build.Close()
				c.build = fresh
				build, ok, err = c.build.Next()
				if err != nil || !ok {
					return record.Row{}, false, err
				}
			}
			row.Merge(build)
			return row, true, nil
		}
		if err := c.extractJoined(&row); err != nil {
			return record.Row{}, false, err
		}
		return row, true, nil
	}
}

// extractJoined finds, among row's own columns, the one the join
// condition maps to the build side, and merges in the matching build row
// — or, on no match, a blank-filled row, implementing the join's left
// outer fallback.
func (c *cursor) extractJoined(row *record.Row) error {
	for _, col := range row.Columns {
		name := col.Metadata.ColumnName
		buildCol, ok := c.j.columnMap[name]
		if !ok {
			qualified := col.Metadata.TableName + "." + name
			buildCol, ok = c.j.columnMap[qualified]
		}
		if !ok || !col.HasValue() {
			continue
		}
		if match, found := c.j.joinMap[buildCol+"="+col.String()]; found {
			row.Merge(match)
			return nil
		}
	}
	blank := record.FillBlank(c.j.build.Schema(), len(c.j.build.Schema().Columns))
	row.Merge(blank)
	return nil
}

// Insert, Update, and Delete are never valid against a joined table.
func (j *Joined) Insert([]string) error {
	return queryerr.New("cannot insert rows into a joined table")
}

func (j *Joined) Update(restriction.Restriction, []string, []string) (int, error) {
	return 0, queryerr.New("cannot update rows in a joined table")
}

func (j *Joined) Delete(restriction.Restriction) (int, error) {
	return 0, queryerr.New("cannot delete rows in a joined table")
}
