package executor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestExecutor(t *testing.T) *Executor {
	t.Helper()
	return New(t.TempDir(), 5*time.Second)
}

func TestEndToEndCreateInsertSelect(t *testing.T) {
	ctx := context.Background()
	e := newTestExecutor(t)

	_, err := e.ExecSQL(ctx, `CREATE TABLE people (id int PRIMARY KEY, name varchar(20) NOT NULL);`)
	require.NoError(t, err)

	_, err = e.ExecSQL(ctx, `INSERT INTO people (id, name) VALUES ("1", "Ada");`)
	require.NoError(t, err)
	_, err = e.ExecSQL(ctx, `INSERT INTO people (id, name) VALUES ("2", "Grace");`)
	require.NoError(t, err)

	res, err := e.ExecSQL(ctx, `SELECT * FROM people WHERE id > 1;`)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	require.Equal(t, "Grace", res.Rows[0][1])
}

func TestCreateRejectsBadReference(t *testing.T) {
	ctx := context.Background()
	e := newTestExecutor(t)
	_, err := e.ExecSQL(ctx, `CREATE TABLE employees (id int PRIMARY KEY, dept_id int REFERENCES departments.id);`)
	require.Error(t, err)
}

func TestDropRejectsWhenLiveRowsAreReferenced(t *testing.T) {
	ctx := context.Background()
	e := newTestExecutor(t)
	_, err := e.ExecSQL(ctx, `CREATE TABLE departments (id int PRIMARY KEY, name varchar(20) NOT NULL);`)
	require.NoError(t, err)
	_, err = e.ExecSQL(ctx, `CREATE TABLE employees (id int PRIMARY KEY, dept_id int REFERENCES departments.id);`)
	require.NoError(t, err)
	_, err = e.ExecSQL(ctx, `INSERT INTO departments (id, name) VALUES (1, "Engineering");`)
	require.NoError(t, err)
	_, err = e.ExecSQL(ctx, `INSERT INTO employees (id, dept_id) VALUES (1, 1);`)
	require.NoError(t, err)

	_, err = e.ExecSQL(ctx, `DROP TABLE departments;`)
	require.Error(t, err)
}

func TestDropAllowedWhenReferencedOnlyBySchema(t *testing.T) {
	ctx := context.Background()
	e := newTestExecutor(t)
	_, err := e.ExecSQL(ctx, `CREATE TABLE departments (id int PRIMARY KEY, name varchar(20) NOT NULL);`)
	require.NoError(t, err)
	_, err = e.ExecSQL(ctx, `CREATE TABLE employees (id int PRIMARY KEY, dept_id int REFERENCES departments.id);`)
	require.NoError(t, err)

	// No employee row references a department value, so the drop goes
	// through even though the schema-level reference exists.
	_, err = e.ExecSQL(ctx, `DROP TABLE departments;`)
	require.NoError(t, err)
}

func TestCreateRejectsReferenceWithMismatchedType(t *testing.T) {
	ctx := context.Background()
	e := newTestExecutor(t)
	_, err := e.ExecSQL(ctx, `CREATE TABLE departments (id int PRIMARY KEY, name varchar(20) NOT NULL);`)
	require.NoError(t, err)
	_, err = e.ExecSQL(ctx, `CREATE TABLE employees (id int PRIMARY KEY, dept_id bigint REFERENCES departments.id);`)
	require.Error(t, err)
}

func TestUpdateAndDeleteEndToEnd(t *testing.T) {
	ctx := context.Background()
	e := newTestExecutor(t)
	_, err := e.ExecSQL(ctx, `CREATE TABLE people (id int PRIMARY KEY, name varchar(20) NOT NULL);`)
	require.NoError(t, err)
	_, err = e.ExecSQL(ctx, `INSERT INTO people (id, name) VALUES ("1", "Ada");`)
	require.NoError(t, err)

	res, err := e.ExecSQL(ctx, `UPDATE people SET name = "Ada Lovelace" WHERE id = 1;`)
	require.NoError(t, err)
	require.Equal(t, 1, res.AffectedRows)

	res, err = e.ExecSQL(ctx, `DELETE FROM people WHERE id = 1;`)
	require.NoError(t, err)
	require.Equal(t, 1, res.AffectedRows)

	res, err = e.ExecSQL(ctx, `SELECT * FROM people;`)
	require.NoError(t, err)
	require.Empty(t, res.Rows)
}

func TestStandalonePrimaryKeyClauseRejectsDuplicate(t *testing.T) {
	ctx := context.Background()
	e := newTestExecutor(t)
	_, err := e.ExecSQL(ctx, `CREATE TABLE t ( id int, name varchar(10), PRIMARY KEY ( id ) ) ;`)
	require.NoError(t, err)

	_, err = e.ExecSQL(ctx, `INSERT INTO t ( id , name ) VALUES ( 1 , "abc" ) ;`)
	require.NoError(t, err)
	_, err = e.ExecSQL(ctx, `INSERT INTO t ( id , name ) VALUES ( 1 , "def" ) ;`)
	require.Error(t, err)
	require.Contains(t, err.Error(), "Primary key must be unique")

	res, err := e.ExecSQL(ctx, `SELECT name FROM t WHERE id = 1 ;`)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	require.Equal(t, "abc", res.Rows[0][0])
}

func TestOrderByDescOnThreeRows(t *testing.T) {
	ctx := context.Background()
	e := newTestExecutor(t)
	_, err := e.ExecSQL(ctx, `CREATE TABLE t ( id int, name varchar(10), PRIMARY KEY ( id ) ) ;`)
	require.NoError(t, err)
	_, err = e.ExecSQL(ctx, `INSERT INTO t ( id , name ) VALUES ( 1 , "a" ) ;`)
	require.NoError(t, err)
	_, err = e.ExecSQL(ctx, `INSERT INTO t ( id , name ) VALUES ( 2 , "b" ) ;`)
	require.NoError(t, err)
	_, err = e.ExecSQL(ctx, `INSERT INTO t ( id , name ) VALUES ( 3 , "c" ) ;`)
	require.NoError(t, err)

	res, err := e.ExecSQL(ctx, `SELECT * FROM t ORDER BY id DESC ;`)
	require.NoError(t, err)
	require.Len(t, res.Rows, 3)
	require.Equal(t, []string{"3", "c"}, res.Rows[0])
	require.Equal(t, []string{"2", "b"}, res.Rows[1])
	require.Equal(t, []string{"1", "a"}, res.Rows[2])
}

func TestReferenceViolationLeavesTableEmpty(t *testing.T) {
	ctx := context.Background()
	e := newTestExecutor(t)
	_, err := e.ExecSQL(ctx, `CREATE TABLE t ( id int, name varchar(10), PRIMARY KEY ( id ) ) ;`)
	require.NoError(t, err)
	_, err = e.ExecSQL(ctx, `CREATE TABLE u ( id int REFERENCES ( id ) ) ;`)
	require.NoError(t, err)

	_, err = e.ExecSQL(ctx, `INSERT INTO u ( id ) VALUES ( 99 ) ;`)
	require.Error(t, err)

	res, err := e.ExecSQL(ctx, `SELECT * FROM u ;`)
	require.NoError(t, err)
	require.Empty(t, res.Rows)
}

func TestInsertNullKeywordBecomesSentinel(t *testing.T) {
	ctx := context.Background()
	e := newTestExecutor(t)
	_, err := e.ExecSQL(ctx, `CREATE TABLE t ( id int, name varchar(10) ) ;`)
	require.NoError(t, err)

	_, err = e.ExecSQL(ctx, `INSERT INTO t ( id , name ) VALUES ( 1 , null ) ;`)
	require.NoError(t, err)
	_, err = e.ExecSQL(ctx, `INSERT INTO t ( id , name ) VALUES ( 2 , "abc" ) ;`)
	require.NoError(t, err)

	// "= null" selects exactly the rows whose cell holds the NULL
	// sentinel; "!= null" selects the rest.
	res, err := e.ExecSQL(ctx, `SELECT id FROM t WHERE name = null ;`)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	require.Equal(t, "1", res.Rows[0][0])

	res, err = e.ExecSQL(ctx, `SELECT id FROM t WHERE name != null ;`)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	require.Equal(t, "2", res.Rows[0][0])
}

func TestInsertRequiresEveryColumn(t *testing.T) {
	ctx := context.Background()
	e := newTestExecutor(t)
	_, err := e.ExecSQL(ctx, `CREATE TABLE t ( id int, name varchar(10) ) ;`)
	require.NoError(t, err)

	_, err = e.ExecSQL(ctx, `INSERT INTO t ( id ) VALUES ( 1 ) ;`)
	require.Error(t, err)
	require.Contains(t, err.Error(), "not specified")
}

func TestMissingSemicolonRejected(t *testing.T) {
	ctx := context.Background()
	e := newTestExecutor(t)
	_, err := e.ExecSQL(ctx, `SELECT * FROM t`)
	require.Error(t, err)
}

func TestDistinctAppliesToProjectedColumnsOnly(t *testing.T) {
	ctx := context.Background()
	e := newTestExecutor(t)
	_, err := e.ExecSQL(ctx, `CREATE TABLE t ( id int PRIMARY KEY, name varchar(10) ) ;`)
	require.NoError(t, err)
	_, err = e.ExecSQL(ctx, `INSERT INTO t ( id , name ) VALUES ( 1 , "abc" ) ;`)
	require.NoError(t, err)
	_, err = e.ExecSQL(ctx, `INSERT INTO t ( id , name ) VALUES ( 2 , "abc" ) ;`)
	require.NoError(t, err)

	res, err := e.ExecSQL(ctx, `SELECT DISTINCT name FROM t ;`)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1, "rows differing only in an unselected column must collapse under DISTINCT")
	require.Equal(t, "abc", res.Rows[0][0])
}

func TestSelectWithJoinOrderByAndDistinct(t *testing.T) {
	ctx := context.Background()
	e := newTestExecutor(t)
	_, err := e.ExecSQL(ctx, `CREATE TABLE departments (id int PRIMARY KEY, name varchar(20) NOT NULL);`)
	require.NoError(t, err)
	_, err = e.ExecSQL(ctx, `CREATE TABLE employees (id int PRIMARY KEY, dept_id int REFERENCES departments.id);`)
	require.NoError(t, err)
	_, err = e.ExecSQL(ctx, `INSERT INTO departments (id, name) VALUES ("1", "Engineering");`)
	require.NoError(t, err)
	_, err = e.ExecSQL(ctx, `INSERT INTO departments (id, name) VALUES ("2", "Sales");`)
	require.NoError(t, err)
	_, err = e.ExecSQL(ctx, `INSERT INTO employees (id, dept_id) VALUES ("1", "2");`)
	require.NoError(t, err)
	_, err = e.ExecSQL(ctx, `INSERT INTO employees (id, dept_id) VALUES ("2", "1");`)
	require.NoError(t, err)

	res, err := e.ExecSQL(ctx, `SELECT DISTINCT departments.name FROM employees, departments WHERE employees.dept_id = departments.id ORDER BY departments.name;`)
	require.NoError(t, err)
	require.Len(t, res.Rows, 2)
	require.Equal(t, "Engineering", res.Rows[0][0])
	require.Equal(t, "Sales", res.Rows[1][0])
}
