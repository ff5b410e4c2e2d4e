package table

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tablesql/tablesql/internal/record"
	"github.com/tablesql/tablesql/internal/restriction"
)

func newTestSchema(t *testing.T, tableName string) record.Schema {
	t.Helper()
	id, err := record.NewColumnMetadata("id", tableName, "int", "", true, true)
	require.NoError(t, err)
	name, err := record.NewColumnMetadata("name", tableName, "varchar(20)", "", false, true)
	require.NoError(t, err)
	schema, err := record.NewSchema(tableName, []record.ColumnMetadata{id, name})
	require.NoError(t, err)
	return schema
}

func TestCreateInsertAndScan(t *testing.T) {
	dir := t.TempDir()
	schema := newTestSchema(t, "people")
	base, err := Create(dir, schema)
	require.NoError(t, err)

	require.NoError(t, base.Insert([]string{"1", "Ada"}))
	require.NoError(t, base.Insert([]string{"2", "Grace"}))

	cur, err := base.Open()
	require.NoError(t, err)
	defer cur.Close()
	rows, err := Materialize(cur)
	require.NoError(t, err)
	require.Len(t, rows, 2)
}

func TestPrimaryKeyUniqueness(t *testing.T) {
	dir := t.TempDir()
	schema := newTestSchema(t, "people")
	base, err := Create(dir, schema)
	require.NoError(t, err)
	require.NoError(t, base.Insert([]string{"1", "Ada"}))
	err = base.Insert([]string{"1", "Grace"})
	require.Error(t, err)
}

func TestNotNullRejected(t *testing.T) {
	dir := t.TempDir()
	schema := newTestSchema(t, "people")
	base, err := Create(dir, schema)
	require.NoError(t, err)
	err = base.Insert([]string{"1", record.NullSentinel})
	require.Error(t, err)
}

func TestUpdateAndDeleteRewriteMatchingRows(t *testing.T) {
	dir := t.TempDir()
	schema := newTestSchema(t, "people")
	base, err := Create(dir, schema)
	require.NoError(t, err)
	require.NoError(t, base.Insert([]string{"1", "Ada"}))
	require.NoError(t, base.Insert([]string{"2", "Grace"}))

	r, err := restriction.Compile([]string{"id", "=", "1"})
	require.NoError(t, err)
	n, err := base.Update(r, []string{"name"}, []string{"Ada Lovelace"})
	require.NoError(t, err)
	require.Equal(t, 1, n)

	cur, err := base.Open()
	require.NoError(t, err)
	rows, err := Materialize(cur)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	r2, err := restriction.Compile([]string{"id", "=", "2"})
	require.NoError(t, err)
	n, err = base.Delete(r2)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	cur2, err := base.Open()
	require.NoError(t, err)
	rows2, err := Materialize(cur2)
	require.NoError(t, err)
	require.Len(t, rows2, 1)
}

func TestUpdatePrimaryKeyWithoutWhereRejected(t *testing.T) {
	dir := t.TempDir()
	schema := newTestSchema(t, "people")
	base, err := Create(dir, schema)
	require.NoError(t, err)
	require.NoError(t, base.Insert([]string{"1", "Ada"}))
	require.NoError(t, base.Insert([]string{"2", "Grace"}))

	_, err = base.Update(restriction.Empty, []string{"id"}, []string{"9"})
	require.Error(t, err)

	cur, err := base.Open()
	require.NoError(t, err)
	rows, err := Materialize(cur)
	require.NoError(t, err)
	require.Len(t, rows, 2)
}

func TestForeignKeyValidation(t *testing.T) {
	dir := t.TempDir()
	deptSchema := newTestSchema(t, "departments")
	deptBase, err := Create(dir, deptSchema)
	require.NoError(t, err)
	require.NoError(t, deptBase.Insert([]string{"1", "Engineering"}))

	empID, err := record.NewColumnMetadata("id", "employees", "int", "", true, true)
	require.NoError(t, err)
	deptID, err := record.NewColumnMetadata("dept_id", "employees", "int", "departments.id", false, false)
	require.NoError(t, err)
	empSchema, err := record.NewSchema("employees", []record.ColumnMetadata{empID, deptID})
	require.NoError(t, err)
	empBase, err := Create(dir, empSchema)
	require.NoError(t, err)

	require.NoError(t, empBase.Insert([]string{"1", "1"}))
	err = empBase.Insert([]string{"2", "99"})
	require.Error(t, err)
}

func TestDistinctAndProjection(t *testing.T) {
	dir := t.TempDir()
	schema := newTestSchema(t, "people")
	base, err := Create(dir, schema)
	require.NoError(t, err)
	require.NoError(t, base.Insert([]string{"1", "Ada"}))
	require.NoError(t, base.Insert([]string{"2", "Ada"}))

	cur, err := base.Open()
	require.NoError(t, err)
	proj := NewProjectingCursor(cur, []string{"name"})
	dist := NewDistinctCursor(proj)
	rows, err := Materialize(dist)
	require.NoError(t, err)
	require.Len(t, rows, 1)
}
