package join

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tablesql/tablesql/internal/record"
	"github.com/tablesql/tablesql/internal/restriction"
	"github.com/tablesql/tablesql/internal/table"
)

func buildTables(t *testing.T) (*table.Base, *table.Base) {
	t.Helper()
	dir := t.TempDir()

	deptID, err := record.NewColumnMetadata("id", "departments", "int", "", true, true)
	require.NoError(t, err)
	deptName, err := record.NewColumnMetadata("name", "departments", "varchar(20)", "", false, true)
	require.NoError(t, err)
	deptSchema, err := record.NewSchema("departments", []record.ColumnMetadata{deptID, deptName})
	require.NoError(t, err)
	depts, err := table.Create(dir, deptSchema)
	require.NoError(t, err)
	require.NoError(t, depts.Insert([]string{"1", "Engineering"}))
	require.NoError(t, depts.Insert([]string{"2", "Sales"}))

	empID, err := record.NewColumnMetadata("id", "employees", "int", "", true, true)
	require.NoError(t, err)
	empDept, err := record.NewColumnMetadata("dept_id", "employees", "int", "departments.id", false, false)
	require.NoError(t, err)
	empSchema, err := record.NewSchema("employees", []record.ColumnMetadata{empID, empDept})
	require.NoError(t, err)
	emps, err := table.Create(dir, empSchema)
	require.NoError(t, err)
	require.NoError(t, emps.Insert([]string{"1", "1"}))
	require.NoError(t, emps.Insert([]string{"2", "1"}))
	require.NoError(t, emps.Insert([]string{"3", "2"}))

	return emps, depts
}

func TestHashJoinEquiCondition(t *testing.T) {
	emps, depts := buildTables(t)
	joined, err := New(emps, depts, "employees.dept_id = departments.id")
	require.NoError(t, err)

	cur, err := joined.Open()
	require.NoError(t, err)
	defer cur.Close()
	rows, err := table.Materialize(cur)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	for _, row := range rows {
		deptIDCol, err := row.GetColumn("departments.id")
		require.NoError(t, err)
		require.True(t, deptIDCol.HasValue())
	}
}

func TestJoinSchemaIsProbeThenBuild(t *testing.T) {
	emps, depts := buildTables(t)
	joined, err := New(emps, depts, "employees.dept_id = departments.id")
	require.NoError(t, err)
	schema := joined.Schema()
	require.Equal(t, "id", schema.Columns[0].ColumnName)
	require.Equal(t, "employees", schema.Columns[0].TableName)
}

func TestJoinMutationIsAlwaysError(t *testing.T) {
	emps, depts := buildTables(t)
	joined, err := New(emps, depts, "employees.dept_id = departments.id")
	require.NoError(t, err)
	require.Error(t, joined.Insert([]string{"x"}))
	_, err = joined.Update(restriction.Empty, nil, nil)
	require.Error(t, err)
	_, err = joined.Delete(restriction.Empty)
	require.Error(t, err)
}
