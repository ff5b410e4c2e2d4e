package record

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func intMeta(t *testing.T) ColumnMetadata {
	t.Helper()
	m, err := NewColumnMetadata("age", "people", "int", "", false, false)
	require.NoError(t, err)
	return m
}

func charMeta(t *testing.T, n int) ColumnMetadata {
	t.Helper()
	m, err := NewColumnMetadata("code", "people", "char(5)", "", false, false)
	require.NoError(t, err)
	return m
}

func TestColumnTriState(t *testing.T) {
	m := intMeta(t)

	unset := NewUnset(m)
	require.True(t, unset.IsUnset())
	require.Equal(t, UninitSentinel, unset.Sentinel())

	null := NewNull(m)
	require.True(t, null.IsNull())
	require.Equal(t, NullSentinel, null.Sentinel())

	val, err := NewValue("42", m)
	require.NoError(t, err)
	require.True(t, val.HasValue())
	require.Equal(t, "42", val.String())
}

func TestCharPaddingAndVarcharTruncation(t *testing.T) {
	m := charMeta(t, 5)
	val, err := NewValue("ab", m)
	require.NoError(t, err)
	require.Equal(t, "ab   ", val.String())

	vm, err := NewColumnMetadata("name", "people", "varchar(3)", "", false, false)
	require.NoError(t, err)
	v, err := NewValue("abcdef", vm)
	require.NoError(t, err)
	require.Equal(t, "abc", v.String())
}

func TestCompareNumeric(t *testing.T) {
	m := intMeta(t)
	a, _ := NewValue("1", m)
	b, _ := NewValue("2", m)
	require.Less(t, Compare(a, b), 0)
	require.Greater(t, Compare(b, a), 0)
	require.Equal(t, 0, Compare(a, a))
}

func TestNullNeverEqual(t *testing.T) {
	m := intMeta(t)
	a := NewNull(m)
	b := NewNull(m)
	require.False(t, a.Equal(b))
}

func TestValidateType(t *testing.T) {
	m := intMeta(t)
	require.NoError(t, ValidateType("5", m))
	require.Error(t, ValidateType("not-a-number", m))
}

func TestMatchesLike(t *testing.T) {
	m, err := NewColumnMetadata("name", "people", "varchar(10)", "", false, false)
	require.NoError(t, err)
	v, err := NewValue("Johnson", m)
	require.NoError(t, err)
	ok, err := v.MatchesLike("John%")
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = v.MatchesLike("Smith%")
	require.NoError(t, err)
	require.False(t, ok)
}
