package record

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/tablesql/tablesql/internal/queryerr"
	"github.com/tablesql/tablesql/internal/strutil"
)

// state is a Column's tri-state: it either holds no value yet
// (state unset, used for a freshly constructed placeholder row before its
// cells are assigned), holds SQL NULL, or holds a value.
type state uint8

const (
	stateUnset state = iota
	stateNull
	stateValue
)

// NullSentinel and UninitSentinel are the on-disk/wire byte values a NULL
// or not-yet-set cell round-trips through.
const (
	NullSentinel   = "\x00"
	UninitSentinel = "\x7f"
)

// Column holds one cell: its tri-state, its raw text (meaningful only in
// stateValue), and the metadata describing how to interpret that text.
type Column struct {
	st       state
	raw      string
	Metadata ColumnMetadata
}

// NewUnset returns a placeholder column bound to metadata with no value.
func NewUnset(metadata ColumnMetadata) Column {
	return Column{st: stateUnset, Metadata: metadata}
}

// NewNull returns a NULL column bound to metadata.
func NewNull(metadata ColumnMetadata) Column {
	return Column{st: stateNull, Metadata: metadata}
}

// NewValue returns a column holding raw text, applying the format rules
// (char padding, varchar truncation) for metadata's declared type.
func NewValue(raw string, metadata ColumnMetadata) (Column, error) {
	if raw == NullSentinel {
		return NewNull(metadata), nil
	}
	if raw == UninitSentinel {
		return NewUnset(metadata), nil
	}
	formatted, err := formatValue(raw, metadata)
	if err != nil {
		return Column{}, err
	}
	return Column{st: stateValue, raw: formatted, Metadata: metadata}, nil
}

// formatValue applies the per-type on-disk text shaping: char values are
// space-padded to their declared length, varchar values are only
// truncated, dates/times are left as-is (their layout is validated by
// Compare/parse helpers elsewhere).
func formatValue(raw string, metadata ColumnMetadata) (string, error) {
	switch metadata.Kind {
	case KindChar:
		if len(raw) > metadata.Length {
			return raw[:metadata.Length], nil
		}
		if len(raw) < metadata.Length {
			return raw + spaces(metadata.Length-len(raw)), nil
		}
		return raw, nil
	case KindVarchar:
		if len(raw) > metadata.Length {
			return raw[:metadata.Length], nil
		}
		return raw, nil
	default:
		return raw, nil
	}
}

func spaces(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = ' '
	}
	return string(b)
}

// IsNull reports whether the column holds SQL NULL.
func (c Column) IsNull() bool { return c.st == stateNull }

// IsUnset reports whether the column has not yet been assigned a value.
func (c Column) IsUnset() bool { return c.st == stateUnset }

// HasValue reports whether the column holds an actual value.
func (c Column) HasValue() bool { return c.st == stateValue }

// String returns the column's raw text, or the empty string if it is NULL
// or unset.
func (c Column) String() string {
	if c.st != stateValue {
		return ""
	}
	return c.raw
}

// Sentinel returns the text form used when this column is written to a
// table file or wire stream: the raw value, or the NULL/uninit sentinel
// byte.
func (c Column) Sentinel() string {
	switch c.st {
	case stateNull:
		return NullSentinel
	case stateUnset:
		return UninitSentinel
	default:
		return c.raw
	}
}

// Equal reports value equality under the column's declared type. NULL is
// never equal to anything, including another NULL, matching SQL NULL
// comparison semantics.
func (c Column) Equal(other Column) bool {
	return Compare(c, other) == 0 && c.HasValue() && other.HasValue()
}

// Compare orders two columns of matching type: <0 if a<b, 0 if equal, >0
// if a>b. Lexicographic for char/varchar, numeric for int/bigint/float/
// double, calendar/time-of-day order for date/time.
func Compare(a, b Column) int {
	if !a.HasValue() || !b.HasValue() {
		if a.raw == b.raw {
			return 0
		}
		if a.raw < b.raw {
			return -1
		}
		return 1
	}
	switch a.Metadata.Kind {
	case KindInt, KindBigInt:
		ai, _ := strconv.ParseInt(a.raw, 10, 64)
		bi, _ := strconv.ParseInt(b.raw, 10, 64)
		switch {
		case ai < bi:
			return -1
		case ai > bi:
			return 1
		default:
			return 0
		}
	case KindFloat, KindDouble:
		af, _ := strconv.ParseFloat(a.raw, 64)
		bf, _ := strconv.ParseFloat(b.raw, 64)
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	case KindDate:
		at, aerr := time.Parse("2006-01-02", a.raw)
		bt, berr := time.Parse("2006-01-02", b.raw)
		if aerr != nil || berr != nil {
			return compareStrings(a.raw, b.raw)
		}
		return compareTimes(at, bt)
	case KindTime:
		at, aerr := time.Parse("15:04:05", a.raw)
		bt, berr := time.Parse("15:04:05", b.raw)
		if aerr != nil || berr != nil {
			return compareStrings(a.raw, b.raw)
		}
		return compareTimes(at, bt)
	default:
		return compareStrings(a.raw, b.raw)
	}
}

func compareStrings(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareTimes(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	default:
		return 0
	}
}

// MatchesLike reports whether the column's value matches a SQL LIKE
// pattern (% and _ wildcards).
func (c Column) MatchesLike(pattern string) (bool, error) {
	if !c.HasValue() {
		return false, nil
	}
	re, err := strutil.LikeToRegexp(pattern)
	if err != nil {
		return false, queryerr.New("invalid LIKE pattern: %s", pattern)
	}
	return re.MatchString(c.raw), nil
}

// ValidateType reports whether raw can legally be stored under metadata's
// declared type (parses as int/bigint/float/double, or matches the
// date/time layout).
func ValidateType(raw string, metadata ColumnMetadata) error {
	switch metadata.Kind {
	case KindInt:
		if _, err := strconv.ParseInt(raw, 10, 32); err != nil {
			return queryerr.New("value %q is not a valid int", raw)
		}
	case KindBigInt:
		if _, err := strconv.ParseInt(raw, 10, 64); err != nil {
			return queryerr.New("value %q is not a valid bigint", raw)
		}
	case KindFloat, KindDouble:
		if _, err := strconv.ParseFloat(raw, 64); err != nil {
			return queryerr.New("value %q is not a valid %s", raw, metadata.Kind)
		}
	case KindDate:
		if !dateRE.MatchString(raw) {
			return queryerr.New("value %q is not a valid date (YYYY-MM-DD)", raw)
		}
		if _, err := time.Parse("2006-01-02", raw); err != nil {
			return queryerr.New("value %q is not a valid date", raw)
		}
	case KindTime:
		if !timeRE.MatchString(raw) {
			return queryerr.New("value %q is not a valid time (HH:MM:SS)", raw)
		}
		if _, err := time.Parse("15:04:05", raw); err != nil {
			return queryerr.New("value %q is not a valid time", raw)
		}
	}
	return nil
}

var (
	dateRE = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	timeRE = regexp.MustCompile(`^\d{2}:\d{2}:\d{2}$`)
)

// GoString supports %#v-style debugging of a Column.
func (c Column) GoString() string {
	return fmt.Sprintf("Column{%s=%s}", c.Metadata.ColumnName, c.Sentinel())
}
