// Package queryerr defines the single error type used to report malformed
// or semantically invalid queries to a caller.
package queryerr

import "fmt"

// InvalidQuery is raised for any query that cannot be parsed or executed
// because of something the caller did: bad syntax, a missing table, a
// constraint violation, and so on. It is the one error kind a query can
// fail with; anything else (I/O failure, programmer error) is returned as
// a plain wrapped error instead.
type InvalidQuery struct {
	Msg string
}

func (e *InvalidQuery) Error() string {
	return e.Msg
}

// New builds an InvalidQuery with a formatted message.
func New(format string, args ...any) error {
	return &InvalidQuery{Msg: fmt.Sprintf(format, args...)}
}
