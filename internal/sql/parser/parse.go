package parser

import "github.com/tablesql/tablesql/internal/queryerr"

// Parse tokenizes and parses a single semicolon-terminated SQL statement,
// dispatching on its first keyword.
func Parse(raw string) (Query, error) {
	tokens, err := tokenize(raw)
	if err != nil {
		return Query{}, err
	}
	if len(tokens) == 0 {
		return Query{}, queryerr.New("empty query")
	}
	switch {
	case foldEq(tokens[0], "create"):
		return parseCreate(tokens)
	case foldEq(tokens[0], "drop"):
		return parseDrop(tokens)
	case foldEq(tokens[0], "insert"):
		return parseInsert(tokens)
	case foldEq(tokens[0], "update"):
		return parseUpdate(tokens)
	case foldEq(tokens[0], "delete"):
		return parseDelete(tokens)
	case foldEq(tokens[0], "select"):
		return parseSelect(tokens)
	default:
		return Query{}, queryerr.New("unrecognized statement: %s", tokens[0])
	}
}
