package parser

import (
	"strings"

	"github.com/tablesql/tablesql/internal/queryerr"
	"github.com/tablesql/tablesql/internal/strutil"
)

// tokenize normalizes raw SQL text and splits it into a flat token stream,
// recovering compound comparison operators that normalization split apart.
// The statement must end with a semicolon and have balanced parentheses
// and quotes.
func tokenize(raw string) ([]string, error) {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasSuffix(trimmed, ";") {
		return nil, queryerr.New("missing semicolon at end of query")
	}
	if !strutil.IsBalanced(raw) {
		return nil, queryerr.New("unbalanced parentheses or quotes in query")
	}
	normalized := strutil.Normalize(raw)
	normalized = strings.TrimSuffix(strings.TrimSpace(normalized), ";")
	tokens := strutil.Split(normalized, ' ', true)
	return strutil.RecoverCompoundOperators(tokens), nil
}

// joinParenType reconstructs a "char(10)"-style type declaration from the
// three-or-four tokens normalization split it into (type, "(", n, ")"),
// returning the rejoined type and the number of tokens consumed.
func joinParenType(tokens []string, i int) (string, int) {
	if i+3 < len(tokens) && tokens[i+1] == "(" && tokens[i+3] == ")" {
		return tokens[i] + "(" + tokens[i+2] + ")", 4
	}
	return tokens[i], 1
}

func foldEq(a, b string) bool {
	return strutil.Fold(a) == strutil.Fold(b)
}
