package parser

import (
	"github.com/tablesql/tablesql/internal/queryerr"
	"github.com/tablesql/tablesql/internal/record"
	"github.com/tablesql/tablesql/internal/strutil"
)

// parseInsert parses:
//   INSERT INTO table [ ( col , col , ... ) ] VALUES ( "v" , "v" , ... )
func parseInsert(tokens []string) (Query, error) {
	if len(tokens) < 3 || !foldEq(tokens[1], "into") {
		return Query{}, queryerr.New("expected INSERT INTO")
	}
	q := Query{Kind: KindInsert, Table: tokens[2]}
	i := 3
	if i < len(tokens) && tokens[i] == "(" {
		i++
		for i < len(tokens) && tokens[i] != ")" {
			if tokens[i] != "," {
				q.InsertColumns = append(q.InsertColumns, tokens[i])
			}
			i++
		}
		i++ // skip ")"
	}
	if i >= len(tokens) || !foldEq(tokens[i], "values") {
		return Query{}, queryerr.New("expected VALUES")
	}
	i++
	if i >= len(tokens) || tokens[i] != "(" {
		return Query{}, queryerr.New("expected ( after VALUES")
	}
	i++
	for i < len(tokens) && tokens[i] != ")" {
		if tokens[i] != "," {
			q.InsertValues = append(q.InsertValues, valueToken(tokens[i]))
		}
		i++
	}
	return q, nil
}

// parseUpdate parses:
//   UPDATE table SET col = "v" , col = "v" [WHERE ...]
func parseUpdate(tokens []string) (Query, error) {
	if len(tokens) < 4 || !foldEq(tokens[2], "set") {
		return Query{}, queryerr.New("expected UPDATE table SET")
	}
	q := Query{Kind: KindUpdate, Table: tokens[1]}
	i := 3
	for i < len(tokens) && !foldEq(tokens[i], "where") {
		if tokens[i] == "," {
			i++
			continue
		}
		if i+2 >= len(tokens) || tokens[i+1] != "=" {
			return Query{}, queryerr.New("expected col = value in SET clause")
		}
		q.AssignCols = append(q.AssignCols, tokens[i])
		q.AssignVals = append(q.AssignVals, valueToken(tokens[i+2]))
		i += 3
	}
	if i < len(tokens) && foldEq(tokens[i], "where") {
		q.Where = tokens[i+1:]
	}
	return q, nil
}

// parseDelete parses:
//   DELETE FROM table [WHERE ...]
func parseDelete(tokens []string) (Query, error) {
	if len(tokens) < 3 || !foldEq(tokens[1], "from") {
		return Query{}, queryerr.New("expected DELETE FROM")
	}
	q := Query{Kind: KindDelete, Table: tokens[2]}
	if len(tokens) > 3 {
		if !foldEq(tokens[3], "where") {
			return Query{}, queryerr.New("expected WHERE")
		}
		q.Where = tokens[4:]
	}
	return q, nil
}

func unquote(tok string) string {
	return strutil.ExtractQuoted(tok)
}

// valueToken resolves one INSERT/UPDATE literal token: a quoted string
// (either ' or " delimited) is unquoted as-is, and the unquoted keyword
// null (case-insensitive) becomes the NULL sentinel; anything else passes
// through unchanged.
func valueToken(tok string) string {
	if len(tok) >= 2 && (tok[0] == '"' || tok[0] == '\'') && tok[len(tok)-1] == tok[0] {
		return unquote(tok)
	}
	if strutil.Fold(tok) == "null" {
		return record.NullSentinel
	}
	return tok
}
