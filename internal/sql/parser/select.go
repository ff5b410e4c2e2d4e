package parser

import (
	"strconv"
	"strings"

	"github.com/tablesql/tablesql/internal/queryerr"
)

// parseSelect parses:
//   SELECT [DISTINCT] (* | col , col ...) FROM tableref [, tableref]
//     [WHERE ...] [ORDER BY col , col ... [DESC]]
func parseSelect(tokens []string) (Query, error) {
	q := Query{Kind: KindSelect}
	i := 1
	if i < len(tokens) && foldEq(tokens[i], "distinct") {
		q.Distinct = true
		i++
	}
	for i < len(tokens) && !foldEq(tokens[i], "from") {
		if tokens[i] != "," && tokens[i] != "*" {
			q.SelectColumns = append(q.SelectColumns, tokens[i])
		} else if tokens[i] == "*" {
			q.SelectColumns = nil
		}
		i++
	}
	if i >= len(tokens) || !foldEq(tokens[i], "from") {
		return Query{}, queryerr.New("expected FROM")
	}
	i++
	for i < len(tokens) {
		if foldEq(tokens[i], "where") || foldEq(tokens[i], "order") {
			break
		}
		if tokens[i] == "," {
			i++
			continue
		}
		q.From = append(q.From, toTableRef(tokens[i]))
		i++
	}
	if len(q.From) == 0 {
		return Query{}, queryerr.New("expected at least one table after FROM")
	}

	var whereTokens []string
	if i < len(tokens) && foldEq(tokens[i], "where") {
		i++
		for i < len(tokens) && !foldEq(tokens[i], "order") {
			whereTokens = append(whereTokens, tokens[i])
			i++
		}
	}

	if i < len(tokens) && foldEq(tokens[i], "order") {
		i++
		if i >= len(tokens) || !foldEq(tokens[i], "by") {
			return Query{}, queryerr.New("expected BY after ORDER")
		}
		i++
		var cols []string
		for i < len(tokens) {
			if foldEq(tokens[i], "desc") {
				q.OrderDesc = true
				i++
				continue
			}
			if foldEq(tokens[i], "asc") {
				i++
				continue
			}
			if tokens[i] != "," {
				cols = append(cols, tokens[i])
			}
			i++
		}
		q.OrderByCols = strings.Join(cols, ",")
	}

	if len(q.From) >= 2 && len(whereTokens) > 0 {
		join, rest := extractJoinCondition(whereTokens)
		q.JoinCondition = join
		whereTokens = rest
	}
	q.Where = whereTokens
	return q, nil
}

func toTableRef(tok string) TableRef {
	name := unquote(tok)
	if strings.HasPrefix(name, "http://") || strings.HasPrefix(name, "https://") {
		return TableRef{URL: name}
	}
	return TableRef{Name: name}
}

// extractJoinCondition scans a flat, AND-joined WHERE token stream for
// comparison triples "lhs op rhs" whose both sides are column-name-like
// (neither quoted nor numeric-parsable), regardless of operator, and
// pulls every one of them out into the join condition, leaving the rest
// as the row-level restriction. The operator itself is not checked here:
// a join equality's operator validity is enforced downstream by the join
// operator's own condition parser, which rejects anything but "=". If the
// WHERE clause has any parentheses or an OR in it, extraction is
// conservatively limited to the stream's leading run of AND-joined
// triples, since a join condition can't meaningfully sit inside an OR or
// a sub-grouping.
func extractJoinCondition(tokens []string) (string, []string) {
	if hasParensOrOr(tokens) {
		return extractLeadingJoinRun(tokens)
	}
	clauses := splitOnTopLevelAnd(tokens)
	var joinParts []string
	var restClauses [][]string
	for _, c := range clauses {
		if len(c) == 3 && isColumnLike(c[0]) && isColumnLike(c[2]) {
			joinParts = append(joinParts, c[0], c[1], c[2])
			continue
		}
		restClauses = append(restClauses, c)
	}
	var rest []string
	for i, c := range restClauses {
		if i > 0 {
			rest = append(rest, "and")
		}
		rest = append(rest, c...)
	}
	return strings.Join(joinParts, " "), rest
}

func hasParensOrOr(tokens []string) bool {
	for _, t := range tokens {
		if t == "(" || t == ")" || foldEq(t, "or") {
			return true
		}
	}
	return false
}

// splitOnTopLevelAnd splits a flat (paren-free) token stream on "and"
// into its comparison-triple clauses.
func splitOnTopLevelAnd(tokens []string) [][]string {
	var clauses [][]string
	var cur []string
	for _, t := range tokens {
		if foldEq(t, "and") {
			clauses = append(clauses, cur)
			cur = nil
			continue
		}
		cur = append(cur, t)
	}
	clauses = append(clauses, cur)
	return clauses
}

// extractLeadingJoinRun is the conservative fallback used when the WHERE
// clause contains parentheses or an OR: it only pulls a leading run of
// AND-joined "lhs op rhs" triples whose both sides are column-name-like,
// leaving everything else (including anything inside parens) untouched
// in the row-level restriction.
func extractLeadingJoinRun(tokens []string) (string, []string) {
	var joinParts []string
	i := 0
	for i+2 < len(tokens) {
		left, op, right := tokens[i], tokens[i+1], tokens[i+2]
		if !isColumnLike(left) || !isColumnLike(right) {
			break
		}
		joinParts = append(joinParts, left, op, right)
		i += 3
		if i < len(tokens) && foldEq(tokens[i], "and") {
			i++
			continue
		}
		break
	}
	return strings.Join(joinParts, " "), tokens[i:]
}

// isColumnLike reports whether tok could name a column: it is not a
// quoted literal and does not parse as a number.
func isColumnLike(tok string) bool {
	if len(tok) >= 2 {
		q := tok[0]
		if (q == '"' || q == '\'') && tok[len(tok)-1] == q {
			return false
		}
	}
	if _, err := strconv.ParseFloat(tok, 64); err == nil {
		return false
	}
	return true
}
