package parser

import "github.com/tablesql/tablesql/internal/queryerr"

// parseCreate parses: CREATE TABLE name ( col type [constraints]... , ... )
func parseCreate(tokens []string) (Query, error) {
	if len(tokens) < 5 || !foldEq(tokens[1], "table") {
		return Query{}, queryerr.New("expected CREATE TABLE")
	}
	table := tokens[2]
	if tokens[3] != "(" {
		return Query{}, queryerr.New("expected ( after table name")
	}
	q := Query{Kind: KindCreate, Table: table}
	var standalonePK string
	i := 4
	for i < len(tokens) && tokens[i] != ")" {
		if tokens[i] == "," {
			i++
			continue
		}
		// A free-standing "PRIMARY KEY ( colName )" clause elevates an
		// already-declared column's primary-key and not-null flags,
		// distinct from an inline "col type PRIMARY KEY" modifier.
		if foldEq(tokens[i], "primary") && i+1 < len(tokens) && foldEq(tokens[i+1], "key") &&
			i+2 < len(tokens) && tokens[i+2] == "(" {
			name, consumed, err := parsePrimaryKeyClause(tokens, i)
			if err != nil {
				return Query{}, err
			}
			standalonePK = name
			i += consumed
			continue
		}
		def := ColumnDef{Name: tokens[i]}
		i++
		if i >= len(tokens) {
			return Query{}, queryerr.New("expected type for column %s", def.Name)
		}
		typ, consumed := joinParenType(tokens, i)
		def.Type = typ
		i += consumed
		for i < len(tokens) && tokens[i] != "," && tokens[i] != ")" {
			switch {
			case foldEq(tokens[i], "primary") && i+1 < len(tokens) && foldEq(tokens[i+1], "key"):
				def.PrimaryKey = true
				i += 2
			case foldEq(tokens[i], "not") && i+1 < len(tokens) && foldEq(tokens[i+1], "null"):
				def.NotNull = true
				i += 2
			case foldEq(tokens[i], "references") && i+1 < len(tokens):
				ref, consumed, err := parseReferenceTarget(tokens, i+1)
				if err != nil {
					return Query{}, err
				}
				def.References = ref
				i += 1 + consumed
			default:
				return Query{}, queryerr.New("unexpected token in column definition: %s", tokens[i])
			}
		}
		q.Columns = append(q.Columns, def)
	}
	if i >= len(tokens) {
		return Query{}, queryerr.New("expected ) to close column list")
	}
	if standalonePK != "" {
		found := false
		for j := range q.Columns {
			if q.Columns[j].Name == standalonePK {
				q.Columns[j].PrimaryKey = true
				q.Columns[j].NotNull = true
				found = true
				break
			}
		}
		if !found {
			return Query{}, queryerr.New("PRIMARY KEY names unknown column %s", standalonePK)
		}
	}
	return q, nil
}

// parseReferenceTarget parses a REFERENCES target starting at tokens[i]:
// either "( colRef )" or a bare "colRef" with no parentheses. colRef
// itself may be a bare column name (same-table reference) or "table.column".
func parseReferenceTarget(tokens []string, i int) (string, int, error) {
	if i < len(tokens) && tokens[i] == "(" {
		if i+2 >= len(tokens) || tokens[i+2] != ")" {
			return "", 0, queryerr.New("malformed REFERENCES clause")
		}
		return tokens[i+1], 3, nil
	}
	return tokens[i], 1, nil
}

// parsePrimaryKeyClause parses "PRIMARY KEY ( colName )" starting at tokens[i]
// (tokens[i]=="primary", tokens[i+1]=="key", tokens[i+2]=="("), returning the
// named column and the number of tokens consumed.
func parsePrimaryKeyClause(tokens []string, i int) (string, int, error) {
	if i+4 >= len(tokens) || tokens[i+4] != ")" {
		return "", 0, queryerr.New("malformed PRIMARY KEY clause")
	}
	return tokens[i+3], 5, nil
}

// parseDrop parses: DROP TABLE name
func parseDrop(tokens []string) (Query, error) {
	if len(tokens) != 3 || !foldEq(tokens[1], "table") {
		return Query{}, queryerr.New("expected DROP TABLE name")
	}
	return Query{Kind: KindDrop, Table: tokens[2]}, nil
}
