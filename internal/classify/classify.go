// Package classify determines the type of a SQL statement and extracts the
// tables it references.
package classify

import (
	"regexp"
	"strings"

	"sqlgate/internal/domain"
)

// keywordTypes maps the first significant keyword of a statement to its
// query type. Anything outside this table is unclassifiable.
var keywordTypes = map[string]domain.QueryType{
	"SELECT":  domain.QueryTypeRead,
	"SHOW":    domain.QueryTypeRead,
	"EXPLAIN": domain.QueryTypeRead,

	"INSERT": domain.QueryTypeWrite,
	"UPDATE": domain.QueryTypeWrite,
	"DELETE": domain.QueryTypeWrite,
	"MERGE":  domain.QueryTypeWrite,

	"CREATE":   domain.QueryTypeDDL,
	"ALTER":    domain.QueryTypeDDL,
	"DROP":     domain.QueryTypeDDL,
	"TRUNCATE": domain.QueryTypeDDL,

	"CALL": domain.QueryTypeProcedure,
	"EXEC": domain.QueryTypeProcedure,
}

var (
	lineComment  = regexp.MustCompile(`--[^\n]*`)
	blockComment = regexp.MustCompile(`(?s)/\*.*?\*/`)

	// tableRef captures the identifier following FROM/JOIN/INTO/UPDATE/TABLE.
	// Matching is token based: quoted identifiers and schema-qualified names
	// are kept, subqueries (leading parenthesis) are skipped.
	tableRef = regexp.MustCompile(`(?i)\b(?:FROM|JOIN|INTO|UPDATE|TABLE)\s+([` + "`" + `"\[]?[\w$]+[` + "`" + `"\]]?(?:\.[` + "`" + `"\[]?[\w$]+[` + "`" + `"\]]?)?)`)
)

// Classify parses the raw SQL text into a Query with its type and
// referenced tables. The fingerprint field is left empty; the caller
// assigns it separately.
func Classify(raw string) (*domain.Query, error) {
	keyword := firstKeyword(raw)
	if keyword == "" {
		return nil, domain.ErrUnclassifiable("empty query")
	}

	qt, ok := keywordTypes[keyword]
	if !ok {
		return nil, domain.ErrUnclassifiable("unrecognized leading keyword %q", keyword)
	}

	return &domain.Query{
		RawText: raw,
		Type:    qt,
		Tables:  ExtractTables(raw),
	}, nil
}

// firstKeyword returns the first significant keyword of the statement,
// upper-cased, skipping comments and whitespace.
func firstKeyword(raw string) string {
	s := blockComment.ReplaceAllString(raw, " ")
	s = lineComment.ReplaceAllString(s, " ")
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	word := fields[0]
	// EXEC sp_x and EXEC(...) both start with the same token.
	if i := strings.IndexAny(word, "(;"); i > 0 {
		word = word[:i]
	}
	return strings.ToUpper(word)
}

// ExtractTables scans the statement for table references after FROM, JOIN,
// INTO, UPDATE, and TABLE keywords. Best-effort: failure to extract yields
// an empty set and never blocks execution.
func ExtractTables(raw string) []string {
	s := blockComment.ReplaceAllString(raw, " ")
	s = lineComment.ReplaceAllString(s, " ")

	matches := tableRef.FindAllStringSubmatch(s, -1)
	seen := make(map[string]struct{}, len(matches))
	tables := make([]string, 0, len(matches))
	for _, m := range matches {
		name := trimIdentQuotes(m[1])
		if name == "" || isKeyword(name) {
			continue
		}
		key := strings.ToLower(name)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		tables = append(tables, name)
	}
	return tables
}

func trimIdentQuotes(ident string) string {
	parts := strings.Split(ident, ".")
	for i, p := range parts {
		parts[i] = strings.Trim(p, "`\"[]")
	}
	return strings.Join(parts, ".")
}

// isKeyword filters out SQL keywords that can follow the capture keywords
// in positions where no table name is present (e.g. DELETE FROM is handled,
// but UPDATE in "FOR UPDATE" captures nothing useful).
func isKeyword(word string) bool {
	switch strings.ToUpper(word) {
	case "SELECT", "WHERE", "SET", "VALUES", "DUAL", "IF", "EXISTS", "ONLY":
		return true
	}
	return false
}
