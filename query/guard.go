package query

import (
	"fmt"
	"strings"
)

// MaxIdentifierLen is the longest accepted schema, table, or procedure name.
const MaxIdentifierLen = 127

// writeKeywords are the statement keywords blocked in read-only mode. The
// scan is deliberately conservative: a keyword appearing as a standalone
// word anywhere in a statement rejects it, even inside a string literal.
// A false rejection costs one refused query; a false accept costs a write.
var writeKeywords = map[string]bool{
	"INSERT":   true,
	"UPDATE":   true,
	"DELETE":   true,
	"DROP":     true,
	"CREATE":   true,
	"ALTER":    true,
	"TRUNCATE": true,
	"MERGE":    true,
	"UPSERT":   true,
	"CALL":     true,
	"EXEC":     true,
	"EXECUTE":  true,
}

// IsValidIdentifier reports whether name is usable as a schema, table, or
// procedure name: 1-127 bytes of [A-Za-z0-9_$#], not starting with a digit.
// Names that fail are never spliced into catalog queries.
func IsValidIdentifier(name string) bool {
	if name == "" || len(name) > MaxIdentifierLen {
		return false
	}
	if name[0] >= '0' && name[0] <= '9' {
		return false
	}
	for i := 0; i < len(name); i++ {
		if !isWordByte(name[i]) {
			return false
		}
	}
	return true
}

// ValidateIdentifier checks name as IsValidIdentifier does and reports the
// offending value on failure. kind names the parameter being validated
// ("schema", "table", "procedure") and appears in the error.
func ValidateIdentifier(name, kind string) error {
	if IsValidIdentifier(name) {
		return nil
	}
	return fmt.Errorf("%w: %s %q", ErrInvalidIdentifier, kind, name)
}

// ValidateReadOnly rejects SQL that contains a write operation. Comments are
// stripped first (string literals survive), the text is split into
// statements on ';', and every statement is scanned for write keywords.
// Empty input passes; it contains nothing to block.
func ValidateReadOnly(sql string) error {
	cleaned := strings.ToUpper(strings.TrimSpace(stripComments(sql)))
	if cleaned == "" {
		return nil
	}
	for _, stmt := range strings.Split(cleaned, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if kw := firstWriteKeyword(stmt); kw != "" {
			return fmt.Errorf("%w: %s", ErrNotReadOnly, kw)
		}
	}
	return nil
}

// Cacheable reports whether the results of sql may be stored in the cache:
// exactly one statement, read-only, and a plain SELECT (directly or as the
// main operation after a WITH clause). EXPLAIN output and anything else that
// passes the read-only gate without being a SELECT is executed but never
// cached.
func Cacheable(sql string) bool {
	cleaned := strings.ToUpper(strings.TrimSpace(stripComments(sql)))
	if cleaned == "" {
		return false
	}

	var single string
	for _, stmt := range strings.Split(cleaned, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if single != "" {
			return false // multi-statement batches are never cached
		}
		single = stmt
	}
	if single == "" || firstWriteKeyword(single) != "" {
		return false
	}

	switch leadingWord(single) {
	case "SELECT":
		return true
	case "WITH":
		return leadingWord(mainOperation(single)) == "SELECT"
	default:
		return false
	}
}

// stripComments removes -- line comments and /* */ block comments without
// touching the contents of single- or double-quoted regions. Each removed
// comment is replaced by a single space so token boundaries survive.
func stripComments(sql string) string {
	var b strings.Builder
	b.Grow(len(sql))

	inSingle, inDouble := false, false
	for i := 0; i < len(sql); i++ {
		c := sql[i]
		switch {
		case c == '\'' && !inDouble:
			inSingle = !inSingle
			b.WriteByte(c)
		case c == '"' && !inSingle:
			inDouble = !inDouble
			b.WriteByte(c)
		case inSingle || inDouble:
			b.WriteByte(c)
		case c == '-' && i+1 < len(sql) && sql[i+1] == '-':
			for i += 2; i < len(sql); i++ {
				if sql[i] == '\n' {
					b.WriteByte(' ')
					break
				}
			}
		case c == '/' && i+1 < len(sql) && sql[i+1] == '*':
			for i += 2; i < len(sql); i++ {
				if sql[i] == '*' && i+1 < len(sql) && sql[i+1] == '/' {
					i++
					b.WriteByte(' ')
					break
				}
			}
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// firstWriteKeyword returns the first write keyword appearing as a whole
// word in stmt, or "". stmt must already be uppercase.
func firstWriteKeyword(stmt string) string {
	start := -1
	for i := 0; i < len(stmt); i++ {
		if isWordByte(stmt[i]) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			if w := stmt[start:i]; writeKeywords[w] {
				return w
			}
			start = -1
		}
	}
	if start >= 0 {
		if w := stmt[start:]; writeKeywords[w] {
			return w
		}
	}
	return ""
}

// mainOperation returns the top-level operation that follows a WITH clause:
// the first statement keyword found at parenthesis depth zero after the CTE
// definitions. When no such keyword is found, stmt itself is returned.
func mainOperation(stmt string) string {
	depth := 0
	for i := 0; i < len(stmt); i++ {
		switch stmt[i] {
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		case ' ', '\t', '\n', '\r':
			if depth != 0 {
				continue
			}
			rest := strings.TrimLeft(stmt[i+1:], " \t\n\r")
			if w := leadingWord(rest); w == "SELECT" || writeKeywords[w] {
				return rest
			}
		}
	}
	return stmt
}

// leadingWord returns the word at the start of s, or "" when s does not
// begin with a word byte.
func leadingWord(s string) string {
	for i := 0; i < len(s); i++ {
		if !isWordByte(s[i]) {
			return s[:i]
		}
	}
	return s
}

func isWordByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' ||
		c >= '0' && c <= '9' || c == '_' || c == '$' || c == '#'
}
