package sandbox

import (
	"strings"
	"unicode"
)

// Split breaks a script into statements on top-level semicolons. Quoted
// strings, quoted identifiers, dollar-quoted bodies and comments are kept
// intact. Statements that hold nothing but comments are dropped.
func Split(script string) []string {
	var out []string
	var cur strings.Builder
	flush := func() {
		stmt := strings.TrimSpace(cur.String())
		cur.Reset()
		if Keyword(stmt) != "" {
			out = append(out, stmt)
		}
	}

	rs := []rune(script)
	n := len(rs)
	for i := 0; i < n; i++ {
		end := -1
		switch r := rs[i]; {
		case r == '\'' || r == '"':
			end = closeQuote(rs, i+1, r)
		case r == '-' && i+1 < n && rs[i+1] == '-':
			end = indexRunes(rs, i, []rune("\n"))
		case r == '/' && i+1 < n && rs[i+1] == '*':
			end = indexRunes(rs, i+2, []rune("*/")) + 2
		case r == '$':
			if tag, ok := dollarTag(rs, i); ok {
				end = indexRunes(rs, i+len(tag), tag) + len(tag)
			}
		case r == ';':
			flush()
			continue
		}
		if end < 0 {
			cur.WriteRune(rs[i])
			continue
		}
		if end > n {
			end = n
		}
		cur.WriteString(string(rs[i:end]))
		i = end - 1
	}
	flush()
	return out
}

// indexRunes finds pat in rs at or after from, or returns len(rs).
func indexRunes(rs []rune, from int, pat []rune) int {
	for j := from; j+len(pat) <= len(rs); j++ {
		match := true
		for k := range pat {
			if rs[j+k] != pat[k] {
				match = false
				break
			}
		}
		if match {
			return j
		}
	}
	return len(rs)
}

// closeQuote returns the index just past the quote that closes the literal
// opened before start. A doubled quote is an escape.
func closeQuote(rs []rune, start int, q rune) int {
	for j := start; j < len(rs); j++ {
		if rs[j] != q {
			continue
		}
		if j+1 < len(rs) && rs[j+1] == q {
			j++
			continue
		}
		return j + 1
	}
	return len(rs)
}

// dollarTag recognizes $$ and $tag$ openers.
func dollarTag(rs []rune, i int) ([]rune, bool) {
	j := i + 1
	for j < len(rs) && (rs[j] == '_' || unicode.IsLetter(rs[j]) || (j > i+1 && unicode.IsDigit(rs[j]))) {
		j++
	}
	if j < len(rs) && rs[j] == '$' {
		return rs[i : j+1], true
	}
	return nil, false
}

// Keyword returns the upper-cased leading keyword of a statement, skipping
// whitespace, comments and opening parentheses. It is empty for a statement
// that holds no code.
func Keyword(stmt string) string {
	s := stmt
	for {
		s = strings.TrimLeftFunc(s, func(r rune) bool { return unicode.IsSpace(r) || r == '(' })
		switch {
		case strings.HasPrefix(s, "--"):
			if k := strings.IndexByte(s, '\n'); k >= 0 {
				s = s[k+1:]
				continue
			}
			return ""
		case strings.HasPrefix(s, "/*"):
			if k := strings.Index(s[2:], "*/"); k >= 0 {
				s = s[2+k+2:]
				continue
			}
			return ""
		}
		break
	}
	end := strings.IndexFunc(s, func(r rune) bool { return !unicode.IsLetter(r) && r != '_' })
	if end < 0 {
		end = len(s)
	}
	return strings.ToUpper(s[:end])
}
