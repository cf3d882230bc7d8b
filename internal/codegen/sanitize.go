package codegen

import (
	"regexp"
	"strings"
)

// fence matches an opening or closing Markdown code fence with an optional
// language tag, on its own line. CRLF line endings are accepted.
var fence = regexp.MustCompile("(?m)^[ \t]*```[A-Za-z0-9_+-]*[ \t\r]*$\n?")

// inlineTag matches a known language tag right after an opening fence that
// shares its line with code, as in "```sql SELECT 1```".
var inlineTag = regexp.MustCompile("(?i)```(?:python|py|duckdb|sqlite|postgresql|postgres|sql)\\b[ \t]*")

// Sanitize strips Markdown code fences, surrounding whitespace and stray
// backticks from model output. It does not check that the code is valid.
// Sanitize(Sanitize(x)) == Sanitize(x).
func Sanitize(raw string) string {
	s := fence.ReplaceAllString(raw, "")
	s = inlineTag.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.Trim(s, " \t\r\n`")
}
