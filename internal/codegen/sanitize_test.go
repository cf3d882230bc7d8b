package codegen

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSanitize(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"python fence", "```python\nX\n```", "X"},
		{"sql fence", "```sql\nSELECT 1;\n```", "SELECT 1;"},
		{"bare fence", "```\nSELECT 1\n```", "SELECT 1"},
		{"surrounding prose whitespace", "\n\n  ```sql\nSELECT 1\n```  \n", "SELECT 1"},
		{"inline fence", "```SELECT 1```", "SELECT 1"},
		{"stray backticks", "`SELECT 1`", "SELECT 1"},
		{"no fence", "SELECT 'a`b'", "SELECT 'a`b'"},
		{"multi statement", "```sql\nCREATE TEMP TABLE result AS SELECT 42;\nSELECT 'hello';\n```",
			"CREATE TEMP TABLE result AS SELECT 42;\nSELECT 'hello';"},
		{"empty", "``` ```", ""},
		{"crlf sql fence", "```sql\r\nSELECT 1\r\n```\r\n", "SELECT 1"},
		{"crlf python fence", "```python\r\nX\r\n```", "X"},
		{"crlf multi line", "```sql\r\nSELECT 1;\r\nSELECT 2;\r\n```", "SELECT 1;\r\nSELECT 2;"},
		{"inline tagged fence", "```python X```", "X"},
		{"inline sql tag", "```SQL SELECT 1```", "SELECT 1"},
		{"inline keyword is not a tag", "```SELECT sql_id FROM df```", "SELECT sql_id FROM df"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Sanitize(tc.in)
			require.Equal(t, tc.want, got)
			require.Equal(t, got, Sanitize(got), "idempotent")
		})
	}
}
