package sandbox

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplit(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want []string
	}{
		{"single", "SELECT 1", []string{"SELECT 1"}},
		{"trailing semicolon", "SELECT 1;", []string{"SELECT 1"}},
		{"two", "CREATE TEMP TABLE result AS SELECT 1; SELECT 2;", []string{"CREATE TEMP TABLE result AS SELECT 1", "SELECT 2"}},
		{"semicolon in string", "SELECT 'a;b'; SELECT 2", []string{"SELECT 'a;b'", "SELECT 2"}},
		{"escaped quote", "SELECT 'it''s; fine'", []string{"SELECT 'it''s; fine'"}},
		{"quoted identifier", `SELECT "a;b" FROM df`, []string{`SELECT "a;b" FROM df`}},
		{"line comment", "-- count; rows\nSELECT count(*) FROM df", []string{"-- count; rows\nSELECT count(*) FROM df"}},
		{"block comment", "/* a; b */ SELECT 1; SELECT 2", []string{"/* a; b */ SELECT 1", "SELECT 2"}},
		{"comment only", "SELECT 1; -- done", []string{"SELECT 1"}},
		{"dollar quoted", "SELECT $$x;y$$; SELECT 2", []string{"SELECT $$x;y$$", "SELECT 2"}},
		{"empty", "  ;; \n", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, Split(tc.in))
		})
	}
}

func TestKeyword(t *testing.T) {
	cases := map[string]string{
		"select 1":                      "SELECT",
		"  (SELECT 1) UNION (SELECT 2)": "SELECT",
		"-- note\nWITH x AS (SELECT 1)": "WITH",
		"/* hi */ attach 'x.db'":        "ATTACH",
		"-- only a comment":             "",
		"SUMMARIZE df":                  "SUMMARIZE",
	}
	for in, want := range cases {
		require.Equal(t, want, Keyword(in), in)
	}
}
