package codegen

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/datachat-cli/internal/history"
)

const systemPrompt = `You are a DuckDB SQL expert working with a single table.
You are also an expert in English, so you read each question carefully and work out exactly what it asks for.
Reply with a DuckDB SQL script only. No prose, no explanations, no Markdown.`

// buildPrompt assembles the user message: schema, preview, conversation and query.
// The history block has already been trimmed to fit.
func buildPrompt(table string, columns []string, extra, preview string, convo []string, query string) string {
	var sb strings.Builder

	sb.WriteString("[INSTRUCTIONS]\n")
	fmt.Fprintf(&sb, "Write a DuckDB SQL script that answers the question using the table %s.\n", table)
	sb.WriteString("The script should:\n")
	sb.WriteString("- Use appropriate aggregations, groupings and filters.\n")
	sb.WriteString("- Reference columns by their exact names, double-quoted when they contain spaces or symbols.\n")
	sb.WriteString("- Use case-insensitive matching (ILIKE) for text filters and exclude NULLs where relevant.\n")
	sb.WriteString("- Cast date and time columns explicitly before comparing or grouping them.\n")
	sb.WriteString("- Avoid DISTINCT unless the question asks for unique values.\n")
	sb.WriteString("- Name computed columns clearly (for example avg_los_hours, case_count).\n")
	sb.WriteString("- Sort results sensibly, descending for counts and other numeric rankings.\n")
	sb.WriteString("- When finding the highest or lowest value, return both the label and its value.\n")
	sb.WriteString("- Store the final answer with CREATE TEMP TABLE result AS ... (or CREATE VIEW result AS ...).\n")
	sb.WriteString("- Never read files, attach databases, change settings or manage transactions.\n")
	if extra = strings.TrimSpace(extra); extra != "" {
		sb.WriteString("\n[GUIDANCE]\n")
		sb.WriteString(extra)
		sb.WriteString("\n")
	}

	sb.WriteString("\n[COLUMNS]\n")
	for _, c := range columns {
		fmt.Fprintf(&sb, "- %s\n", c)
	}

	sb.WriteString("\n[PREVIEW]\n")
	sb.WriteString(strings.TrimSpace(preview))
	sb.WriteString("\n")

	if len(convo) > 0 {
		sb.WriteString("\n[CONVERSATION SO FAR]\n")
		for _, line := range convo {
			sb.WriteString(line)
			sb.WriteString("\n")
		}
	}

	sb.WriteString("\n[TASK]\n")
	sb.WriteString("Write the complete SQL script to answer the following question:\n")
	sb.WriteString(strings.TrimSpace(query))
	sb.WriteString("\n")
	return sb.String()
}

// conversationLines renders turns oldest first, one entry per turn.
func conversationLines(turns []history.Turn) []string {
	out := make([]string, 0, len(turns))
	for _, t := range turns {
		label := "User"
		if t.Role == history.RoleAssistant {
			label = "Assistant"
		}
		out = append(out, label+": "+t.Content)
	}
	return out
}
