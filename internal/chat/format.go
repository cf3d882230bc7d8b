package chat

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/datachat-cli/internal/history"
	"github.com/KaramelBytes/datachat-cli/internal/sandbox"
)

const (
	MsgNoOutput        = "Execution completed, but no result or printed output was produced."
	MsgNoHistory       = "No conversation history yet. Try asking some questions first!"
	MsgHistoryCleared  = "Conversation history has been cleared."
	MsgNoPreviousQuery = "I don't have a previous query to reanalyze. Please provide a new query."
	MsgApology         = "Apologies! Let me recheck and correct the response. Please wait a moment."
)

// Welcome is the greeting shown when a session starts.
func Welcome(datasetName string) string {
	var sb strings.Builder
	sb.WriteString("Welcome to DataChat! 🎉\n\n")
	if datasetName != "" {
		fmt.Fprintf(&sb, "You are exploring %s. ", datasetName)
	}
	sb.WriteString("Ask questions in plain English, for example:\n")
	sb.WriteString("- What is the distribution of cases by category?\n")
	sb.WriteString("- Which category has the highest number of cases?\n")
	sb.WriteString("- Show discharge dates for various groups.\n\n")
	fmt.Fprintf(&sb, "Type %q to review the conversation, %q to start over, ", CommandShowHistory, CommandDeleteHistory)
	sb.WriteString("or say \"wrong answer\" to have the last question re-done.")
	return sb.String()
}

// FormatOutcome renders an execution outcome: the result slot first, then
// captured output, then the no-output notice.
func FormatOutcome(o *sandbox.Outcome) string {
	switch {
	case o.HasResult():
		return "Execution Result:\n" + o.Result.Render()
	case strings.TrimSpace(o.Stdout) != "":
		return "Printed Output:\n" + strings.TrimSpace(o.Stdout)
	}
	return MsgNoOutput
}

// formatCorrected renders the same outcome under the correction label.
func formatCorrected(o *sandbox.Outcome) string {
	switch {
	case o.HasResult():
		return "Corrected Result:\n" + o.Result.Render()
	case strings.TrimSpace(o.Stdout) != "":
		return "Corrected Result:\n" + strings.TrimSpace(o.Stdout)
	}
	return "Corrected Result:\n" + MsgNoOutput
}

func formatCode(label, code string) string {
	return fmt.Sprintf("%s\n```sql\n%s\n```", label, code)
}

// FormatHistory numbers each question and lists the replies under it.
func FormatHistory(turns []history.Turn) string {
	if len(turns) == 0 {
		return MsgNoHistory
	}
	var sb strings.Builder
	sb.WriteString("Conversation History:\n")
	n := 0
	for i, t := range turns {
		if t.Role == history.RoleUser || i == 0 {
			if n > 0 {
				sb.WriteString("---\n")
			}
			n++
			fmt.Fprintf(&sb, "\nConversation %d:\n", n)
		}
		if t.Role == history.RoleUser {
			fmt.Fprintf(&sb, "You asked: %s\n", t.Content)
		} else {
			fmt.Fprintf(&sb, "Assistant replied: %s\n", t.Content)
		}
	}
	sb.WriteString("---")
	return sb.String()
}
