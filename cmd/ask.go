package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/datachat-cli/internal/chat"
	"github.com/KaramelBytes/datachat-cli/internal/history"
)

var (
	askSession string
	askJSON    bool
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a single question and print the replies",
	Example: `  datachat ask "How many rows are there?" --dataset ./cases.csv
  datachat ask "wrong answer"
  datachat ask "show conversation history" --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		p, err := newPipeline(ctx, cfg)
		if err != nil {
			return err
		}
		defer p.Close()

		s, err := p.session(ctx, askSession)
		if err != nil {
			return err
		}
		replies := p.dispatcher.Handle(ctx, s, strings.Join(args, " "))
		return printReplies(cmd.OutOrStdout(), replies, askJSON)
	},
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringVar(&askSession, "session", history.DefaultSession, "conversation to continue")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "print replies as JSON")
}

func printReplies(w io.Writer, replies []chat.Reply, asJSON bool) error {
	if asJSON {
		if replies == nil {
			replies = []chat.Reply{}
		}
		b, err := json.MarshalIndent(map[string]any{"replies": replies}, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal output: %w", err)
		}
		fmt.Fprintln(w, string(b))
		return nil
	}
	for i, r := range replies {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w, r.Text)
	}
	return nil
}
