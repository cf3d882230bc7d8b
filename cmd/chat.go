package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/datachat-cli/internal/history"
)

var chatSession string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive conversation about the dataset",
	Long: `Start an interactive conversation. Each line is one question.
Ctrl-C cancels the question in flight; "exit" or end of input leaves.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := newPipeline(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer p.Close()

		s, err := p.session(cmd.Context(), chatSession)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, p.welcome())
		fmt.Fprintf(out, "\n(provider: %s, model: %s, rows: %d)\n", p.provider, p.model, p.dataset.RowCount())

		in := bufio.NewScanner(cmd.InOrStdin())
		in.Buffer(make([]byte, 64<<10), 1<<20)
		for {
			fmt.Fprint(out, "\n> ")
			if !in.Scan() {
				fmt.Fprintln(out)
				return in.Err()
			}
			line := strings.TrimSpace(in.Text())
			switch strings.ToLower(line) {
			case "":
				continue
			case "exit", "quit":
				return nil
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT)
			replies := p.dispatcher.Handle(ctx, s, line)
			interrupted := ctx.Err() != nil && cmd.Context().Err() == nil
			stop()

			fmt.Fprintln(out)
			if err := printReplies(out, replies, false); err != nil {
				return err
			}
			if interrupted {
				fmt.Fprintln(out, "(cancelled)")
			}
			if cmd.Context().Err() != nil {
				return context.Cause(cmd.Context())
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringVar(&chatSession, "session", history.DefaultSession, "conversation to continue")
}
