package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/datachat-cli/internal/chat"
	"github.com/KaramelBytes/datachat-cli/internal/history"
)

var historySession string

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect or clear the stored conversation",
}

var historyShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the conversation history",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		opener, err := openHistory(cfg)
		if err != nil {
			return err
		}
		defer opener.Close()
		store, err := opener.Open(cmd.Context(), historySession)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), chat.FormatHistory(store.Turns()))
		return nil
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the conversation history",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		opener, err := openHistory(cfg)
		if err != nil {
			return err
		}
		defer opener.Close()
		store, err := opener.Open(cmd.Context(), historySession)
		if err != nil {
			return err
		}
		if err := store.Clear(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), chat.MsgHistoryCleared)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyClearCmd)
	historyCmd.PersistentFlags().StringVar(&historySession, "session", history.DefaultSession, "conversation to inspect")
}
