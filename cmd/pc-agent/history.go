package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var historyClear bool

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show or clear the recent requests sent to the translator",
	Long: `history prints the utterances the translator will see as context for this
agent's pair id. With --clear the stored history is dropped instead; this is
mostly useful when it lives in Redis and outlives the process.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		history := buildHistory(ctx, cfg, logger)
		defer history.Close()

		id := identity(cfg)
		if historyClear {
			if err := history.Clear(ctx, id); err != nil {
				return err
			}
			logger.Info("🧹 History cleared", zap.String("identity", id))
			return nil
		}

		text, err := history.FormattedHistory(ctx, id)
		if err != nil {
			return err
		}
		if text == "" {
			text = "No history.\n"
		}
		_, err = fmt.Fprint(cmd.OutOrStdout(), text)
		return err
	},
}

func init() {
	historyCmd.Flags().BoolVar(&historyClear, "clear", false, "Drop the stored history")
	rootCmd.AddCommand(historyCmd)
}
