package main

import (
	"encoding/json"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Odwa2003/Phone-Controller/internal/catalog"
)

var translateCmd = &cobra.Command{
	Use:   "translate <text>",
	Short: "Print the commands an utterance translates to, without running them",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		tr, history, err := buildTranslator(ctx, cfg, catalog.New(runtime.GOOS), logger)
		if err != nil {
			return err
		}
		defer history.Close()

		result := tr.Translate(ctx, strings.Join(args, " "))

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}
