package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fpang/bg-studio/internal/cli"
)

var validateKeyCmd = &cobra.Command{
	Use:   "validate-key",
	Short: "Check that the Gemini API key works",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		// InitImageClient exits with a specific message on any key problem.
		cli.InitImageClient(ctx, appConfig, true)
		fmt.Fprintln(cmd.OutOrStdout(), "API key is valid.")
	},
}
