package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var mvCmd = &cobra.Command{
	Use:   "mv [source] [target]",
	Short: "Move a path and its descendants",
	Long: `Mv moves the document or subtree at source to target. Small moves are
atomic; larger ones copy first and then remove the source.`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		service, err := newService()
		if err != nil {
			fatal("Failed to initialize trellis", err)
		}
		defer service.Close()

		if err := service.Mv(context.Background(), args[0], args[1]); err != nil {
			fatal("Failed to move path", err)
		}

		fmt.Printf("Moved '%s' to '%s'.\n", args[0], args[1])
	},
}

func init() {
	rootCmd.AddCommand(mvCmd)
}
