package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var rmCmd = &cobra.Command{
	Use:   "rm [path]",
	Short: "Remove a path and its descendants",
	Long:  `Rm removes the document at the given path and, for directories, every descendant. Removing an absent path is a no-op.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		service, err := newService()
		if err != nil {
			fatal("Failed to initialize trellis", err)
		}
		defer service.Close()

		if err := service.Rm(context.Background(), args[0]); err != nil {
			fatal("Failed to remove path", err)
		}

		fmt.Printf("Removed '%s'.\n", args[0])
	},
}

func init() {
	rootCmd.AddCommand(rmCmd)
}
