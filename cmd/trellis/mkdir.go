package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var mkdirCmd = &cobra.Command{
	Use:   "mkdir [path]",
	Short: "Create a directory",
	Long:  `Mkdir marks a path as a directory so it appears in listings before any document exists under it. Creating an existing directory is a no-op.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		service, err := newService()
		if err != nil {
			fatal("Failed to initialize trellis", err)
		}
		defer service.Close()

		if err := service.Mkdir(context.Background(), args[0]); err != nil {
			fatal("Failed to create directory", err)
		}

		fmt.Printf("Directory '%s' created.\n", args[0])
	},
}

func init() {
	rootCmd.AddCommand(mkdirCmd)
}
