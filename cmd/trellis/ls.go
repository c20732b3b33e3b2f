package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var lsCmd = &cobra.Command{
	Use:   "ls [path]",
	Short: "List the children of a path",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		service, err := newService()
		if err != nil {
			fatal("Failed to initialize trellis", err)
		}
		defer service.Close()

		children, err := service.Ls(context.Background(), args[0])
		if err != nil {
			fatal("Failed to list path", err)
		}

		for _, name := range children {
			fmt.Println(name)
		}
	},
}

func init() {
	rootCmd.AddCommand(lsCmd)
}
