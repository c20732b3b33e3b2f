package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var readCmd = &cobra.Command{
	Use:   "read [path]",
	Short: "Read the document at a path",
	Long:  `Read prints the JSON value stored at the given path. Absent or cleared documents print null.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		service, err := newService()
		if err != nil {
			fatal("Failed to initialize trellis", err)
		}
		defer service.Close()

		value, err := service.Read(context.Background(), args[0])
		if err != nil {
			fatal("Failed to read document", err)
		}

		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(value); err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(readCmd)
}
