package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var writeValue string

// writeCmd represents the write command
var writeCmd = &cobra.Command{
	Use:   "write [path]",
	Short: "Write a document",
	Long:  `Create or overwrite the document at the given path. The value is JSON; a missing --value clears the document while keeping the path addressable.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		path := args[0]

		var value any
		if writeValue != "" {
			if err := json.Unmarshal([]byte(writeValue), &value); err != nil {
				fatal("Invalid JSON value", err)
			}
		}

		service, err := newService()
		if err != nil {
			fatal("Failed to initialize trellis", err)
		}
		defer service.Close()

		if err := service.Write(context.Background(), path, value); err != nil {
			fatal("Failed to write document", err)
		}

		fmt.Printf("Document '%s' written.\n", path)
	},
}

func init() {
	rootCmd.AddCommand(writeCmd)
	writeCmd.Flags().StringVar(&writeValue, "value", "", "JSON value to store")
}
