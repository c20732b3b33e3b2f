package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/trellisdb/trellis"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of trellis",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("trellis version %s\n", strings.TrimSpace(trellis.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
