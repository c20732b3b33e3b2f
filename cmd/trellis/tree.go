package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
)

var treeJSON bool

var treeCmd = &cobra.Command{
	Use:   "tree [prefix]",
	Short: "Read every document under a prefix",
	Long:  `Tree prints every document under the given prefix, keyed by full path. Use "/" to read the entire workspace.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		service, err := newService()
		if err != nil {
			fatal("Failed to initialize trellis", err)
		}
		defer service.Close()

		docs, err := service.ReadTree(context.Background(), args[0])
		if err != nil {
			fatal("Failed to read tree", err)
		}

		if treeJSON {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			if err := encoder.Encode(docs); err != nil {
				fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
				os.Exit(1)
			}
			return
		}

		paths := make([]string, 0, len(docs))
		for p := range docs {
			paths = append(paths, p)
		}
		sort.Strings(paths)
		for _, p := range paths {
			value, err := json.Marshal(docs[p])
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("%s\t%s\n", p, value)
		}
	},
}

func init() {
	rootCmd.AddCommand(treeCmd)
	treeCmd.Flags().BoolVar(&treeJSON, "json", false, "Output as a single JSON object")
}
