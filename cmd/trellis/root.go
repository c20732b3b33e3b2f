package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

var (
	verbose   bool
	rootDir   string
	workspace string
	actor     string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "trellis",
	Short: "A hierarchical document layer over a flat key-value store",
	Long: `Trellis stores small JSON documents at hierarchical paths inside a
workspace and emulates directory semantics (ls, mkdir, rm, mv) over a flat
store with bounded atomic transactions.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}

		var handler slog.Handler
		if isatty.IsTerminal(os.Stderr.Fd()) {
			handler = tint.NewHandler(os.Stderr, &tint.Options{
				Level:      level,
				TimeFormat: time.Kitchen,
			})
		} else {
			handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
		}
		slog.SetDefault(slog.New(handler))
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&rootDir, "root", "", "Store root directory (defaults to config or ./data)")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "Workspace (defaults to config)")
	rootCmd.PersistentFlags().StringVar(&actor, "actor", "", "Actor writes are attributed to")
}
