package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
	env        string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "breadth",
	Short: "Configurable market breadth scoring engine",
	Long: `Breadthcore Unified CLI

Scores daily market breadth records with pluggable algorithms and
versioned calculation configs.

Usage:
  go run ./cmd/breadth [command]

Examples:
  go run ./cmd/breadth api
  go run ./cmd/breadth score --date 2024-01-15
  go run ./cmd/breadth backfill --from 2024-01-01 --to 2024-03-31 --save
  go run ./cmd/breadth config list`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().StringVar(&env, "env", "development", "environment (development|staging|production)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
