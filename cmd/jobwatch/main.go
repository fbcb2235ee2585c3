// jobwatch watches job listing pages and reports new postings.
//
// Usage:
//
//	jobwatch check [--dry-run] [--target=<name>]
//	jobwatch serve
//	jobwatch export --target=<name> --out=<file.png>
//	jobwatch ping
//	jobwatch config
//	jobwatch install-browsers
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"go-jobwatch/internal/config"
)

// version is set at build time via -ldflags.
var version = "dev"

var configPath string

var rootCmd = &cobra.Command{
	Use:   "jobwatch",
	Short: "Detect new job postings on career pages",
	Long:  "jobwatch fetches each configured career page, compares it with the last\nobservation and notifies Telegram when new postings appear.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "path to the yaml config")
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(pingCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(installCmd)
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
