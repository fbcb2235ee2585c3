package main

import (
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"go-jobwatch/internal/browser"
	"go-jobwatch/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective config with secrets masked",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(cfg.Redacted())
	},
}

var installCmd = &cobra.Command{
	Use:   "install-browsers",
	Short: "Download the Chromium build used by the playwright engine",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return browser.InstallPlaywright()
	},
}
