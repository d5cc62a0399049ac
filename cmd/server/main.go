// Package main 是应用程序的入口点。
package main

import (
	"os"

	"github.com/spf13/cobra"
)

// configPath 是配置文件路径，所有子命令共用。
var configPath string

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "boardai",
	Short: "BoardAI multi-tenant advisory board server",
	Long: `boardai runs the BoardAI HTTP API: organizations upload documents,
define custom advisor personalities and stream multi-advisor analyses.

Running boardai without a subcommand is the same as "boardai serve".`,
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "./configs/config.yaml", "path to the YAML config file")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
}
