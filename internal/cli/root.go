package cli

import (
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "kindred",
	Short: "An AI companion with persistent, adaptive memory",
	Long:  "Kindred is a conversational AI companion that remembers. Facts, session memories, and emotional patterns persist across conversations in a local SQLite database.",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (default ~/.kindred/config.toml)")
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(cleanupCmd)
	rootCmd.AddCommand(consolidateCmd)
}
