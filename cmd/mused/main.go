// Package main implements the mused daemon and CLI: evidence indexing,
// retrieval, edge matching, an HTTP API, and an MCP stdio server.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// configPath overrides the default config file location.
	configPath string

	// version is set at build time via -ldflags.
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "mused",
	Short: "Evidence retrieval and matching daemon",
	Long: `mused indexes a corpus of research evidence documents into a vector
store and serves semantic retrieval and logic-model edge matching over
HTTP and MCP.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default ~/.config/muse/config.yaml)")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the mused version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("mused %s\n", version)
	},
}
