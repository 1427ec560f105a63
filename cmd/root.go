package cmd

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "machichat",
	Short: "地域情報に基づく不動産Q&Aアシスタント",
	Long: `machichat answers questions about residential areas and properties in
Japanese, grounded in an ingested knowledge base of municipal and
neighborhood documents. It ships a WebSocket chat server, a one-shot
ask command and tooling to ingest documents and manage conversation
history.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// API keys commonly live in a local .env file.
	_ = godotenv.Load()

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", ".machichat.yml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
