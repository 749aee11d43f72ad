// Package main provides the entry point for the content pipeline API server.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "content_pipeline",
	Short: "Content Pipeline HTTP API Server",
	Long:  "Content Pipeline produces AI-generated content drafts, streams them to operators, and drives every draft through a tenant-scoped moderation queue via REST API.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
