package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gracebase/content-pipeline/internal/config"
	"github.com/gracebase/content-pipeline/internal/observability"
	"github.com/gracebase/content-pipeline/internal/server"
)

var (
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that exposes the generation, streaming, and moderation endpoints, plus the stale-job sweeper.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides PORT)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if servePort != 0 {
		cfg.Port = servePort
	}

	log := observability.NewLogger(cfg.AppEnv)

	srv, err := server.New(context.Background(), server.Config{
		Port:                 cfg.Port,
		DatabaseURL:          cfg.DatabaseURL,
		GeminiAPIKey:         cfg.GeminiAPIKey,
		SweepIntervalSeconds: cfg.SweepIntervalSeconds,
		Logger:               log,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	return srv.Start()
}
