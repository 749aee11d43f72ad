package main

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/gracebase/content-pipeline/internal/ai"
	"github.com/gracebase/content-pipeline/internal/config"
	"github.com/gracebase/content-pipeline/internal/db"
	"github.com/gracebase/content-pipeline/internal/moderation"
	"github.com/gracebase/content-pipeline/internal/observability"
	"github.com/gracebase/content-pipeline/internal/types"
)

var (
	autogenTenant string
	autogenTypes  string
)

var autogenCmd = &cobra.Command{
	Use:   "autogen",
	Short: "Run autonomous generation for a tenant",
	Long:  `Generate one draft per content type and place each directly into the tenant's review queue. Runs synchronously and prints the per-type outcome.`,
	RunE:  runAutogen,
}

func init() {
	autogenCmd.Flags().StringVar(&autogenTenant, "tenant", "", "Tenant ID (required)")
	autogenCmd.Flags().StringVar(&autogenTypes, "types", "", "Comma-separated content types (default: all)")
	_ = autogenCmd.MarkFlagRequired("tenant")
	rootCmd.AddCommand(autogenCmd)
}

func runAutogen(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	tenantID, err := uuid.Parse(autogenTenant)
	if err != nil {
		return fmt.Errorf("invalid tenant ID: %w", err)
	}

	contentTypes := append([]types.ContentType(nil), types.AllContentTypes...)
	if autogenTypes != "" {
		contentTypes = contentTypes[:0]
		for _, raw := range strings.Split(autogenTypes, ",") {
			ct, err := types.ParseContentType(strings.TrimSpace(raw))
			if err != nil {
				return err
			}
			contentTypes = append(contentTypes, ct)
		}
	}

	ctx := cmd.Context()
	log := observability.NewLogger(cfg.AppEnv)

	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	aiConfig, err := ai.LoadConfig()
	if err != nil {
		return err
	}
	provider, err := ai.NewProvider(ctx, aiConfig, cfg.GeminiAPIKey)
	if err != nil {
		return fmt.Errorf("failed to create provider: %w", err)
	}
	defer provider.Close() //nolint:errcheck

	svc := moderation.NewService(database, provider, log)
	outcome, err := svc.TriggerAutonomous(ctx, tenantID, contentTypes)
	if err != nil {
		return err
	}

	for _, o := range outcome.Outcomes {
		if o.Error != "" {
			fmt.Printf("%-18s FAILED  %s\n", o.ContentType, o.Error)
			continue
		}
		fmt.Printf("%-18s OK      %s\n", o.ContentType, o.RecordID)
	}
	fmt.Printf("%d/%d content types succeeded\n", len(outcome.Succeeded()), len(outcome.Outcomes))
	return nil
}
