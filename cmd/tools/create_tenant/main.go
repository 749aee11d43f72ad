// Command create_tenant inserts a tenant row and prints a freshly generated
// API token. Only the bcrypt hash of the token is stored; the plaintext is
// shown once and cannot be recovered.
//
// Usage:
//
//	go run cmd/tools/create_tenant/main.go -name "Acme" [-ai-enabled] [-auto-publish]
//
// Requires DATABASE_URL environment variable to be set.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/gracebase/content-pipeline/internal/config"
	"github.com/gracebase/content-pipeline/internal/db"
	"github.com/gracebase/content-pipeline/internal/types"
)

func main() {
	_ = godotenv.Load()

	name := flag.String("name", "", "Tenant name (required)")
	aiEnabled := flag.Bool("ai-enabled", true, "Allow AI generation for this tenant")
	autoPublish := flag.Bool("auto-publish", false, "Accepted drafts go straight to approved")
	flag.Parse()

	if *name == "" {
		fmt.Fprintln(os.Stderr, "ERROR: -name is required")
		os.Exit(1)
	}

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		fmt.Fprintln(os.Stderr, "ERROR: DATABASE_URL environment variable not set")
		os.Exit(1)
	}

	ctx := context.Background()

	database, err := db.Connect(ctx, dsn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer database.Close()

	if err := database.EnsureSchema(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: Failed to ensure schema: %v\n", err)
		os.Exit(1)
	}

	tokens, err := config.NewAPITokenConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}

	token, err := tokens.GenerateToken()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: Failed to generate token: %v\n", err)
		os.Exit(1)
	}
	hash, err := tokens.HashToken(token)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: Failed to hash token: %v\n", err)
		os.Exit(1)
	}

	tenant := &types.Tenant{
		ID:           uuid.New(),
		Name:         *name,
		AIEnabled:    *aiEnabled,
		AutoPublish:  *autoPublish,
		APITokenHash: hash,
	}
	if err := database.CreateTenant(ctx, tenant); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: Failed to create tenant: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Tenant created: %s\n", tenant.ID)
	fmt.Printf("  Name:         %s\n", tenant.Name)
	fmt.Printf("  AI enabled:   %v\n", tenant.AIEnabled)
	fmt.Printf("  Auto-publish: %v\n", tenant.AutoPublish)
	fmt.Println()
	fmt.Printf("API token (save it now, it is not stored): %s\n", token)
}
