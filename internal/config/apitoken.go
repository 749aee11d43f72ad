// Package config provides API token configuration and hashing functionality.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"

	"golang.org/x/crypto/bcrypt"
)

// APITokenConfig holds configuration for tenant API token hashing and
// verification. Only the bcrypt hash of a token is ever stored.
type APITokenConfig struct {
	BcryptCost int
}

// NewAPITokenConfig creates a new API token configuration from environment
// variables. It reads BCRYPT_COST (default: 12).
func NewAPITokenConfig() (*APITokenConfig, error) {
	costStr := os.Getenv("BCRYPT_COST")
	if costStr == "" {
		costStr = "12" // default
	}

	cost, err := strconv.Atoi(costStr)
	if err != nil {
		return nil, fmt.Errorf("invalid BCRYPT_COST: %v", err)
	}

	config := &APITokenConfig{BcryptCost: cost}
	if err := config.normalize(); err != nil {
		return nil, err
	}

	return config, nil
}

// normalize validates the configuration.
func (c *APITokenConfig) normalize() error {
	if c.BcryptCost < 10 || c.BcryptCost > 14 {
		return fmt.Errorf("bcrypt cost out of range: %d (must be 10-14)", c.BcryptCost)
	}
	return nil
}

// GenerateToken produces a new random API token.
func (c *APITokenConfig) GenerateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// HashToken hashes an API token using bcrypt.
func (c *APITokenConfig) HashToken(token string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(token), c.BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash token: %w", err)
	}
	return string(hash), nil
}

// VerifyToken verifies an API token against a stored hash.
func (c *APITokenConfig) VerifyToken(token, storedHash string) bool {
	if storedHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(token)) == nil
}
