package server

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/gracebase/content-pipeline/internal/config"
	"github.com/gracebase/content-pipeline/internal/server/middleware"
)

// Claims represents JWT claims carrying the tenant and operator identity.
type Claims struct {
	TenantID   uuid.UUID `json:"tenant_id"`
	OperatorID uuid.UUID `json:"operator_id"`
	jwt.RegisteredClaims
}

// JWTService provides JWT token generation and validation functionality.
type JWTService struct {
	config *config.JWTConfig
}

// NewJWTService creates a new JWT service with the given configuration.
func NewJWTService(cfg *config.JWTConfig) *JWTService {
	return &JWTService{config: cfg}
}

// GenerateToken generates a JWT token for the given tenant and operator.
func (s *JWTService) GenerateToken(tenantID, operatorID uuid.UUID) (string, error) {
	now := time.Now()
	expiresAt := now.Add(s.config.Expiration())

	claims := &Claims{
		TenantID:   tenantID,
		OperatorID: operatorID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.config.Secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// ValidateToken validates a JWT token and returns the tenant context it
// carries. This implements the middleware.TokenValidator interface.
func (s *JWTService) ValidateToken(tokenString string) (*middleware.TenantContext, error) {
	if tokenString == "" {
		return nil, fmt.Errorf("token string is empty")
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.Secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("token is not valid")
	}
	if claims.TenantID == uuid.Nil {
		return nil, fmt.Errorf("token carries no tenant")
	}

	return &middleware.TenantContext{
		TenantID:   claims.TenantID,
		OperatorID: claims.OperatorID,
	}, nil
}
