// Package authorizer emulates an API Gateway custom authorizer for the dev
// server: it validates a bearer JWT and produces the claims map that
// deployed functions receive from the real authorizer.
package authorizer

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

var ErrUnauthorized = errors.New("unauthorized")

// Claims is the token payload. Scopes is a space-delimited list matching
// the OAuth2 scope claim convention.
type Claims struct {
	Scopes string `json:"scopes"`
	Domain string `json:"domain"`
	jwt.RegisteredClaims
}

// Config holds signing settings.
type Config struct {
	Secret        string
	TokenDuration time.Duration
	Issuer        string
}

// Authorizer signs and validates tokens.
type Authorizer struct {
	config *Config
	logger *logrus.Logger
}

// New creates an authorizer. Zero config fields get development defaults.
func New(config *Config, logger *logrus.Logger) *Authorizer {
	if config.TokenDuration == 0 {
		config.TokenDuration = 24 * time.Hour
	}
	if config.Issuer == "" {
		config.Issuer = "faaskit-dev"
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Authorizer{config: config, logger: logger}
}

// GenerateToken signs a token for the given subject.
func (a *Authorizer) GenerateToken(sub, domain string, scopes []string) (string, error) {
	now := time.Now()
	claims := &Claims{
		Scopes: strings.Join(scopes, " "),
		Domain: domain,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(a.config.TokenDuration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    a.config.Issuer,
			Subject:   sub,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(a.config.Secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses and verifies a token string.
func (a *Authorizer) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(a.config.Secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

// Authorize validates the Authorization header value and returns the
// authorizer claims map injected into the event, shaped like the deployed
// custom authorizer's output.
func (a *Authorizer) Authorize(authHeader string) (map[string]interface{}, error) {
	if authHeader == "" {
		return nil, fmt.Errorf("%w: missing authorization header", ErrUnauthorized)
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, fmt.Errorf("%w: expected bearer token", ErrUnauthorized)
	}

	claims, err := a.ValidateToken(parts[1])
	if err != nil {
		a.logger.WithError(err).Warn("Token validation failed")
		return nil, fmt.Errorf("%w: invalid or expired token", ErrUnauthorized)
	}

	return map[string]interface{}{
		"sub":    claims.Subject,
		"domain": claims.Domain,
		"scopes": claims.Scopes,
	}, nil
}
