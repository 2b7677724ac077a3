// Package middleware provides the HTTP middleware chain for the gateway:
// request IDs, token authentication, and the coarse per-IP flood gate.
package middleware

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims holds the parsed claims of a validated access token. The
// gateway does not mint tokens; it consumes tokens issued by the external
// auth layer, which puts the caller's username in "sub" and the gateway
// role in "role".
type TokenClaims struct {
	Subject string
	Role    string
	Issuer  string
	Raw     map[string]interface{}
}

// TokenValidator validates an access token and returns the parsed claims.
type TokenValidator interface {
	Validate(ctx context.Context, tokenString string) (*TokenClaims, error)
}

// HS256Validator validates tokens signed with a shared HS256 secret.
type HS256Validator struct {
	secret []byte
}

// NewHS256Validator creates a validator over a shared secret.
func NewHS256Validator(secret string) (*HS256Validator, error) {
	if secret == "" {
		return nil, fmt.Errorf("JWT secret is required")
	}
	return &HS256Validator{secret: []byte(secret)}, nil
}

// Validate verifies an HS256 token and extracts the gateway claims.
func (v *HS256Validator) Validate(_ context.Context, tokenString string) (*TokenClaims, error) {
	tok, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if token.Method == nil || token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("token verification failed: %w", err)
	}

	raw, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("parse claims: unsupported claim type %T", tok.Claims)
	}

	claims := &TokenClaims{Raw: map[string]interface{}(raw)}
	if sub, ok := raw["sub"].(string); ok {
		claims.Subject = sub
	}
	if role, ok := raw["role"].(string); ok {
		claims.Role = role
	}
	if iss, ok := raw["iss"].(string); ok {
		claims.Issuer = iss
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("token has no subject")
	}
	if claims.Role == "" {
		return nil, fmt.Errorf("token has no role claim")
	}
	return claims, nil
}
