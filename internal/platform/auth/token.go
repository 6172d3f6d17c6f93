// Package auth issues and verifies the bearer tokens that protect every API
// route, and exposes role-based route guards.
package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const (
	UserIDKey    contextKey = "user_id"
	UserNameKey  contextKey = "user_name"
	UserCPFKey   contextKey = "user_cpf"
	UserRolesKey contextKey = "user_roles"
)

// Claims is the token payload: the authenticated user plus the approved
// roles consulted by authorization checks.
type Claims struct {
	jwt.RegisteredClaims
	Name  string   `json:"name"`
	CPF   string   `json:"cpf"`
	Roles []string `json:"roles"`
}

// TokenIssuer signs session tokens with an HMAC secret.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenIssuer creates a TokenIssuer. ttl bounds the token lifetime.
func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), ttl: ttl}
}

// Issue signs a token for the given user and approved roles.
func (i *TokenIssuer) Issue(userID, name, cpf string, roles []string) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
		Name:  name,
		CPF:   cpf,
		Roles: roles,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a token, returning its claims.
func (i *TokenIssuer) Verify(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

func UserIDFromContext(ctx context.Context) string {
	uid, _ := ctx.Value(UserIDKey).(string)
	return uid
}

func UserNameFromContext(ctx context.Context) string {
	name, _ := ctx.Value(UserNameKey).(string)
	return name
}

func UserCPFFromContext(ctx context.Context) string {
	cpf, _ := ctx.Value(UserCPFKey).(string)
	return cpf
}

func RolesFromContext(ctx context.Context) []string {
	roles, _ := ctx.Value(UserRolesKey).([]string)
	return roles
}

// HasRole reports whether the context's user carries the given role.
func HasRole(ctx context.Context, role string) bool {
	for _, r := range RolesFromContext(ctx) {
		if r == role {
			return true
		}
	}
	return false
}
