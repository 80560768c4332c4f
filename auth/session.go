// Package auth resolves the viewer identity behind a Supabase session.
package auth

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/RelayEats/sync_layer/domain"
)

// Identity is the authenticated viewer of the app.
type Identity struct {
	UserID string
	Email  string
	Role   domain.Role
}

// FromAccessToken extracts the identity from a Supabase access token. The
// token is decoded, not verified: RLS on the backend is the enforcement
// point, the client only needs to know who it is scoping queries for.
func FromAccessToken(token string) (Identity, error) {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return Identity{}, fmt.Errorf("parse access token: %w", err)
	}

	sub := getStringClaim(claims, "sub")
	if sub == "" {
		return Identity{}, fmt.Errorf("access token has no subject")
	}

	return Identity{
		UserID: sub,
		Email:  getStringClaim(claims, "email"),
		Role:   roleFromClaims(claims),
	}, nil
}

// roleFromClaims resolves the app role. The signup flow writes it to
// user_metadata; older accounts carry it in app_metadata. Anything else
// defaults to customer.
func roleFromClaims(claims jwt.MapClaims) domain.Role {
	for _, meta := range []map[string]any{
		getMapClaim(claims, "user_metadata"),
		getMapClaim(claims, "app_metadata"),
	} {
		if raw, ok := meta["role"].(string); ok {
			if role, ok := knownRole(raw); ok {
				return role
			}
		}
	}
	if role, ok := knownRole(getStringClaim(claims, "role")); ok {
		return role
	}
	return domain.RoleCustomer
}

func knownRole(raw string) (domain.Role, bool) {
	switch domain.Role(raw) {
	case domain.RoleCustomer, domain.RoleDriver, domain.RoleAdmin:
		return domain.Role(raw), true
	default:
		return "", false
	}
}

// contextKey is a custom type for context keys.
type contextKey string

const identityContextKey contextKey = "sync_identity"

// WithIdentity attaches the identity to the context.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, id)
}

// IdentityFrom retrieves the identity from the context.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityContextKey).(Identity)
	return id, ok
}

// =============================================================================
// Claim helpers
// =============================================================================

func getStringClaim(claims jwt.MapClaims, key string) string {
	if val, ok := claims[key]; ok {
		if s, ok := val.(string); ok {
			return s
		}
	}
	return ""
}

func getMapClaim(claims jwt.MapClaims, key string) map[string]any {
	if val, ok := claims[key]; ok {
		if m, ok := val.(map[string]any); ok {
			return m
		}
	}
	return nil
}
