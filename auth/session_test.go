package auth

import (
	"context"
	"testing"

	"github.com/golang-jwt/jwt/v5"

	"github.com/RelayEats/sync_layer/domain"
)

// =============================================================================
// Session Identity Tests
// =============================================================================

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func TestFromAccessToken_UserMetadataRole(t *testing.T) {
	token := signToken(t, jwt.MapClaims{
		"sub":   "u1",
		"email": "driver@example.com",
		"role":  "authenticated",
		"user_metadata": map[string]any{
			"role": "driver",
		},
	})

	id, err := FromAccessToken(token)
	if err != nil {
		t.Fatalf("FromAccessToken() error: %v", err)
	}
	if id.UserID != "u1" || id.Email != "driver@example.com" {
		t.Errorf("identity = %+v", id)
	}
	if id.Role != domain.RoleDriver {
		t.Errorf("Role = %s, want driver", id.Role)
	}
}

func TestFromAccessToken_AppMetadataFallback(t *testing.T) {
	token := signToken(t, jwt.MapClaims{
		"sub":  "u2",
		"role": "authenticated",
		"app_metadata": map[string]any{
			"role": "admin",
		},
	})

	id, err := FromAccessToken(token)
	if err != nil {
		t.Fatalf("FromAccessToken() error: %v", err)
	}
	if id.Role != domain.RoleAdmin {
		t.Errorf("Role = %s, want admin", id.Role)
	}
}

func TestFromAccessToken_DefaultsToCustomer(t *testing.T) {
	// "authenticated" is Supabase's postgres role, not an app role.
	token := signToken(t, jwt.MapClaims{
		"sub":  "u3",
		"role": "authenticated",
	})

	id, err := FromAccessToken(token)
	if err != nil {
		t.Fatalf("FromAccessToken() error: %v", err)
	}
	if id.Role != domain.RoleCustomer {
		t.Errorf("Role = %s, want customer", id.Role)
	}
}

func TestFromAccessToken_MissingSubject(t *testing.T) {
	token := signToken(t, jwt.MapClaims{"email": "x@y.z"})

	if _, err := FromAccessToken(token); err == nil {
		t.Error("FromAccessToken() error = nil for token without sub")
	}
}

func TestFromAccessToken_Garbage(t *testing.T) {
	if _, err := FromAccessToken("not.a.jwt"); err == nil {
		t.Error("FromAccessToken() error = nil for garbage token")
	}
}

func TestIdentityContextRoundtrip(t *testing.T) {
	want := Identity{UserID: "u1", Role: domain.RoleDriver}
	ctx := WithIdentity(context.Background(), want)

	got, ok := IdentityFrom(ctx)
	if !ok {
		t.Fatal("IdentityFrom() ok = false")
	}
	if got != want {
		t.Errorf("identity = %+v, want %+v", got, want)
	}

	if _, ok := IdentityFrom(context.Background()); ok {
		t.Error("IdentityFrom() ok = true on empty context")
	}
}
