package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testJWTSecret = "super-secret-jwt-token-with-at-least-32-characters"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func TestAuthService_ValidateToken(t *testing.T) {
	client := NewMockSupabaseClient()
	logger := NewMockLogger()

	service := NewAuthService(client, "", logger)

	// Test valid token
	user, err := service.ValidateToken("valid-token")
	if err != nil {
		t.Errorf("Expected no error for valid token, got %v", err)
	}

	if user.ID != "user-123" {
		t.Errorf("Expected user ID 'user-123', got '%s'", user.ID)
	}

	if user.Email != "test@example.com" {
		t.Errorf("Expected user email 'test@example.com', got '%s'", user.Email)
	}

	// Test invalid token
	_, err = service.ValidateToken("invalid-token")
	if err == nil {
		t.Error("Expected error for invalid token")
	}

	expectedError := "invalid token: invalid token"
	if err.Error() != expectedError {
		t.Errorf("Expected error message '%s', got '%s'", expectedError, err.Error())
	}

	// Test empty token
	_, err = service.ValidateToken("")
	if err == nil {
		t.Error("Expected error for empty token")
	}
}

func TestAuthService_CachesRemoteValidation(t *testing.T) {
	client := NewMockSupabaseClient()
	service := NewAuthService(client, "", NewMockLogger())
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	service.now = func() time.Time { return now }

	_, _ = service.ValidateToken("valid-token")
	_, _ = service.ValidateToken("valid-token")
	if client.calls != 1 {
		t.Fatalf("expected 1 Supabase call, got %d", client.calls)
	}

	now = now.Add(validatedTokenCacheTTL + time.Second)
	_, _ = service.ValidateToken("valid-token")
	if client.calls != 2 {
		t.Fatalf("expected cache expiry to revalidate, got %d calls", client.calls)
	}
}

func TestAuthService_LocalJWT(t *testing.T) {
	service := NewAuthService(NewMockSupabaseClient(), testJWTSecret, NewMockLogger())
	exp := time.Now().Add(time.Hour).Unix()

	token := signToken(t, testJWTSecret, jwt.MapClaims{
		"sub":   "0b7c3a4e-1111-2222-3333-444455556666",
		"email": "jane@example.com",
		"role":  "authenticated",
		"exp":   exp,
	})
	user, err := service.ValidateToken(token)
	if err != nil {
		t.Fatalf("expected valid token, got %v", err)
	}
	if user.ID != "0b7c3a4e-1111-2222-3333-444455556666" || user.Email != "jane@example.com" {
		t.Fatalf("unexpected user %+v", user)
	}
}

func TestAuthService_LocalJWTRejections(t *testing.T) {
	service := NewAuthService(NewMockSupabaseClient(), testJWTSecret, NewMockLogger())
	future := time.Now().Add(time.Hour).Unix()

	tests := map[string]string{
		"wrong secret": signToken(t, "another-secret-another-secret-another", jwt.MapClaims{"sub": "u1", "exp": future}),
		"expired":      signToken(t, testJWTSecret, jwt.MapClaims{"sub": "u1", "exp": time.Now().Add(-time.Hour).Unix()}),
		"no expiry":    signToken(t, testJWTSecret, jwt.MapClaims{"sub": "u1"}),
		"no subject":   signToken(t, testJWTSecret, jwt.MapClaims{"role": "anon", "exp": future}),
		"garbage":      "not-a-jwt",
	}
	for name, token := range tests {
		if _, err := service.ValidateToken(token); err == nil {
			t.Errorf("%s: expected rejection", name)
		}
	}
}
