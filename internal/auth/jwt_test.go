package auth

import (
	"testing"
	"time"

	"github.com/erazemk/inventar/internal/model"
)

func TestGenerateAndValidateToken(t *testing.T) {
	secret := "test-secret-key"

	token, err := GenerateToken(secret, 0, "USR-1000", "Root", model.RoleSuperAdmin)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	claims, err := ValidateToken(secret, token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}

	if claims.UserID != "USR-1000" {
		t.Errorf("expected user_id USR-1000, got %q", claims.UserID)
	}
	if claims.Name != "Root" {
		t.Errorf("expected name 'Root', got %q", claims.Name)
	}
	if claims.Role != model.RoleSuperAdmin {
		t.Errorf("expected role %q, got %q", model.RoleSuperAdmin, claims.Role)
	}
	if claims.ID == "" {
		t.Error("expected a JTI")
	}
}

func TestTokensHaveDistinctJTI(t *testing.T) {
	a, _ := GenerateToken("s", 0, "USR-1000", "a", model.RoleMember)
	b, _ := GenerateToken("s", 0, "USR-1000", "a", model.RoleMember)
	ca, _ := ValidateToken("s", a)
	cb, _ := ValidateToken("s", b)
	if ca.ID == cb.ID {
		t.Errorf("expected distinct JTIs, both %q", ca.ID)
	}
}

func TestValidateTokenWrongSecret(t *testing.T) {
	token, _ := GenerateToken("secret1", 0, "USR-1000", "admin", model.RoleAdmin)

	_, err := ValidateToken("secret2", token)
	if err == nil {
		t.Error("expected error for wrong secret")
	}
}

func TestValidateTokenInvalid(t *testing.T) {
	_, err := ValidateToken("secret", "not-a-token")
	if err == nil {
		t.Error("expected error for invalid token")
	}
}

func TestValidateTokenExpired(t *testing.T) {
	token, _ := GenerateToken("secret", -1, "USR-1000", "a", model.RoleMember)
	if _, err := ValidateToken("secret", token); err != nil {
		t.Fatalf("negative ttl should fall back to the default expiry: %v", err)
	}
}

func TestTokenExpiry(t *testing.T) {
	secret := "test"
	ttl := 2 * time.Hour
	token, _ := GenerateToken(secret, ttl, "USR-1000", "test", model.RoleMember)
	claims, _ := ValidateToken(secret, token)

	expiresAt := claims.ExpiresAt.Time
	expectedExpiry := time.Now().Add(ttl)

	// Should be within a few seconds.
	diff := expectedExpiry.Sub(expiresAt)
	if diff < -5*time.Second || diff > 5*time.Second {
		t.Errorf("token expiry too far from expected: diff=%v", diff)
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse", 4)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "correct horse" {
		t.Fatal("hash must not equal the password")
	}
	if !CheckPassword(hash, "correct horse") {
		t.Error("expected password to match")
	}
	if CheckPassword(hash, "wrong horse") {
		t.Error("expected wrong password to fail")
	}
}
