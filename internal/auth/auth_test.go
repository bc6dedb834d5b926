package auth

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func testLogger() zerolog.Logger { return zerolog.Nop() }

func TestPasswordHashAndVerify(t *testing.T) {
	pm := NewPasswordManager(4) // low cost for test speed

	hash, err := pm.HashPassword("correct-horse-battery")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}

	if !pm.VerifyPassword("correct-horse-battery", hash) {
		t.Error("correct password rejected")
	}
	if pm.VerifyPassword("wrong-password", hash) {
		t.Error("wrong password accepted")
	}
}

func TestJWTRoundTrip(t *testing.T) {
	m := NewJWTManager("test-secret", 15*time.Minute, time.Hour)

	token, err := m.GenerateAccessToken(UserClaims{UserID: "admin", Email: "ops@example.com", IsAdmin: true})
	if err != nil {
		t.Fatalf("GenerateAccessToken failed: %v", err)
	}

	claims, err := m.ValidateAccessToken(token)
	if err != nil {
		t.Fatalf("ValidateAccessToken failed: %v", err)
	}
	if claims.UserID != "admin" || claims.Email != "ops@example.com" || !claims.IsAdmin {
		t.Errorf("claims round-trip mismatch: %+v", claims)
	}
}

func TestJWTRejectsWrongSecret(t *testing.T) {
	issuer := NewJWTManager("secret-a", 15*time.Minute, time.Hour)
	verifier := NewJWTManager("secret-b", 15*time.Minute, time.Hour)

	token, err := issuer.GenerateAccessToken(UserClaims{UserID: "admin"})
	if err != nil {
		t.Fatalf("GenerateAccessToken failed: %v", err)
	}

	if _, err := verifier.ValidateAccessToken(token); err == nil {
		t.Error("token signed with a different secret was accepted")
	}
}

func TestJWTRejectsExpired(t *testing.T) {
	m := NewJWTManager("test-secret", -time.Minute, time.Hour)

	token, err := m.GenerateAccessToken(UserClaims{UserID: "admin"})
	if err != nil {
		t.Fatalf("GenerateAccessToken failed: %v", err)
	}

	if _, err := m.ValidateAccessToken(token); err != ErrTokenExpired {
		t.Errorf("expected ErrTokenExpired, got %v", err)
	}
}

func TestServiceLogin(t *testing.T) {
	pm := NewPasswordManager(4)
	hash, err := pm.HashPassword("s3cure-pass")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}

	svc := NewService("test-secret", "Admin@Example.com", hash, 15*time.Minute, testLogger())

	resp, err := svc.Login("admin@example.com", "s3cure-pass")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Error("login response missing tokens")
	}
	if resp.Email != "admin@example.com" {
		t.Errorf("expected normalized email, got %s", resp.Email)
	}

	if _, err := svc.Login("admin@example.com", "wrong"); err != ErrInvalidCredentials {
		t.Errorf("expected ErrInvalidCredentials for bad password, got %v", err)
	}
	if _, err := svc.Login("other@example.com", "s3cure-pass"); err != ErrInvalidCredentials {
		t.Errorf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}
}
