package auth

import (
	"testing"
	"time"
)

func TestGenerateParseRoundTrip(t *testing.T) {
	token, err := GenerateJWT("secret", 42, "ada@example.com", "Ada", "admin", time.Hour)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}

	claims, err := ParseJWT("secret", token)
	if err != nil {
		t.Fatalf("ParseJWT: %v", err)
	}
	if claims.UserID != 42 {
		t.Errorf("UserID = %d, want 42", claims.UserID)
	}
	if claims.Email != "ada@example.com" {
		t.Errorf("Email = %q", claims.Email)
	}
	if claims.Role != "admin" {
		t.Errorf("Role = %q", claims.Role)
	}
	if claims.ID == "" {
		t.Error("jti is empty, tokens would not be revocable")
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	token, err := GenerateJWT("secret", 1, "a@b.c", "A", "user", time.Hour)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}
	if _, err := ParseJWT("other-secret", token); err == nil {
		t.Error("expected error for wrong secret")
	}
}

func TestParseRejectsExpired(t *testing.T) {
	token, err := GenerateJWT("secret", 1, "a@b.c", "A", "user", -time.Minute)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}
	if _, err := ParseJWT("secret", token); err == nil {
		t.Error("expected error for expired token")
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter22")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !CheckPassword(hash, "hunter22") {
		t.Error("correct password rejected")
	}
	if CheckPassword(hash, "hunter23") {
		t.Error("wrong password accepted")
	}
}
