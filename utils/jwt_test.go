package utils

import (
	"testing"
	"time"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret-for-jwt")

	token, err := GenerateAccessTokenWithExpiry(42, time.Minute)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, err := ValidateAccessToken(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	uid, ok := UserIDFromClaims(claims)
	if !ok || uid != 42 {
		t.Fatalf("uid = %d ok=%v, want 42", uid, ok)
	}
}

func TestAccessToken_Expired(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret-for-jwt")

	token, err := GenerateAccessTokenWithExpiry(7, -time.Minute)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := ValidateAccessToken(token); err == nil {
		t.Fatal("expired token validated")
	}
}

func TestAccessToken_WrongSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret-for-jwt")
	token, err := GenerateAccessTokenWithExpiry(7, time.Minute)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	t.Setenv("JWT_SECRET", "a-different-secret")
	if _, err := ValidateAccessToken(token); err == nil {
		t.Fatal("token validated under wrong secret")
	}
}
