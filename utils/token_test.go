package utils

import (
	"testing"
	"time"
)

func TestJwtRoundTrip(t *testing.T) {
	t.Setenv("API_SECRET", "test-secret")
	token, err := JwtGenerate("tenant-1", "staff", time.Hour)
	if err != nil {
		t.Fatalf("JwtGenerate: %v", err)
	}
	claims, err := JwtValidate(token)
	if err != nil {
		t.Fatalf("JwtValidate: %v", err)
	}
	if claims.TenantId != "tenant-1" || claims.Role != "staff" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestJwtValidateRejectsOtherSecret(t *testing.T) {
	t.Setenv("API_SECRET", "one")
	token, err := JwtGenerate("tenant-1", "staff", time.Hour)
	if err != nil {
		t.Fatalf("JwtGenerate: %v", err)
	}
	t.Setenv("API_SECRET", "two")
	if _, err := JwtValidate(token); err == nil {
		t.Fatalf("expected signature error")
	}
}

func TestJwtValidateRejectsExpired(t *testing.T) {
	t.Setenv("API_SECRET", "test-secret")
	token, err := JwtGenerate("tenant-1", "staff", -time.Minute)
	if err != nil {
		t.Fatalf("JwtGenerate: %v", err)
	}
	if _, err := JwtValidate(token); err == nil {
		t.Fatalf("expected expiry error")
	}
}

func TestJwtGenerateRequiresSecret(t *testing.T) {
	t.Setenv("API_SECRET", "")
	if _, err := JwtGenerate("tenant-1", "staff", time.Hour); err == nil {
		t.Fatalf("expected error without API_SECRET")
	}
	if JwtSecretConfigured() {
		t.Fatalf("secret should be unconfigured")
	}
}
