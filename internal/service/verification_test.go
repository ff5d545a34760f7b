package service

import (
	"testing"
	"time"
)

func TestVerificationTokenIssuerIssue(t *testing.T) {
	issuer := NewVerificationTokenIssuer(24 * time.Hour)
	start := time.Now().UTC()

	token, expiry, err := issuer.Issue()
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if len(token) != 64 {
		t.Fatalf("expected 32 random bytes hex-encoded, got %d chars", len(token))
	}
	if expiry.Before(start.Add(23*time.Hour)) || expiry.After(start.Add(25*time.Hour)) {
		t.Fatalf("expected expiry around 24h, got %v", expiry)
	}

	other, _, err := issuer.Issue()
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if other == token {
		t.Fatalf("expected distinct tokens per issue")
	}
}

func TestValidateOpaqueToken(t *testing.T) {
	now := time.Now().UTC()
	future := now.Add(time.Hour)
	past := now.Add(-time.Second)

	if got := ValidateOpaqueToken("abc", &future, "abc", now); got != TokenValid {
		t.Fatalf("expected valid, got %v", got)
	}
	if got := ValidateOpaqueToken("abc", &past, "abc", now); got != TokenExpired {
		t.Fatalf("expected expired, got %v", got)
	}
	if got := ValidateOpaqueToken("abc", nil, "abc", now); got != TokenExpired {
		t.Fatalf("expected missing expiry to read as expired, got %v", got)
	}
	if got := ValidateOpaqueToken("abc", &future, "abd", now); got != TokenMismatch {
		t.Fatalf("expected mismatch, got %v", got)
	}
	// Token ya consumido (almacenado vacío): el replay falla como mismatch.
	if got := ValidateOpaqueToken("", &future, "abc", now); got != TokenMismatch {
		t.Fatalf("expected cleared token to mismatch, got %v", got)
	}
	if got := ValidateOpaqueToken("abc", &future, "", now); got != TokenMismatch {
		t.Fatalf("expected empty supplied token to mismatch, got %v", got)
	}
}
