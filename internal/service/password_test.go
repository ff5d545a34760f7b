package service

import (
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestPasswordPolicyValidate_MinLength(t *testing.T) {
	p := NewPasswordPolicy(6, false)

	if err := p.Validate("abc12"); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected weak password error, got %v", err)
	}
	if err := p.Validate("abc123"); err != nil {
		t.Fatalf("expected 6-char password to pass, got %v", err)
	}
}

func TestPasswordPolicyValidate_RequireMixed(t *testing.T) {
	p := NewPasswordPolicy(6, true)

	cases := []struct {
		password string
		valid    bool
	}{
		{"abcdef", false},
		{"ABCDEF", false},
		{"123456", false},
		{"Abcdef", false},
		{"Abc123", true},
		{"aB3aB3", true},
	}
	for _, tc := range cases {
		err := p.Validate(tc.password)
		if tc.valid && err != nil {
			t.Fatalf("expected %q to pass, got %v", tc.password, err)
		}
		if !tc.valid && !errors.Is(err, ErrWeakPassword) {
			t.Fatalf("expected %q to fail with weak password, got %v", tc.password, err)
		}
	}
}

func TestPasswordHasher_HashAndVerify(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)

	hash, err := h.Hash("Abc123")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "Abc123" || hash == "" {
		t.Fatalf("expected salted hash distinct from plaintext")
	}
	if !h.Verify("Abc123", hash) {
		t.Fatalf("expected correct password to verify")
	}
	if h.Verify("Abc124", hash) {
		t.Fatalf("expected wrong password to fail")
	}

	// Salt aleatorio: dos hashes del mismo plaintext difieren.
	other, err := h.Hash("Abc123")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if other == hash {
		t.Fatalf("expected per-call random salt")
	}
}

func TestNewPasswordHasher_ClampsCost(t *testing.T) {
	h := NewPasswordHasher(99)
	if h.cost != 12 {
		t.Fatalf("expected out-of-range cost to fall back to 12, got %d", h.cost)
	}
}
