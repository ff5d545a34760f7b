package service

import (
	"errors"
	"fmt"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

var ErrWeakPassword = errors.New("weak password")

// PasswordPolicy valida contraseñas antes de hashear.
type PasswordPolicy struct {
	MinLength    int
	RequireMixed bool // exige mayúscula, minúscula y dígito
}

func NewPasswordPolicy(minLength int, requireMixed bool) PasswordPolicy {
	if minLength <= 0 {
		minLength = 6
	}
	return PasswordPolicy{MinLength: minLength, RequireMixed: requireMixed}
}

func (p PasswordPolicy) Validate(password string) error {
	if len(password) < p.MinLength {
		return fmt.Errorf("%w: must be at least %d characters", ErrWeakPassword, p.MinLength)
	}
	if !p.RequireMixed {
		return nil
	}
	var upper, lower, digit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !upper || !lower || !digit {
		return fmt.Errorf("%w: must contain upper, lower and digit", ErrWeakPassword)
	}
	return nil
}

// PasswordHasher envuelve bcrypt con un costo configurable.
type PasswordHasher struct {
	cost int
}

func NewPasswordHasher(cost int) PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = 12
	}
	return PasswordHasher{cost: cost}
}

func (h PasswordHasher) Hash(password string) (string, error) {
	hashBytes, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(hashBytes), nil
}

// Verify compara la contraseña contra el hash almacenado.
func (h PasswordHasher) Verify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
