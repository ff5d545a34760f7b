package service

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"time"
)

// TokenCheck es el resultado de validar un token opaco almacenado.
type TokenCheck int

const (
	TokenValid TokenCheck = iota
	TokenExpired
	TokenMismatch
)

// VerificationTokenIssuer genera tokens opacos de un solo uso.
type VerificationTokenIssuer struct {
	ttl time.Duration
}

func NewVerificationTokenIssuer(ttl time.Duration) VerificationTokenIssuer {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return VerificationTokenIssuer{ttl: ttl}
}

// Issue devuelve 32 bytes aleatorios en hex y su expiración.
func (i VerificationTokenIssuer) Issue() (string, time.Time, error) {
	token, err := randomToken()
	if err != nil {
		return "", time.Time{}, err
	}
	return token, time.Now().UTC().Add(i.ttl), nil
}

// ValidateOpaqueToken compara en tiempo constante el token guardado con el recibido.
func ValidateOpaqueToken(stored string, expiry *time.Time, supplied string, now time.Time) TokenCheck {
	if stored == "" || supplied == "" {
		return TokenMismatch
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(supplied)) != 1 {
		return TokenMismatch
	}
	if expiry == nil || now.After(*expiry) {
		return TokenExpired
	}
	return TokenValid
}

func randomToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
