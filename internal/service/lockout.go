package service

import (
	"time"

	"login-page/internal/domain"
)

// LockoutPolicy decide las transiciones del contador de intentos fallidos.
// Todas las funciones son puras: el llamador persiste el estado resultante.
type LockoutPolicy struct {
	Threshold int
	Duration  time.Duration
}

func NewLockoutPolicy(threshold int, duration time.Duration) LockoutPolicy {
	if threshold <= 0 {
		threshold = 5
	}
	if duration <= 0 {
		duration = 30 * time.Minute
	}
	return LockoutPolicy{Threshold: threshold, Duration: duration}
}

// Locked informa si la cuenta está bloqueada en el instante dado.
func (p LockoutPolicy) Locked(state domain.LockState, now time.Time) bool {
	return state.LockedUntil != nil && now.Before(*state.LockedUntil)
}

// Effective normaliza el snapshot: un bloqueo ya vencido vuelve a Unlocked(0).
func (p LockoutPolicy) Effective(state domain.LockState, now time.Time) domain.LockState {
	if state.LockedUntil != nil && !now.Before(*state.LockedUntil) {
		return domain.LockState{}
	}
	return state
}

// Fail registra un intento fallido y bloquea al alcanzar el umbral.
func (p LockoutPolicy) Fail(state domain.LockState, now time.Time) domain.LockState {
	state = p.Effective(state, now)
	next := domain.LockState{FailedAttempts: state.FailedAttempts + 1}
	if next.FailedAttempts >= p.Threshold {
		until := now.Add(p.Duration)
		next.LockedUntil = &until
	}
	return next
}

// Success resetea el contador tras una autenticación correcta.
func (p LockoutPolicy) Success() domain.LockState {
	return domain.LockState{}
}
