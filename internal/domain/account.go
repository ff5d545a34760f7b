package domain

import "time"

// Account es la única entidad persistida del servicio.
type Account struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	DisplayName  string     `json:"name"`
	PasswordHash string     `json:"-"`
	Provider     string     `json:"provider,omitempty"`
	Verified     bool       `json:"verified"`

	VerificationToken       string     `json:"-"`
	VerificationTokenExpiry *time.Time `json:"-"`
	PasswordResetToken      string     `json:"-"`
	PasswordResetExpiry     *time.Time `json:"-"`

	FailedLoginAttempts int        `json:"-"`
	LockedUntil         *time.Time `json:"-"`

	RefreshToken       string     `json:"-"`
	RefreshTokenExpiry *time.Time `json:"-"`

	// Version protege las escrituras read-modify-write en el repositorio.
	Version int64 `json:"-"`

	CreatedAt   time.Time  `json:"created_at"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

// AccountSummary es la proyección pública que devuelven los endpoints.
type AccountSummary struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Verified bool   `json:"verified"`
}

func (a Account) Summary() AccountSummary {
	return AccountSummary{
		ID:       a.ID,
		Email:    a.Email,
		Name:     a.DisplayName,
		Verified: a.Verified,
	}
}

// LockState es el snapshot inmutable sobre el que opera la política de bloqueo.
type LockState struct {
	FailedAttempts int
	LockedUntil    *time.Time
}

func (a Account) LockState() LockState {
	return LockState{
		FailedAttempts: a.FailedLoginAttempts,
		LockedUntil:    a.LockedUntil,
	}
}
