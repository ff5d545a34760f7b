package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"login-page/internal/domain"
)

var (
	// ErrDuplicateEmail indica que el email normalizado ya existe.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrVersionConflict indica que otra escritura ganó la carrera sobre la cuenta.
	ErrVersionConflict = errors.New("account version conflict")
)

// AccountRepository define el contrato de persistencia para cuentas.
type AccountRepository interface {
	Create(ctx context.Context, account domain.Account) error
	GetByID(ctx context.Context, id string) (domain.Account, error)
	GetByEmail(ctx context.Context, email string) (domain.Account, error)
	GetByVerificationToken(ctx context.Context, token string) (domain.Account, error)

	// UpdateLoginState persiste contador y bloqueo con compare-and-swap sobre version.
	UpdateLoginState(ctx context.Context, id string, version int64, state domain.LockState) error
	// RecordLogin resetea el estado de bloqueo, fija last_login_at y persiste el refresh token.
	RecordLogin(ctx context.Context, id string, version int64, refreshToken string, refreshExpiry, loginAt time.Time) error

	MarkVerified(ctx context.Context, id string) error
	UpdateVerificationToken(ctx context.Context, id, token string, expiry time.Time) error
	UpdatePasswordResetToken(ctx context.Context, id, token string, expiry time.Time) error

	// RotateRefreshToken reemplaza el refresh token solo si el almacenado sigue
	// siendo oldToken; cero filas significa que otra escritura (logout, otra
	// rotación) ganó la carrera.
	RotateRefreshToken(ctx context.Context, id, oldToken, newToken string, expiry time.Time) error
	ClearRefreshToken(ctx context.Context, id string) error
}

const accountColumns = `
	id, email, display_name, password_hash, provider, verified,
	verification_token, verification_token_expiry,
	password_reset_token, password_reset_expiry,
	failed_login_attempts, locked_until,
	refresh_token, refresh_token_expiry,
	version, created_at, last_login_at
`

// PgAccountRepository implementa AccountRepository usando pgxpool.
type PgAccountRepository struct {
	pool *pgxpool.Pool
}

func NewPgAccountRepository(pool *pgxpool.Pool) *PgAccountRepository {
	return &PgAccountRepository{pool: pool}
}

func (r *PgAccountRepository) Create(ctx context.Context, a domain.Account) error {
	const query = `
		INSERT INTO accounts (
			id, email, display_name, password_hash, provider, verified,
			verification_token, verification_token_expiry, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.pool.Exec(ctx, query,
		a.ID,
		a.Email,
		a.DisplayName,
		a.PasswordHash,
		a.Provider,
		a.Verified,
		a.VerificationToken,
		a.VerificationTokenExpiry,
		a.CreatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrUniqueViolation {
		return ErrDuplicateEmail
	}
	return err
}

// Código SQLSTATE para violación de índice único.
const pgerrUniqueViolation = "23505"

func (r *PgAccountRepository) GetByID(ctx context.Context, id string) (domain.Account, error) {
	return r.getOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
}

func (r *PgAccountRepository) GetByEmail(ctx context.Context, email string) (domain.Account, error) {
	return r.getOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email = $1`, email)
}

func (r *PgAccountRepository) GetByVerificationToken(ctx context.Context, token string) (domain.Account, error) {
	return r.getOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE verification_token = $1 AND verification_token <> ''`, token)
}

func (r *PgAccountRepository) getOne(ctx context.Context, query string, arg any) (domain.Account, error) {
	var a domain.Account
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&a.ID,
		&a.Email,
		&a.DisplayName,
		&a.PasswordHash,
		&a.Provider,
		&a.Verified,
		&a.VerificationToken,
		&a.VerificationTokenExpiry,
		&a.PasswordResetToken,
		&a.PasswordResetExpiry,
		&a.FailedLoginAttempts,
		&a.LockedUntil,
		&a.RefreshToken,
		&a.RefreshTokenExpiry,
		&a.Version,
		&a.CreatedAt,
		&a.LastLoginAt,
	)
	if err != nil {
		return domain.Account{}, err
	}
	return a, nil
}

func (r *PgAccountRepository) UpdateLoginState(ctx context.Context, id string, version int64, state domain.LockState) error {
	const query = `
		UPDATE accounts
		SET failed_login_attempts = $3, locked_until = $4, version = version + 1
		WHERE id = $1 AND version = $2
	`
	tag, err := r.pool.Exec(ctx, query, id, version, state.FailedAttempts, state.LockedUntil)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrVersionConflict
	}
	return nil
}

func (r *PgAccountRepository) RecordLogin(ctx context.Context, id string, version int64, refreshToken string, refreshExpiry, loginAt time.Time) error {
	const query = `
		UPDATE accounts
		SET failed_login_attempts = 0, locked_until = NULL,
		    refresh_token = $3, refresh_token_expiry = $4,
		    last_login_at = $5, version = version + 1
		WHERE id = $1 AND version = $2
	`
	tag, err := r.pool.Exec(ctx, query, id, version, refreshToken, refreshExpiry, loginAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrVersionConflict
	}
	return nil
}

func (r *PgAccountRepository) MarkVerified(ctx context.Context, id string) error {
	const query = `
		UPDATE accounts
		SET verified = TRUE, verification_token = '', verification_token_expiry = NULL,
		    version = version + 1
		WHERE id = $1
	`
	return r.exec(ctx, query, id)
}

func (r *PgAccountRepository) UpdateVerificationToken(ctx context.Context, id, token string, expiry time.Time) error {
	const query = `
		UPDATE accounts
		SET verification_token = $2, verification_token_expiry = $3, version = version + 1
		WHERE id = $1
	`
	return r.exec(ctx, query, id, token, expiry)
}

func (r *PgAccountRepository) UpdatePasswordResetToken(ctx context.Context, id, token string, expiry time.Time) error {
	const query = `
		UPDATE accounts
		SET password_reset_token = $2, password_reset_expiry = $3, version = version + 1
		WHERE id = $1
	`
	return r.exec(ctx, query, id, token, expiry)
}

func (r *PgAccountRepository) RotateRefreshToken(ctx context.Context, id, oldToken, newToken string, expiry time.Time) error {
	const query = `
		UPDATE accounts
		SET refresh_token = $3, refresh_token_expiry = $4, version = version + 1
		WHERE id = $1 AND refresh_token = $2
	`
	tag, err := r.pool.Exec(ctx, query, id, oldToken, newToken, expiry)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrVersionConflict
	}
	return nil
}

func (r *PgAccountRepository) ClearRefreshToken(ctx context.Context, id string) error {
	const query = `
		UPDATE accounts
		SET refresh_token = '', refresh_token_expiry = NULL, version = version + 1
		WHERE id = $1
	`
	return r.exec(ctx, query, id)
}

func (r *PgAccountRepository) exec(ctx context.Context, query string, args ...any) error {
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
