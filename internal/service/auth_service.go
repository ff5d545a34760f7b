package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"login-page/internal/domain"
	"login-page/internal/email"
	"login-page/internal/oauth"
	"login-page/internal/repository"
)

var (
	ErrValidation           = errors.New("missing or malformed fields")
	ErrDuplicateEmail       = errors.New("email already registered")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrAccountLocked        = errors.New("account locked")
	ErrVerificationRequired = errors.New("email verification required")
	ErrTokenInvalid         = errors.New("invalid or expired token")
	ErrNotFound             = errors.New("account not found")
	ErrAlreadyVerified      = errors.New("account already verified")
	ErrEmailSendFailure     = errors.New("email send failed")
	ErrRateLimited          = errors.New("rate limited")
	ErrOAuthInvalid         = errors.New("oauth credential invalid")
	ErrDependencyFailure    = errors.New("external dependency unavailable")
)

// Reintentos del lazo read-evaluate-CAS sobre el estado de login.
const casRetries = 3

const passwordResetTTL = time.Hour

// AuthService orquesta el ciclo de vida de cuentas y sesiones.
type AuthService struct {
	logger         *zap.Logger
	accounts       repository.AccountRepository
	hasher         PasswordHasher
	passwordPolicy PasswordPolicy
	lockout        LockoutPolicy
	verification   VerificationTokenIssuer
	jwt            *JWTService
	emailSender    email.Sender
	identity       oauth.Verifier
	limiter        RateLimiter
	now            func() time.Time
}

// AuthServiceParams agrupa las dependencias de AuthService.
type AuthServiceParams struct {
	Logger         *zap.Logger
	Accounts       repository.AccountRepository
	Hasher         PasswordHasher
	PasswordPolicy PasswordPolicy
	Lockout        LockoutPolicy
	Verification   VerificationTokenIssuer
	JWT            *JWTService
	EmailSender    email.Sender
	Identity       oauth.Verifier
	Limiter        RateLimiter
}

func NewAuthService(p AuthServiceParams) *AuthService {
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	emailSender := p.EmailSender
	if emailSender == nil {
		emailSender = email.NewDisabledSender("")
	}
	limiter := p.Limiter
	if limiter == nil {
		limiter = NewMemoryRateLimiter(10*time.Minute, 3)
	}
	return &AuthService{
		logger:         logger,
		accounts:       p.Accounts,
		hasher:         p.Hasher,
		passwordPolicy: p.PasswordPolicy,
		lockout:        p.Lockout,
		verification:   p.Verification,
		jwt:            p.JWT,
		emailSender:    emailSender,
		identity:       p.Identity,
		limiter:        limiter,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

type RegisterInput struct {
	Email    string
	Password string
	Name     string
}

type LoginInput struct {
	Email      string
	Password   string
	RememberMe bool
}

// LoginResult agrupa la cuenta y los tokens emitidos para una sesión.
type LoginResult struct {
	Account       domain.Account
	AccessToken   string
	AccessExpiry  time.Time
	RefreshToken  string
	RefreshExpiry time.Time
}

// Register crea una cuenta sin verificar y dispara el correo de verificación.
// El fallo del correo NO revierte la cuenta creada: se devuelve junto con
// ErrEmailSendFailure para que el llamador lo trate como éxito degradado.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (domain.Account, error) {
	emailAddr := normalizeEmail(in.Email)
	name := strings.TrimSpace(in.Name)
	if emailAddr == "" || name == "" || in.Password == "" {
		return domain.Account{}, ErrValidation
	}
	if err := s.passwordPolicy.Validate(in.Password); err != nil {
		return domain.Account{}, err
	}

	passwordHash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return domain.Account{}, err
	}
	token, tokenExpiry, err := s.verification.Issue()
	if err != nil {
		return domain.Account{}, err
	}

	account := domain.Account{
		ID:                      uuid.NewString(),
		Email:                   emailAddr,
		DisplayName:             name,
		PasswordHash:            passwordHash,
		VerificationToken:       token,
		VerificationTokenExpiry: &tokenExpiry,
		CreatedAt:               s.now(),
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return domain.Account{}, ErrDuplicateEmail
		}
		return domain.Account{}, err
	}

	if err := s.emailSender.SendVerification(ctx, emailAddr, name, token, tokenExpiry); err != nil {
		s.logger.Warn("verification email failed",
			zap.String("account_id", account.ID), zap.Error(err))
		return account, ErrEmailSendFailure
	}
	return account, nil
}

// VerifyEmail consume el token de verificación; es de un solo uso.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) (domain.Account, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.Account{}, ErrTokenInvalid
	}
	account, err := s.accounts.GetByVerificationToken(ctx, token)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Account{}, ErrTokenInvalid
		}
		return domain.Account{}, err
	}
	if ValidateOpaqueToken(account.VerificationToken, account.VerificationTokenExpiry, token, s.now()) != TokenValid {
		return domain.Account{}, ErrTokenInvalid
	}
	if err := s.accounts.MarkVerified(ctx, account.ID); err != nil {
		return domain.Account{}, err
	}
	account.Verified = true
	account.VerificationToken = ""
	account.VerificationTokenExpiry = nil
	return account, nil
}

// ResendVerification reemite el token pendiente, invalidando el anterior.
func (s *AuthService) ResendVerification(ctx context.Context, emailAddr string) error {
	emailAddr = normalizeEmail(emailAddr)
	if emailAddr == "" {
		return ErrValidation
	}
	if s.limiter != nil && !s.limiter.Allow("resend:"+emailAddr) {
		return ErrRateLimited
	}
	account, err := s.accounts.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if account.Verified {
		return ErrAlreadyVerified
	}
	token, tokenExpiry, err := s.verification.Issue()
	if err != nil {
		return err
	}
	if err := s.accounts.UpdateVerificationToken(ctx, account.ID, token, tokenExpiry); err != nil {
		return err
	}
	if err := s.emailSender.SendVerification(ctx, emailAddr, account.DisplayName, token, tokenExpiry); err != nil {
		s.logger.Warn("verification email failed",
			zap.String("account_id", account.ID), zap.Error(err))
		return ErrEmailSendFailure
	}
	return nil
}

// Login autentica por contraseña aplicando la política de bloqueo.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (LoginResult, error) {
	emailAddr := normalizeEmail(in.Email)
	if emailAddr == "" || in.Password == "" {
		return LoginResult{}, ErrInvalidCredentials
	}
	account, err := s.accounts.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, err
	}

	now := s.now()
	// Cuenta bloqueada: rechazo inmediato sin consultar la contraseña.
	if s.lockout.Locked(account.LockState(), now) {
		return LoginResult{}, ErrAccountLocked
	}

	if account.PasswordHash == "" || !s.hasher.Verify(in.Password, account.PasswordHash) {
		if perr := s.persistFailedAttempt(ctx, account); perr != nil {
			s.logger.Error("persisting failed attempt",
				zap.String("account_id", account.ID), zap.Error(perr))
		}
		return LoginResult{}, ErrInvalidCredentials
	}

	if !account.Verified {
		return LoginResult{}, ErrVerificationRequired
	}

	return s.startSession(ctx, account, in.RememberMe)
}

// persistFailedAttempt escribe el nuevo estado de bloqueo aunque el login
// falle; usa CAS sobre version para no perder actualizaciones concurrentes.
func (s *AuthService) persistFailedAttempt(ctx context.Context, account domain.Account) error {
	var err error
	for i := 0; i < casRetries; i++ {
		state := s.lockout.Fail(account.LockState(), s.now())
		err = s.accounts.UpdateLoginState(ctx, account.ID, account.Version, state)
		if err == nil || !errors.Is(err, repository.ErrVersionConflict) {
			return err
		}
		account, err = s.accounts.GetByID(ctx, account.ID)
		if err != nil {
			return err
		}
	}
	return repository.ErrVersionConflict
}

func (s *AuthService) startSession(ctx context.Context, account domain.Account, rememberMe bool) (LoginResult, error) {
	accessToken, accessExpiry, err := s.jwt.IssueAccess(account, rememberMe)
	if err != nil {
		return LoginResult{}, err
	}
	refreshToken, refreshExpiry, err := s.jwt.IssueRefresh(account)
	if err != nil {
		return LoginResult{}, err
	}

	loginAt := s.now()
	for attempt := 0; ; attempt++ {
		err = s.accounts.RecordLogin(ctx, account.ID, account.Version, refreshToken, refreshExpiry, loginAt)
		if err == nil {
			break
		}
		if !errors.Is(err, repository.ErrVersionConflict) || attempt >= casRetries-1 {
			return LoginResult{}, err
		}
		account, err = s.accounts.GetByID(ctx, account.ID)
		if err != nil {
			return LoginResult{}, err
		}
	}

	account.FailedLoginAttempts = 0
	account.LockedUntil = nil
	account.RefreshToken = refreshToken
	account.RefreshTokenExpiry = &refreshExpiry
	account.LastLoginAt = &loginAt

	return LoginResult{
		Account:       account,
		AccessToken:   accessToken,
		AccessExpiry:  accessExpiry,
		RefreshToken:  refreshToken,
		RefreshExpiry: refreshExpiry,
	}, nil
}

// Refresh valida el refresh token contra el valor persistido y lo rota.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (LoginResult, error) {
	claims, err := s.jwt.ParseRefresh(refreshToken)
	if err != nil {
		return LoginResult{}, ErrTokenInvalid
	}
	account, err := s.accounts.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return LoginResult{}, ErrTokenInvalid
		}
		return LoginResult{}, err
	}
	if account.RefreshToken == "" ||
		subtle.ConstantTimeCompare([]byte(account.RefreshToken), []byte(refreshToken)) != 1 {
		return LoginResult{}, ErrTokenInvalid
	}
	if account.RefreshTokenExpiry == nil || s.now().After(*account.RefreshTokenExpiry) {
		return LoginResult{}, ErrTokenInvalid
	}

	accessToken, accessExpiry, err := s.jwt.IssueAccess(account, false)
	if err != nil {
		return LoginResult{}, err
	}
	// Rotación condicional sobre el token que reemplaza: si un logout u otra
	// rotación aterrizó después de la lectura, cero filas y la sesión no revive.
	newRefresh, newRefreshExpiry, err := s.jwt.IssueRefresh(account)
	if err != nil {
		return LoginResult{}, err
	}
	if err := s.accounts.RotateRefreshToken(ctx, account.ID, refreshToken, newRefresh, newRefreshExpiry); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return LoginResult{}, ErrTokenInvalid
		}
		return LoginResult{}, err
	}

	account.RefreshToken = newRefresh
	account.RefreshTokenExpiry = &newRefreshExpiry
	return LoginResult{
		Account:       account,
		AccessToken:   accessToken,
		AccessExpiry:  accessExpiry,
		RefreshToken:  newRefresh,
		RefreshExpiry: newRefreshExpiry,
	}, nil
}

// Logout invalida el refresh token persistido; es idempotente.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.jwt.ParseRefresh(refreshToken)
	if err != nil {
		return nil
	}
	if err := s.accounts.ClearRefreshToken(ctx, claims.UserID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return err
	}
	return nil
}

// Status resuelve el estado de autenticación a partir de un access token.
func (s *AuthService) Status(ctx context.Context, accessToken string) (domain.Account, bool) {
	claims, err := s.jwt.ParseAccess(accessToken)
	if err != nil {
		return domain.Account{}, false
	}
	account, err := s.accounts.GetByID(ctx, claims.UserID)
	if err != nil {
		return domain.Account{}, false
	}
	return account, true
}

// OAuthLogin inicia sesión con una identidad externa ya verificada por el
// proveedor; la cuenta resultante nace verificada y no pasa por el lockout.
func (s *AuthService) OAuthLogin(ctx context.Context, provider, credential string) (LoginResult, error) {
	if s.identity == nil {
		return LoginResult{}, ErrOAuthInvalid
	}
	ident, err := s.identity.Verify(ctx, provider, credential)
	if err != nil {
		if errors.Is(err, oauth.ErrProviderUnreachable) {
			return LoginResult{}, ErrDependencyFailure
		}
		return LoginResult{}, ErrOAuthInvalid
	}

	emailAddr := normalizeEmail(ident.Email)
	if emailAddr == "" {
		return LoginResult{}, ErrOAuthInvalid
	}

	account, err := s.accounts.GetByEmail(ctx, emailAddr)
	switch {
	case err == nil:
		if !account.Verified {
			if err := s.accounts.MarkVerified(ctx, account.ID); err != nil {
				return LoginResult{}, err
			}
			account.Verified = true
			account.VerificationToken = ""
			account.VerificationTokenExpiry = nil
		}
	case errors.Is(err, pgx.ErrNoRows):
		account, err = s.createExternalAccount(ctx, ident, emailAddr)
		if err != nil {
			return LoginResult{}, err
		}
	default:
		return LoginResult{}, err
	}

	return s.startSession(ctx, account, false)
}

func (s *AuthService) createExternalAccount(ctx context.Context, ident oauth.Identity, emailAddr string) (domain.Account, error) {
	// Placeholder aleatorio: la cuenta externa no tiene contraseña utilizable,
	// pero el hash nunca debe ser adivinable.
	placeholder, err := randomToken()
	if err != nil {
		return domain.Account{}, err
	}
	passwordHash, err := s.hasher.Hash(placeholder)
	if err != nil {
		return domain.Account{}, err
	}
	account := domain.Account{
		ID:           uuid.NewString(),
		Email:        emailAddr,
		DisplayName:  strings.TrimSpace(ident.Name),
		PasswordHash: passwordHash,
		Provider:     ident.Provider,
		Verified:     true,
		CreatedAt:    s.now(),
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			// Registro concurrente con el mismo email: reutilizar el existente.
			return s.accounts.GetByEmail(ctx, emailAddr)
		}
		return domain.Account{}, err
	}
	return account, nil
}

// ForgotPassword inicia el flujo de reset; la respuesta no revela existencia.
func (s *AuthService) ForgotPassword(ctx context.Context, emailAddr string) error {
	emailAddr = normalizeEmail(emailAddr)
	if emailAddr == "" {
		return ErrValidation
	}
	if s.limiter != nil && !s.limiter.Allow("reset:"+emailAddr) {
		return ErrRateLimited
	}
	account, err := s.accounts.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return err
	}
	token, err := randomToken()
	if err != nil {
		return err
	}
	expiry := s.now().Add(passwordResetTTL)
	if err := s.accounts.UpdatePasswordResetToken(ctx, account.ID, token, expiry); err != nil {
		return err
	}
	if err := s.emailSender.SendPasswordReset(ctx, emailAddr, account.DisplayName, token, expiry); err != nil {
		s.logger.Warn("password reset email failed",
			zap.String("account_id", account.ID), zap.Error(err))
		return ErrEmailSendFailure
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
