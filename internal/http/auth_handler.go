package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"login-page/internal/captcha"
	"login-page/internal/service"
)

const (
	accessCookie  = "token"
	refreshCookie = "refresh_token"
)

// CookieSettings controla los atributos de las cookies de sesión.
type CookieSettings struct {
	Secure bool
	Path   string
}

// AuthHandler mantiene dependencias para los endpoints de autenticación.
type AuthHandler struct {
	logger   *zap.Logger
	authServ *service.AuthService
	captcha  captcha.Verifier
	cookies  CookieSettings
}

// NewAuthHandler crea una instancia de AuthHandler con dependencias necesarias.
func NewAuthHandler(logger *zap.Logger, authServ *service.AuthService, captchaVerifier captcha.Verifier, cookies CookieSettings) *AuthHandler {
	if captchaVerifier == nil {
		captchaVerifier = captcha.NewDisabledVerifier()
	}
	if cookies.Path == "" {
		cookies.Path = "/"
	}
	return &AuthHandler{
		logger:   logger,
		authServ: authServ,
		captcha:  captchaVerifier,
		cookies:  cookies,
	}
}

// Register maneja POST /api/auth/register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req struct {
		Email        string `json:"email" binding:"required,email"`
		Password     string `json:"password" binding:"required"`
		Name         string `json:"name" binding:"required"`
		CaptchaToken string `json:"captcha_token"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid register request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if !h.verifyCaptcha(c, req.CaptchaToken) {
		return
	}

	account, err := h.authServ.Register(c.Request.Context(), service.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
	})
	emailSent := true
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmailSendFailure):
			// La cuenta quedó creada; solo falló el correo de verificación.
			emailSent = false
		case errors.Is(err, service.ErrDuplicateEmail):
			c.JSON(http.StatusBadRequest, gin.H{"error": "user already exists"})
			return
		case errors.Is(err, service.ErrValidation):
			c.JSON(http.StatusBadRequest, gin.H{"error": "all fields are required"})
			return
		case errors.Is(err, service.ErrWeakPassword):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		default:
			h.logger.Error("register failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not register"})
			return
		}
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":    true,
		"user":       account.Summary(),
		"email_sent": emailSent,
	})
}

// VerifyEmail maneja GET /api/auth/verify-email.
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	token := c.Query("token")
	account, err := h.authServ.VerifyEmail(c.Request.Context(), token)
	if err != nil {
		if errors.Is(err, service.ErrTokenInvalid) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid or expired token"})
			return
		}
		h.logger.Error("verify email failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not verify email"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": account.Summary()})
}

// ResendVerification maneja POST /api/auth/resend-verification.
func (h *AuthHandler) ResendVerification(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid resend request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	err := h.authServ.ResendVerification(c.Request.Context(), req.Email)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"success": true})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusBadRequest, gin.H{"error": "user not found"})
	case errors.Is(err, service.ErrAlreadyVerified):
		c.JSON(http.StatusBadRequest, gin.H{"error": "account already verified"})
	case errors.Is(err, service.ErrRateLimited):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
	case errors.Is(err, service.ErrEmailSendFailure):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "email delivery unavailable"})
	default:
		h.logger.Error("resend verification failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not resend verification"})
	}
}

// Login maneja POST /api/auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email        string `json:"email" binding:"required,email"`
		Password     string `json:"password" binding:"required"`
		RememberMe   bool   `json:"remember_me"`
		CaptchaToken string `json:"captcha_token"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid login request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if !h.verifyCaptcha(c, req.CaptchaToken) {
		return
	}

	result, err := h.authServ.Login(c.Request.Context(), service.LoginInput{
		Email:      req.Email,
		Password:   req.Password,
		RememberMe: req.RememberMe,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid credentials"})
		case errors.Is(err, service.ErrVerificationRequired):
			c.JSON(http.StatusForbidden, gin.H{"error": "email verification required"})
		case errors.Is(err, service.ErrAccountLocked):
			c.JSON(http.StatusLocked, gin.H{"error": "account temporarily locked"})
		default:
			h.logger.Error("login failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not login"})
		}
		return
	}

	h.setSessionCookies(c, result)
	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"user":          result.Account.Summary(),
		"token":         result.AccessToken,
		"refresh_token": result.RefreshToken,
	})
}

// RefreshToken maneja POST /api/auth/refresh-token.
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	refreshToken := h.refreshTokenFrom(c)
	if refreshToken == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing refresh token"})
		return
	}

	result, err := h.authServ.Refresh(c.Request.Context(), refreshToken)
	if err != nil {
		if errors.Is(err, service.ErrTokenInvalid) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
			return
		}
		h.logger.Error("refresh failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not refresh token"})
		return
	}

	h.setSessionCookies(c, result)
	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"token":         result.AccessToken,
		"refresh_token": result.RefreshToken,
	})
}

// Logout maneja POST /api/auth/logout; siempre responde 200.
func (h *AuthHandler) Logout(c *gin.Context) {
	if refreshToken := h.refreshTokenFrom(c); refreshToken != "" {
		if err := h.authServ.Logout(c.Request.Context(), refreshToken); err != nil {
			h.logger.Error("logout failed", zap.Error(err))
		}
	}
	h.clearSessionCookies(c)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Status maneja GET /api/auth/status.
func (h *AuthHandler) Status(c *gin.Context) {
	token, err := c.Cookie(accessCookie)
	if err != nil || token == "" {
		c.JSON(http.StatusOK, gin.H{"is_authenticated": false})
		return
	}
	account, ok := h.authServ.Status(c.Request.Context(), token)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"is_authenticated": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"is_authenticated": true,
		"user":             account.Summary(),
	})
}

// ForgotPassword maneja POST /api/auth/forgot-password.
// Responde 200 exista o no la cuenta para no permitir enumeración.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid forgot password request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	err := h.authServ.ForgotPassword(c.Request.Context(), req.Email)
	switch {
	case err == nil, errors.Is(err, service.ErrEmailSendFailure):
		c.JSON(http.StatusOK, gin.H{"success": true})
	case errors.Is(err, service.ErrRateLimited):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
	default:
		h.logger.Error("forgot password failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not process request"})
	}
}

// OAuthLogin maneja POST /api/auth/oauth.
func (h *AuthHandler) OAuthLogin(c *gin.Context) {
	var req struct {
		Provider   string `json:"provider" binding:"required"`
		Credential string `json:"credential" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid oauth request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	result, err := h.authServ.OAuthLogin(c.Request.Context(), req.Provider, req.Credential)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOAuthInvalid):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid oauth credential"})
		case errors.Is(err, service.ErrDependencyFailure):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "identity provider unavailable"})
		default:
			h.logger.Error("oauth login failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not complete oauth"})
		}
		return
	}

	h.setSessionCookies(c, result)
	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"user":          result.Account.Summary(),
		"token":         result.AccessToken,
		"refresh_token": result.RefreshToken,
	})
}

func (h *AuthHandler) verifyCaptcha(c *gin.Context, token string) bool {
	err := h.captcha.Verify(c.Request.Context(), token)
	if err == nil {
		return true
	}
	if errors.Is(err, captcha.ErrCaptchaUnreachable) {
		h.logger.Error("captcha verification error", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "captcha verification unavailable"})
		return false
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "captcha verification failed"})
	return false
}

func (h *AuthHandler) refreshTokenFrom(c *gin.Context) string {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.ShouldBindJSON(&req); err == nil && req.RefreshToken != "" {
		return req.RefreshToken
	}
	token, err := c.Cookie(refreshCookie)
	if err != nil {
		return ""
	}
	return token
}

func (h *AuthHandler) setSessionCookies(c *gin.Context, result service.LoginResult) {
	c.SetSameSite(http.SameSiteStrictMode)
	accessMaxAge := int(time.Until(result.AccessExpiry).Seconds())
	refreshMaxAge := int(time.Until(result.RefreshExpiry).Seconds())
	c.SetCookie(accessCookie, result.AccessToken, accessMaxAge, h.cookies.Path, "", h.cookies.Secure, true)
	c.SetCookie(refreshCookie, result.RefreshToken, refreshMaxAge, h.cookies.Path, "", h.cookies.Secure, true)
}

func (h *AuthHandler) clearSessionCookies(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(accessCookie, "", -1, h.cookies.Path, "", h.cookies.Secure, true)
	c.SetCookie(refreshCookie, "", -1, h.cookies.Path, "", h.cookies.Secure, true)
}
