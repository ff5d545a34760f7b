package captcha

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Verifier valida un token de captcha resuelto por el cliente.
type Verifier interface {
	Verify(ctx context.Context, token string) error
}

var (
	ErrCaptchaFailed      = errors.New("captcha verification failed")
	ErrCaptchaUnreachable = errors.New("captcha service unreachable")
)

type disabledVerifier struct{}

// NewDisabledVerifier acepta cualquier token; se usa cuando no hay secret configurado.
func NewDisabledVerifier() Verifier {
	return disabledVerifier{}
}

func (disabledVerifier) Verify(_ context.Context, _ string) error {
	return nil
}

// RecaptchaVerifier consulta el endpoint siteverify de Google reCAPTCHA.
type RecaptchaVerifier struct {
	secret  string
	client  *http.Client
	baseURL string
}

func NewRecaptchaVerifier(secret string) *RecaptchaVerifier {
	return &RecaptchaVerifier{
		secret:  secret,
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: "https://www.google.com/recaptcha/api/siteverify",
	}
}

func (v *RecaptchaVerifier) Verify(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return ErrCaptchaFailed
	}

	form := url.Values{}
	form.Set("secret", v.secret)
	form.Set("response", token)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.baseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCaptchaUnreachable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCaptchaUnreachable, err)
	}

	var payload struct {
		Success bool `json:"success"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return fmt.Errorf("%w: %v", ErrCaptchaUnreachable, err)
	}
	if !payload.Success {
		return ErrCaptchaFailed
	}
	return nil
}
