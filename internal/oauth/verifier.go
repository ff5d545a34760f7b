package oauth

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

// Identity es el resultado normalizado de verificar una credencial externa.
type Identity struct {
	Provider string
	Subject  string
	Email    string
	Name     string
}

// Verifier valida credenciales emitidas por un proveedor de identidad externo.
type Verifier interface {
	Verify(ctx context.Context, provider, credential string) (Identity, error)
}

var (
	ErrUnknownProvider     = errors.New("unknown oauth provider")
	ErrInvalidCredential   = errors.New("invalid oauth credential")
	ErrProviderUnreachable = errors.New("oauth provider unreachable")
)

const (
	ProviderGoogle   = "google"
	ProviderFacebook = "facebook"
)

// HTTPVerifier consulta los endpoints de introspección de Google y Facebook.
type HTTPVerifier struct {
	client         *http.Client
	googleClientID string
	facebookAppID  string

	googleBaseURL   string
	facebookBaseURL string
}

func NewHTTPVerifier(googleClientID, facebookAppID string) *HTTPVerifier {
	return &HTTPVerifier{
		client:          &http.Client{Timeout: 10 * time.Second},
		googleClientID:  googleClientID,
		facebookAppID:   facebookAppID,
		googleBaseURL:   "https://oauth2.googleapis.com",
		facebookBaseURL: "https://graph.facebook.com",
	}
}

func (v *HTTPVerifier) Verify(ctx context.Context, provider, credential string) (Identity, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return Identity{}, ErrInvalidCredential
	}
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case ProviderGoogle:
		return v.verifyGoogle(ctx, credential)
	case ProviderFacebook:
		return v.verifyFacebook(ctx, credential)
	default:
		return Identity{}, ErrUnknownProvider
	}
}

func (v *HTTPVerifier) verifyGoogle(ctx context.Context, idToken string) (Identity, error) {
	endpoint := v.googleBaseURL + "/tokeninfo?id_token=" + url.QueryEscape(idToken)
	var payload struct {
		Aud           string `json:"aud"`
		Sub           string `json:"sub"`
		Email         string `json:"email"`
		EmailVerified string `json:"email_verified"`
		Name          string `json:"name"`
	}
	if err := v.getJSON(ctx, endpoint, &payload); err != nil {
		return Identity{}, err
	}
	if v.googleClientID != "" && payload.Aud != v.googleClientID {
		return Identity{}, ErrInvalidCredential
	}
	if payload.Sub == "" || payload.Email == "" || payload.EmailVerified != "true" {
		return Identity{}, ErrInvalidCredential
	}
	return Identity{
		Provider: ProviderGoogle,
		Subject:  payload.Sub,
		Email:    payload.Email,
		Name:     payload.Name,
	}, nil
}

func (v *HTTPVerifier) verifyFacebook(ctx context.Context, accessToken string) (Identity, error) {
	endpoint := v.facebookBaseURL + "/me?fields=id,name,email&access_token=" + url.QueryEscape(accessToken)
	var payload struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := v.getJSON(ctx, endpoint, &payload); err != nil {
		return Identity{}, err
	}
	if payload.ID == "" || payload.Email == "" {
		return Identity{}, ErrInvalidCredential
	}
	return Identity{
		Provider: ProviderFacebook,
		Subject:  payload.ID,
		Email:    payload.Email,
		Name:     payload.Name,
	}, nil
}

func (v *HTTPVerifier) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := v.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProviderUnreachable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProviderUnreachable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return ErrInvalidCredential
	}
	return json.Unmarshal(body, out)
}
