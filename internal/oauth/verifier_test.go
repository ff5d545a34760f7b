package oauth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func googleVerifier(t *testing.T, handler http.HandlerFunc) *HTTPVerifier {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	v := NewHTTPVerifier("client-123", "")
	v.googleBaseURL = server.URL
	return v
}

func facebookVerifier(t *testing.T, handler http.HandlerFunc) *HTTPVerifier {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	v := NewHTTPVerifier("", "app-123")
	v.facebookBaseURL = server.URL
	return v
}

func TestVerifyGoogle(t *testing.T) {
	v := googleVerifier(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("id_token") != "tok" {
			t.Errorf("unexpected id_token %q", r.URL.Query().Get("id_token"))
		}
		w.Write([]byte(`{"aud":"client-123","sub":"g-1","email":"a@x.com","email_verified":"true","name":"A"}`))
	})

	identity, err := v.Verify(context.Background(), "google", "tok")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if identity.Provider != ProviderGoogle || identity.Subject != "g-1" || identity.Email != "a@x.com" {
		t.Fatalf("unexpected identity: %+v", identity)
	}
}

func TestVerifyGoogle_AudienceMismatch(t *testing.T) {
	v := googleVerifier(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"aud":"other","sub":"g-1","email":"a@x.com","email_verified":"true"}`))
	})

	if _, err := v.Verify(context.Background(), "google", "tok"); !errors.Is(err, ErrInvalidCredential) {
		t.Fatalf("expected ErrInvalidCredential, got %v", err)
	}
}

func TestVerifyGoogle_UnverifiedEmail(t *testing.T) {
	v := googleVerifier(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"aud":"client-123","sub":"g-1","email":"a@x.com","email_verified":"false"}`))
	})

	if _, err := v.Verify(context.Background(), "google", "tok"); !errors.Is(err, ErrInvalidCredential) {
		t.Fatalf("expected ErrInvalidCredential, got %v", err)
	}
}

func TestVerifyGoogle_RejectedToken(t *testing.T) {
	v := googleVerifier(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_token"}`, http.StatusBadRequest)
	})

	if _, err := v.Verify(context.Background(), "google", "tok"); !errors.Is(err, ErrInvalidCredential) {
		t.Fatalf("expected ErrInvalidCredential, got %v", err)
	}
}

func TestVerifyGoogle_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()
	v := NewHTTPVerifier("client-123", "")
	v.googleBaseURL = server.URL

	if _, err := v.Verify(context.Background(), "google", "tok"); !errors.Is(err, ErrProviderUnreachable) {
		t.Fatalf("expected ErrProviderUnreachable, got %v", err)
	}
}

func TestVerifyFacebook(t *testing.T) {
	v := facebookVerifier(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("access_token") != "tok" {
			t.Errorf("unexpected access_token %q", r.URL.Query().Get("access_token"))
		}
		w.Write([]byte(`{"id":"f-1","name":"A","email":"a@x.com"}`))
	})

	identity, err := v.Verify(context.Background(), "facebook", "tok")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if identity.Provider != ProviderFacebook || identity.Subject != "f-1" || identity.Email != "a@x.com" {
		t.Fatalf("unexpected identity: %+v", identity)
	}
}

func TestVerifyFacebook_MissingEmail(t *testing.T) {
	v := facebookVerifier(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"f-1","name":"A"}`))
	})

	if _, err := v.Verify(context.Background(), "facebook", "tok"); !errors.Is(err, ErrInvalidCredential) {
		t.Fatalf("expected ErrInvalidCredential, got %v", err)
	}
}

func TestVerify_UnknownProvider(t *testing.T) {
	v := NewHTTPVerifier("", "")
	if _, err := v.Verify(context.Background(), "twitter", "tok"); !errors.Is(err, ErrUnknownProvider) {
		t.Fatalf("expected ErrUnknownProvider, got %v", err)
	}
}

func TestVerify_EmptyCredential(t *testing.T) {
	v := NewHTTPVerifier("", "")
	if _, err := v.Verify(context.Background(), "google", "  "); !errors.Is(err, ErrInvalidCredential) {
		t.Fatalf("expected ErrInvalidCredential, got %v", err)
	}
}
