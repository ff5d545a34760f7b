package email

import (
	"strings"
	"testing"
	"time"
)

func TestNewSMTPSender_Validation(t *testing.T) {
	if _, err := NewSMTPSender("", 587, "", "", "noreply@x.com", "", "http://localhost:3000", false); err == nil {
		t.Fatalf("expected error for missing host")
	}
	if _, err := NewSMTPSender("smtp.x.com", 587, "", "", "", "", "http://localhost:3000", false); err == nil {
		t.Fatalf("expected error for missing from address")
	}

	s, err := NewSMTPSender("smtp.x.com", 0, "", "", "noreply@x.com", "", "http://localhost:3000/", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.port != 587 {
		t.Errorf("expected default port 587, got %d", s.port)
	}
	if s.clientURL != "http://localhost:3000" {
		t.Errorf("expected trailing slash stripped, got %q", s.clientURL)
	}
}

func TestRenderVerificationTemplate(t *testing.T) {
	expires := time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)
	body, err := renderTemplate(verificationTmpl, "Ana", "http://localhost:3000/verify-email?token=abc", expires)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(body, "Hello Ana,") {
		t.Errorf("expected greeting in body")
	}
	if !strings.Contains(body, "http://localhost:3000/verify-email?token=abc") {
		t.Errorf("expected verification link in body")
	}
	if !strings.Contains(body, "2026-01-02T15:04:05Z") {
		t.Errorf("expected expiry timestamp in body")
	}
}

func TestRenderTemplate_EscapesHTML(t *testing.T) {
	body, err := renderTemplate(passwordResetTmpl, "<script>x</script>", "http://x.com/reset", time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(body, "<script>") {
		t.Fatalf("expected name to be escaped")
	}
}

func TestBuildMessage(t *testing.T) {
	msg := buildMessage("noreply@x.com", "Login Page", "a@x.com", "Verify Your Email Address", "<p>hi</p>")
	if !strings.Contains(msg, "From: Login Page <noreply@x.com>\r\n") {
		t.Errorf("expected named From header, got %q", msg)
	}
	if !strings.Contains(msg, "Subject: Verify Your Email Address\r\n") {
		t.Errorf("expected Subject header")
	}
	if !strings.Contains(msg, "Content-Type: text/html; charset=\"UTF-8\"") {
		t.Errorf("expected HTML content type")
	}
	if !strings.HasSuffix(msg, "\r\n\r\n<p>hi</p>") {
		t.Errorf("expected body after blank line, got %q", msg)
	}

	msg = buildMessage("noreply@x.com", "", "a@x.com", "s", "b")
	if !strings.Contains(msg, "From: noreply@x.com\r\n") {
		t.Errorf("expected bare From header without name, got %q", msg)
	}
}
