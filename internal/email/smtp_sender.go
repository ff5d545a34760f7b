package email

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"html/template"
	"net/smtp"
	"net/url"
	"strings"
	"time"
)

// SMTPSender envia correos via SMTP.
type SMTPSender struct {
	host      string
	port      int
	username  string
	password  string
	from      string
	fromName  string
	useTLS    bool
	clientURL string
}

func NewSMTPSender(host string, port int, username, password, from, fromName, clientURL string, useTLS bool) (*SMTPSender, error) {
	if strings.TrimSpace(host) == "" {
		return nil, fmt.Errorf("smtp host is required")
	}
	if strings.TrimSpace(from) == "" {
		return nil, fmt.Errorf("smtp from is required")
	}
	if port == 0 {
		port = 587
	}
	return &SMTPSender{
		host:      host,
		port:      port,
		username:  username,
		password:  password,
		from:      from,
		fromName:  fromName,
		useTLS:    useTLS,
		clientURL: strings.TrimRight(clientURL, "/"),
	}, nil
}

var verificationTmpl = template.Must(template.New("verification").Parse(`
<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2>Welcome!</h2>
  <p>Hello {{.Name}},</p>
  <p>Thank you for registering. Please verify your email address by clicking the link below:</p>
  <p><a href="{{.Link}}">Verify Email Address</a></p>
  <p>Or copy and paste this link: {{.Link}}</p>
  <p>This link will expire at {{.Expires}} UTC.</p>
  <p>If you didn't create an account, you can safely ignore this email.</p>
</div>
`))

var passwordResetTmpl = template.Must(template.New("reset").Parse(`
<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2>Reset Your Password</h2>
  <p>Hello {{.Name}},</p>
  <p>We received a request to reset your password. Click the link below to create a new password:</p>
  <p><a href="{{.Link}}">Reset Password</a></p>
  <p>Or copy and paste this link: {{.Link}}</p>
  <p>This link will expire at {{.Expires}} UTC.</p>
  <p>If you didn't request this, please ignore this email.</p>
</div>
`))

func (s *SMTPSender) SendVerification(_ context.Context, toEmail, name, token string, expiresAt time.Time) error {
	link := fmt.Sprintf("%s/verify-email?token=%s", s.clientURL, url.QueryEscape(token))
	body, err := renderTemplate(verificationTmpl, name, link, expiresAt)
	if err != nil {
		return err
	}
	return s.send(toEmail, "Verify Your Email Address", body)
}

func (s *SMTPSender) SendPasswordReset(_ context.Context, toEmail, name, token string, expiresAt time.Time) error {
	link := fmt.Sprintf("%s/reset-password?token=%s", s.clientURL, url.QueryEscape(token))
	body, err := renderTemplate(passwordResetTmpl, name, link, expiresAt)
	if err != nil {
		return err
	}
	return s.send(toEmail, "Reset Your Password", body)
}

func renderTemplate(tmpl *template.Template, name, link string, expiresAt time.Time) (string, error) {
	var buf bytes.Buffer
	err := tmpl.Execute(&buf, struct {
		Name    string
		Link    string
		Expires string
	}{
		Name:    name,
		Link:    link,
		Expires: expiresAt.UTC().Format(time.RFC3339),
	})
	return buf.String(), err
}

func (s *SMTPSender) send(toEmail, subject, body string) error {
	if strings.TrimSpace(toEmail) == "" {
		return fmt.Errorf("to email is required")
	}

	msg := buildMessage(s.from, s.fromName, toEmail, subject, body)
	addr := fmt.Sprintf("%s:%d", s.host, s.port)

	var auth smtp.Auth
	if s.username != "" {
		auth = smtp.PlainAuth("", s.username, s.password, s.host)
	}

	if s.useTLS {
		conn, err := tls.Dial("tcp", addr, &tls.Config{
			ServerName: s.host,
		})
		if err != nil {
			return err
		}
		defer conn.Close()

		client, err := smtp.NewClient(conn, s.host)
		if err != nil {
			return err
		}
		defer client.Quit()

		if auth != nil {
			if err := client.Auth(auth); err != nil {
				return err
			}
		}
		if err := client.Mail(s.from); err != nil {
			return err
		}
		if err := client.Rcpt(toEmail); err != nil {
			return err
		}
		writer, err := client.Data()
		if err != nil {
			return err
		}
		if _, err := writer.Write([]byte(msg)); err != nil {
			_ = writer.Close()
			return err
		}
		return writer.Close()
	}

	return smtp.SendMail(addr, auth, s.from, []string{toEmail}, []byte(msg))
}

func buildMessage(from, fromName, to, subject, body string) string {
	fromHeader := from
	if strings.TrimSpace(fromName) != "" {
		fromHeader = fmt.Sprintf("%s <%s>", fromName, from)
	}

	headers := []string{
		fmt.Sprintf("From: %s", fromHeader),
		fmt.Sprintf("To: %s", to),
		fmt.Sprintf("Subject: %s", subject),
		"MIME-Version: 1.0",
		"Content-Type: text/html; charset=\"UTF-8\"",
	}

	return strings.Join(headers, "\r\n") + "\r\n\r\n" + body
}
