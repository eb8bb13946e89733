package services

import (
	"bytes"
	"context"
	"html/template"
	"log/slog"
	"net/url"
	"strings"
	"time"
)

// Message is a single transactional email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Mailer delivers transactional email.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// LogMailer writes messages to the log instead of sending them.
type LogMailer struct {
	Logger *slog.Logger
}

func (m LogMailer) Send(ctx context.Context, msg Message) error {
	logger := m.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "email not sent, log mailer active",
		"to", msg.To,
		"subject", msg.Subject,
	)
	return nil
}

const resetSubject = "Reset Your FarmFresh Password"

var resetTemplate = template.Must(template.New("reset").Parse(`<!DOCTYPE html>
<html>
  <head>
    <meta charset="utf-8">
    <title>Reset Your Password</title>
  </head>
  <body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
    <div style="background: #16a34a; padding: 30px; text-align: center; border-radius: 10px 10px 0 0;">
      <h1 style="color: white; margin: 0; font-size: 28px;">FarmFresh</h1>
    </div>
    <div style="background: #f9fafb; padding: 40px 30px; border-radius: 0 0 10px 10px;">
      <h2 style="color: #1f2937; margin-top: 0;">Hello {{.Name}}!</h2>
      <p style="color: #4b5563; font-size: 16px;">
        We received a request to reset your password for your FarmFresh account.
        Click the button below to create a new password:
      </p>
      <div style="text-align: center; margin: 35px 0;">
        <a href="{{.Link}}" style="background: #16a34a; color: white; padding: 14px 32px; text-decoration: none; border-radius: 8px; display: inline-block; font-weight: 600;">Reset Password</a>
      </div>
      <p style="color: #6b7280; font-size: 14px;">Or copy and paste this link into your browser:</p>
      <p style="color: #3b82f6; font-size: 14px; word-break: break-all;">{{.Link}}</p>
      <p style="color: #92400e; font-size: 14px;">
        <strong>Security Notice:</strong> This link will expire in 1 hour.
        If you didn't request a password reset, please ignore this email.
      </p>
      <p style="color: #9ca3af; font-size: 12px; text-align: center;">&copy; {{.Year}} FarmFresh. All rights reserved.</p>
    </div>
  </body>
</html>
`))

// ResetLink builds the frontend URL a reset email points at.
func ResetLink(frontendURL, token string) string {
	return strings.TrimRight(frontendURL, "/") + "/reset-password?token=" + url.QueryEscape(token)
}

// PasswordResetMessage renders the reset email for one recipient.
func PasswordResetMessage(to, name, link string) (Message, error) {
	var buf bytes.Buffer
	err := resetTemplate.Execute(&buf, struct {
		Name string
		Link string
		Year int
	}{name, link, time.Now().Year()})
	if err != nil {
		return Message{}, err
	}
	return Message{To: to, Subject: resetSubject, HTML: buf.String()}, nil
}
