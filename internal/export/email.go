package export

import (
	"context"
	"fmt"
	"net/smtp"
	"os"
	"strings"

	"github.com/livetemplate/blockdraft"
)

// EmailSink delivers exported templates via SMTP. HTML exports arrive
// as the message body a mail client renders; JSON exports arrive as a
// plain-text body.
type EmailSink struct {
	to       string
	from     string
	subject  string
	format   Format
	smtpHost string
	smtpPort string
	username string
	password string
}

// NewEmailSink creates an email sink.
// SMTP configuration is read from environment variables:
//   - SMTP_HOST: SMTP server hostname
//   - SMTP_PORT: SMTP server port (default: 587)
//   - SMTP_USER: SMTP authentication username
//   - SMTP_PASS: SMTP authentication password
//   - SMTP_FROM: Sender email address
func NewEmailSink(to, subject string, format Format) (*EmailSink, error) {
	host := os.Getenv("SMTP_HOST")
	if host == "" {
		return nil, fmt.Errorf("email sink: SMTP_HOST environment variable not set")
	}
	from := os.Getenv("SMTP_FROM")
	if from == "" {
		return nil, fmt.Errorf("email sink: SMTP_FROM environment variable not set")
	}
	port := os.Getenv("SMTP_PORT")
	if port == "" {
		port = "587"
	}

	return NewEmailSinkWithConfig(to, from, subject, format, host, port,
		os.Getenv("SMTP_USER"), os.Getenv("SMTP_PASS"))
}

// NewEmailSinkWithConfig creates an email sink with explicit SMTP
// configuration. This is primarily useful for testing.
func NewEmailSinkWithConfig(to, from, subject string, format Format, smtpHost, smtpPort, username, password string) (*EmailSink, error) {
	if to == "" {
		return nil, fmt.Errorf("email sink: recipient (to) is required")
	}
	if from == "" {
		return nil, fmt.Errorf("email sink: sender (from) is required")
	}
	if smtpHost == "" {
		return nil, fmt.Errorf("email sink: SMTP host is required")
	}
	if smtpPort == "" {
		smtpPort = "587"
	}

	return &EmailSink{
		to:       to,
		from:     from,
		subject:  subject,
		format:   format,
		smtpHost: smtpHost,
		smtpPort: smtpPort,
		username: username,
		password: password,
	}, nil
}

// Name returns "email".
func (e *EmailSink) Name() string {
	return "email"
}

// Send renders the template and mails it to the configured recipient.
func (e *EmailSink) Send(ctx context.Context, tpl blockdraft.Template) error {
	data, err := Bytes(tpl, e.format)
	if err != nil {
		return err
	}

	addr := e.smtpHost + ":" + e.smtpPort

	var auth smtp.Auth
	if e.username != "" && e.password != "" {
		auth = smtp.PlainAuth("", e.username, e.password, e.smtpHost)
	}

	msg := e.buildMessage(tpl, data)
	if err := smtp.SendMail(addr, auth, e.from, []string{e.to}, msg); err != nil {
		return fmt.Errorf("email sink: failed to send: %w", err)
	}
	return nil
}

func (e *EmailSink) buildMessage(tpl blockdraft.Template, body []byte) []byte {
	subject := e.subject
	if subject == "" {
		subject = tpl.Name
	}

	contentType := "text/plain; charset=UTF-8"
	if e.format == FormatHTML {
		contentType = "text/html; charset=UTF-8"
	}

	var msg strings.Builder
	msg.WriteString(fmt.Sprintf("From: %s\r\n", e.from))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", e.to))
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString(fmt.Sprintf("Content-Type: %s\r\n", contentType))
	msg.WriteString("\r\n")
	msg.Write(body)
	return []byte(msg.String())
}

// To returns the configured recipient address.
func (e *EmailSink) To() string {
	return e.to
}

// Close is a no-op for email sinks.
func (e *EmailSink) Close() error {
	return nil
}
