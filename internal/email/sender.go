// Package email delivers confirmation emails over SMTP.
package email

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/smartscheduler/smartscheduler/internal/config"
	"github.com/smartscheduler/smartscheduler/internal/logging"
)

// Sender handles email delivery
type Sender struct {
	config Config
	log    *logging.Logger
}

// Config configures the email sender
type Config struct {
	SMTPHost    string
	SMTPPort    int
	Username    string
	Password    string
	FromEmail   string
	FromName    string
	UseTLS      bool
	UseStartTLS bool
	Timeout     time.Duration
}

// FromConfig builds the sender configuration from application settings.
// Port 465 means implicit TLS; anything else upgrades with STARTTLS.
func FromConfig(c config.EmailConfig) Config {
	port := c.Port
	if port == 0 {
		port = 587
	}
	return Config{
		SMTPHost:    c.Host,
		SMTPPort:    port,
		Username:    c.Username,
		Password:    c.Password,
		FromEmail:   c.From,
		FromName:    c.FromName,
		UseTLS:      port == 465,
		UseStartTLS: true,
		Timeout:     30 * time.Second,
	}
}

// NewSender creates a new email sender
func NewSender(cfg Config) *Sender {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Sender{
		config: cfg,
		log:    logging.WithField("component", "email"),
	}
}

// Message represents an email message
type Message struct {
	To       []string
	CC       []string
	Subject  string
	TextBody string
	HTMLBody string
	Headers  map[string]string
}

// Send sends an email message
func (s *Sender) Send(ctx context.Context, msg *Message) error {
	if !s.IsConfigured() {
		return fmt.Errorf("email sender not configured")
	}
	if len(msg.To) == 0 {
		return fmt.Errorf("no recipients")
	}

	email, err := s.buildEmail(msg)
	if err != nil {
		return fmt.Errorf("failed to build email: %w", err)
	}

	client, conn, err := s.connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()
	defer client.Close()

	if err := s.authenticate(client); err != nil {
		return err
	}

	if err := client.Mail(s.config.FromEmail); err != nil {
		return fmt.Errorf("MAIL FROM failed: %w", err)
	}

	allRecipients := append(append([]string{}, msg.To...), msg.CC...)
	for _, rcpt := range allRecipients {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("RCPT TO failed for %s: %w", rcpt, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("DATA command failed: %w", err)
	}
	if _, err := w.Write(email); err != nil {
		return fmt.Errorf("failed to write email data: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	return client.Quit()
}

// SendConfirmation mails subject and body to each recipient separately so
// attendees do not see each other's addresses in To. Every recipient is
// attempted; the returned error joins the individual failures.
func (s *Sender) SendConfirmation(ctx context.Context, recipients []string, subject, body string) error {
	var errs []error
	for _, rcpt := range recipients {
		msg := &Message{
			To:       []string{rcpt},
			Subject:  subject,
			TextBody: body,
			Headers: map[string]string{
				"X-SmartScheduler-Type": "confirmation",
			},
		}
		if err := s.Send(ctx, msg); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", rcpt, err))
			continue
		}
		s.log.WithField("to", rcpt).Debug("confirmation sent")
	}
	return errors.Join(errs...)
}

func (s *Sender) connect(ctx context.Context) (*smtp.Client, net.Conn, error) {
	addr := net.JoinHostPort(s.config.SMTPHost, fmt.Sprintf("%d", s.config.SMTPPort))

	var conn net.Conn
	var err error
	dialer := net.Dialer{Timeout: s.config.Timeout}

	if s.config.UseTLS {
		tlsConfig := &tls.Config{ServerName: s.config.SMTPHost}
		conn, err = tls.DialWithDialer(&dialer, "tcp", addr, tlsConfig)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, s.config.SMTPHost)
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("failed to create SMTP client: %w", err)
	}

	if s.config.UseStartTLS && !s.config.UseTLS {
		if ok, _ := client.Extension("STARTTLS"); ok {
			tlsConfig := &tls.Config{ServerName: s.config.SMTPHost}
			if err := client.StartTLS(tlsConfig); err != nil {
				client.Close()
				conn.Close()
				return nil, nil, fmt.Errorf("STARTTLS failed: %w", err)
			}
		}
	}
	return client, conn, nil
}

func (s *Sender) authenticate(client *smtp.Client) error {
	if s.config.Username == "" || s.config.Password == "" {
		return nil
	}
	auth := smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.SMTPHost)
	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}
	return nil
}

// buildEmail constructs the raw email bytes
func (s *Sender) buildEmail(msg *Message) ([]byte, error) {
	var buf bytes.Buffer

	boundary := fmt.Sprintf("----=_Part_%d", time.Now().UnixNano())

	// Headers
	if s.config.FromName != "" {
		buf.WriteString(fmt.Sprintf("From: %s <%s>\r\n", s.config.FromName, s.config.FromEmail))
	} else {
		buf.WriteString(fmt.Sprintf("From: %s\r\n", s.config.FromEmail))
	}
	buf.WriteString(fmt.Sprintf("To: %s\r\n", strings.Join(msg.To, ", ")))
	if len(msg.CC) > 0 {
		buf.WriteString(fmt.Sprintf("Cc: %s\r\n", strings.Join(msg.CC, ", ")))
	}
	buf.WriteString(fmt.Sprintf("Subject: %s\r\n", msg.Subject))
	buf.WriteString(fmt.Sprintf("Date: %s\r\n", time.Now().Format(time.RFC1123Z)))
	buf.WriteString("MIME-Version: 1.0\r\n")

	for key, value := range msg.Headers {
		buf.WriteString(fmt.Sprintf("%s: %s\r\n", key, value))
	}

	hasHTML := msg.HTMLBody != ""
	hasText := msg.TextBody != ""

	switch {
	case hasHTML && hasText:
		buf.WriteString(fmt.Sprintf("Content-Type: multipart/alternative; boundary=\"%s\"\r\n", boundary))
		buf.WriteString("\r\n")

		buf.WriteString(fmt.Sprintf("--%s\r\n", boundary))
		buf.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
		buf.WriteString(msg.TextBody)
		buf.WriteString("\r\n")

		buf.WriteString(fmt.Sprintf("--%s\r\n", boundary))
		buf.WriteString("Content-Type: text/html; charset=UTF-8\r\n\r\n")
		buf.WriteString(msg.HTMLBody)
		buf.WriteString("\r\n")

		buf.WriteString(fmt.Sprintf("--%s--\r\n", boundary))
	case hasHTML:
		buf.WriteString("Content-Type: text/html; charset=UTF-8\r\n\r\n")
		buf.WriteString(msg.HTMLBody)
	default:
		buf.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
		buf.WriteString(msg.TextBody)
	}

	return buf.Bytes(), nil
}

// IsConfigured checks if the sender is properly configured
func (s *Sender) IsConfigured() bool {
	return s.config.SMTPHost != "" && s.config.FromEmail != ""
}

// TestConnection connects, upgrades and logs in without sending anything.
func (s *Sender) TestConnection(ctx context.Context) error {
	if !s.IsConfigured() {
		return fmt.Errorf("email sender not configured")
	}

	client, conn, err := s.connect(ctx)
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	defer conn.Close()
	defer client.Close()

	if err := client.Noop(); err != nil {
		return fmt.Errorf("EHLO failed: %w", err)
	}
	if err := s.authenticate(client); err != nil {
		return err
	}

	return client.Quit()
}
