package email

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"time"

	"github.com/ledgerly/auth-service/users"
	"github.com/pkg/errors"
)

// dialTimeout bounds the outbound SMTP connection so a slow provider cannot
// stall an auth request.
const dialTimeout = 10 * time.Second

// SMTPSender delivers messages through a plain SMTP relay.
type SMTPSender struct {
	host     string
	port     string
	account  string
	password string
	from     string
	baseURL  string // dashboard base URL used to build action links
}

var _ Sender = (*SMTPSender)(nil)

func NewSMTPSender(host, port, account, password, from, baseURL string) *SMTPSender {
	return &SMTPSender{
		host:     host,
		port:     port,
		account:  account,
		password: password,
		from:     from,
		baseURL:  baseURL,
	}
}

func (s *SMTPSender) SendVerificationEmail(ctx context.Context, user *users.User, token string) error {
	subject := "Verify your email address"
	body := fmt.Sprintf(
		"Hi %s,\r\n\r\nConfirm your email address to finish setting up your account:\r\n\r\n%s/verify-email?token=%s\r\n\r\nThis link expires in 24 hours.\r\n",
		user.DisplayName, s.baseURL, token,
	)
	return s.send(ctx, user.Email, subject, body)
}

func (s *SMTPSender) SendPasswordResetEmail(ctx context.Context, user *users.User, token string) error {
	subject := "Reset your password"
	body := fmt.Sprintf(
		"Hi %s,\r\n\r\nA password reset was requested for your account. Use the link below to choose a new password:\r\n\r\n%s/reset-password?token=%s\r\n\r\nIf you did not request this, you can ignore this email.\r\n",
		user.DisplayName, s.baseURL, token,
	)
	return s.send(ctx, user.Email, subject, body)
}

func (s *SMTPSender) send(ctx context.Context, to, subject, body string) error {
	addr := net.JoinHostPort(s.host, s.port)

	dialer := &net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return errors.Wrap(err, "[SMTPSender.send] dial")
	}

	client, err := smtp.NewClient(conn, s.host)
	if err != nil {
		conn.Close()
		return errors.Wrap(err, "[SMTPSender.send] smtp.NewClient")
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(nil); err != nil {
			return errors.Wrap(err, "[SMTPSender.send] StartTLS")
		}
	}

	if s.account != "" {
		auth := smtp.PlainAuth("", s.account, s.password, s.host)
		if err := client.Auth(auth); err != nil {
			return errors.Wrap(err, "[SMTPSender.send] Auth")
		}
	}

	if err := client.Mail(s.from); err != nil {
		return errors.Wrap(err, "[SMTPSender.send] Mail")
	}
	if err := client.Rcpt(to); err != nil {
		return errors.Wrap(err, "[SMTPSender.send] Rcpt")
	}

	w, err := client.Data()
	if err != nil {
		return errors.Wrap(err, "[SMTPSender.send] Data")
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s", s.from, to, subject, body)
	if _, err := w.Write([]byte(msg)); err != nil {
		return errors.Wrap(err, "[SMTPSender.send] write body")
	}
	if err := w.Close(); err != nil {
		return errors.Wrap(err, "[SMTPSender.send] close body")
	}

	return client.Quit()
}
