package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"

	"gradewatch/internal/config"
	"gradewatch/lib/telemetry"

	"github.com/jordan-wright/email"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

const report_smtp_send = "smtp.send"

var tracer = otel.Tracer("gradewatch/internal/notify")

// Notifier sends a single alert to the configured recipient.
//
// note: fault injection point
type Notifier interface {
	Notify(ctx context.Context, subject, body string) error
}

// sendFunc matches (*email.Email).Send so tests can swap the transport.
type sendFunc func(mail *email.Email, addr string, auth smtp.Auth) error

// Smtp sends plain-text email through an authenticated SMTP relay.
type Smtp struct {
	config config.SmtpConfig
	tel    telemetry.API
	send   sendFunc
}

func NewSmtp(cfg config.SmtpConfig, tel telemetry.API) Smtp {
	s := Smtp{
		config: cfg,
		tel:    telemetry.NewScopedAPI("notify", tel),
	}
	addr := s.addr()
	switch cfg.TLS {
	case config.TLSImplicit:
		tlsConfig := &tls.Config{ServerName: cfg.Server}
		s.send = func(mail *email.Email, _ string, auth smtp.Auth) error {
			return mail.SendWithTLS(addr, auth, tlsConfig)
		}
	default:
		s.send = func(mail *email.Email, _ string, auth smtp.Auth) error {
			return mail.Send(addr, auth)
		}
	}
	return s
}

func (s Smtp) addr() string {
	return fmt.Sprintf("%s:%d", s.config.Server, s.config.Port)
}

func (s Smtp) message(subject, body string) *email.Email {
	mail := email.NewEmail()
	mail.From = fmt.Sprintf("gradewatch <%s>", s.config.Sender)
	mail.To = []string{s.config.Receiver}
	mail.Subject = subject
	mail.Text = []byte(body)
	return mail
}

func (s Smtp) Notify(ctx context.Context, subject, body string) error {
	ctx, span := tracer.Start(ctx, "Notify")
	defer span.End()

	if err := ctx.Err(); err != nil {
		return err
	}

	mail := s.message(subject, body)
	auth := smtp.PlainAuth("", s.config.Sender, s.config.Password, s.config.Server)

	err := s.send(mail, s.addr(), auth)
	if err != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		err = s.send(mail, s.addr(), nil)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to send email")
		s.tel.ReportBroken(report_smtp_send, err, subject)
		return fmt.Errorf("send email %q: %w", subject, err)
	}

	slog.InfoContext(ctx, "email sent", "subject", subject, "to", s.config.Receiver)
	return nil
}
