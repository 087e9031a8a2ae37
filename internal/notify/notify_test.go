package notify

import (
	"context"
	"errors"
	"io"
	"log"
	"net/smtp"
	"os"
	"strings"
	"testing"
	"time"

	"gradewatch/internal/config"
	"gradewatch/lib/telemetry"
	"gradewatch/lib/telemetry/telemetrytest"

	"github.com/go-resty/resty/v2"
	"github.com/jordan-wright/email"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func testConfig() config.SmtpConfig {
	return config.SmtpConfig{
		Server:   "smtp.example.com",
		Port:     465,
		TLS:      config.TLSImplicit,
		Sender:   "bot@example.com",
		Password: "app-password",
		Receiver: "me@example.com",
	}
}

func TestMessage(t *testing.T) {
	s := NewSmtp(testConfig(), telemetry.SlogAPI{})
	mail := s.message("Registration Open!", "Registration is NOW OPEN! Hurry up!")

	require.Equal(t, "gradewatch <bot@example.com>", mail.From)
	require.Equal(t, []string{"me@example.com"}, mail.To)
	require.Equal(t, "Registration Open!", mail.Subject)
	require.Equal(t, "Registration is NOW OPEN! Hurry up!", string(mail.Text))
	require.Empty(t, mail.HTML)
}

func TestNotifyUsesTransport(t *testing.T) {
	s := NewSmtp(testConfig(), telemetry.SlogAPI{})

	var sent []*email.Email
	var addrs []string
	s.send = func(mail *email.Email, addr string, auth smtp.Auth) error {
		require.NotNil(t, auth)
		sent = append(sent, mail)
		addrs = append(addrs, addr)
		return nil
	}

	err := s.Notify(context.Background(), "subject", "body")
	require.NoError(t, err)
	require.Len(t, sent, 1)
	require.Equal(t, []string{"smtp.example.com:465"}, addrs)
}

func TestNotifyFallsBackWithoutAuth(t *testing.T) {
	s := NewSmtp(testConfig(), telemetry.SlogAPI{})

	var auths []smtp.Auth
	s.send = func(mail *email.Email, addr string, auth smtp.Auth) error {
		auths = append(auths, auth)
		if auth != nil {
			return errors.New("smtp: server doesn't support AUTH")
		}
		return nil
	}

	require.NoError(t, s.Notify(context.Background(), "subject", "body"))
	require.Len(t, auths, 2)
	require.Nil(t, auths[1])
}

func TestNotifyError(t *testing.T) {
	rec := &telemetrytest.Recorder{}
	s := NewSmtp(testConfig(), rec)
	s.send = func(*email.Email, string, smtp.Auth) error {
		return errors.New("535 authentication failed")
	}

	err := s.Notify(context.Background(), "subject", "body")
	require.Error(t, err)
	require.Contains(t, err.Error(), "535")
	require.Len(t, rec.Reports("broken"), 1)
}

func TestNotifyCancelled(t *testing.T) {
	s := NewSmtp(testConfig(), telemetry.SlogAPI{})
	called := false
	s.send = func(*email.Email, string, smtp.Auth) error {
		called = true
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, s.Notify(ctx, "subject", "body"), context.Canceled)
	require.False(t, called)
}

// TestNotifyFakeSmtpServer sends a real message to a fake SMTP server container,
// set GRADEWATCH_SMTP_IT=1 with a docker daemon available to run it.
func TestNotifyFakeSmtpServer(t *testing.T) {
	if os.Getenv("GRADEWATCH_SMTP_IT") == "" {
		t.Skip("GRADEWATCH_SMTP_IT is not set")
	}

	// suppress logging
	testcontainers.Logger = log.New(io.Discard, "", 0)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute*2)
	defer cancel()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		Started: true,
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "haravich/fake-smtp-server",
			ExposedPorts: []string{"1025/tcp", "1080/tcp"},
			WaitingFor:   wait.ForLog("smtp://0.0.0.0:1025"),
		},
	})
	require.NoError(t, err)
	defer func() {
		require.NoError(t, container.Terminate(context.Background()))
	}()

	host, err := container.Host(ctx)
	require.NoError(t, err)
	smtpPort, err := container.MappedPort(ctx, "1025/tcp")
	require.NoError(t, err)
	webPort, err := container.MappedPort(ctx, "1080/tcp")
	require.NoError(t, err)

	cfg := testConfig()
	cfg.Server = host
	cfg.Port = smtpPort.Int()
	cfg.TLS = config.TLSStartTLS

	s := NewSmtp(cfg, telemetry.SlogAPI{})
	err = s.Notify(ctx, "Your Grades Have Been Updated!", "Cloud Computing: A+")
	require.NoError(t, err)

	res, err := resty.New().R().
		SetContext(ctx).
		Get("http://" + host + ":" + webPort.Port() + "/messages/1.plain")
	require.NoError(t, err)
	require.True(t, strings.Contains(res.String(), "Cloud Computing: A+"))
}
