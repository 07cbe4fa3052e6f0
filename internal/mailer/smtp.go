package mailer

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/sirupsen/logrus"

	"message-scheduler/internal/config"
)

// SMTPMailer delivers mail through an authenticated SMTP relay
type SMTPMailer struct {
	addr        string
	host        string
	from        string
	username    string
	password    string
	implicitTLS bool
	plaintext   bool
	tlsConfig   *tls.Config
	archiver    Archiver

	now func() time.Time
}

// NewSMTPMailer creates a new SMTP mailer. archiver may be nil.
func NewSMTPMailer(cfg *config.SMTPConfig, from string, archiver Archiver) *SMTPMailer {
	return &SMTPMailer{
		addr:        net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		host:        cfg.Host,
		from:        from,
		username:    cfg.Username,
		password:    cfg.Password,
		implicitTLS: cfg.ImplicitTLS,
		plaintext:   cfg.Plaintext,
		archiver:    archiver,
		now:         time.Now,
	}
}

// Send composes the message and hands it to the relay. When ctx is done the
// connection is closed, so a transaction that has not finished DATA is
// aborted rather than completed in the background.
func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	raw, err := Compose(m.from, to, subject, body, m.now())
	if err != nil {
		return err
	}

	if err := m.deliver(ctx, to, raw); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("failed to send email to %s: %w", to, ctxErr)
		}
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}

	if m.archiver != nil {
		if err := m.archiver.Archive(ctx, raw); err != nil {
			logrus.Warnf("Failed to archive sent email to %s: %v", to, err)
		}
	}

	return nil
}

func (m *SMTPMailer) auth() sasl.Client {
	if m.username == "" {
		return nil
	}
	return sasl.NewPlainClient("", m.username, m.password)
}

func (m *SMTPMailer) deliver(ctx context.Context, to string, raw []byte) error {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", m.addr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}

	// go-smtp resets the connection deadline around every command
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	c, err := m.newClient(conn)
	if err != nil {
		conn.Close()
		return err
	}
	defer c.Close()

	if deadline, ok := ctx.Deadline(); ok {
		if d := time.Until(deadline); d > 0 {
			c.CommandTimeout = d
			c.SubmissionTimeout = d
		}
	}

	if a := m.auth(); a != nil {
		if err := c.Auth(a); err != nil {
			return fmt.Errorf("failed to authenticate: %w", err)
		}
	}
	if err := c.SendMail(m.from, []string{to}, bytes.NewReader(raw)); err != nil {
		return err
	}
	return c.Quit()
}

func (m *SMTPMailer) newClient(conn net.Conn) (*smtp.Client, error) {
	tlsConfig := m.tlsConfig
	if tlsConfig == nil {
		tlsConfig = &tls.Config{ServerName: m.host}
	}

	switch {
	case m.implicitTLS:
		return smtp.NewClient(tls.Client(conn, tlsConfig)), nil
	case m.plaintext:
		return smtp.NewClient(conn), nil
	default:
		c, err := smtp.NewClientStartTLS(conn, tlsConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to start TLS: %w", err)
		}
		return c, nil
	}
}
