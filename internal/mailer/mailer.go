package mailer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"message-scheduler/internal/config"
)

var (
	// ErrNotConfigured is returned when the mail settings are incomplete
	ErrNotConfigured = errors.New("mail transport is not configured")
	// ErrUnknownTransport is returned for an unsupported transport name
	ErrUnknownTransport = errors.New("unknown mail transport")
)

// Mailer delivers a single plain-text email. A nil error means the
// transport accepted the message.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Func adapts an ordinary function to the Mailer interface
type Func func(ctx context.Context, to, subject, body string) error

// Send calls f
func (f Func) Send(ctx context.Context, to, subject, body string) error {
	return f(ctx, to, subject, body)
}

// New builds the transport selected by cfg.Transport
func New(cfg *config.MailConfig) (Mailer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotConfigured, err)
	}

	switch cfg.Transport {
	case config.TransportSMTP:
		var archiver Archiver
		if cfg.Archive.Enabled {
			archiver = NewIMAPArchiver(&cfg.Archive)
		}
		return NewSMTPMailer(&cfg.SMTP, cfg.Sender(), archiver), nil
	case config.TransportGmail:
		return NewGmailMailer(&cfg.Gmail, cfg.Sender())
	case config.TransportLog:
		return NewLogMailer(cfg.Sender()), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTransport, cfg.Transport)
	}
}

// Lazy defers building the real transport until the first send so an
// unconfigured service still starts. A failed build is reported as a send
// failure and attempted again on the next send.
type Lazy struct {
	build func() (Mailer, error)

	mu     sync.Mutex
	mailer Mailer
}

// NewLazy wraps a transport factory
func NewLazy(build func() (Mailer, error)) *Lazy {
	return &Lazy{build: build}
}

// NewLazyFromConfig defers New(cfg) until first use
func NewLazyFromConfig(cfg *config.MailConfig) *Lazy {
	return NewLazy(func() (Mailer, error) {
		return New(cfg)
	})
}

// Send builds the transport if needed and delegates to it
func (l *Lazy) Send(ctx context.Context, to, subject, body string) error {
	m, err := l.get()
	if err != nil {
		return err
	}
	return m.Send(ctx, to, subject, body)
}

func (l *Lazy) get() (Mailer, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.mailer != nil {
		return l.mailer, nil
	}

	m, err := l.build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize mail transport: %w", err)
	}

	logrus.Info("Mail transport initialized")
	l.mailer = m
	return m, nil
}

// Close releases the underlying transport if it was built and holds resources
func (l *Lazy) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if c, ok := l.mailer.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
