package mailer

import (
	"context"

	"github.com/sirupsen/logrus"
)

// LogMailer writes messages to the log instead of delivering them
type LogMailer struct {
	from string
}

// NewLogMailer creates a mailer that only logs
func NewLogMailer(from string) *LogMailer {
	return &LogMailer{from: from}
}

// Send logs the message and always succeeds
func (m *LogMailer) Send(ctx context.Context, to, subject, body string) error {
	logrus.WithFields(logrus.Fields{
		"from":    m.from,
		"to":      to,
		"subject": subject,
		"body":    body,
	}).Info("Sending email")
	return nil
}
