package mailer

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/sirupsen/logrus"

	"message-scheduler/internal/config"
)

// GmailMailer delivers mail via the Gmail API
type GmailMailer struct {
	service   *gmail.Service
	userEmail string
	from      string

	now func() time.Time
}

// NewGmailMailer creates a Gmail API mailer from an OAuth2 refresh token
func NewGmailMailer(cfg *config.GmailConfig, from string) (*GmailMailer, error) {
	ctx := context.Background()

	oauth2Config := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Scopes:       []string{gmail.GmailSendScope},
		Endpoint:     google.Endpoint,
	}

	tokenSource := oauth2Config.TokenSource(ctx, &oauth2.Token{
		RefreshToken: cfg.RefreshToken,
	})

	service, err := gmail.NewService(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}

	return &GmailMailer{
		service:   service,
		userEmail: cfg.UserEmail,
		from:      from,
		now:       time.Now,
	}, nil
}

// Send delivers a single message. Gmail stores it in the Sent folder itself.
func (m *GmailMailer) Send(ctx context.Context, to, subject, body string) error {
	raw, err := Compose(m.from, to, subject, body, m.now())
	if err != nil {
		return err
	}

	message := &gmail.Message{
		Raw: base64.URLEncoding.EncodeToString(raw),
	}

	sent, err := m.service.Users.Messages.Send(m.userEmail, message).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}

	logrus.Debugf("Gmail accepted message %s for %s", sent.Id, to)
	return nil
}

// TestConnection checks that the credentials can reach the mailbox
func (m *GmailMailer) TestConnection(ctx context.Context) error {
	_, err := m.service.Users.GetProfile(m.userEmail).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to test Gmail API connection: %w", err)
	}
	return nil
}
