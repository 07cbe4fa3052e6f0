package mailer

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"

	"message-scheduler/internal/config"
)

// Archiver stores a copy of a delivered message
type Archiver interface {
	Archive(ctx context.Context, raw []byte) error
}

// IMAPArchiver appends sent messages to an IMAP folder. SMTP relays do not
// keep a copy of outgoing mail, so this gives operators a Sent folder.
type IMAPArchiver struct {
	addr     string
	user     string
	password string
	folder   string
}

// NewIMAPArchiver creates a new IMAP archiver
func NewIMAPArchiver(cfg *config.ArchiveConfig) *IMAPArchiver {
	return &IMAPArchiver{
		addr:     net.JoinHostPort(cfg.IMAPHost, strconv.Itoa(cfg.IMAPPort)),
		user:     cfg.IMAPUser,
		password: cfg.IMAPPassword,
		folder:   cfg.Folder,
	}
}

// Archive opens a short-lived session and appends raw as a seen message
func (a *IMAPArchiver) Archive(ctx context.Context, raw []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c, err := client.DialTLS(a.addr, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to IMAP server: %w", err)
	}
	defer c.Logout()

	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) > 0 {
		c.Timeout = time.Until(deadline)
	}

	if err := c.Login(a.user, a.password); err != nil {
		return fmt.Errorf("failed to login to IMAP server: %w", err)
	}

	if err := c.Append(a.folder, []string{imap.SeenFlag}, time.Now(), bytes.NewBuffer(raw)); err != nil {
		return fmt.Errorf("failed to append to %s: %w", a.folder, err)
	}
	return nil
}
