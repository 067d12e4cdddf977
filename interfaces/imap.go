package interfaces

import (
	"context"
	"time"

	"github.com/emersion/go-imap"

	"github.com/oneboxhq/onebox/internal/models"
)

type IMAPService interface {
	Start(ctx context.Context) error
	Stop() error
	AddAccount(ctx context.Context, account *models.Account) error
	RemoveAccount(ctx context.Context, accountID string) error
	Reconnect(ctx context.Context, accountID string) error
	Status() map[string]models.AccountSnapshot
}

// MailEvent carries one raw message from the synchronizer into the pipeline.
type MailEvent struct {
	AccountID   string
	Folder      string
	ImapUID     uint32
	Envelope    *imap.Envelope
	Raw         []byte
	InitialSync bool
	ReceivedAt  time.Time
}
