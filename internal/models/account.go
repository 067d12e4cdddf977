package models

import (
	"time"

	"github.com/oneboxhq/onebox/internal/enum"
)

// Account is the configuration and live status of one remote mailbox. Accounts
// are owned in memory by the IMAP service; there is deliberately no database
// table behind them.
type Account struct {
	ID           string             `json:"id"`
	EmailAddress string             `json:"emailAddress"`
	ImapServer   string             `json:"imapServer"`
	ImapPort     int                `json:"imapPort"`
	ImapUsername string             `json:"imapUsername"`
	ImapPassword string             `json:"-"`
	ImapSecurity enum.EmailSecurity `json:"imapSecurity"`
	Folders      []string           `json:"folders"`

	// Status information, mutated only by the session lifecycle.
	Status     enum.ConnectionStatus `json:"status"`
	LastError  string                `json:"lastError,omitempty"`
	LastSynced *time.Time            `json:"lastSynced,omitempty"`
}

// AccountSnapshot is a read-only copy of an account's connection status,
// returned to API callers.
type AccountSnapshot struct {
	ID           string                `json:"id"`
	EmailAddress string                `json:"emailAddress"`
	Status       enum.ConnectionStatus `json:"status"`
	LastError    string                `json:"lastError,omitempty"`
	LastSynced   *time.Time            `json:"lastSynced,omitempty"`
	Folders      []string              `json:"folders"`
}
