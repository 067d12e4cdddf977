package imap

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oneboxhq/onebox/config"
	"github.com/oneboxhq/onebox/internal/enum"
	errs "github.com/oneboxhq/onebox/internal/errors"
	"github.com/oneboxhq/onebox/internal/models"
)

func TestAddAccount_DeduplicatesFolders(t *testing.T) {
	s := NewIMAPService(nil)

	err := s.AddAccount(context.Background(), &models.Account{
		ID:           "acct1",
		EmailAddress: "user@example.com",
		ImapServer:   "imap.example.com",
		Folders:      []string{"INBOX", "Sent", "INBOX"},
	})
	require.NoError(t, err)

	snapshot := s.Status()["acct1"]
	assert.Equal(t, []string{"INBOX", "Sent"}, snapshot.Folders)
}

func TestAddAccount_DefaultsAndDuplicateID(t *testing.T) {
	s := NewIMAPService(&config.IMAPConfig{DefaultFolders: "INBOX,Archive"})

	account := &models.Account{ID: "acct1", EmailAddress: "user@example.com", ImapServer: "imap.example.com"}
	require.NoError(t, s.AddAccount(context.Background(), account))

	assert.Equal(t, []string{"INBOX", "Archive"}, account.Folders)
	assert.Equal(t, 993, account.ImapPort)
	assert.Equal(t, enum.EmailSecurityTLS, account.ImapSecurity)
	assert.Equal(t, enum.ConnectionDisconnected, account.Status)

	err := s.AddAccount(context.Background(), &models.Account{ID: "acct1"})
	assert.ErrorIs(t, err, errs.ErrAccountExists)
}
