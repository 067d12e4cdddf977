package dto

import "github.com/oneboxhq/onebox/internal/enum"

type CreateAccountRequest struct {
	ID           string             `json:"id"`
	EmailAddress string             `json:"emailAddress" binding:"required"`
	ImapServer   string             `json:"imapServer" binding:"required"`
	ImapPort     int                `json:"imapPort"`
	ImapUsername string             `json:"imapUsername" binding:"required"`
	ImapPassword string             `json:"imapPassword" binding:"required"`
	ImapSecurity enum.EmailSecurity `json:"imapSecurity"`
	Folders      []string           `json:"folders"`
}
