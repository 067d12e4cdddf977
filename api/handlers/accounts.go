package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"github.com/oneboxhq/onebox/dto"
	"github.com/oneboxhq/onebox/interfaces"
	errs "github.com/oneboxhq/onebox/internal/errors"
	"github.com/oneboxhq/onebox/internal/models"
	"github.com/oneboxhq/onebox/internal/tracing"
	"github.com/oneboxhq/onebox/internal/utils"
)

// ListAccounts returns the status snapshot of every registered account
func ListAccounts(imapService interfaces.IMAPService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, imapService.Status())
	}
}

// AddAccount registers a new mailbox account and starts monitoring it
func AddAccount(imapService interfaces.IMAPService) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.StartHttpServerTracerSpanWithHeader(c.Request.Context(), "AddAccount", c.Request.Header)
		defer span.Finish()
		tracing.TagComponentRest(span)

		var request dto.CreateAccountRequest
		if err := c.ShouldBindJSON(&request); err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		account := &models.Account{
			ID:           request.ID,
			EmailAddress: request.EmailAddress,
			ImapServer:   request.ImapServer,
			ImapPort:     request.ImapPort,
			ImapUsername: request.ImapUsername,
			ImapPassword: request.ImapPassword,
			ImapSecurity: request.ImapSecurity,
			Folders:      request.Folders,
		}
		if account.ID == "" {
			account.ID = utils.GenerateNanoIDWithPrefix("acct", 12)
		}
		tracing.TagAccount(span, account.ID)

		if err := imapService.AddAccount(ctx, account); err != nil {
			tracing.TraceErr(span, err)
			switch {
			case errors.Is(err, errs.ErrAccountExists):
				c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			case errors.Is(err, errs.ErrNoSyncFolders):
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			}
			return
		}

		c.JSON(http.StatusCreated, gin.H{"status": "account added", "id": account.ID})
	}
}

// RemoveAccount disconnects and forgets an account
func RemoveAccount(imapService interfaces.IMAPService) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.StartHttpServerTracerSpanWithHeader(c.Request.Context(), "RemoveAccount", c.Request.Header)
		defer span.Finish()
		tracing.TagComponentRest(span)

		id := c.Param("id")
		tracing.TagAccount(span, id)

		if err := imapService.RemoveAccount(ctx, id); err != nil {
			tracing.TraceErr(span, err)
			if errors.Is(err, errs.ErrAccountNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "account removed", "id": id})
	}
}

// ReconnectAccount restarts monitoring for an account in error state
func ReconnectAccount(imapService interfaces.IMAPService) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.StartHttpServerTracerSpanWithHeader(c.Request.Context(), "ReconnectAccount", c.Request.Header)
		defer span.Finish()
		tracing.TagComponentRest(span)

		id := c.Param("id")
		tracing.TagAccount(span, id)

		if err := imapService.Reconnect(ctx, id); err != nil {
			tracing.TraceErr(span, err)
			if errors.Is(err, errs.ErrAccountNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "reconnect triggered", "id": id})
	}
}
