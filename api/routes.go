package api

import (
	"github.com/gin-gonic/gin"

	"github.com/oneboxhq/onebox/api/handlers"
	"github.com/oneboxhq/onebox/api/middleware"
	"github.com/oneboxhq/onebox/internal/repository"
	"github.com/oneboxhq/onebox/services"
)

// RegisterRoutes sets up all API endpoints
func RegisterRoutes(r *gin.Engine, s *services.Services, repos *repository.Repositories, apikey string) {
	if s == nil {
		panic("Services cannot be nil")
	}
	if repos == nil {
		panic("Repositories cannot be nil")
	}

	r.Use(gin.Recovery())

	// Health check and status endpoints
	r.GET("/health", handlers.HealthCheck)
	r.GET("/status", handlers.Status(s.IMAPService))

	apiKeyMiddleware := middleware.APIKeyMiddleware(middleware.APIKeyConfig{
		HeaderName:  "X-ONEBOX-API-KEY",
		ValidAPIKey: apikey,
	})

	// API group with version
	api := r.Group("/v1")
	api.Use(apiKeyMiddleware)
	{
		accounts := api.Group("/accounts")
		{
			accounts.GET("", handlers.ListAccounts(s.IMAPService))
			accounts.POST("", handlers.AddAccount(s.IMAPService))
			accounts.DELETE("/:id", handlers.RemoveAccount(s.IMAPService))
			accounts.POST("/:id/reconnect", handlers.ReconnectAccount(s.IMAPService))
		}

		emails := api.Group("/emails")
		{
			emails.GET("", handlers.SearchEmails(repos.EmailRepository))
			emails.GET("/:id", handlers.GetEmail(repos.EmailRepository, repos.EmailAttachmentRepository))
			emails.POST("/:id/reply", handlers.SuggestReply(repos.EmailRepository, s.VectorStore, s.AIService))
			emails.PATCH("/:id/category", handlers.UpdateEmailCategory(repos.EmailRepository))
		}

		attachments := api.Group("/attachments")
		{
			attachments.GET("/:id", handlers.DownloadAttachment(repos.EmailAttachmentRepository))
		}

		documents := api.Group("/documents")
		{
			documents.PUT("/:id", handlers.UpsertDocument(s.VectorStore))
			documents.POST("/search", handlers.SearchDocuments(s.VectorStore))
		}
	}
}
