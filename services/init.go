package services

import (
	"context"

	"github.com/oneboxhq/onebox/config"
	"github.com/oneboxhq/onebox/interfaces"
	"github.com/oneboxhq/onebox/internal/logger"
	"github.com/oneboxhq/onebox/internal/repository"
	"github.com/oneboxhq/onebox/services/ai"
	"github.com/oneboxhq/onebox/services/events"
	"github.com/oneboxhq/onebox/services/imap"
	"github.com/oneboxhq/onebox/services/notify"
	"github.com/oneboxhq/onebox/services/pipeline"
	"github.com/oneboxhq/onebox/services/vector"
)

type Services struct {
	AIService      interfaces.AIService
	VectorStore    interfaces.VectorStore
	EventPublisher interfaces.EventPublisher
	IMAPService    *imap.IMAPService
	Coordinator    *pipeline.Coordinator
}

// InitServices builds the service graph and hooks the IMAP event stream into
// the pipeline. The RabbitMQ publisher is optional; without a broker URL
// processed events simply are not published.
func InitServices(ctx context.Context, cfg *config.Config, log logger.Logger, repos *repository.Repositories) (*Services, error) {
	aiService := ai.NewAIService(cfg.AIConfig)

	vectorStore := vector.NewStore(aiService, log)
	vector.SeedStore(ctx, vectorStore, cfg.VectorConfig, log)

	var publisher interfaces.EventPublisher
	if cfg.AppConfig.RabbitMQURL != "" {
		rabbitPublisher, err := events.NewRabbitMQPublisher(cfg.AppConfig.RabbitMQURL, log, nil)
		if err != nil {
			return nil, err
		}
		publisher = rabbitPublisher
	} else {
		log.Warn("RabbitMQ URL not configured, processed events will not be published")
	}

	var notifiers []interfaces.Notifier
	if cfg.NotifyConfig.SlackWebhookURL != "" {
		notifiers = append(notifiers, notify.NewSlackNotifier(cfg.NotifyConfig.SlackWebhookURL, log))
	}
	if cfg.NotifyConfig.WebhookURL != "" {
		notifiers = append(notifiers, notify.NewWebhookNotifier(cfg.NotifyConfig.WebhookURL, log))
	}

	classifier := pipeline.NewClassifier(aiService)
	coordinator := pipeline.NewCoordinator(
		cfg.IMAPConfig,
		classifier,
		repos.EmailRepository,
		repos.EmailAttachmentRepository,
		publisher,
		notifiers,
	)

	imapService := imap.NewIMAPService(cfg.IMAPConfig)
	imapService.SetEventHandler(coordinator.Enqueue)

	return &Services{
		AIService:      aiService,
		VectorStore:    vectorStore,
		EventPublisher: publisher,
		IMAPService:    imapService,
		Coordinator:    coordinator,
	}, nil
}
