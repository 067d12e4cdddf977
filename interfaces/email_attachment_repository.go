package interfaces

import (
	"context"

	"github.com/oneboxhq/onebox/internal/models"
)

type EmailAttachmentRepository interface {
	GetByID(ctx context.Context, id string) (*models.EmailAttachment, error)
	ListByEmail(ctx context.Context, emailID string) ([]*models.EmailAttachment, error)
	Store(ctx context.Context, attachment *models.EmailAttachment, emailID string, data []byte) error
	DownloadAttachment(ctx context.Context, id string) ([]byte, error)
}
