package interfaces

import (
	"context"
	"time"

	"github.com/oneboxhq/onebox/internal/enum"
	"github.com/oneboxhq/onebox/internal/models"
)

type EmailSearchFilters struct {
	Query     string
	AccountID string
	Folder    string
	Category  enum.IntentCategory
	IsRead    *bool
	DateFrom  *time.Time
	DateTo    *time.Time
	Limit     int
}

type EmailRepository interface {
	Create(ctx context.Context, email *models.Email) error
	GetByID(ctx context.Context, id string) (*models.Email, error)
	Search(ctx context.Context, filters EmailSearchFilters) ([]*models.Email, error)
	UpdateCategory(ctx context.Context, id string, category enum.IntentCategory, source enum.ClassificationSource) error
}
