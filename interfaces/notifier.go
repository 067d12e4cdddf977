package interfaces

import (
	"context"

	"github.com/oneboxhq/onebox/internal/models"
)

// Notifier delivers a best-effort notification for one email. Implementations
// log delivery failures and never return them to the pipeline.
type Notifier interface {
	Notify(ctx context.Context, email *models.Email)
}
