package interfaces

import (
	"golang.org/x/net/context"

	"github.com/oneboxhq/onebox/dto"
	"github.com/oneboxhq/onebox/internal/enum"
)

type AIService interface {
	// ClassifyEmail returns the raw label produced by the model. Mapping the
	// label onto the closed category enum is the caller's concern.
	ClassifyEmail(ctx context.Context, request dto.ClassifyEmailRequest) (string, error)
	GenerateReply(ctx context.Context, request dto.GenerateReplyRequest) (string, error)
	EmbedText(ctx context.Context, text string) ([]float64, error)
}

type ClassificationResult struct {
	Category enum.IntentCategory
	Source   enum.ClassificationSource
	RawLabel string
}
