package pipeline

import (
	"context"
	"log"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/opentracing/opentracing-go"
	tracingLog "github.com/opentracing/opentracing-go/log"

	"github.com/oneboxhq/onebox/dto"
	"github.com/oneboxhq/onebox/interfaces"
	"github.com/oneboxhq/onebox/internal/enum"
	"github.com/oneboxhq/onebox/internal/models"
	"github.com/oneboxhq/onebox/internal/tracing"
)

const classifierCacheSize = 2048

// Classifier assigns every email exactly one category from the closed enum.
// It never returns an error: when the model call fails or answers outside the
// enum, the email lands in not_interested and CategorySource records why.
type Classifier struct {
	aiService interfaces.AIService
	cache     *lru.Cache[string, interfaces.ClassificationResult]
}

func NewClassifier(aiService interfaces.AIService) *Classifier {
	cache, err := lru.New[string, interfaces.ClassificationResult](classifierCacheSize)
	if err != nil {
		log.Fatalf("Failed to create classifier cache: %v", err)
	}
	return &Classifier{
		aiService: aiService,
		cache:     cache,
	}
}

// Classify resolves the category for one email. Results are cached by email
// ID so a refetched message is never classified twice.
func (c *Classifier) Classify(ctx context.Context, email *models.Email) interfaces.ClassificationResult {
	span, ctx := opentracing.StartSpanFromContext(ctx, "Classifier.Classify")
	defer span.Finish()
	tracing.SetDefaultPipelineSpanTags(ctx, span)
	tracing.TagEntity(span, email.ID)

	if cached, ok := c.cache.Get(email.ID); ok {
		span.SetTag("cache_hit", true)
		return cached
	}

	result := c.classify(ctx, span, email)
	c.cache.Add(email.ID, result)
	return result
}

func (c *Classifier) classify(ctx context.Context, span opentracing.Span, email *models.Email) interfaces.ClassificationResult {
	body := email.BodyText
	if body == "" {
		body = email.BodyHTML
	}

	rawLabel, err := c.aiService.ClassifyEmail(ctx, dto.ClassifyEmailRequest{
		Subject: email.Subject,
		From:    email.FromAddress,
		Body:    body,
	})
	if err != nil {
		tracing.TraceErr(span, err)
		log.Printf("Classification failed for email %s, defaulting to %s: %v", email.ID, enum.IntentNotInterested, err)
		return interfaces.ClassificationResult{
			Category: enum.IntentNotInterested,
			Source:   enum.ClassificationSourceClassifierError,
			RawLabel: "",
		}
	}

	// The label must match a category exactly, modulo surrounding whitespace.
	trimmed := strings.TrimSpace(rawLabel)
	category, ok := enum.ParseIntentCategory(trimmed)
	if !ok {
		span.LogFields(tracingLog.String("unrecognized_label", trimmed))
		log.Printf("Unrecognized classification label %q for email %s, defaulting to %s", trimmed, email.ID, enum.IntentNotInterested)
		return interfaces.ClassificationResult{
			Category: enum.IntentNotInterested,
			Source:   enum.ClassificationSourceUnrecognizedLabel,
			RawLabel: trimmed,
		}
	}

	span.LogFields(tracingLog.String("category", category.String()))
	return interfaces.ClassificationResult{
		Category: category,
		Source:   enum.ClassificationSourceModel,
		RawLabel: trimmed,
	}
}
