package pipeline

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/oneboxhq/onebox/dto"
	"github.com/oneboxhq/onebox/internal/enum"
	"github.com/oneboxhq/onebox/internal/models"
)

// stubAIService answers classification calls with a fixed label or error and
// counts invocations.
type stubAIService struct {
	label string
	err   error
	calls atomic.Int32
}

func (s *stubAIService) ClassifyEmail(ctx context.Context, request dto.ClassifyEmailRequest) (string, error) {
	s.calls.Add(1)
	if s.err != nil {
		return "", s.err
	}
	return s.label, nil
}

func (s *stubAIService) GenerateReply(ctx context.Context, request dto.GenerateReplyRequest) (string, error) {
	return "reply", nil
}

func (s *stubAIService) EmbedText(ctx context.Context, text string) ([]float64, error) {
	return []float64{1, 0, 0}, nil
}

func testEmail(id string) *models.Email {
	return &models.Email{
		ID:          id,
		Subject:     "Pricing question",
		FromAddress: "jane@example.com",
		BodyText:    "How much does it cost?",
	}
}

func TestClassifier_ModelLabel(t *testing.T) {
	ai := &stubAIService{label: "interested"}
	c := NewClassifier(ai)

	result := c.Classify(context.Background(), testEmail("e1"))

	assert.Equal(t, enum.IntentInterested, result.Category)
	assert.Equal(t, enum.ClassificationSourceModel, result.Source)
	assert.Equal(t, "interested", result.RawLabel)
}

func TestClassifier_TrimsWhitespace(t *testing.T) {
	ai := &stubAIService{label: "  meeting_booked\n"}
	c := NewClassifier(ai)

	result := c.Classify(context.Background(), testEmail("e2"))

	assert.Equal(t, enum.IntentMeetingBooked, result.Category)
	assert.Equal(t, enum.ClassificationSourceModel, result.Source)
}

func TestClassifier_UnrecognizedLabelFallsBack(t *testing.T) {
	// Case matters: "Interested" is not a member of the closed set.
	ai := &stubAIService{label: "Interested"}
	c := NewClassifier(ai)

	result := c.Classify(context.Background(), testEmail("e3"))

	assert.Equal(t, enum.IntentNotInterested, result.Category)
	assert.Equal(t, enum.ClassificationSourceUnrecognizedLabel, result.Source)
	assert.Equal(t, "Interested", result.RawLabel)
}

func TestClassifier_ErrorFallsBack(t *testing.T) {
	ai := &stubAIService{err: assert.AnError}
	c := NewClassifier(ai)

	result := c.Classify(context.Background(), testEmail("e4"))

	assert.Equal(t, enum.IntentNotInterested, result.Category)
	assert.Equal(t, enum.ClassificationSourceClassifierError, result.Source)
	assert.Empty(t, result.RawLabel)
}

func TestClassifier_CachesByEmailID(t *testing.T) {
	ai := &stubAIService{label: "spam"}
	c := NewClassifier(ai)
	email := testEmail("e5")

	first := c.Classify(context.Background(), email)
	second := c.Classify(context.Background(), email)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), ai.calls.Load())

	c.Classify(context.Background(), testEmail("e6"))
	assert.Equal(t, int32(2), ai.calls.Load())
}

func TestClassifier_UsesHTMLBodyWhenTextEmpty(t *testing.T) {
	ai := &stubAIService{label: "out_of_office"}
	c := NewClassifier(ai)

	email := testEmail("e7")
	email.BodyText = ""
	email.BodyHTML = "<p>I am away until Monday</p>"

	result := c.Classify(context.Background(), email)
	assert.Equal(t, enum.IntentOutOfOffice, result.Category)
}
