package vector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oneboxhq/onebox/dto"
	errs "github.com/oneboxhq/onebox/internal/errors"
	"github.com/oneboxhq/onebox/internal/logger"
)

// stubAIService returns canned embeddings keyed by input text.
type stubAIService struct {
	embeddings map[string][]float64
	err        error
}

func (s *stubAIService) ClassifyEmail(ctx context.Context, request dto.ClassifyEmailRequest) (string, error) {
	return "", nil
}

func (s *stubAIService) GenerateReply(ctx context.Context, request dto.GenerateReplyRequest) (string, error) {
	return "", nil
}

func (s *stubAIService) EmbedText(ctx context.Context, text string) ([]float64, error) {
	if s.err != nil {
		return nil, s.err
	}
	if embedding, ok := s.embeddings[text]; ok {
		return embedding, nil
	}
	return []float64{1, 0, 0}, nil
}

func getLogger() logger.Logger {
	appLogger := logger.NewAppLogger(&logger.Config{
		DevMode: true,
	})
	appLogger.InitLogger()
	return appLogger
}

func TestStore_SearchRanksBySimilarity(t *testing.T) {
	ctx := context.Background()
	ai := &stubAIService{
		embeddings: map[string][]float64{
			"pricing details":  {1, 0, 0},
			"meeting schedule": {0, 1, 0},
			"vacation policy":  {0, 0, 1},
			"how much is it":   {0.9, 0.1, 0},
		},
	}
	s := NewStore(ai, getLogger())

	require.NoError(t, s.Upsert(ctx, "pricing", "pricing details", nil))
	require.NoError(t, s.Upsert(ctx, "meetings", "meeting schedule", nil))
	require.NoError(t, s.Upsert(ctx, "vacation", "vacation policy", nil))

	matches, err := s.Search(ctx, "how much is it", 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "pricing", matches[0].Document.ID)
	assert.Equal(t, "meetings", matches[1].Document.ID)
	assert.Greater(t, matches[0].Similarity, matches[1].Similarity)
}

func TestStore_SearchEmptyCorpus(t *testing.T) {
	s := NewStore(&stubAIService{}, getLogger())

	matches, err := s.Search(context.Background(), "anything", 5)
	assert.NoError(t, err)
	assert.Empty(t, matches)
}

func TestStore_SearchFailsOpenOnEmbeddingError(t *testing.T) {
	ctx := context.Background()
	ai := &stubAIService{}
	s := NewStore(ai, getLogger())
	require.NoError(t, s.Upsert(ctx, "doc", "content", nil))

	ai.err = assert.AnError

	matches, err := s.Search(ctx, "query", 3)
	assert.NoError(t, err)
	assert.Empty(t, matches)
}

func TestStore_UpsertReplaceKeepsPosition(t *testing.T) {
	ctx := context.Background()
	ai := &stubAIService{
		embeddings: map[string][]float64{
			"first":  {1, 0, 0},
			"second": {1, 0, 0},
			"third":  {1, 0, 0},
			"query":  {1, 0, 0},
		},
	}
	s := NewStore(ai, getLogger())

	require.NoError(t, s.Upsert(ctx, "a", "first", nil))
	require.NoError(t, s.Upsert(ctx, "b", "second", nil))

	// Replacing "a" must not move it behind "b".
	require.NoError(t, s.Upsert(ctx, "a", "third", nil))
	assert.Equal(t, 2, s.Len())

	matches, err := s.Search(ctx, "query", 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "a", matches[0].Document.ID)
	assert.Equal(t, "third", matches[0].Document.Content)
	assert.Equal(t, "b", matches[1].Document.ID)
}

func TestStore_NewDocumentOutranksExistingOnes(t *testing.T) {
	ctx := context.Background()
	ai := &stubAIService{
		embeddings: map[string][]float64{
			"pricing details":   {0.7, 0.3, 0},
			"meeting schedule":  {0, 1, 0},
			"vacation policy":   {0, 0, 1},
			"exact plan prices": {1, 0, 0},
			"how much is it":    {1, 0, 0},
		},
	}
	s := NewStore(ai, getLogger())

	require.NoError(t, s.Upsert(ctx, "pricing", "pricing details", nil))
	require.NoError(t, s.Upsert(ctx, "meetings", "meeting schedule", nil))
	require.NoError(t, s.Upsert(ctx, "vacation", "vacation policy", nil))

	matches, err := s.Search(ctx, "how much is it", 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "pricing", matches[0].Document.ID)

	// A closer document added afterwards wins the very next search.
	require.NoError(t, s.Upsert(ctx, "plans", "exact plan prices", nil))

	matches, err = s.Search(ctx, "how much is it", 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "plans", matches[0].Document.ID)
	assert.Equal(t, "pricing", matches[1].Document.ID)
}

func TestStore_SearchTiesBreakByInsertionOrder(t *testing.T) {
	ctx := context.Background()
	ai := &stubAIService{
		embeddings: map[string][]float64{
			"same": {1, 1, 0},
		},
	}
	s := NewStore(ai, getLogger())

	require.NoError(t, s.Upsert(ctx, "older", "same", nil))
	require.NoError(t, s.Upsert(ctx, "newer", "same", nil))

	matches, err := s.Search(ctx, "same", 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "older", matches[0].Document.ID)
	assert.Equal(t, "newer", matches[1].Document.ID)
}

func TestStore_UpsertDimensionMismatch(t *testing.T) {
	ctx := context.Background()
	ai := &stubAIService{
		embeddings: map[string][]float64{
			"three dims": {1, 0, 0},
			"two dims":   {1, 0},
		},
	}
	s := NewStore(ai, getLogger())

	require.NoError(t, s.Upsert(ctx, "first", "three dims", nil))

	err := s.Upsert(ctx, "second", "two dims", nil)
	assert.ErrorIs(t, err, errs.ErrDimensionMismatch)
	assert.Equal(t, 1, s.Len())
}

func TestStore_SearchClampsK(t *testing.T) {
	ctx := context.Background()
	s := NewStore(&stubAIService{}, getLogger())
	require.NoError(t, s.Upsert(ctx, "only", "content", nil))

	matches, err := s.Search(ctx, "query", 10)
	require.NoError(t, err)
	assert.Len(t, matches, 1)

	// k <= 0 falls back to the default, still bounded by the corpus size.
	matches, err = s.Search(ctx, "query", 0)
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, cosineSimilarity([]float64{1, 2, 3}, []float64{1, 2, 3}), 1e-9)
	assert.InDelta(t, 0.0, cosineSimilarity([]float64{1, 0}, []float64{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, cosineSimilarity([]float64{1, 0}, []float64{-1, 0}), 1e-9)

	// Zero magnitude and mismatched lengths yield 0, not NaN.
	assert.Equal(t, 0.0, cosineSimilarity([]float64{0, 0}, []float64{1, 1}))
	assert.Equal(t, 0.0, cosineSimilarity([]float64{1, 1}, []float64{1}))
	assert.Equal(t, 0.0, cosineSimilarity(nil, nil))
}
