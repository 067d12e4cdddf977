package vector

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/opentracing/opentracing-go"

	"github.com/oneboxhq/onebox/interfaces"
	errs "github.com/oneboxhq/onebox/internal/errors"
	"github.com/oneboxhq/onebox/internal/logger"
	"github.com/oneboxhq/onebox/internal/tracing"
)

const DefaultSearchK = 5

type document struct {
	id        string
	content   string
	tags      map[string]string
	embedding []float64
}

// store is an in-memory similarity index over a small reference corpus.
// Documents keep their insertion position across upserts so that equal
// similarity scores rank deterministically.
type store struct {
	mu     sync.RWMutex
	docs   []*document
	byID   map[string]int
	ai     interfaces.AIService
	logger logger.Logger
}

func NewStore(aiService interfaces.AIService, log logger.Logger) interfaces.VectorStore {
	return &store{
		byID:   make(map[string]int),
		ai:     aiService,
		logger: log,
	}
}

// Upsert embeds the content once and atomically inserts or replaces the
// document. A replaced document keeps its original insertion position.
func (s *store) Upsert(ctx context.Context, id string, content string, tags map[string]string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "vectorStore.Upsert")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagEntity(span, id)

	embedding, err := s.ai.EmbedText(ctx, content)
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.docs) > 0 && len(embedding) != len(s.docs[0].embedding) {
		tracing.TraceErr(span, errs.ErrDimensionMismatch)
		return errs.ErrDimensionMismatch
	}

	doc := &document{
		id:        id,
		content:   content,
		tags:      tags,
		embedding: embedding,
	}

	if idx, ok := s.byID[id]; ok {
		s.docs[idx] = doc
		return nil
	}

	s.byID[id] = len(s.docs)
	s.docs = append(s.docs, doc)
	return nil
}

// Search ranks the corpus by cosine similarity against the query embedding.
// Fails open: an empty corpus or an embedding failure returns an empty slice
// with a nil error.
func (s *store) Search(ctx context.Context, query string, k int) ([]interfaces.VectorMatch, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "vectorStore.Search")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	if k <= 0 {
		k = DefaultSearchK
	}

	s.mu.RLock()
	empty := len(s.docs) == 0
	s.mu.RUnlock()
	if empty {
		return []interfaces.VectorMatch{}, nil
	}

	queryEmbedding, err := s.ai.EmbedText(ctx, query)
	if err != nil {
		tracing.TraceErr(span, err)
		s.logger.Warnf("vector search: embedding failed, returning empty result: %v", err)
		return []interfaces.VectorMatch{}, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	type scored struct {
		doc        *document
		similarity float64
		position   int
	}

	results := make([]scored, 0, len(s.docs))
	for i, doc := range s.docs {
		results = append(results, scored{
			doc:        doc,
			similarity: cosineSimilarity(queryEmbedding, doc.embedding),
			position:   i,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].similarity != results[j].similarity {
			return results[i].similarity > results[j].similarity
		}
		return results[i].position < results[j].position
	})

	if k > len(results) {
		k = len(results)
	}

	matches := make([]interfaces.VectorMatch, 0, k)
	for _, r := range results[:k] {
		matches = append(matches, interfaces.VectorMatch{
			Document: interfaces.VectorDocument{
				ID:      r.doc.id,
				Content: r.doc.content,
				Tags:    r.doc.tags,
			},
			Similarity: r.similarity,
		})
	}
	return matches, nil
}

func (s *store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// cosineSimilarity returns 0 when either vector has zero magnitude or the
// lengths differ.
func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, magA, magB float64
	for i := range a {
		dot += a[i] * b[i]
		magA += a[i] * a[i]
		magB += b[i] * b[i]
	}

	if magA == 0 || magB == 0 {
		return 0
	}

	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}
