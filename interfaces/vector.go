package interfaces

import "context"

type VectorDocument struct {
	ID      string
	Content string
	Tags    map[string]string
}

type VectorMatch struct {
	Document   VectorDocument
	Similarity float64
}

type VectorStore interface {
	Upsert(ctx context.Context, id string, content string, tags map[string]string) error
	// Search returns up to k matches ordered by descending similarity. An empty
	// corpus or an embedding failure yields an empty result, not an error.
	Search(ctx context.Context, query string, k int) ([]VectorMatch, error)
	Len() int
}
