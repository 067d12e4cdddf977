package dto

type UpsertDocumentRequest struct {
	Content string            `json:"content" binding:"required"`
	Tags    map[string]string `json:"tags"`
}

// K distinguishes an absent value from an explicit zero; absent falls back
// to the handler default.
type SearchDocumentsRequest struct {
	Query string `json:"query" binding:"required"`
	K     *int   `json:"k"`
}

type DocumentMatch struct {
	ID         string            `json:"id"`
	Content    string            `json:"content"`
	Similarity float64           `json:"similarity"`
	Tags       map[string]string `json:"tags,omitempty"`
}
