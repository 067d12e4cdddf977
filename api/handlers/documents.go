package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oneboxhq/onebox/dto"
	"github.com/oneboxhq/onebox/interfaces"
	"github.com/oneboxhq/onebox/internal/tracing"
	"github.com/oneboxhq/onebox/internal/utils"
)

const defaultDocumentMatches = 5

// UpsertDocument adds or replaces one reference document in the similarity index
func UpsertDocument(vectorStore interfaces.VectorStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.StartHttpServerTracerSpanWithHeader(c.Request.Context(), "UpsertDocument", c.Request.Header)
		defer span.Finish()
		tracing.TagComponentRest(span)

		id := c.Param("id")
		tracing.TagEntity(span, id)

		var request dto.UpsertDocumentRequest
		if err := c.ShouldBindJSON(&request); err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if err := vectorStore.Upsert(ctx, id, request.Content, request.Tags); err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "document stored", "id": id, "count": vectorStore.Len()})
	}
}

// SearchDocuments runs a similarity query against the reference documents
func SearchDocuments(vectorStore interfaces.VectorStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.StartHttpServerTracerSpanWithHeader(c.Request.Context(), "SearchDocuments", c.Request.Header)
		defer span.Finish()
		tracing.TagComponentRest(span)

		var request dto.SearchDocumentsRequest
		if err := c.ShouldBindJSON(&request); err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		matches, err := vectorStore.Search(ctx, request.Query, utils.GetOrDefault(request.K, defaultDocumentMatches))
		if err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		results := make([]dto.DocumentMatch, 0, len(matches))
		for _, match := range matches {
			results = append(results, dto.DocumentMatch{
				ID:         match.Document.ID,
				Content:    match.Document.Content,
				Similarity: match.Similarity,
				Tags:       match.Document.Tags,
			})
		}

		c.JSON(http.StatusOK, gin.H{"matches": results})
	}
}
