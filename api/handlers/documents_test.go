package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func documentsRouter(store *fakeVectorStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/v1/documents/search", SearchDocuments(store))
	return r
}

func TestSearchDocuments_DefaultK(t *testing.T) {
	store := &fakeVectorStore{}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/documents/search", strings.NewReader(`{"query":"pricing"}`))
	documentsRouter(store).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pricing", store.gotQuery)
	assert.Equal(t, defaultDocumentMatches, store.gotK)
}

func TestSearchDocuments_ExplicitK(t *testing.T) {
	store := &fakeVectorStore{}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/documents/search", strings.NewReader(`{"query":"pricing","k":2}`))
	documentsRouter(store).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, store.gotK)
}
