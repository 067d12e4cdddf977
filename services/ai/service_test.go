package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oneboxhq/onebox/config"
	"github.com/oneboxhq/onebox/dto"
)

func newTestService(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *aiService) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	svc := NewAIService(&config.AIConfig{
		APIBaseURL:     server.URL,
		APIKey:         "test-key",
		ClassifyModel:  "classify-model",
		ReplyModel:     "reply-model",
		EmbeddingModel: "embedding-model",
		TimeoutSeconds: 5,
	})
	return server, svc.(*aiService)
}

func chatResponse(content string) []byte {
	body, _ := json.Marshal(map[string]interface{}{
		"choices": []map[string]interface{}{
			{"message": map[string]string{"role": "assistant", "content": content}},
		},
	})
	return body
}

func TestAIService_ClassifyEmail(t *testing.T) {
	var gotRequest chatCompletionRequest
	_, svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotRequest))
		w.Write(chatResponse("interested\n"))
	})

	label, err := svc.ClassifyEmail(context.Background(), dto.ClassifyEmailRequest{
		Subject: "Pricing question",
		From:    "jane@example.com",
		Body:    "How much does it cost?",
	})
	require.NoError(t, err)
	assert.Equal(t, "interested", label)

	assert.Equal(t, "classify-model", gotRequest.Model)
	assert.InDelta(t, 0.1, gotRequest.Temperature, 1e-9)
	require.Len(t, gotRequest.Messages, 1)
	prompt := gotRequest.Messages[0].Content
	assert.Contains(t, prompt, "interested, meeting_booked, not_interested, spam, out_of_office")
	assert.Contains(t, prompt, "Pricing question")
}

func TestAIService_ClassifyEmailTruncatesBody(t *testing.T) {
	var gotRequest chatCompletionRequest
	_, svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotRequest))
		w.Write(chatResponse("spam"))
	})

	longBody := strings.Repeat("x", 5000)
	_, err := svc.ClassifyEmail(context.Background(), dto.ClassifyEmailRequest{Body: longBody})
	require.NoError(t, err)

	prompt := gotRequest.Messages[0].Content
	assert.Contains(t, prompt, strings.Repeat("x", classifyBodyPrefixLimit))
	assert.NotContains(t, prompt, strings.Repeat("x", classifyBodyPrefixLimit+1))
}

func TestAIService_ClassifyEmailServerError(t *testing.T) {
	_, svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	})

	_, err := svc.ClassifyEmail(context.Background(), dto.ClassifyEmailRequest{Subject: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestAIService_GenerateReply(t *testing.T) {
	var gotRequest chatCompletionRequest
	_, svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotRequest))
		w.Write(chatResponse("  Happy to help!  "))
	})

	reply, err := svc.GenerateReply(context.Background(), dto.GenerateReplyRequest{
		Subject:     "Pricing question",
		From:        "jane@example.com",
		Body:        "How much does it cost?",
		ContextDocs: []string{"Plans start at $49/month."},
	})
	require.NoError(t, err)
	assert.Equal(t, "Happy to help!", reply)

	assert.Equal(t, "reply-model", gotRequest.Model)
	assert.Contains(t, gotRequest.Messages[0].Content, "Plans start at $49/month.")
}

func TestAIService_EmbedText(t *testing.T) {
	_, svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)

		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "embedding-model", req.Model)
		assert.Equal(t, "some text", req.Input)

		body, _ := json.Marshal(map[string]interface{}{
			"data": []map[string]interface{}{
				{"embedding": []float64{0.1, 0.2, 0.3}},
			},
		})
		w.Write(body)
	})

	embedding, err := svc.EmbedText(context.Background(), "some text")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.2, 0.3}, embedding)
}

func TestAIService_EmbedTextEmptyResponse(t *testing.T) {
	_, svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": []}`))
	})

	_, err := svc.EmbedText(context.Background(), "some text")
	assert.Error(t, err)
}
