package notify

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oneboxhq/onebox/internal/enum"
	"github.com/oneboxhq/onebox/internal/logger"
	"github.com/oneboxhq/onebox/internal/models"
)

func newTestLogger() logger.Logger {
	appLogger := logger.NewAppLogger(&logger.Config{
		DevMode: true,
	})
	appLogger.InitLogger()
	return appLogger
}

func TestSlackNotifier_PostsBlockMessage(t *testing.T) {
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		gotBody = body
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	n := NewSlackNotifier(server.URL, newTestLogger())
	n.Notify(context.Background(), &models.Email{
		ID:          "e1",
		Subject:     "Pricing question",
		FromName:    "Jane Doe",
		FromAddress: "jane@example.com",
		ToAddresses: pq.StringArray{"sales@acme.com", "team@acme.com"},
		Category:    enum.IntentInterested,
	})

	require.NotEmpty(t, gotBody)
	payload := string(gotBody)
	assert.Contains(t, payload, "New interested lead")
	assert.Contains(t, payload, "Pricing question")
	assert.Contains(t, payload, "jane@example.com")
	assert.Contains(t, payload, "sales@acme.com,team@acme.com")
}

func TestSlackNotifier_EmptyURLIsNoOp(t *testing.T) {
	n := NewSlackNotifier("", newTestLogger())

	// Must not panic or dial anything.
	n.Notify(context.Background(), &models.Email{ID: "e1"})
}
