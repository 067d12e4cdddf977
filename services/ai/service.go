package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/oneboxhq/onebox/config"
	"github.com/oneboxhq/onebox/dto"
	"github.com/oneboxhq/onebox/interfaces"
	"github.com/oneboxhq/onebox/internal/enum"
	"github.com/oneboxhq/onebox/internal/tracing"
	"github.com/oneboxhq/onebox/internal/utils"
)

const classifyBodyPrefixLimit = 1000

type aiService struct {
	config *config.AIConfig
	client *http.Client
}

func NewAIService(cfg *config.AIConfig) interfaces.AIService {
	timeout := cfg.TimeoutSeconds
	if timeout <= 0 {
		timeout = 60
	}
	return &aiService{
		config: cfg,
		client: &http.Client{
			Timeout: time.Duration(timeout) * time.Second,
		},
	}
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type embeddingRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

func (s *aiService) ClassifyEmail(ctx context.Context, request dto.ClassifyEmailRequest) (string, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "aiService.ClassifyEmail")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	labels := make([]string, 0, len(enum.IntentCategories()))
	for _, c := range enum.IntentCategories() {
		labels = append(labels, c.String())
	}

	prompt := fmt.Sprintf(
		"Classify the following email into exactly one of these categories: %s.\n"+
			"Answer with the category name only, nothing else.\n\n"+
			"Subject: %s\nFrom: %s\nBody: %s",
		strings.Join(labels, ", "),
		request.Subject,
		request.From,
		utils.Truncate(request.Body, classifyBodyPrefixLimit),
	)

	content, err := s.chatCompletion(ctx, s.config.ClassifyModel, 0.1, prompt)
	if err != nil {
		tracing.TraceErr(span, err)
		return "", err
	}

	label := strings.TrimSpace(content)
	span.LogKV("label", label)
	return label, nil
}

func (s *aiService) GenerateReply(ctx context.Context, request dto.GenerateReplyRequest) (string, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "aiService.GenerateReply")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	var sb strings.Builder
	sb.WriteString("You are an assistant drafting a short, friendly reply to an inbound email.\n")
	if len(request.ContextDocs) > 0 {
		sb.WriteString("Use the following reference notes where relevant:\n")
		for _, doc := range request.ContextDocs {
			sb.WriteString("- ")
			sb.WriteString(doc)
			sb.WriteString("\n")
		}
	}
	sb.WriteString(fmt.Sprintf("\nEmail:\nSubject: %s\nFrom: %s\nBody: %s\n\nReply:", request.Subject, request.From, request.Body))

	content, err := s.chatCompletion(ctx, s.config.ReplyModel, 0.7, sb.String())
	if err != nil {
		tracing.TraceErr(span, err)
		return "", err
	}

	return strings.TrimSpace(content), nil
}

func (s *aiService) EmbedText(ctx context.Context, text string) ([]float64, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "aiService.EmbedText")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	payload, err := json.Marshal(embeddingRequest{
		Model: s.config.EmbeddingModel,
		Input: text,
	})
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrap(err, "failed to marshal payload")
	}

	body, err := s.post(ctx, "/embeddings", payload)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	var response embeddingResponse
	if err := json.Unmarshal(body, &response); err != nil {
		tracing.TraceErr(span, err)
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if len(response.Data) == 0 {
		err := errors.New("embedding response is empty")
		tracing.TraceErr(span, err)
		return nil, err
	}

	return response.Data[0].Embedding, nil
}

func (s *aiService) chatCompletion(ctx context.Context, model string, temperature float64, prompt string) (string, error) {
	payload, err := json.Marshal(chatCompletionRequest{
		Model:       model,
		Temperature: temperature,
		Messages: []chatMessage{
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal payload")
	}

	body, err := s.post(ctx, "/chat/completions", payload)
	if err != nil {
		return "", err
	}

	var response chatCompletionResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if len(response.Choices) == 0 {
		return "", errors.New("completion response has no choices")
	}

	return response.Choices[0].Message.Content, nil
}

func (s *aiService) post(ctx context.Context, path string, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", s.config.APIBaseURL+path, bytes.NewBuffer(payload))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.config.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "unable to read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("request failed with status code %d: %s", resp.StatusCode, string(body))
	}

	return body, nil
}
