package openai

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/talentrag/internal/domain"
	"github.com/kailas-cloud/talentrag/internal/metrics"
)

// Completer implements domain.ChatCompleter over the chat completions endpoint.
type Completer struct {
	client *openai.Client
	model  string
	user   string
	logger *zap.Logger
}

// NewCompleter creates a chat completer. cfg.Model is the default model for
// requests that do not name one.
func NewCompleter(cfg *Config) *Completer {
	return &Completer{
		client: newClient(cfg),
		model:  cfg.Model,
		user:   cfg.User,
		logger: cfg.Logger,
	}
}

// Complete sends the messages and returns the first choice.
// With req.Schema set the response is constrained to that JSON schema.
func (c *Completer) Complete(ctx context.Context, req domain.ChatRequest) (domain.ChatResult, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}

	creq := openai.ChatCompletionRequest{
		Model:     model,
		Messages:  make([]openai.ChatCompletionMessage, len(req.Messages)),
		MaxTokens: req.MaxTokens,
		User:      c.user,
	}
	for i, m := range req.Messages {
		creq.Messages[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}
	if req.Schema != nil {
		creq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   req.Schema.Name,
				Schema: req.Schema.Schema,
				Strict: req.Schema.Strict,
			},
		}
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, creq)
	metrics.CompletionRequestDuration.WithLabelValues(model).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.CompletionRequestsTotal.WithLabelValues(model, "error").Inc()
		return domain.ChatResult{}, parseAPIError("completion", domain.ErrCompletionService, err)
	}
	if len(resp.Choices) == 0 {
		metrics.CompletionRequestsTotal.WithLabelValues(model, "error").Inc()
		return domain.ChatResult{}, fmt.Errorf("completion response has no choices: %w", domain.ErrCompletionService)
	}

	metrics.CompletionRequestsTotal.WithLabelValues(model, "success").Inc()
	metrics.CompletionTokensTotal.WithLabelValues(model, "prompt").Add(float64(resp.Usage.PromptTokens))
	metrics.CompletionTokensTotal.WithLabelValues(model, "completion").Add(float64(resp.Usage.CompletionTokens))

	c.logger.Debug("Chat completion",
		zap.String("model", model),
		zap.String("finish_reason", string(resp.Choices[0].FinishReason)),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
	)

	return domain.ChatResult{
		Content:          resp.Choices[0].Message.Content,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}, nil
}
