package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lexlapax/careercoach/pkg/log"
	"github.com/lexlapax/careercoach/pkg/reasoning"
	"github.com/sashabaranov/go-openai"
)

var (
	// ErrEmptyAPIKey is returned when the API key is missing.
	ErrEmptyAPIKey = errors.New("API key cannot be empty")
	// ErrNoChoices is returned when the service answers without a completion.
	ErrNoChoices = errors.New("no response choices returned")
)

// Config holds the configuration for the OpenAI-compatible adapter.
type Config struct {
	// APIKey is the service API key.
	APIKey string
	// EmbeddingModel is the model to use for embeddings, e.g., "text-embedding-3-small".
	EmbeddingModel string
	// ChatModel is the model to use for chat completions, e.g., "llama-3.1-8b-instant".
	ChatModel string
	// BaseURL points the client at any OpenAI-compatible API (Groq, a proxy, a test server).
	BaseURL string
}

// OpenAIAdapter implements reasoning.Engine against an OpenAI-compatible API.
type OpenAIAdapter struct {
	client         *openai.Client
	embeddingModel string
	chatModel      string
}

var _ reasoning.Engine = (*OpenAIAdapter)(nil)

// NewOpenAIAdapter creates a new OpenAI adapter.
func NewOpenAIAdapter(config Config) (*OpenAIAdapter, error) {
	if strings.TrimSpace(config.APIKey) == "" {
		return nil, ErrEmptyAPIKey
	}

	if config.EmbeddingModel == "" {
		config.EmbeddingModel = string(openai.SmallEmbedding3)
	}
	if config.ChatModel == "" {
		config.ChatModel = "llama-3.1-8b-instant"
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	return &OpenAIAdapter{
		client:         openai.NewClientWithConfig(clientConfig),
		embeddingModel: config.EmbeddingModel,
		chatModel:      config.ChatModel,
	}, nil
}

// GenerateEmbeddings generates embeddings for the given texts.
func (a *OpenAIAdapter) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	log.DebugContext(ctx, "Generating embeddings", "count", len(texts), "model", a.embeddingModel)

	response, err := a.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(a.embeddingModel),
	})
	if err != nil {
		return nil, fmt.Errorf("create embeddings: %w", err)
	}
	if len(response.Data) != len(texts) {
		return nil, fmt.Errorf("create embeddings: got %d vectors for %d inputs", len(response.Data), len(texts))
	}

	// Data carries its own index; do not assume the service preserved order.
	embeddings := make([][]float32, len(texts))
	for i, data := range response.Data {
		idx := data.Index
		if idx < 0 || idx >= len(texts) {
			idx = i
		}
		embeddings[idx] = data.Embedding
	}

	log.DebugContext(ctx, "Generated embeddings",
		"count", len(embeddings),
		"dimension", len(embeddings[0]),
		"model", a.embeddingModel)

	return embeddings, nil
}

// Complete sends one chat completion request. No retries are attempted.
func (a *OpenAIAdapter) Complete(ctx context.Context, messages []reasoning.Message, opts ...reasoning.Option) (string, error) {
	options := reasoning.ApplyOptions(opts...)

	model := a.chatModel
	if options.Model != "" {
		model = options.Model
	}

	log.DebugContext(ctx, "Processing chat request", "model", model, "messages", len(messages))

	chatMessages := make([]openai.ChatCompletionMessage, len(messages))
	for i, msg := range messages {
		chatMessages[i] = openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}

	response, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    chatMessages,
		Temperature: float32(options.Temperature),
		MaxTokens:   options.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("create chat completion: %w", err)
	}
	if len(response.Choices) == 0 {
		return "", ErrNoChoices
	}

	content := strings.TrimSpace(response.Choices[0].Message.Content)

	log.DebugContext(ctx, "Generated response",
		"tokens", response.Usage.TotalTokens,
		"model", model)

	return content, nil
}
