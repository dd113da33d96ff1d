package reasoning

import (
	"context"
)

// Chat roles understood by every completion adapter.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single turn of a chat completion request.
type Message struct {
	Role    string
	Content string
}

// System returns a system message.
func System(content string) Message { return Message{Role: RoleSystem, Content: content} }

// User returns a user message.
func User(content string) Message { return Message{Role: RoleUser, Content: content} }

// Option is a function that configures a reasoning process.
type Option func(*Options)

// Options holds configuration for a reasoning request.
type Options struct {
	// Temperature controls randomness in generation (0.0-2.0)
	Temperature float64

	// MaxTokens limits the length of the generated response
	MaxTokens int

	// Model specifies which model variant to use
	Model string
}

// DefaultOptions returns default reasoning options.
func DefaultOptions() Options {
	return Options{
		Temperature: 0.7,
		MaxTokens:   1024,
		Model:       "", // Empty means use the adapter's default
	}
}

// ApplyOptions folds opts over DefaultOptions.
func ApplyOptions(opts ...Option) Options {
	options := DefaultOptions()
	for _, opt := range opts {
		opt(&options)
	}
	return options
}

// WithTemperature sets the temperature option.
func WithTemperature(temp float64) Option {
	return func(o *Options) {
		o.Temperature = temp
	}
}

// WithMaxTokens sets the max tokens option.
func WithMaxTokens(tokens int) Option {
	return func(o *Options) {
		o.MaxTokens = tokens
	}
}

// WithModel sets the model option.
func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

// Completer produces a single chat completion. Implementations make exactly
// one upstream attempt and honour ctx cancellation.
type Completer interface {
	Complete(ctx context.Context, messages []Message, opts ...Option) (string, error)
}

// Embedder creates vector embeddings for the provided texts, one per input,
// in input order.
type Embedder interface {
	GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

// Engine is a service that can do both.
type Engine interface {
	Completer
	Embedder
}
