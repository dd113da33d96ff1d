package mock

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/lexlapax/careercoach/pkg/log"
	"github.com/lexlapax/careercoach/pkg/reasoning"
)

// ErrMock is the error returned when the engine is told to fail.
var ErrMock = errors.New("mock reasoning engine error")

// Call represents a recorded method call on the mock engine.
type Call struct {
	// Method is the name of the method that was called.
	Method string

	// Args contains the arguments passed to the method.
	Args []interface{}
}

// MockEngine implements reasoning.Engine with canned responses.
// Completions match against the content of the last message.
type MockEngine struct {
	// cannedResponses maps prompts to predetermined responses
	cannedResponses map[string]string

	// defaultResponse is returned when no matching canned response is found
	defaultResponse string

	// cannedEmbeddings maps text to predetermined embeddings
	cannedEmbeddings map[string][]float32

	// defaultEmbedding is returned when no matching canned embedding is found
	defaultEmbedding []float32

	// exactMatch determines if prompt matching is exact or uses Contains
	exactMatch bool

	// completeErr and embedErr are returned by the matching call when set
	completeErr error
	embedErr    error

	// mutex protects the maps from concurrent access
	mutex sync.RWMutex

	// callHistory records all calls to Complete and GenerateEmbeddings
	callHistory []Call
}

var _ reasoning.Engine = (*MockEngine)(nil)

// MockOption is a function that configures a MockEngine.
type MockOption func(*MockEngine)

// WithDefaultResponse sets the default response for the mock engine.
func WithDefaultResponse(resp string) MockOption {
	return func(m *MockEngine) {
		m.defaultResponse = resp
	}
}

// WithDefaultEmbedding sets the default embedding for the mock engine.
func WithDefaultEmbedding(embedding []float32) MockOption {
	return func(m *MockEngine) {
		m.defaultEmbedding = embedding
	}
}

// WithExactMatch configures whether the mock engine uses exact matching.
func WithExactMatch(exact bool) MockOption {
	return func(m *MockEngine) {
		m.exactMatch = exact
	}
}

// WithShouldError configures whether the mock engine returns errors from every call.
func WithShouldError(shouldErr bool) MockOption {
	return func(m *MockEngine) {
		m.setShouldError(shouldErr)
	}
}

// NewMockEngine creates a new MockEngine with the given options.
func NewMockEngine(opts ...MockOption) *MockEngine {
	m := &MockEngine{
		cannedResponses:  make(map[string]string),
		defaultResponse:  "This is a mock response",
		cannedEmbeddings: make(map[string][]float32),
		defaultEmbedding: []float32{1.0, 0.0, 0.0},
		callHistory:      make([]Call, 0),
	}

	for _, opt := range opts {
		opt(m)
	}

	log.Debug("Created mock reasoning engine", "exact_match", m.exactMatch)
	return m
}

// Complete implements reasoning.Completer.
func (m *MockEngine) Complete(ctx context.Context, messages []reasoning.Message, opts ...reasoning.Option) (string, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	options := reasoning.ApplyOptions(opts...)
	m.callHistory = append(m.callHistory, Call{
		Method: "Complete",
		Args:   []interface{}{ctx, messages, options},
	})

	if m.completeErr != nil {
		return "", m.completeErr
	}

	var prompt string
	if len(messages) > 0 {
		prompt = messages[len(messages)-1].Content
	}

	log.Debug("Processing prompt with mock engine",
		"prompt_length", len(prompt),
		"temperature", options.Temperature,
		"max_tokens", options.MaxTokens,
		"model", options.Model)

	if m.exactMatch {
		if response, ok := m.cannedResponses[prompt]; ok {
			return response, nil
		}
	} else {
		for key, response := range m.cannedResponses {
			if strings.Contains(prompt, key) {
				return response, nil
			}
		}
	}

	return m.defaultResponse, nil
}

// GenerateEmbeddings implements reasoning.Embedder.
func (m *MockEngine) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.callHistory = append(m.callHistory, Call{
		Method: "GenerateEmbeddings",
		Args:   []interface{}{ctx, texts},
	})

	if m.embedErr != nil {
		return nil, m.embedErr
	}

	log.Debug("Generating embeddings with mock engine", "text_count", len(texts))

	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		embeddings[i] = m.embeddingFor(text)
	}
	return embeddings, nil
}

// embeddingFor must be called with the mutex held.
func (m *MockEngine) embeddingFor(text string) []float32 {
	if m.exactMatch {
		if embedding, ok := m.cannedEmbeddings[text]; ok {
			return embedding
		}
		return m.defaultEmbedding
	}
	// Longest key wins so overlapping keys resolve deterministically.
	var best string
	var found bool
	for key := range m.cannedEmbeddings {
		if strings.Contains(text, key) && (!found || len(key) > len(best)) {
			best, found = key, true
		}
	}
	if found {
		return m.cannedEmbeddings[best]
	}
	return m.defaultEmbedding
}

// AddResponse adds a canned response for a specific prompt.
func (m *MockEngine) AddResponse(prompt, response string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.cannedResponses[prompt] = response
}

// SetDefaultResponse sets the default response.
func (m *MockEngine) SetDefaultResponse(response string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.defaultResponse = response
}

// AddEmbedding adds a canned embedding for a specific text.
func (m *MockEngine) AddEmbedding(text string, embedding []float32) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.cannedEmbeddings[text] = embedding
}

// SetDefaultEmbedding sets the default embedding.
func (m *MockEngine) SetDefaultEmbedding(embedding []float32) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.defaultEmbedding = embedding
}

// SetExactMatch configures whether the engine uses exact matching.
func (m *MockEngine) SetExactMatch(exact bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.exactMatch = exact
}

// SetShouldError configures whether every call returns ErrMock.
func (m *MockEngine) SetShouldError(shouldErr bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.setShouldError(shouldErr)
}

func (m *MockEngine) setShouldError(shouldErr bool) {
	if shouldErr {
		m.completeErr, m.embedErr = ErrMock, ErrMock
	} else {
		m.completeErr, m.embedErr = nil, nil
	}
}

// SetCompleteError makes Complete return err (nil clears it).
func (m *MockEngine) SetCompleteError(err error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.completeErr = err
}

// SetEmbeddingError makes GenerateEmbeddings return err (nil clears it).
func (m *MockEngine) SetEmbeddingError(err error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.embedErr = err
}

// GetCallHistory returns a copy of the call history.
func (m *MockEngine) GetCallHistory() []Call {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	history := make([]Call, len(m.callHistory))
	copy(history, m.callHistory)
	return history
}

// CallsTo returns the recorded calls for one method.
func (m *MockEngine) CallsTo(method string) []Call {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var calls []Call
	for _, c := range m.callHistory {
		if c.Method == method {
			calls = append(calls, c)
		}
	}
	return calls
}

// ClearHistory clears the call history.
func (m *MockEngine) ClearHistory() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.callHistory = make([]Call, 0)
}
