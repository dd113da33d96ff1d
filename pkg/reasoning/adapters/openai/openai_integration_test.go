//go:build integration
// +build integration

package openai_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/lexlapax/careercoach/pkg/reasoning"
	"github.com/lexlapax/careercoach/pkg/reasoning/adapters/openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireIntegration(t *testing.T, keyEnv string) string {
	t.Helper()
	if os.Getenv("INTEGRATION_TESTS") != "true" {
		t.Skip("Skipping integration test; set INTEGRATION_TESTS=true to run")
	}
	key := os.Getenv(keyEnv)
	if key == "" {
		t.Skipf("%s not set", keyEnv)
	}
	return key
}

func TestIntegration_GenerateEmbeddings(t *testing.T) {
	apiKey := requireIntegration(t, "OPENAI_API_KEY")

	adapter, err := openai.NewOpenAIAdapter(openai.Config{
		APIKey:         apiKey,
		EmbeddingModel: "text-embedding-3-small",
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	embeddings, err := adapter.GenerateEmbeddings(ctx, []string{
		"Analysis result for https://linkedin.com/in/sample: score=72",
		"rewritten_headline: Product Manager | Growth | B2B SaaS",
	})
	require.NoError(t, err)
	require.Len(t, embeddings, 2)

	// text-embedding-3-small has 1536-dimensional vectors
	assert.Len(t, embeddings[0], 1536)
	assert.NotEqual(t, embeddings[0], embeddings[1])
}

func TestIntegration_Complete(t *testing.T) {
	apiKey := requireIntegration(t, "GROQ_API_KEY")

	adapter, err := openai.NewOpenAIAdapter(openai.Config{
		APIKey:    apiKey,
		ChatModel: "llama-3.1-8b-instant",
		BaseURL:   "https://api.groq.com/openai/v1",
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	response, err := adapter.Complete(ctx, []reasoning.Message{
		reasoning.System("Answer with a single word."),
		reasoning.User("What is the capital of France?"),
	}, reasoning.WithMaxTokens(10), reasoning.WithTemperature(0))
	require.NoError(t, err)
	assert.Contains(t, response, "Paris")
}
