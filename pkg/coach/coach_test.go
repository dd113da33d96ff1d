package coach

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"

	"github.com/lexlapax/careercoach/pkg/errors"
	ltmMock "github.com/lexlapax/careercoach/pkg/mem/ltm/adapters/mock"
	"github.com/lexlapax/careercoach/pkg/mmu"
	"github.com/lexlapax/careercoach/pkg/profile"
	profileMock "github.com/lexlapax/careercoach/pkg/profile/adapters/mock"
	"github.com/lexlapax/careercoach/pkg/reasoning"
	reasoningMock "github.com/lexlapax/careercoach/pkg/reasoning/adapters/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixedAnalysis = "Solid backend background, little product exposure.\n" +
	`{"match_score": 68, "recommendations": ["Quantify launches", "Mention roadmap ownership", "Add stakeholder work", "Use PM keywords", "Show user research"], ` +
	`"rewritten_sections": {"headline": "Engineer turned Product Manager", "about": "I build products people use.", "experience": ["Led migration for 2M users", "Cut latency by 40%"]}, "notes": "n/a"}` +
	"\nThat is all."

var sampleProfile = &profile.Profile{
	Name:     "Sam Sample",
	Headline: "Backend Engineer",
	About:    "Engineer who likes shipping & measuring <things>.",
	Experience: []profile.Experience{
		{Title: "Backend Engineer", Company: "Acme", Date: "2019 - Present"},
	},
	Skills: []string{"Go", "SQL"},
}

type fixture struct {
	service   *Service
	fetcher   *profileMock.MockFetcher
	completer *reasoningMock.MockEngine
	embedder  *reasoningMock.MockEngine
	store     *ltmMock.MockStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		fetcher:   profileMock.NewMockFetcher(sampleProfile),
		completer: reasoningMock.NewMockEngine(reasoningMock.WithDefaultResponse(fixedAnalysis)),
		embedder:  reasoningMock.NewMockEngine(),
		store:     ltmMock.NewMockStore(),
	}
	memory := mmu.NewMMU(f.store, f.embedder)
	f.service = NewService(f.fetcher, f.completer, memory, Config{AnalysisMaxTokens: 900})
	return f
}

func recordTypes(t *testing.T, store *ltmMock.MockStore, userID string) []string {
	t.Helper()
	recs, err := store.Recent(context.Background(), userID, 100)
	require.NoError(t, err)
	types := make([]string, 0, len(recs))
	// oldest first
	for i := len(recs) - 1; i >= 0; i-- {
		types = append(types, recs[i].Metadata["type"].(string))
	}
	return types
}

func lastMessages(t *testing.T, engine *reasoningMock.MockEngine) ([]reasoning.Message, reasoning.Options) {
	t.Helper()
	calls := engine.CallsTo("Complete")
	require.NotEmpty(t, calls)
	last := calls[len(calls)-1]
	return last.Args[1].([]reasoning.Message), last.Args[2].(reasoning.Options)
}

func TestAnalyze(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	result, err := f.service.Analyze(ctx, AnalyzeRequest{
		URL:       "https://www.linkedin.com/in/sample",
		TargetJob: "Product Manager",
		UserID:    "u1",
	})
	require.NoError(t, err)

	require.NotNil(t, result.MatchScore)
	assert.Equal(t, 68.0, *result.MatchScore)
	assert.Equal(t, []string{
		"Quantify launches", "Mention roadmap ownership", "Add stakeholder work", "Use PM keywords", "Show user research",
	}, result.Recommendations)
	assert.Equal(t, map[string]Section{
		"headline":   TextSection("Engineer turned Product Manager"),
		"about":      TextSection("I build products people use."),
		"experience": ListSection("Led migration for 2M users", "Cut latency by 40%"),
	}, result.RewrittenSections)
	assert.Equal(t, strings.TrimSpace(fixedAnalysis), result.AnalysisText)
	assert.Equal(t, sampleProfile, result.Profile)

	assert.Equal(t, []string{
		TypeAnalysisRequest,
		TypeAnalysisResult,
		TypeRewritten, TypeRewritten, TypeRewritten,
	}, recordTypes(t, f.store, "u1"))

	recs, err := f.service.Memories(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, recs, 5)
	// rewritten sections are saved in key order, so the newest is "headline"
	assert.Equal(t, "headline", recs[0].Metadata["section"])
	assert.Equal(t, "rewritten_headline: Engineer turned Product Manager", recs[0].Content)
	assert.Equal(t, "rewritten_experience: Led migration for 2M users\nCut latency by 40%", recs[1].Content)
	assert.Equal(t, "Product Manager", recs[0].Metadata["target_job"])
	assert.Equal(t, 68.0, recs[3].Metadata["match_score"])
	assert.True(t, strings.HasPrefix(recs[3].Content, "Analysis result for https://www.linkedin.com/in/sample: score=68; recs=["))
	assert.Equal(t, "Requested analysis for URL: https://www.linkedin.com/in/sample, target_job: Product Manager", recs[4].Content)
	assert.Equal(t, "https://www.linkedin.com/in/sample", recs[4].Metadata["url"])

	messages, opts := lastMessages(t, f.completer)
	require.Len(t, messages, 2)
	assert.Equal(t, reasoning.RoleSystem, messages[0].Role)
	assert.Contains(t, messages[0].Content, "Experience Relevance (Max 40 points)")
	assert.Equal(t, reasoning.RoleUser, messages[1].Role)
	assert.Contains(t, messages[1].Content, "PROFILE_JSON:\n")
	assert.Contains(t, messages[1].Content, "shipping & measuring <things>")
	assert.Contains(t, messages[1].Content, "'Product Manager'")
	assert.Equal(t, 0.7, opts.Temperature)
	assert.Equal(t, 900, opts.MaxTokens)
}

func TestAnalyzeUsesMemoryContext(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	req := AnalyzeRequest{URL: "https://example.com/in/a", TargetJob: "Data Scientist", UserID: "u1"}

	_, err := f.service.Analyze(ctx, req)
	require.NoError(t, err)
	messages, _ := lastMessages(t, f.completer)
	// the request record of the first call is already in memory
	assert.Contains(t, messages[0].Content, "USER MEMORY CONTEXT (most relevant):\n[MEMORY 1]")

	_, err = f.service.Analyze(ctx, req)
	require.NoError(t, err)
	messages, _ = lastMessages(t, f.completer)
	assert.Contains(t, messages[0].Content, "[MEMORY 6]")
	assert.NotContains(t, messages[0].Content, "[MEMORY 7]")
}

func TestAnalyzeWithoutTargetJob(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.service.Analyze(ctx, AnalyzeRequest{URL: "https://example.com/in/a"})
	require.NoError(t, err)

	messages, _ := lastMessages(t, f.completer)
	assert.Contains(t, messages[1].Content, GenericJobDescription)

	recs, err := f.service.Memories(ctx, "anon", 10)
	require.NoError(t, err)
	require.NotEmpty(t, recs)
	request := recs[len(recs)-1]
	assert.Equal(t, "Requested analysis for URL: https://example.com/in/a, target_job: none", request.Content)
	_, hasJob := request.Metadata["target_job"]
	assert.False(t, hasJob)

	embedCalls := f.embedder.CallsTo("GenerateEmbeddings")
	queries := make([]string, 0, len(embedCalls))
	for _, c := range embedCalls {
		queries = append(queries, c.Args[1].([]string)[0])
	}
	assert.Contains(t, queries, "career profile")
}

func TestAnalyzeUnparseableReply(t *testing.T) {
	f := newFixture(t)
	f.completer.SetDefaultResponse("Sorry, no structured output today.")

	result, err := f.service.Analyze(context.Background(), AnalyzeRequest{URL: "https://example.com/in/a", UserID: "u1"})
	require.NoError(t, err)
	assert.Nil(t, result.MatchScore)
	assert.Empty(t, result.Recommendations)
	assert.Empty(t, result.RewrittenSections)
	assert.Equal(t, []string{TypeAnalysisRequest, TypeAnalysisResult}, recordTypes(t, f.store, "u1"))
}

func TestAnalyzeFailures(t *testing.T) {
	ctx := context.Background()
	req := AnalyzeRequest{URL: "https://example.com/in/a", TargetJob: "SRE", UserID: "u1"}

	t.Run("profile fetch", func(t *testing.T) {
		f := newFixture(t)
		f.fetcher.SetError(stderrors.New("actor timed out"))

		_, err := f.service.Analyze(ctx, req)
		require.Error(t, err)
		var coachErr *Error
		require.True(t, errors.As(err, &coachErr))
		assert.Equal(t, "fetch_profile", coachErr.Op)
		assert.True(t, errors.Is(err, errors.ErrProfileFetch))
		assert.Contains(t, err.Error(), "actor timed out")
		assert.Empty(t, f.completer.CallsTo("Complete"))
		assert.Equal(t, 0, f.store.Count("u1"))
	})

	t.Run("profile not found", func(t *testing.T) {
		f := newFixture(t)
		f.fetcher.SetError(errors.ErrProfileNotFound)

		_, err := f.service.Analyze(ctx, req)
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrProfileFetch))
		assert.True(t, errors.Is(err, errors.ErrProfileNotFound))
	})

	t.Run("completion", func(t *testing.T) {
		f := newFixture(t)
		f.completer.SetCompleteError(stderrors.New("503 from upstream"))

		_, err := f.service.Analyze(ctx, req)
		require.Error(t, err)
		var coachErr *Error
		require.True(t, errors.As(err, &coachErr))
		assert.Equal(t, "complete", coachErr.Op)
		assert.True(t, errors.Is(err, errors.ErrCompletion))
		assert.Len(t, f.completer.CallsTo("Complete"), 1, "no retry")
		assert.Equal(t, []string{TypeAnalysisRequest}, recordTypes(t, f.store, "u1"))
	})

	t.Run("no completion service", func(t *testing.T) {
		f := newFixture(t)
		service := NewService(f.fetcher, nil, mmu.NewMMU(f.store, f.embedder), DefaultConfig())

		_, err := service.Analyze(ctx, req)
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrCompletion))
		assert.True(t, errors.Is(err, errors.ErrCompletionUnavailable))
	})
}

func TestAnalyzeSurvivesMemoryFailures(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.embedder.SetEmbeddingError(stderrors.New("embedding quota exceeded"))

	result, err := f.service.Analyze(ctx, AnalyzeRequest{URL: "https://example.com/in/a", TargetJob: "SRE", UserID: "u1"})
	require.NoError(t, err)
	require.NotNil(t, result.MatchScore)
	assert.Equal(t, 0, f.store.Count("u1"))

	disabled := NewService(f.fetcher, f.completer, nil, DefaultConfig())
	result, err = disabled.Analyze(ctx, AnalyzeRequest{URL: "https://example.com/in/a", UserID: "u1"})
	require.NoError(t, err)
	assert.NotNil(t, result.MatchScore)
}

func TestChat(t *testing.T) {
	ctx := context.Background()

	t.Run("reply with memory context", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.service.Analyze(ctx, AnalyzeRequest{URL: "https://example.com/in/a", TargetJob: "SRE", UserID: "u1"})
		require.NoError(t, err)
		f.completer.AddResponse("What was my score?", "  Your last match score was 68.  ")

		reply := f.service.Chat(ctx, "u1", "What was my score?")
		assert.Equal(t, "Your last match score was 68.", reply)

		messages, opts := lastMessages(t, f.completer)
		assert.Contains(t, messages[0].Content, "profile must be analyzed first")
		assert.True(t, strings.HasPrefix(messages[1].Content, "RELEVANT MEMORY CONTEXT:\n[MEMORY 1]"))
		assert.True(t, strings.HasSuffix(messages[1].Content, "\n\nUSER MESSAGE: What was my score?\n"))
		assert.Contains(t, messages[1].Content, "[MEMORY 5]")
		assert.Equal(t, 250, opts.MaxTokens)
		assert.Equal(t, 0.6, opts.Temperature)

		recs, err := f.service.Memories(ctx, "u1", 2)
		require.NoError(t, err)
		require.Len(t, recs, 2)
		assert.Equal(t, TypeChatAssistant, recs[0].Metadata["type"])
		assert.Equal(t, "Your last match score was 68.", recs[0].Content)
		assert.Equal(t, TypeChatUser, recs[1].Metadata["type"])
		assert.Equal(t, "What was my score?", recs[1].Content)
	})

	t.Run("no memory yet", func(t *testing.T) {
		f := newFixture(t)
		f.service.Chat(ctx, "fresh", "hello")
		messages, _ := lastMessages(t, f.completer)
		assert.Equal(t, "USER MESSAGE: hello\n", messages[1].Content)
	})

	t.Run("completion failure returns apology and is remembered", func(t *testing.T) {
		f := newFixture(t)
		f.completer.SetCompleteError(stderrors.New("rate limited"))

		reply := f.service.Chat(ctx, "u1", "What was my score?")
		assert.Equal(t, ApologyReply, reply)

		recs, err := f.service.Memories(ctx, "u1", 10)
		require.NoError(t, err)
		require.Len(t, recs, 2)
		assert.Equal(t, ApologyReply, recs[0].Content)
		assert.Equal(t, TypeChatAssistant, recs[0].Metadata["type"])
		assert.Equal(t, "What was my score?", recs[1].Content)
		assert.Equal(t, TypeChatUser, recs[1].Metadata["type"])
	})

	t.Run("no completion service", func(t *testing.T) {
		f := newFixture(t)
		service := NewService(f.fetcher, nil, mmu.NewMMU(f.store, f.embedder), DefaultConfig())
		assert.Equal(t, UnavailableReply, service.Chat(ctx, "u1", "hi"))
	})

	t.Run("memory failures are invisible", func(t *testing.T) {
		f := newFixture(t)
		f.store.SetStoreError(stderrors.New("disk full"))
		f.store.SetSearchError(stderrors.New("index down"))
		f.store.SetRecentError(stderrors.New("ledger down"))

		assert.NotPanics(t, func() {
			assert.Equal(t, strings.TrimSpace(fixedAnalysis), f.service.Chat(ctx, "u1", "hi"))
		})
	})
}

func TestErrorFormatting(t *testing.T) {
	err := &Error{Op: "complete", Err: errors.Join(errors.ErrCompletion, stderrors.New("boom"))}
	assert.Equal(t, "complete: completion service error: boom", err.Error())
	assert.True(t, errors.Is(err, errors.ErrCompletion))
}

func TestMemoriesDelegates(t *testing.T) {
	f := newFixture(t)
	recs, err := f.service.Memories(context.Background(), "nobody", 10)
	require.NoError(t, err)
	assert.Empty(t, recs)
}
