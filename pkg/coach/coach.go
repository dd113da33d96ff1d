// Package coach orchestrates profile analysis and follow-up chat on top of a
// profile fetcher, a completion service and the per-user memory store.
package coach

import (
	"context"
	"fmt"

	"github.com/lexlapax/careercoach/pkg/log"
	"github.com/lexlapax/careercoach/pkg/mem/ltm"
	"github.com/lexlapax/careercoach/pkg/mmu"
	"github.com/lexlapax/careercoach/pkg/profile"
	"github.com/lexlapax/careercoach/pkg/reasoning"
)

// Memory record types. Every record written by the service carries one of
// these under the "type" metadata key.
const (
	TypeAnalysisRequest = "analysis_request"
	TypeAnalysisResult  = "analysis_result"
	TypeRewritten       = "rewritten"
	TypeChatUser        = "chat_user"
	TypeChatAssistant   = "chat_assistant"
)

// Coach is the behaviour exposed to transports.
type Coach interface {
	Analyze(ctx context.Context, req AnalyzeRequest) (*AnalysisResult, error)
	Chat(ctx context.Context, userID, message string) string
	Memories(ctx context.Context, userID string, limit int) ([]ltm.MemoryRecord, error)
}

// AnalyzeRequest asks for a profile to be scored against a target job.
type AnalyzeRequest struct {
	URL string
	// TargetJob may be empty, in which case a generic description is used
	TargetJob string
	UserID    string
}

// AnalysisResult is the aggregate returned by Analyze.
type AnalysisResult struct {
	Profile           *profile.Profile   `json:"profile"`
	AnalysisText      string             `json:"analysis_text"`
	MatchScore        *float64           `json:"match_score"`
	Recommendations   []string           `json:"recommendations"`
	RewrittenSections map[string]Section `json:"rewritten_sections"`
}

// Error is a fatal failure of an orchestration step.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Config tunes the completion calls.
type Config struct {
	// AnalysisMaxTokens bounds the analysis completion
	AnalysisMaxTokens int

	// Model overrides the completion adapter's default model when set
	Model string
}

// DefaultConfig returns the default service configuration.
func DefaultConfig() Config {
	return Config{AnalysisMaxTokens: 900}
}

// Service implements Coach.
type Service struct {
	fetcher   profile.Fetcher
	completer reasoning.Completer
	memory    mmu.MMU
	config    Config
}

var _ Coach = (*Service)(nil)

// NewService creates a Service. completer may be nil, in which case analysis
// fails and chat answers with UnavailableReply. memory may be nil, in which
// case a disabled memory store is used.
func NewService(fetcher profile.Fetcher, completer reasoning.Completer, memory mmu.MMU, config Config) *Service {
	if memory == nil {
		memory = mmu.Disabled()
	}
	if config.AnalysisMaxTokens <= 0 {
		config.AnalysisMaxTokens = DefaultConfig().AnalysisMaxTokens
	}

	log.Debug("Career coach service initialized",
		"completion_available", completer != nil,
		"memory_enabled", memory.Enabled(),
		"analysis_max_tokens", config.AnalysisMaxTokens,
	)

	return &Service{
		fetcher:   fetcher,
		completer: completer,
		memory:    memory,
		config:    config,
	}
}

// Memories lists the most recent records for a user, newest first.
func (s *Service) Memories(ctx context.Context, userID string, limit int) ([]ltm.MemoryRecord, error) {
	return s.memory.Recent(ctx, userID, limit)
}

func (s *Service) completionOptions(temperature float64, maxTokens int) []reasoning.Option {
	opts := []reasoning.Option{
		reasoning.WithTemperature(temperature),
		reasoning.WithMaxTokens(maxTokens),
	}
	if s.config.Model != "" {
		opts = append(opts, reasoning.WithModel(s.config.Model))
	}
	return opts
}

// remember saves one interaction and logs anything but success.
func (s *Service) remember(ctx context.Context, userID, text string, metadata map[string]interface{}) mmu.SaveResult {
	res := s.memory.Save(ctx, userID, text, metadata)
	if !res.OK() {
		log.FromContext(ctx).Warn("Memory not persisted",
			"type", metadata["type"],
			"status", res.Status,
			"error", res.Err)
	}
	return res
}

// optional turns a blank string into nil so it is dropped from metadata.
func optional(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
