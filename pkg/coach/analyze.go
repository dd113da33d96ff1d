package coach

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/lexlapax/careercoach/pkg/entity"
	"github.com/lexlapax/careercoach/pkg/errors"
	"github.com/lexlapax/careercoach/pkg/log"
	"github.com/lexlapax/careercoach/pkg/profile"
	"github.com/lexlapax/careercoach/pkg/reasoning"
)

// Analyze fetches the profile, scores it against the target job and records
// the request, the result and every rewritten section in the user's memory.
// Only a failed fetch or a failed completion is fatal.
func (s *Service) Analyze(ctx context.Context, req AnalyzeRequest) (*AnalysisResult, error) {
	userID := entity.ResolveUserID(req.UserID)
	targetJob := strings.TrimSpace(req.TargetJob)
	logger := log.FromContext(ctx).With("url", req.URL, "target_job", targetJob)

	// 1. profile
	p, err := s.fetchProfile(ctx, req.URL)
	if err != nil {
		logger.Error("Failed to fetch profile", "error", err)
		return nil, err
	}

	// 2. job description
	jobDesc := SynthesizeJobDescription(targetJob)

	// 3. note the request
	s.remember(ctx, userID,
		fmt.Sprintf("Requested analysis for URL: %s, target_job: %s", req.URL, orNone(targetJob)),
		map[string]interface{}{
			"type":       TypeAnalysisRequest,
			"url":        req.URL,
			"target_job": optional(targetJob),
		})

	// 4. memory context
	query := targetJob
	if query == "" {
		query = analysisQueryDefault
	}
	memoryContext := s.memory.BuildContext(ctx, userID, query, analysisTopK)

	// 5. prompts
	messages, err := buildAnalysisMessages(p, jobDesc, memoryContext)
	if err != nil {
		return nil, &Error{Op: "build_prompt", Err: err}
	}

	// 6. completion
	if s.completer == nil {
		return nil, &Error{Op: "complete", Err: errors.Join(errors.ErrCompletion, errors.ErrCompletionUnavailable)}
	}
	analysisText, err := s.completer.Complete(ctx, messages,
		s.completionOptions(analysisTemperature, s.config.AnalysisMaxTokens)...)
	if err != nil {
		logger.Error("Completion request failed", "error", err)
		return nil, &Error{Op: "complete", Err: errors.Join(errors.ErrCompletion, err)}
	}
	analysisText = strings.TrimSpace(analysisText)

	// 7-8. structured fields
	parsed := parseAnalysis(analysisText)

	// 9. remember the outcome
	s.rememberAnalysis(ctx, userID, req.URL, targetJob, parsed)

	logger.Info("Profile analysis completed",
		"match_score_present", parsed.MatchScore != nil,
		"recommendations", len(parsed.Recommendations),
		"rewritten_sections", len(parsed.RewrittenSections))

	// 10. aggregate
	return &AnalysisResult{
		Profile:           p,
		AnalysisText:      analysisText,
		MatchScore:        parsed.MatchScore,
		Recommendations:   parsed.Recommendations,
		RewrittenSections: parsed.RewrittenSections,
	}, nil
}

func (s *Service) fetchProfile(ctx context.Context, url string) (*profile.Profile, error) {
	if s.fetcher == nil {
		return nil, &Error{Op: "fetch_profile", Err: errors.Join(errors.ErrProfileFetch, fmt.Errorf("no profile fetcher configured"))}
	}
	p, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		if !errors.Is(err, errors.ErrProfileFetch) {
			err = errors.Join(errors.ErrProfileFetch, err)
		}
		return nil, &Error{Op: "fetch_profile", Err: err}
	}
	if p == nil {
		return nil, &Error{Op: "fetch_profile", Err: errors.Join(errors.ErrProfileFetch, errors.ErrProfileNotFound)}
	}
	return p, nil
}

func (s *Service) rememberAnalysis(ctx context.Context, userID, url, targetJob string, parsed analysis) {
	recs, err := json.Marshal(parsed.Recommendations)
	if err != nil {
		recs = []byte("[]")
	}
	s.remember(ctx, userID,
		fmt.Sprintf("Analysis result for %s: score=%s; recs=%s", url, formatScore(parsed.MatchScore), recs),
		map[string]interface{}{
			"type":        TypeAnalysisResult,
			"match_score": parsed.MatchScore,
			"target_job":  optional(targetJob),
		})

	keys := make([]string, 0, len(parsed.RewrittenSections))
	for k := range parsed.RewrittenSections {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		s.remember(ctx, userID,
			fmt.Sprintf("rewritten_%s: %s", key, parsed.RewrittenSections[key].String()),
			map[string]interface{}{
				"type":       TypeRewritten,
				"section":    key,
				"target_job": optional(targetJob),
			})
	}
}

func buildAnalysisMessages(p *profile.Profile, jobDesc, memoryContext string) ([]reasoning.Message, error) {
	system := analysisSystemPrompt
	if memoryContext != "" {
		system += analysisMemoryHeading + memoryContext + "\n\n"
	}

	var profileJSON bytes.Buffer
	enc := json.NewEncoder(&profileJSON)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(p); err != nil {
		return nil, fmt.Errorf("encode profile: %w", err)
	}

	var user strings.Builder
	user.WriteString("PROFILE_JSON:\n")
	user.WriteString(strings.TrimSpace(profileJSON.String()))
	user.WriteString("\n\nJOB_DESCRIPTION:\n")
	user.WriteString(jobDesc)
	user.WriteString("\n\n")
	user.WriteString(analysisInstructions)

	return []reasoning.Message{
		reasoning.System(system),
		reasoning.User(user.String()),
	}, nil
}

func formatScore(score *float64) string {
	if score == nil {
		return "none"
	}
	return strconv.FormatFloat(*score, 'f', -1, 64)
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
