package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/lexlapax/careercoach/pkg/entity"
)

const (
	cmdHelp     = "!help"
	cmdQuit     = "!quit"
	cmdUser     = "!user"
	cmdAnalyze  = "!analyze"
	cmdMemories = "!memories"
	cmdHealth   = "!health"
)

var commands = []string{cmdHelp, cmdQuit, cmdUser, cmdAnalyze, cmdMemories, cmdHealth}

const helpText = `
Career Coach Client - Command Reference:
-----------------------------------------
!help                     - Show this help message
!user <id>                - Switch to another user's memory space
!analyze <url> [job]      - Analyze a profile, optionally against a target job title
!memories [n]             - List the n most recent memories (default 10)
!health                   - Check that the server is up
!quit                     - Exit the application

Anything else is sent to the coach as a chat message.`

const defaultMemoriesShown = 10

// session is the state of one interactive client.
type session struct {
	client *apiClient
	userID string
	out    io.Writer
}

func newSession(client *apiClient, userID string, out io.Writer) *session {
	return &session{client: client, userID: entity.ResolveUserID(userID), out: out}
}

func (s *session) prompt() string {
	return fmt.Sprintf("coach::%s> ", s.userID)
}

// handle runs one input line and reports whether the loop should go on.
func (s *session) handle(ctx context.Context, input string) bool {
	input = strings.TrimSpace(input)
	if input == "" {
		return true
	}
	if !strings.HasPrefix(input, "!") {
		s.chat(ctx, input)
		return true
	}

	cmd, rest, _ := strings.Cut(input, " ")
	rest = strings.TrimSpace(rest)

	switch cmd {
	case cmdQuit:
		fmt.Fprintln(s.out, "Goodbye!")
		return false
	case cmdHelp:
		fmt.Fprintln(s.out, helpText)
	case cmdUser:
		if rest == "" {
			fmt.Fprintf(s.out, "Current user: %s\n", s.userID)
			return true
		}
		s.userID = entity.ResolveUserID(rest)
		fmt.Fprintf(s.out, "Switched to user: %s\n", s.userID)
	case cmdAnalyze:
		s.analyze(ctx, rest)
	case cmdMemories:
		s.memories(ctx, rest)
	case cmdHealth:
		status, err := s.client.health(ctx)
		if err != nil {
			fmt.Fprintf(s.out, "Error: %v\n", err)
			return true
		}
		fmt.Fprintf(s.out, "Server status: %s\n", status)
	default:
		fmt.Fprintf(s.out, "Unknown command: %s (type %s for help)\n", cmd, cmdHelp)
	}
	return true
}

func (s *session) chat(ctx context.Context, message string) {
	reply, err := s.client.chat(ctx, s.userID, message)
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(s.out, "Coach: %s\n", reply)
}

func (s *session) analyze(ctx context.Context, args string) {
	profileURL, targetJob, _ := strings.Cut(args, " ")
	if profileURL == "" {
		fmt.Fprintf(s.out, "Usage: %s <url> [target job title]\n", cmdAnalyze)
		return
	}
	targetJob = strings.TrimSpace(targetJob)

	fmt.Fprintln(s.out, "Analyzing profile, this can take a minute...")
	res, err := s.client.analyze(ctx, s.userID, profileURL, targetJob)
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}

	fmt.Fprintf(s.out, "\nProfile: %s", res.Profile.Name)
	if res.Profile.Headline != "" {
		fmt.Fprintf(s.out, " (%s)", res.Profile.Headline)
	}
	fmt.Fprintln(s.out)

	if res.MatchScore != nil {
		fmt.Fprintf(s.out, "Match score: %s/100\n", strconv.FormatFloat(*res.MatchScore, 'f', -1, 64))
	} else {
		fmt.Fprintln(s.out, "Match score: n/a")
	}

	if len(res.Recommendations) > 0 {
		fmt.Fprintln(s.out, "\nRecommendations:")
		for i, r := range res.Recommendations {
			fmt.Fprintf(s.out, "  %d. %s\n", i+1, r)
		}
	}

	if len(res.RewrittenSections) > 0 {
		fmt.Fprintln(s.out, "\nRewritten sections:")
		keys := make([]string, 0, len(res.RewrittenSections))
		for k := range res.RewrittenSections {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(s.out, "  [%s]\n%s\n", k, indent(sectionText(res.RewrittenSections[k])))
		}
	}
}

func (s *session) memories(ctx context.Context, arg string) {
	limit := defaultMemoriesShown
	if arg != "" {
		n, err := strconv.Atoi(arg)
		if err != nil || n <= 0 {
			fmt.Fprintf(s.out, "Usage: %s [n]\n", cmdMemories)
			return
		}
		limit = n
	}

	records, err := s.client.memories(ctx, s.userID, limit)
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}
	if len(records) == 0 {
		fmt.Fprintf(s.out, "No memories for %s yet.\n", s.userID)
		return
	}
	for _, m := range records {
		fmt.Fprintf(s.out, "%s [%v] %s\n", m.CreatedAt.Local().Format("2006-01-02 15:04"), m.Metadata["type"], truncate(m.Text, 120))
	}
}

// sectionText renders a rewritten section that is either a string or a list.
func sectionText(raw json.RawMessage) string {
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var items []string
	if json.Unmarshal(raw, &items) == nil {
		for i := range items {
			items[i] = "- " + items[i]
		}
		return strings.Join(items, "\n")
	}
	return string(raw)
}

func indent(s string) string {
	return "    " + strings.ReplaceAll(s, "\n", "\n    ")
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
