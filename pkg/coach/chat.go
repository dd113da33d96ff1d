package coach

import (
	"context"
	"fmt"
	"strings"

	"github.com/lexlapax/careercoach/pkg/log"
	"github.com/lexlapax/careercoach/pkg/reasoning"
)

// Chat answers a follow-up message using the user's memory as context. It
// never fails: completion errors turn into ApologyReply. Both sides of the
// exchange are remembered.
func (s *Service) Chat(ctx context.Context, userID, message string) string {
	logger := log.FromContext(ctx)

	memoryContext := s.memory.BuildContext(ctx, userID, fmt.Sprintf(chatQueryTemplate, message), chatTopK)

	user := "USER MESSAGE: " + message + "\n"
	if memoryContext != "" {
		user = chatMemoryHeading + memoryContext + "\n\n" + user
	}
	messages := []reasoning.Message{
		reasoning.System(chatSystemPrompt),
		reasoning.User(user),
	}

	var reply string
	if s.completer == nil {
		reply = UnavailableReply
	} else {
		out, err := s.completer.Complete(ctx, messages, s.completionOptions(chatTemperature, chatMaxTokens)...)
		if err != nil {
			logger.Error("Chat completion failed", "error", err)
			reply = ApologyReply
		} else {
			reply = strings.TrimSpace(out)
		}
	}

	s.remember(ctx, userID, message, map[string]interface{}{"type": TypeChatUser})
	s.remember(ctx, userID, reply, map[string]interface{}{"type": TypeChatAssistant})

	logger.Debug("Chat reply produced",
		"memory_context_length", len(memoryContext),
		"reply_length", len(reply))
	return reply
}
