package langchain

import (
	"strings"
	"unicode"

	"github.com/poiesic/fundlens/ai"
	"github.com/tmc/langchaingo/llms"
)

// toMessageContent converts role-tagged messages into langchaingo content.
// Unknown roles are sent as human messages.
func toMessageContent(messages []ai.Message) []llms.MessageContent {
	content := make([]llms.MessageContent, 0, len(messages))
	for _, msg := range messages {
		content = append(content, llms.MessageContent{
			Role: chatMessageType(msg.Role),
			Parts: []llms.ContentPart{
				llms.TextPart(msg.Content),
			},
		})
	}
	return content
}

func chatMessageType(role ai.Role) llms.ChatMessageType {
	switch role {
	case ai.RoleSystem:
		return llms.ChatMessageTypeSystem
	case ai.RoleAssistant:
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeHuman
	}
}

// scrub drops control characters left behind by text extraction and trims
// surrounding whitespace. Newlines and tabs survive.
func scrub(s string) string {
	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) || r == unicode.ReplacementChar {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}
