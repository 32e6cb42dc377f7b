package query

import (
	"fmt"
	"slices"
	"strings"

	"github.com/poiesic/fundlens/ai"
	"github.com/poiesic/fundlens/core"
)

const (
	// promptSources is how many retrieved chunks are shown to the model and
	// returned as sources.
	promptSources = 3

	// promptHistory is how many prior conversation turns are included.
	promptHistory = 3

	// sourceRunes bounds the content of each returned source.
	sourceRunes = 200
)

const systemPrompt = `You are a financial analyst assistant specializing in private equity fund performance.

Your role:
- Answer questions about fund performance using the provided context
- Calculate metrics like DPI and IRR when asked
- Explain financial terms in plain language
- Cite the numbered sources you rely on

When calculating:
- Use the provided metrics
- Show your work step by step
- State any assumptions

Format:
- Be concise but complete
- Use bullet points for lists
- Bold important numbers using **number**
- Give context for every metric you quote`

const userPromptTemplate = `Context from documents:
%s
%s
%s

Question: %s

Please provide a helpful answer based on the context and metrics provided.`

// BuildMessages renders the conversation sent to the chat model. Only the
// first few hits and the most recent history turns are used; metrics with
// no value are left out.
func BuildMessages(query string, hits []core.SearchHit, metrics core.Metrics, history []ai.Message) []ai.Message {
	return []ai.Message{
		ai.SystemMessage(systemPrompt),
		ai.UserMessage(fmt.Sprintf(userPromptTemplate,
			formatContext(hits),
			formatMetrics(metrics),
			formatHistory(history),
			query)),
	}
}

func formatContext(hits []core.SearchHit) string {
	parts := make([]string, 0, promptSources)
	for i, hit := range hits[:min(promptSources, len(hits))] {
		parts = append(parts, fmt.Sprintf("[Source %d]\n%s", i+1, hit.Content))
	}
	return strings.Join(parts, "\n\n")
}

func formatMetrics(metrics core.Metrics) string {
	keys := make([]string, 0, len(metrics))
	for key, value := range metrics {
		if value != nil {
			keys = append(keys, key)
		}
	}
	if len(keys) == 0 {
		return ""
	}
	slices.Sort(keys)

	var b strings.Builder
	b.WriteString("\nAvailable Metrics:\n")
	for _, key := range keys {
		fmt.Fprintf(&b, "- %s: %s\n", strings.ToUpper(key), metrics[key].String())
	}
	return b.String()
}

func formatHistory(history []ai.Message) string {
	if len(history) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\nPrevious Conversation:\n")
	for _, msg := range history[max(0, len(history)-promptHistory):] {
		fmt.Fprintf(&b, "%s: %s\n", msg.Role, msg.Content)
	}
	return b.String()
}

// sourcesFrom converts the leading hits to answer sources with truncated
// content.
func sourcesFrom(hits []core.SearchHit) []core.Source {
	sources := make([]core.Source, 0, promptSources)
	for _, hit := range hits[:min(promptSources, len(hits))] {
		sources = append(sources, core.Source{
			Content:    truncateRunes(hit.Content, sourceRunes),
			DocumentID: hit.DocumentID,
			Score:      hit.Score,
		})
	}
	return sources
}

func truncateRunes(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
