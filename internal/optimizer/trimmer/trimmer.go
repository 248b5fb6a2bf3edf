// Package trimmer bounds conversation history to a tier-dependent budget.
// Long histories are scored for relevance against the current prompt; the
// top messages survive verbatim and everything else is compressed into a
// single summary line.
package trimmer

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/rocodehq/rocode-gateway/internal/optimizer/classifier"
)

// tierLimits caps how much history each subscription tier may carry.
type tierLimits struct {
	MaxContextTokens int
	MaxMessages      int
}

var limitsByTier = map[string]tierLimits{
	"free":       {MaxContextTokens: 500, MaxMessages: 4},
	"pro":        {MaxContextTokens: 1500, MaxMessages: 6},
	"enterprise": {MaxContextTokens: 3000, MaxMessages: 10},
}

func limitsFor(tier string) tierLimits {
	if l, ok := limitsByTier[tier]; ok {
		return l
	}
	return limitsByTier["free"]
}

// Result is the outcome of trimming one conversation.
type Result struct {
	Context          string
	TokensSaved      int
	Method           string
	MessagesIncluded int
	MessagesExcluded int
}

// maxMessageChars bounds how much of a single message survives formatting.
const maxMessageChars = 2000

// Process produces a token-bounded context string from the conversation
// history. Short conversations pass through untouched.
func Process(messages []openai.ChatCompletionMessage, currentPrompt, tier string) Result {
	if len(messages) == 0 {
		return Result{Context: "", TokensSaved: 0, Method: "empty"}
	}

	limits := limitsFor(tier)

	if len(messages) <= limits.MaxMessages {
		return Result{
			Context:          formatMessages(messages),
			TokensSaved:      0,
			Method:           "recent",
			MessagesIncluded: len(messages),
		}
	}

	return smartTrim(messages, currentPrompt, limits)
}

type scoredMessage struct {
	msg   openai.ChatCompletionMessage
	score float64
	index int
}

func smartTrim(messages []openai.ChatCompletionMessage, currentPrompt string, limits tierLimits) Result {
	currentKeywords := classifier.ExtractKeywords(currentPrompt)

	scored := make([]scoredMessage, len(messages))
	for i, msg := range messages {
		var score float64

		// Recency: later messages score higher
		score += float64(i) / float64(len(messages)) * 50

		// Keyword overlap with the current prompt
		msgKeywords := classifier.ExtractKeywords(msg.Content)
		score += float64(overlap(currentKeywords, msgKeywords)) * 20

		// Code snippets are disproportionately valuable context
		if strings.Contains(msg.Content, "```") {
			score += 30
		}

		if msg.Role == openai.ChatMessageRoleUser {
			score += 10
		}

		scored[i] = scoredMessage{msg: msg, score: score, index: i}
	}

	sort.SliceStable(scored, func(a, b int) bool { return scored[a].score > scored[b].score })
	selected := scored[:limits.MaxMessages]
	sort.Slice(selected, func(a, b int) bool { return selected[a].index < selected[b].index })

	kept := make(map[int]bool, len(selected))
	selectedMsgs := make([]openai.ChatCompletionMessage, 0, len(selected))
	for _, s := range selected {
		kept[s.index] = true
		selectedMsgs = append(selectedMsgs, s.msg)
	}

	var excluded []openai.ChatCompletionMessage
	for i, msg := range messages {
		if !kept[i] {
			excluded = append(excluded, msg)
		}
	}

	context := summarize(excluded) + formatMessages(selectedMsgs)

	originalTokens := EstimateTokens(formatMessages(messages))
	optimizedTokens := EstimateTokens(context)
	saved := originalTokens - optimizedTokens
	if saved < 0 {
		saved = 0
	}

	return Result{
		Context:          context,
		TokensSaved:      saved,
		Method:           "smart-trim",
		MessagesIncluded: len(selectedMsgs),
		MessagesExcluded: len(excluded),
	}
}

func overlap(a, b []string) int {
	set := make(map[string]bool, len(b))
	for _, k := range b {
		set[k] = true
	}
	n := 0
	for _, k := range a {
		if set[k] {
			n++
		}
	}
	return n
}

var codeRequestRe = regexp.MustCompile(`(?i)create|make|write|code|script`)

// summarize compresses excluded messages into one bracketed line: the topics
// discussed plus how many code-generation requests they contained.
func summarize(messages []openai.ChatCompletionMessage) string {
	if len(messages) == 0 {
		return ""
	}

	seen := make(map[string]bool)
	var topics []string
	codeRequests := 0

	for _, msg := range messages {
		if msg.Role != openai.ChatMessageRoleUser {
			continue
		}
		for _, k := range classifier.ExtractKeywords(msg.Content) {
			if !seen[k] {
				seen[k] = true
				topics = append(topics, k)
			}
		}
		if codeRequestRe.MatchString(msg.Content) {
			codeRequests++
		}
	}

	var b strings.Builder
	b.WriteString("[Previous context: ")
	if len(topics) > 0 {
		if len(topics) > 5 {
			topics = topics[:5]
		}
		fmt.Fprintf(&b, "Discussed %s. ", strings.Join(topics, ", "))
	}
	if codeRequests > 0 {
		fmt.Fprintf(&b, "Created %d script(s). ", codeRequests)
	}
	b.WriteString("]\n")
	return b.String()
}

var codeBlockRe = regexp.MustCompile("(?s)```.*?```")

// formatMessages renders messages compactly, truncating very long ones while
// keeping any code block intact.
func formatMessages(messages []openai.ChatCompletionMessage) string {
	if len(messages) == 0 {
		return ""
	}

	parts := make([]string, 0, len(messages))
	for _, msg := range messages {
		content := msg.Content

		if len(content) > maxMessageChars {
			if loc := codeBlockRe.FindStringIndex(content); loc != nil {
				before := content[:loc[0]]
				code := content[loc[0]:loc[1]]
				after := content[loc[1]:]
				content = truncate(before, 100) + "\n" + code + "\n" + truncate(after, 100)
			} else {
				content = content[:maxMessageChars] + "..."
			}
		}

		role := "Assistant"
		if msg.Role == openai.ChatMessageRoleUser {
			role = "User"
		}
		parts = append(parts, role+": "+content)
	}
	return strings.Join(parts, "\n\n")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// EstimateTokens approximates the token count of text: roughly 4 characters
// per token for prose, 3.5 when code fences are present. Deterministic so
// savings accounting is reproducible.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	charsPerToken := 4.0
	if strings.Contains(text, "```") {
		charsPerToken = 3.5
	}
	tokens := float64(len(text)) / charsPerToken
	if tokens != float64(int(tokens)) {
		return int(tokens) + 1
	}
	return int(tokens)
}
