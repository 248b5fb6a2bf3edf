package trimmer

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func userMsg(content string) openai.ChatCompletionMessage {
	return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: content}
}

func assistantMsg(content string) openai.ChatCompletionMessage {
	return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content}
}

func TestProcessEmptyHistory(t *testing.T) {
	res := Process(nil, "make a part", "free")

	assert.Equal(t, "empty", res.Method)
	assert.Equal(t, "", res.Context)
	assert.Zero(t, res.TokensSaved)
}

func TestProcessShortHistoryPassesThrough(t *testing.T) {
	messages := []openai.ChatCompletionMessage{
		userMsg("make a door script"),
		assistantMsg("here you go"),
	}

	res := Process(messages, "now make it locked", "free")

	assert.Equal(t, "recent", res.Method)
	assert.Zero(t, res.TokensSaved)
	assert.Equal(t, 2, res.MessagesIncluded)
	assert.Equal(t, "User: make a door script\n\nAssistant: here you go", res.Context)
}

func TestProcessLongHistorySmartTrims(t *testing.T) {
	var messages []openai.ChatCompletionMessage
	for i := 0; i < 10; i++ {
		messages = append(messages,
			userMsg(fmt.Sprintf("question %d about my leaderstats setup", i)),
			assistantMsg(fmt.Sprintf("answer %d", i)),
		)
	}

	res := Process(messages, "extend the leaderstats script", "free")

	assert.Equal(t, "smart-trim", res.Method)
	assert.Equal(t, 4, res.MessagesIncluded)
	assert.Equal(t, 16, res.MessagesExcluded)
	assert.Greater(t, res.TokensSaved, 0)
	assert.True(t, strings.HasPrefix(res.Context, "[Previous context: "))
}

func TestProcessTierLimits(t *testing.T) {
	var messages []openai.ChatCompletionMessage
	for i := 0; i < 12; i++ {
		messages = append(messages, userMsg(fmt.Sprintf("message %d", i)))
	}

	assert.Equal(t, 4, Process(messages, "p", "free").MessagesIncluded)
	assert.Equal(t, 6, Process(messages, "p", "pro").MessagesIncluded)
	assert.Equal(t, 10, Process(messages, "p", "enterprise").MessagesIncluded)
	// Unknown tiers get the free limits
	assert.Equal(t, 4, Process(messages, "p", "platinum").MessagesIncluded)
}

func TestSmartTrimPrefersRelevantMessages(t *testing.T) {
	messages := []openai.ChatCompletionMessage{
		userMsg("how do I make my datastore save player coins"),
		assistantMsg("use a datastore with player keys"),
		userMsg("unrelated question one"),
		userMsg("unrelated question two"),
		userMsg("unrelated question three"),
		userMsg("unrelated question four"),
	}

	res := Process(messages, "my datastore script is broken", "free")

	require.Equal(t, "smart-trim", res.Method)
	// Keyword overlap with the current prompt outranks recency alone.
	assert.Contains(t, res.Context, "datastore save player coins")
	assert.NotContains(t, res.Context, "unrelated question one")
}

func TestSmartTrimKeepsChronologicalOrder(t *testing.T) {
	var messages []openai.ChatCompletionMessage
	for i := 0; i < 8; i++ {
		messages = append(messages, userMsg(fmt.Sprintf("msg %02d", i)))
	}

	res := Process(messages, "anything", "free")
	require.Equal(t, "smart-trim", res.Method)

	// Recency scoring keeps the latest messages, in original order.
	idx := -1
	for i := 4; i < 8; i++ {
		pos := strings.Index(res.Context, fmt.Sprintf("msg %02d", i))
		require.GreaterOrEqual(t, pos, 0)
		assert.Greater(t, pos, idx)
		idx = pos
	}
}

func TestSummaryCountsCodeRequests(t *testing.T) {
	messages := []openai.ChatCompletionMessage{
		userMsg("create a tween animation for my gui frame"),
		userMsg("write a script for teleporting"),
		userMsg("filler a"),
		userMsg("filler b"),
		userMsg("filler c"),
		userMsg("filler d"),
	}

	res := Process(messages, "filler", "free")

	require.Equal(t, "smart-trim", res.Method)
	assert.Contains(t, res.Context, "[Previous context: ")
	assert.Contains(t, res.Context, "script(s)")
}

func TestFormatMessagesTruncatesButKeepsCode(t *testing.T) {
	long := strings.Repeat("x", 1500) + "\n```lua\nprint('hi')\n```\n" + strings.Repeat("y", 1500)
	res := Process([]openai.ChatCompletionMessage{userMsg(long)}, "p", "free")

	assert.Contains(t, res.Context, "```lua\nprint('hi')\n```")
	assert.Less(t, len(res.Context), len(long))
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 1, EstimateTokens("abcd"))
	assert.Equal(t, 2, EstimateTokens("abcde"))
	// Code fences switch the estimator to a denser ratio.
	code := "```" + strings.Repeat("a", 11) // 14 chars
	assert.Equal(t, 4, EstimateTokens(code))
}
