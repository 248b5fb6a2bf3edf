package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetVariants(t *testing.T) {
	assert.Contains(t, Get("claude-4-sonnet", ModeFull), "RoCode 3")
	assert.Equal(t, "Code only.", Get("claude-4-sonnet", ModeMinimal))
	assert.Contains(t, Get("claude-3-5-haiku", ModeCodeOnly), "ONLY Luau code")
}

func TestGetUnknownModeFallsBackToCodeOnly(t *testing.T) {
	assert.Equal(t, Get("claude-4-opus", ModeCodeOnly), Get("claude-4-opus", Mode("verbose")))
}

func TestGetUnknownModel(t *testing.T) {
	assert.Equal(t, fallbackPrompt, Get("gpt-99", ModeFull))
}
