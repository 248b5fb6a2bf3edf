package classifier

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnalyzeSimpleTask(t *testing.T) {
	a := Analyze("Fix this syntax error in my script please")

	assert.Equal(t, Simple, a.Complexity)
	assert.Equal(t, TaskBasicEdit, a.TaskType)
	assert.Equal(t, ModelHaiku, a.SuggestedModel)
	assert.Equal(t, ModelSonnet, a.AlternativeModel)
}

func TestAnalyzeComplexTask(t *testing.T) {
	a := Analyze("Build a complex multiplayer inventory system with state management and security for the entire game")

	assert.Equal(t, Complex, a.Complexity)
	assert.Equal(t, TaskArchitecture, a.TaskType)
	assert.Equal(t, ModelOpus, a.SuggestedModel)
	assert.Equal(t, ModelSonnet, a.AlternativeModel)
}

func TestAnalyzeComplexOverridesSimple(t *testing.T) {
	// Matches both a simple pattern (syntax error) and a complex one
	// (multiplayer); complex wins.
	a := Analyze("Fix this syntax error in my multiplayer replication code before the next release")

	assert.Equal(t, Complex, a.Complexity)
	assert.Equal(t, ModelOpus, a.SuggestedModel)
}

func TestAnalyzeMediumFeature(t *testing.T) {
	a := Analyze("Create a script that gives every player a sword tool when they join")

	assert.Equal(t, Medium, a.Complexity)
	assert.Equal(t, TaskFeature, a.TaskType)
	assert.Equal(t, ModelSonnet, a.SuggestedModel)
	assert.Equal(t, ModelHaiku, a.AlternativeModel)
}

func TestAnalyzeDetailedModePromotesSimple(t *testing.T) {
	a := Analyze("Explain what a RemoteEvent does and when I should use one in my game")

	assert.Equal(t, ModeDetailed, a.ResponseMode)
	// Explanation requests get bumped off the cheapest model
	assert.Equal(t, Medium, a.Complexity)
	assert.Equal(t, ModelSonnet, a.SuggestedModel)
}

func TestAnalyzeCodeOnlyMode(t *testing.T) {
	a := Analyze("Just the code for a leaderboard no explanation needed thanks a lot")

	assert.Equal(t, ModeCodeOnly, a.ResponseMode)
}

func TestAnalyzeBriefPromptIsSimple(t *testing.T) {
	a := Analyze("Make the part red")

	assert.Equal(t, Simple, a.Complexity)
	assert.Equal(t, ModelHaiku, a.SuggestedModel)
	assert.Equal(t, 4, a.WordCount)
}

func TestAnalyzeBriefComplexStaysComplex(t *testing.T) {
	a := Analyze("Design scalable architecture")

	assert.Equal(t, Complex, a.Complexity)
	assert.Equal(t, ModelOpus, a.SuggestedModel)
}

func TestAnalyzeLongPromptPromotesSimple(t *testing.T) {
	prompt := "fix this syntax error " + strings.Repeat("because my leader board script keeps breaking whenever someone joins ", 25)
	a := Analyze(prompt)

	assert.Greater(t, a.WordCount, 200)
	assert.Equal(t, Medium, a.Complexity)
	assert.Equal(t, ModelSonnet, a.SuggestedModel)
}

func TestAnalyzeCodeBlockMeansDebugging(t *testing.T) {
	a := Analyze("Fix this bug\n```lua\nlocal part = workspace.Part\npart.Touched:Connect(onTouch)\n```")

	assert.True(t, a.HasCode)
	assert.Equal(t, TaskDebugging, a.TaskType)
	// Pasted code pulls the request off the cheapest model
	assert.Equal(t, Medium, a.Complexity)
	assert.Equal(t, ModelSonnet, a.SuggestedModel)
}

func TestAnalyzeDeterministic(t *testing.T) {
	prompt := "Create a teleport script with a GUI button"
	first := Analyze(prompt)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Analyze(prompt))
	}
}

func TestExtractKeywords(t *testing.T) {
	kw := ExtractKeywords("Create a datastore script that saves each player and their tool")

	assert.Equal(t, []string{"datastore", "script", "player", "tool"}, kw)
}

func TestExtractKeywordsSkipsCodeBlocks(t *testing.T) {
	kw := ExtractKeywords("My script broke\n```lua\nlocal humanoid = character.Humanoid\n```")

	assert.Equal(t, []string{"script"}, kw)
}

func TestExtractKeywordsEmpty(t *testing.T) {
	assert.Nil(t, ExtractKeywords(""))
	assert.Empty(t, ExtractKeywords("the and for with"))
}
