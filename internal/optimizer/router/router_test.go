package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocodehq/rocode-gateway/internal/optimizer/classifier"
)

func TestRouteSimplePromptPicksHaiku(t *testing.T) {
	r := New(nil)

	d := r.Route("Fix this syntax error in my script please", Context{SubscriptionTier: "free"})

	assert.Equal(t, classifier.ModelHaiku, d.Model)
	assert.Equal(t, classifier.Simple, d.Complexity)
	require.NotNil(t, d.EstimatedCost)
	assert.Equal(t, "Claude 3.5 Haiku", d.EstimatedCost.Model)
}

func TestRouteComplexPromptFreeTierDowngrades(t *testing.T) {
	r := New(nil)

	// Opus is suggested but not in the free tier; the most capable entitled
	// model wins.
	d := r.Route("Design a scalable multiplayer architecture with state management", Context{SubscriptionTier: "free"})

	assert.Equal(t, classifier.Complex, d.Complexity)
	assert.Equal(t, classifier.ModelSonnet, d.Model)
}

func TestRouteComplexPromptProTierGetsOpus(t *testing.T) {
	r := New(nil)

	d := r.Route("Design a scalable multiplayer architecture with state management", Context{SubscriptionTier: "pro"})

	assert.Equal(t, classifier.ModelOpus, d.Model)
}

func TestRouteForceModelWins(t *testing.T) {
	r := New(nil)

	d := r.Route("Fix this syntax error in my script please", Context{
		SubscriptionTier: "free",
		ForceModel:       classifier.ModelOpus,
	})

	assert.Equal(t, classifier.ModelOpus, d.Model)
	assert.Equal(t, "User specified model", d.Reason)
	// Classification is still reported alongside the forced choice.
	assert.Equal(t, classifier.Simple, d.Complexity)
	assert.Equal(t, classifier.ModelHaiku, d.AlternativeModel)
}

func TestRouteUnknownForceModelFallsThrough(t *testing.T) {
	r := New(nil)

	d := r.Route("Fix this syntax error in my script please", Context{
		SubscriptionTier: "free",
		ForceModel:       "gpt-99",
	})

	assert.Equal(t, classifier.ModelHaiku, d.Model)
}

func TestRouteAlwaysReturnsEntitledModel(t *testing.T) {
	r := New(nil)

	prompts := []string{
		"Fix this syntax error",
		"Create a leaderboard script for my game please",
		"Design a scalable multiplayer architecture with state management",
		"Make the part red",
	}
	for _, tier := range []string{"free", "pro", "enterprise", "unknown-tier"} {
		entitled := EntitledModels(tier)
		for _, prompt := range prompts {
			d := r.Route(prompt, Context{SubscriptionTier: tier})
			assert.Contains(t, entitled, d.Model, "tier=%s prompt=%q", tier, prompt)
		}
	}
}

func TestRouteSavingsAgainstAlternative(t *testing.T) {
	r := New(nil)

	// Sonnet selected, haiku alternative: the cheaper alternative yields a
	// positive savings suggestion.
	d := r.Route("Create a leaderboard script for my game that tracks player points", Context{SubscriptionTier: "free"})

	assert.Equal(t, classifier.ModelSonnet, d.Model)
	require.NotNil(t, d.PotentialSavings)
	assert.InDelta(t, (15.0-1.25)/15.0*100, d.PotentialSavings.Percent, 0.01)
}

func TestEstimateCost(t *testing.T) {
	r := New(nil)

	est := r.EstimateCost("claude-4-sonnet", "make a part that kills players on touch", 500)
	require.NotNil(t, est)
	assert.Equal(t, 10, est.InputTokens) // 40 chars
	assert.InDelta(t, 10.0/1e6*3.0, est.InputCost, 1e-12)
	assert.InDelta(t, 500.0/1e6*15.0, est.OutputCost, 1e-12)
	assert.InDelta(t, est.InputCost+est.OutputCost, est.TotalCost, 1e-12)

	assert.Nil(t, r.EstimateCost("no-such-model", "prompt", 500))
}

func TestGetStats(t *testing.T) {
	r := New(nil)

	r.Route("Fix this syntax error in my script please", Context{SubscriptionTier: "free", UserID: "u1"})
	r.Route("Create a leaderboard script for my game that tracks player points", Context{SubscriptionTier: "free", UserID: "u1"})

	stats := r.GetStats()
	assert.Equal(t, 2, stats.TotalRequests)
	assert.Equal(t, 1, stats.ModelUsage[classifier.ModelHaiku])
	assert.Equal(t, 1, stats.ModelUsage[classifier.ModelSonnet])
	assert.Equal(t, 1, stats.ComplexityBreakdown[classifier.Simple])
	assert.Greater(t, stats.AveragePromptLength, 0.0)
}

func TestCustomCatalogOverride(t *testing.T) {
	catalog := DefaultCatalog()
	info := catalog["claude-4-sonnet"]
	info.CostInput = 1.0
	catalog["claude-4-sonnet"] = info
	r := New(catalog)

	est := r.EstimateCost("claude-4-sonnet", "abcd", 0)
	require.NotNil(t, est)
	assert.InDelta(t, 1.0/1e6, est.InputCost, 1e-12)
}

func TestSavingsSkippedForFreeOutputPricing(t *testing.T) {
	catalog := DefaultCatalog()
	info := catalog["claude-4-sonnet"]
	info.CostOutput = 0
	catalog["claude-4-sonnet"] = info
	r := New(catalog)

	// A zero output cost would make the percentage undefined.
	assert.Nil(t, r.calculateSavings("claude-4-sonnet", "claude-3-5-haiku"))
}
