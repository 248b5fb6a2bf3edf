// Package optimizer composes the request-shaping pipeline: response cache,
// model router, context trimmer and token budget manager, in that order.
// The output is a fully specified call plan; the caller performs the actual
// LLM request and reports usage back via CacheResponse and the budget
// manager.
package optimizer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/sashabaranov/go-openai"

	"github.com/rocodehq/rocode-gateway/internal/optimizer/budget"
	"github.com/rocodehq/rocode-gateway/internal/optimizer/cache"
	"github.com/rocodehq/rocode-gateway/internal/optimizer/classifier"
	"github.com/rocodehq/rocode-gateway/internal/optimizer/prompts"
	"github.com/rocodehq/rocode-gateway/internal/optimizer/router"
	"github.com/rocodehq/rocode-gateway/internal/optimizer/trimmer"
)

// ResponseCache is the cache dependency. Satisfied by *cache.Cache.
type ResponseCache interface {
	Get(ctx context.Context, prompt, model string) *cache.Entry
	Set(ctx context.Context, prompt, response, model string, tokenCount int)
	GetStats(ctx context.Context) cache.Stats
}

// ModelRouter is the routing dependency. Satisfied by *router.Router.
type ModelRouter interface {
	Route(prompt string, rctx router.Context) router.Decision
	EstimateCost(model, prompt string, estimatedOutput int) *router.CostEstimate
	GetStats() router.Stats
}

// BudgetManager is the admission-control dependency. Satisfied by
// *budget.Manager.
type BudgetManager interface {
	CanMakeRequest(userID string, estimatedTokens int, model, tier string) budget.Admission
}

// TrimFunc is the context-trimming dependency; trimmer.Process by default.
type TrimFunc func(messages []openai.ChatCompletionMessage, currentPrompt, tier string) trimmer.Result

// Request is one inbound chat request to optimize.
type Request struct {
	Prompt         string
	RequestedModel string
	Messages       []openai.ChatCompletionMessage
	UserID         string
	Tier           string
	ProjectContext string
	ForceModel     bool
}

// Plan is the fully specified upstream call the caller should make, or the
// cached response / budget rejection that replaces it.
type Plan struct {
	OriginalPrompt  string
	OriginalModel   string
	OptimizedPrompt string
	SelectedModel   string
	SystemPrompt    string
	MaxTokens       int

	CacheHit       bool
	CachedResponse string

	Allowed   bool
	Admission *budget.Admission

	Complexity      classifier.Complexity
	RoutingReason   string
	EstimatedTokens int
	TokensSaved     int
	CostSaved       float64
	Steps           []string
}

// Metrics aggregates pipeline activity for observability.
type Metrics struct {
	CacheHits        int          `json:"cacheHits"`
	CacheMisses      int          `json:"cacheMisses"`
	TokensSaved      int          `json:"tokensSaved"`
	CostSaved        float64      `json:"costSaved"`
	RoutingDecisions int          `json:"routingDecisions"`
	CacheHitRate     float64      `json:"cacheHitRate"`
	Cache            cache.Stats  `json:"cache"`
	Routing          router.Stats `json:"routing"`
}

// outputLimits is the base output token cap per tier, before the complexity
// multiplier.
var outputLimits = map[string]int{
	"free":       500,
	"pro":        2000,
	"enterprise": 4000,
}

func baseOutputLimit(tier string) int {
	if l, ok := outputLimits[tier]; ok {
		return l
	}
	return outputLimits["free"]
}

// Optimizer runs the pipeline. Components are injected so tests can swap in
// isolated or instrumented instances.
type Optimizer struct {
	enabled bool
	cache   ResponseCache
	router  ModelRouter
	budget  BudgetManager
	trim    TrimFunc
	log     *slog.Logger

	mu      sync.Mutex
	metrics Metrics
}

// New creates an optimizer from its components. A nil cache disables the
// caching step; router and budget are required.
func New(enabled bool, c ResponseCache, r ModelRouter, b BudgetManager, logger *slog.Logger) *Optimizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Optimizer{
		enabled: enabled,
		cache:   c,
		router:  r,
		budget:  b,
		trim:    trimmer.Process,
		log:     logger,
	}
}

// Optimize shapes one request. Steps run in a fixed order and short-circuit:
// a cache hit skips routing, trimming and admission entirely.
func (o *Optimizer) Optimize(ctx context.Context, req Request) Plan {
	plan := Plan{
		OriginalPrompt:  req.Prompt,
		OriginalModel:   req.RequestedModel,
		OptimizedPrompt: req.Prompt,
		SelectedModel:   req.RequestedModel,
		Allowed:         true,
	}

	if !o.enabled {
		plan.Steps = append(plan.Steps, "Optimizations disabled")
		return plan
	}

	// Step 1: cache lookup. Hits are free and bypass admission control.
	if o.cache != nil {
		if entry := o.cache.Get(ctx, req.Prompt, req.RequestedModel); entry != nil {
			plan.CacheHit = true
			plan.CachedResponse = entry.Response
			plan.TokensSaved = entry.SavedTokens
			plan.Steps = append(plan.Steps, fmt.Sprintf("Cache hit: saved %d tokens", entry.SavedTokens))

			o.mu.Lock()
			o.metrics.CacheHits++
			o.metrics.TokensSaved += entry.SavedTokens
			o.mu.Unlock()
			return plan
		}
		o.mu.Lock()
		o.metrics.CacheMisses++
		o.mu.Unlock()
	}

	// Step 2: model routing
	forceModel := ""
	if req.ForceModel {
		forceModel = req.RequestedModel
	}
	decision := o.router.Route(req.Prompt, router.Context{
		SubscriptionTier: req.Tier,
		PreferredModel:   req.RequestedModel,
		ForceModel:       forceModel,
		UserID:           req.UserID,
	})
	plan.SelectedModel = decision.Model
	plan.RoutingReason = decision.Reason
	plan.Complexity = decision.Complexity
	plan.Steps = append(plan.Steps, "Model routing: "+decision.Reason)

	o.mu.Lock()
	o.metrics.RoutingDecisions++
	o.mu.Unlock()

	// Step 3: context trimming
	trimmed := o.trim(req.Messages, req.Prompt, req.Tier)
	plan.TokensSaved += trimmed.TokensSaved
	plan.Steps = append(plan.Steps, fmt.Sprintf("Context optimization: saved %d tokens", trimmed.TokensSaved))

	// Step 4: system prompt variant and output cap
	mode := promptMode(req.Prompt, decision.Complexity)
	plan.SystemPrompt = prompts.Get(plan.SelectedModel, mode)
	plan.MaxTokens = outputCap(req.Tier, decision.Complexity)
	plan.Steps = append(plan.Steps,
		fmt.Sprintf("System prompt: %s mode", mode),
		fmt.Sprintf("Token limit: %d", plan.MaxTokens))

	// Step 5: compose the outbound prompt
	plan.OptimizedPrompt = composePrompt(req.Prompt, trimmed.Context, req.ProjectContext)

	// Step 6: admission control on the estimate
	plan.EstimatedTokens = trimmer.EstimateTokens(plan.OptimizedPrompt) + plan.MaxTokens
	admission := o.budget.CanMakeRequest(req.UserID, plan.EstimatedTokens, plan.SelectedModel, req.Tier)
	plan.Admission = &admission
	if !admission.Allowed {
		plan.Allowed = false
		plan.Steps = append(plan.Steps, "Budget rejection: "+admission.Reason)
		return plan
	}
	plan.Steps = append(plan.Steps, "Budget check passed")

	// Step 7: estimated cost saved vs the naive request
	plan.CostSaved = o.estimateSavings(req, plan)

	o.mu.Lock()
	o.metrics.TokensSaved += trimmed.TokensSaved
	o.metrics.CostSaved += plan.CostSaved
	o.mu.Unlock()

	return plan
}

// promptMode picks the system prompt variant from simple heuristics:
// explanatory intent keeps the full prompt, trivially short simple requests
// get the minimal one, everything else is code-only.
func promptMode(prompt string, complexity classifier.Complexity) prompts.Mode {
	lower := strings.ToLower(prompt)
	if strings.Contains(lower, "explain") || strings.Contains(lower, "tell me") ||
		strings.Contains(lower, "what is") || strings.Contains(lower, "how does") {
		return prompts.ModeFull
	}
	if complexity == classifier.Simple && len(prompt) < 50 {
		return prompts.ModeMinimal
	}
	return prompts.ModeCodeOnly
}

func outputCap(tier string, complexity classifier.Complexity) int {
	base := baseOutputLimit(tier)
	switch complexity {
	case classifier.Simple:
		return base / 2
	case classifier.Complex:
		return base * 3 / 2
	default:
		return base
	}
}

func composePrompt(prompt, context, projectContext string) string {
	out := prompt
	if projectContext != "" {
		out = "[Project: " + projectContext + "]\n" + out
	}
	if context != "" {
		out = context + "\n\nUser: " + out
	}
	return out
}

// estimateSavings compares a naive request (original model, full prompt and
// history) against the optimized plan.
func (o *Optimizer) estimateSavings(req Request, plan Plan) float64 {
	var history strings.Builder
	for _, m := range req.Messages {
		history.WriteString(m.Content)
	}

	naive := o.router.EstimateCost(req.RequestedModel, req.Prompt+history.String(), 500)
	if naive == nil {
		// Unknown requested model: compare like for like on the selected one
		naive = o.router.EstimateCost(plan.SelectedModel, req.Prompt+history.String(), 500)
	}
	optimized := o.router.EstimateCost(plan.SelectedModel, plan.OptimizedPrompt, 500)
	if naive == nil || optimized == nil {
		return 0
	}

	saved := naive.TotalCost - optimized.TotalCost
	if saved < 0 {
		return 0
	}
	return saved
}

// CacheResponse stores a completed upstream response for future hits. The
// caller invokes this after a real provider call succeeds.
func (o *Optimizer) CacheResponse(ctx context.Context, prompt, response, model string, tokenCount int) {
	if o.cache == nil {
		return
	}
	o.cache.Set(ctx, prompt, response, model, tokenCount)
}

// GetMetrics returns a snapshot of pipeline activity.
func (o *Optimizer) GetMetrics(ctx context.Context) Metrics {
	o.mu.Lock()
	m := o.metrics
	o.mu.Unlock()

	total := m.CacheHits + m.CacheMisses
	if total > 0 {
		m.CacheHitRate = float64(m.CacheHits) / float64(total) * 100
	}
	if o.cache != nil {
		m.Cache = o.cache.GetStats(ctx)
	}
	m.Routing = o.router.GetStats()
	return m
}
