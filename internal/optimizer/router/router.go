// Package router picks which model a request should run on, balancing the
// classifier's complexity estimate against the user's subscription
// entitlements and the per-model cost table.
package router

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rocodehq/rocode-gateway/internal/optimizer/classifier"
)

const maxHistorySize = 1000

// Context carries the per-request inputs that influence routing.
type Context struct {
	SubscriptionTier string
	PreferredModel   string
	ForceModel       string
	UserID           string
}

// CostEstimate breaks down the projected cost of a request.
type CostEstimate struct {
	InputTokens  int     `json:"inputTokens"`
	OutputTokens int     `json:"outputTokens"`
	InputCost    float64 `json:"inputCost"`
	OutputCost   float64 `json:"outputCost"`
	TotalCost    float64 `json:"totalCost"`
	Model        string  `json:"model"`
}

// Savings compares the selected model against the classifier's alternative.
type Savings struct {
	Percent float64 `json:"percent"`
	Message string  `json:"message"`
}

// Decision is the routing outcome for one request.
type Decision struct {
	Model            string
	Reason           string
	Complexity       classifier.Complexity
	TaskType         classifier.TaskType
	ResponseMode     classifier.ResponseMode
	EstimatedCost    *CostEstimate
	AlternativeModel string
	PotentialSavings *Savings
}

type historyEntry struct {
	timestamp    time.Time
	userID       string
	promptLength int
	model        string
	complexity   classifier.Complexity
}

// Stats aggregates past routing decisions.
type Stats struct {
	TotalRequests       int                           `json:"totalRequests"`
	ModelUsage          map[string]int                `json:"modelUsage"`
	ComplexityBreakdown map[classifier.Complexity]int `json:"complexityBreakdown"`
	AveragePromptLength float64                       `json:"averagePromptLength"`
}

// Router selects models. The rolling history and preference counters are
// side effects for observability only; losing them on restart is fine.
type Router struct {
	catalog Catalog

	mu      sync.Mutex
	history []historyEntry
	prefs   map[string]map[classifier.TaskType]map[string]int
}

// New creates a router over the given catalog. Pass nil to use the defaults.
func New(catalog Catalog) *Router {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &Router{
		catalog: catalog,
		prefs:   make(map[string]map[classifier.TaskType]map[string]int),
	}
}

// Catalog returns the router's model table.
func (r *Router) Catalog() Catalog {
	return r.catalog
}

// Route picks a model for the prompt. ForceModel wins when it names a known
// model; otherwise the classifier's suggestion is reconciled with the tier's
// entitlements.
func (r *Router) Route(prompt string, rctx Context) Decision {
	analysis := classifier.Analyze(prompt)

	// Forced model is used verbatim; classification is still reported so
	// callers can see what routing would have done.
	if rctx.ForceModel != "" {
		if _, ok := r.catalog[rctx.ForceModel]; ok {
			return Decision{
				Model:            rctx.ForceModel,
				Reason:           "User specified model",
				Complexity:       analysis.Complexity,
				TaskType:         analysis.TaskType,
				ResponseMode:     analysis.ResponseMode,
				EstimatedCost:    r.EstimateCost(rctx.ForceModel, prompt, 500),
				AlternativeModel: analysis.SuggestedModel,
				PotentialSavings: r.calculateSavings(rctx.ForceModel, analysis.SuggestedModel),
			}
		}
	}

	available := EntitledModels(rctx.SubscriptionTier)
	selected := r.selectModel(analysis, available, rctx.PreferredModel)

	r.track(rctx.UserID, prompt, selected, analysis)

	return Decision{
		Model:            selected,
		Reason:           analysis.Reason,
		Complexity:       analysis.Complexity,
		TaskType:         analysis.TaskType,
		ResponseMode:     analysis.ResponseMode,
		EstimatedCost:    r.EstimateCost(selected, prompt, 500),
		AlternativeModel: analysis.AlternativeModel,
		PotentialSavings: r.calculateSavings(selected, analysis.AlternativeModel),
	}
}

func (r *Router) selectModel(analysis classifier.Analysis, available []string, preferred string) string {
	// Suggested model, if the tier is entitled to it
	if contains(available, analysis.SuggestedModel) {
		return analysis.SuggestedModel
	}

	required := requiredCapability(analysis.Complexity)

	// Preferred model, if entitled and capable enough
	if preferred != "" && contains(available, preferred) {
		if info, ok := r.catalog[preferred]; ok && info.Capability >= required {
			return preferred
		}
	}

	// Cheapest entitled model that can handle the task. The entitlement list
	// is ordered cheapest first.
	for _, alias := range available {
		if info, ok := r.catalog[alias]; ok && info.Capability >= required {
			return alias
		}
	}

	// Nothing qualifies: the most capable entitled model
	return available[len(available)-1]
}

func requiredCapability(c classifier.Complexity) Capability {
	switch c {
	case classifier.Simple:
		return CapabilityBasic
	case classifier.Complex:
		return CapabilityExpert
	default:
		return CapabilityAdvanced
	}
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

// EstimateCost projects the cost of running a prompt on a model, assuming
// roughly 4 characters per input token.
func (r *Router) EstimateCost(model, prompt string, estimatedOutput int) *CostEstimate {
	info, ok := r.catalog[model]
	if !ok {
		return nil
	}

	inputTokens := (len(prompt) + 3) / 4
	inputCost := float64(inputTokens) / 1e6 * info.CostInput
	outputCost := float64(estimatedOutput) / 1e6 * info.CostOutput

	return &CostEstimate{
		InputTokens:  inputTokens,
		OutputTokens: estimatedOutput,
		InputCost:    inputCost,
		OutputCost:   outputCost,
		TotalCost:    inputCost + outputCost,
		Model:        info.Name,
	}
}

func (r *Router) calculateSavings(selected, alternative string) *Savings {
	if alternative == "" || selected == alternative {
		return nil
	}
	sel, okS := r.catalog[selected]
	alt, okA := r.catalog[alternative]
	if !okS || !okA || sel.CostOutput == 0 {
		return nil
	}

	savings := (sel.CostOutput - alt.CostOutput) / sel.CostOutput * 100
	if savings > 0 {
		return &Savings{
			Percent: savings,
			Message: fmt.Sprintf("Using %s would save ~%.0f%% on costs", alternative, savings),
		}
	}
	return &Savings{
		Percent: math.Abs(savings),
		Message: fmt.Sprintf("Current model is %.0f%% more cost-effective", math.Abs(savings)),
	}
}

func (r *Router) track(userID, prompt, model string, analysis classifier.Analysis) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.history = append(r.history, historyEntry{
		timestamp:    time.Now(),
		userID:       userID,
		promptLength: len(prompt),
		model:        model,
		complexity:   analysis.Complexity,
	})
	if len(r.history) > maxHistorySize {
		r.history = r.history[len(r.history)-maxHistorySize:]
	}

	if userID == "" {
		return
	}
	byTask, ok := r.prefs[userID]
	if !ok {
		byTask = make(map[classifier.TaskType]map[string]int)
		r.prefs[userID] = byTask
	}
	byModel, ok := byTask[analysis.TaskType]
	if !ok {
		byModel = make(map[string]int)
		byTask[analysis.TaskType] = byModel
	}
	byModel[model]++
}

// GetStats summarizes the rolling decision history.
func (r *Router) GetStats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := Stats{
		TotalRequests:       len(r.history),
		ModelUsage:          make(map[string]int),
		ComplexityBreakdown: make(map[classifier.Complexity]int),
	}

	var totalLen int
	for _, e := range r.history {
		stats.ModelUsage[e.model]++
		stats.ComplexityBreakdown[e.complexity]++
		totalLen += e.promptLength
	}
	if len(r.history) > 0 {
		stats.AveragePromptLength = float64(totalLen) / float64(len(r.history))
	}

	return stats
}
