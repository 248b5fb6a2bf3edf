package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sashabaranov/go-openai"

	"github.com/rocodehq/rocode-gateway/internal/gateway/providers"
	"github.com/rocodehq/rocode-gateway/internal/optimizer"
	"github.com/rocodehq/rocode-gateway/internal/optimizer/budget"
	"github.com/rocodehq/rocode-gateway/internal/optimizer/router"
	"github.com/rocodehq/rocode-gateway/internal/shared/database"
	"github.com/rocodehq/rocode-gateway/internal/shared/models"
)

// ChatRequest is the inbound chat payload. The last user message is the
// current prompt; everything before it is conversation history.
type ChatRequest struct {
	Model          string                         `json:"model"`
	Messages       []openai.ChatCompletionMessage `json:"messages"`
	ProjectContext string                         `json:"project_context,omitempty"`
	ForceModel     bool                           `json:"force_model,omitempty"`
}

// ChatResponse is returned for both cache hits and real completions.
type ChatResponse struct {
	ID           string          `json:"id"`
	Model        string          `json:"model"`
	Response     string          `json:"response"`
	CacheHit     bool            `json:"cache_hit"`
	TokensSaved  int             `json:"tokens_saved"`
	InputTokens  int             `json:"input_tokens"`
	OutputTokens int             `json:"output_tokens"`
	LatencyMs    int             `json:"latency_ms"`
	Warning      *budget.Warning `json:"warning,omitempty"`
}

type ChatHandler struct {
	optimizer   *optimizer.Optimizer
	providerMgr *providers.Manager
	modelRouter *router.Router
	budgetMgr   *budget.Manager
	db          *database.DB
	log         *slog.Logger
}

func NewChatHandler(opt *optimizer.Optimizer, providerMgr *providers.Manager, modelRouter *router.Router, budgetMgr *budget.Manager, db *database.DB, log *slog.Logger) *ChatHandler {
	if log == nil {
		log = slog.Default()
	}
	return &ChatHandler{
		optimizer:   opt,
		providerMgr: providerMgr,
		modelRouter: modelRouter,
		budgetMgr:   budgetMgr,
		db:          db,
		log:         log,
	}
}

// HandleChatCompletion handles POST /v1/chat/completions
func (h *ChatHandler) HandleChatCompletion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	apiKey, ok := ctx.Value(apiKeyContextKey).(*models.APIKey)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.Messages) == 0 {
		http.Error(w, "messages is required", http.StatusBadRequest)
		return
	}

	last := req.Messages[len(req.Messages)-1]
	if last.Role != openai.ChatMessageRoleUser {
		http.Error(w, "last message must be from the user", http.StatusBadRequest)
		return
	}
	prompt := last.Content
	history := req.Messages[:len(req.Messages)-1]

	plan := h.optimizer.Optimize(ctx, optimizer.Request{
		Prompt:         prompt,
		RequestedModel: req.Model,
		Messages:       history,
		UserID:         apiKey.UserID,
		Tier:           apiKey.SubscriptionTier,
		ProjectContext: req.ProjectContext,
		ForceModel:     req.ForceModel,
	})

	// Cache hit: respond without touching the provider or the budget
	if plan.CacheHit {
		resp := ChatResponse{
			ID:          uuid.NewString(),
			Model:       req.Model,
			Response:    plan.CachedResponse,
			CacheHit:    true,
			TokensSaved: plan.TokensSaved,
			LatencyMs:   int(time.Since(startTime).Milliseconds()),
		}
		h.logDecision(apiKey, req.Model, plan, http.StatusOK, time.Since(startTime), nil)
		writeJSON(w, http.StatusOK, resp, plan)
		return
	}

	// Budget rejection: structured 429, not an error
	if !plan.Allowed {
		h.logDecision(apiKey, req.Model, plan, http.StatusTooManyRequests, time.Since(startTime), nil)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(plan.Admission)
		return
	}

	// Resolve the routed alias to the provider's model id
	modelID := plan.SelectedModel
	if info, ok := h.modelRouter.Catalog()[plan.SelectedModel]; ok {
		modelID = info.Model
	}

	provider, _, err := h.providerMgr.GetProvider(modelID)
	if err != nil {
		h.logDecision(apiKey, req.Model, plan, http.StatusInternalServerError, time.Since(startTime), err)
		http.Error(w, fmt.Sprintf("provider error: %v", err), http.StatusInternalServerError)
		return
	}

	completion, err := provider.Complete(ctx, modelID, plan.SystemPrompt, plan.OptimizedPrompt, plan.MaxTokens)
	if err != nil {
		h.logDecision(apiKey, req.Model, plan, http.StatusInternalServerError, time.Since(startTime), err)
		http.Error(w, fmt.Sprintf("provider error: %v", err), http.StatusInternalServerError)
		return
	}

	// Report back: cache the response and charge the real token counts
	totalTokens := completion.InputTokens + completion.OutputTokens
	h.optimizer.CacheResponse(ctx, prompt, completion.Text, req.Model, totalTokens)
	h.budgetMgr.RecordUsage(apiKey.UserID, totalTokens, plan.SelectedModel, apiKey.SubscriptionTier)

	var warning *budget.Warning
	if plan.Admission != nil {
		warning = plan.Admission.Warning
	}

	resp := ChatResponse{
		ID:           uuid.NewString(),
		Model:        plan.SelectedModel,
		Response:     completion.Text,
		CacheHit:     false,
		TokensSaved:  plan.TokensSaved,
		InputTokens:  completion.InputTokens,
		OutputTokens: completion.OutputTokens,
		LatencyMs:    int(time.Since(startTime).Milliseconds()),
		Warning:      warning,
	}

	h.logDecision(apiKey, req.Model, plan, http.StatusOK, time.Since(startTime), nil)
	writeJSON(w, http.StatusOK, resp, plan)
}

// HandleMetrics handles GET /v1/optimizer/metrics
func (h *ChatHandler) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	metrics := h.optimizer.GetMetrics(r.Context())
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(metrics)
}

// HandleUsage handles GET /v1/usage/{userID}
func (h *ChatHandler) HandleUsage(w http.ResponseWriter, r *http.Request) {
	apiKey, ok := r.Context().Value(apiKeyContextKey).(*models.APIKey)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	userID := chi.URLParam(r, "userID")
	if userID != apiKey.UserID {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	stats := h.budgetMgr.GetUserStats(userID, apiKey.SubscriptionTier)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

func writeJSON(w http.ResponseWriter, status int, resp ChatResponse, plan optimizer.Plan) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Cache-Hit", fmt.Sprintf("%v", resp.CacheHit))
	w.Header().Set("X-Selected-Model", plan.SelectedModel)
	w.Header().Set("X-Tokens-Saved", fmt.Sprintf("%d", resp.TokensSaved))
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

// logDecision writes the optimization decision row, asynchronously so the
// request path never blocks on Postgres.
func (h *ChatHandler) logDecision(apiKey *models.APIKey, requestedModel string, plan optimizer.Plan, status int, duration time.Duration, err error) {
	logEntry := &models.OptimizationLog{
		ID:             uuid.NewString(),
		APIKeyID:       &apiKey.ID,
		UserID:         apiKey.UserID,
		RequestedModel: requestedModel,
		SelectedModel:  plan.SelectedModel,
		Complexity:     string(plan.Complexity),
		CacheHit:       plan.CacheHit,
		Allowed:        plan.Allowed,
		TokensSaved:    plan.TokensSaved,
		CostSavedUSD:   plan.CostSaved,
		LatencyMs:      int(duration.Milliseconds()),
		StatusCode:     status,
	}
	if !plan.Allowed && plan.Admission != nil {
		reason := plan.Admission.Reason
		logEntry.RejectReason = &reason
	}
	if err != nil {
		msg := err.Error()
		logEntry.ErrorMessage = &msg
	}

	go logWrite(h.log, "optimization_log", func() error {
		return h.db.LogOptimization(context.Background(), logEntry)
	})
	go logWrite(h.log, "api_key_last_used", func() error {
		return h.db.UpdateAPIKeyLastUsed(context.Background(), apiKey.ID)
	})
}

// logWrite runs a fire-and-forget database write and surfaces its error in
// the logs instead of silently dropping it.
func logWrite(log *slog.Logger, op string, fn func() error) {
	if err := fn(); err != nil {
		log.Warn("background write failed", "op", op, "error", err)
	}
}
