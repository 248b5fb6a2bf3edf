// Package budget enforces rolling per-user token budgets across daily and
// monthly windows, with partial rollover of unused monthly allotment.
//
// Admission (CanMakeRequest) and recording (RecordUsage) are individually
// mutex-protected, but the check-then-record sequence is not atomic across
// concurrent requests: two requests for the same user can both pass
// admission when only one should. That is an accepted simplification for a
// single-process deployment; a multi-instance deployment needs a shared,
// transactional budget store.
package budget

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"
)

// TierConfig is the monthly token pool for one subscription tier. The
// numbers are illustrative configuration, not contract.
type TierConfig struct {
	TotalTokens      int
	DailyMax         int
	RolloverPercent  int
	WarningThreshold float64
	// Multipliers convert real tokens into budget tokens per model; cheaper
	// models consume fractional budget.
	Multipliers map[string]float64
}

var tierConfigs = map[string]TierConfig{
	"free": {
		TotalTokens:      600_000,
		DailyMax:         30_000,
		RolloverPercent:  20,
		WarningThreshold: 0.80,
		Multipliers: map[string]float64{
			"claude-3-5-haiku": 0.5,
			"claude-4-sonnet":  1.0,
			"claude-4-opus":    3.0,
		},
	},
	"pro": {
		TotalTokens:      3_000_000,
		DailyMax:         150_000,
		RolloverPercent:  30,
		WarningThreshold: 0.85,
		Multipliers: map[string]float64{
			"claude-3-5-haiku": 0.3,
			"claude-4-sonnet":  1.0,
			"claude-4-opus":    2.0,
		},
	},
	"enterprise": {
		TotalTokens:      10_000_000,
		DailyMax:         500_000,
		RolloverPercent:  40,
		WarningThreshold: 0.90,
		Multipliers: map[string]float64{
			"claude-3-5-haiku": 0.2,
			"claude-4-sonnet":  0.8,
			"claude-4-opus":    1.5,
		},
	},
}

// TierFor returns the config for a tier, falling back to free for unknown
// tiers. A stricter-than-intended tier is safer than a crashed request path.
func TierFor(tier string) TierConfig {
	if cfg, ok := tierConfigs[tier]; ok {
		return cfg
	}
	return tierConfigs["free"]
}

// PeriodRecord archives one finished month.
type PeriodRecord struct {
	Month    string `json:"month"`
	Usage    int    `json:"usage"`
	Rollover int    `json:"rollover"`
}

// WarningRecord notes the day a usage warning fired.
type WarningRecord struct {
	Date    string  `json:"date"`
	Percent float64 `json:"percent"`
	Level   string  `json:"level"`
}

// UserBudget is the per-user budget state. Mutated only via CanMakeRequest
// and RecordUsage; archived, never deleted.
type UserBudget struct {
	Subscription   string          `json:"subscription"`
	CurrentMonth   string          `json:"currentMonth"`
	MonthlyUsage   int             `json:"monthlyUsage"`
	DailyUsage     map[string]int  `json:"dailyUsage"`
	RolloverTokens int             `json:"rolloverTokens"`
	LastReset      time.Time       `json:"lastReset"`
	History        []PeriodRecord  `json:"history"`
	Warnings       []WarningRecord `json:"warnings"`
}

// clone deep-copies the budget. Snapshots handed to a Store are marshaled
// outside the manager's lock, so they must not share the live map or slices
// with the request path.
func (b *UserBudget) clone() *UserBudget {
	cp := *b
	cp.DailyUsage = make(map[string]int, len(b.DailyUsage))
	for day, tokens := range b.DailyUsage {
		cp.DailyUsage[day] = tokens
	}
	cp.History = append([]PeriodRecord(nil), b.History...)
	cp.Warnings = append([]WarningRecord(nil), b.Warnings...)
	return &cp
}

// Warning is attached to an allowed admission when usage crosses the tier's
// warning threshold.
type Warning struct {
	Level           string `json:"level"`
	Message         string `json:"message"`
	RemainingTokens int    `json:"remainingTokens"`
	Suggestion      string `json:"suggestion"`
}

// Admission is the structured outcome of a budget check. Over-budget is a
// result, not an error.
type Admission struct {
	Allowed        bool      `json:"allowed"`
	Reason         string    `json:"reason,omitempty"`
	Message        string    `json:"message,omitempty"`
	ResetTime      time.Time `json:"resetTime,omitempty"`
	Suggestion     string    `json:"suggestion,omitempty"`
	AdjustedTokens int       `json:"adjustedTokens"`
	RemainingToday int       `json:"remainingToday"`
	RemainingMonth int       `json:"remainingMonth"`
	UsagePercent   float64   `json:"usagePercent"`
	Warning        *Warning  `json:"warning,omitempty"`
}

// Recorded reports what RecordUsage added.
type Recorded struct {
	Recorded     int `json:"recorded"`
	MonthlyTotal int `json:"monthlyTotal"`
	DailyTotal   int `json:"dailyTotal"`
}

// Manager tracks budgets for all users and flushes them through a Store.
type Manager struct {
	mu    sync.Mutex
	users map[string]*UserBudget

	store Store
	log   *slog.Logger
	now   func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager creates a budget manager backed by store.
func NewManager(store Store, logger *slog.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		users: make(map[string]*UserBudget),
		store: store,
		log:   logger,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Load restores budget state from the store. Failure is logged and the
// manager starts fresh rather than refusing to serve.
func (m *Manager) Load(ctx context.Context) {
	users, err := m.store.Load(ctx)
	if err != nil {
		m.log.Warn("budget load failed, starting fresh", "error", err)
		return
	}
	if users == nil {
		return
	}
	m.mu.Lock()
	m.users = users
	m.mu.Unlock()
	m.log.Info("loaded budget data", "users", len(users))
}

// Flush persists current state. Called on a timer and at shutdown; failure
// is logged, never fatal.
func (m *Manager) Flush(ctx context.Context) {
	m.mu.Lock()
	snapshot := make(map[string]*UserBudget, len(m.users))
	for id, b := range m.users {
		snapshot[id] = b.clone()
	}
	m.mu.Unlock()

	if err := m.store.Save(ctx, snapshot); err != nil {
		m.log.Warn("budget flush failed", "error", err)
	}
}

func dayKey(t time.Time) string   { return t.UTC().Format("2006-01-02") }
func monthKey(t time.Time) string { return t.UTC().Format("2006-01") }

// getUserBudget returns the user's budget, creating it lazily and applying
// the monthly rollover when a new period has started. Caller holds m.mu.
func (m *Manager) getUserBudget(userID, tier string) *UserBudget {
	now := m.now()

	b, ok := m.users[userID]
	if !ok {
		b = &UserBudget{
			Subscription: tier,
			CurrentMonth: monthKey(now),
			DailyUsage:   make(map[string]int),
			LastReset:    now,
		}
		m.users[userID] = b
	}

	if b.CurrentMonth != monthKey(now) {
		cfg := TierFor(b.Subscription)

		unused := cfg.TotalTokens - b.MonthlyUsage
		if unused < 0 {
			unused = 0
		}
		rollover := int(math.Min(
			float64(unused)*float64(cfg.RolloverPercent)/100,
			float64(cfg.TotalTokens)*0.5,
		))

		b.History = append(b.History, PeriodRecord{
			Month:    b.CurrentMonth,
			Usage:    b.MonthlyUsage,
			Rollover: rollover,
		})

		b.CurrentMonth = monthKey(now)
		b.MonthlyUsage = 0
		b.DailyUsage = make(map[string]int)
		b.RolloverTokens = rollover
		b.LastReset = now
		b.Warnings = nil

		m.log.Info("monthly budget reset", "user", userID, "rollover", rollover)
	}

	b.Subscription = tier
	return b
}

func adjustTokens(tokens int, model string, cfg TierConfig) int {
	multiplier := 1.0
	if mult, ok := cfg.Multipliers[model]; ok {
		multiplier = mult
	}
	return int(math.Ceil(float64(tokens) * multiplier))
}

// CanMakeRequest decides whether a request of estimatedTokens may proceed.
// Remaining counters and usage percent are populated on both outcomes.
func (m *Manager) CanMakeRequest(userID string, estimatedTokens int, model, tier string) Admission {
	m.mu.Lock()
	defer m.mu.Unlock()

	b := m.getUserBudget(userID, tier)
	cfg := TierFor(tier)
	now := m.now()
	today := dayKey(now)

	adjusted := adjustTokens(estimatedTokens, model, cfg)
	dailyUsed := b.DailyUsage[today]
	totalAvailable := cfg.TotalTokens + b.RolloverTokens

	remainingToday := cfg.DailyMax - dailyUsed
	remainingMonth := totalAvailable - b.MonthlyUsage
	usagePercent := float64(b.MonthlyUsage) / float64(totalAvailable)

	if dailyUsed+adjusted > cfg.DailyMax {
		return Admission{
			Allowed:        false,
			Reason:         "daily_limit",
			Message:        fmt.Sprintf("Daily token limit reached. Used: %d/%d", dailyUsed, cfg.DailyMax),
			ResetTime:      nextDayReset(now),
			Suggestion:     "Try again tomorrow or upgrade your plan",
			AdjustedTokens: adjusted,
			RemainingToday: remainingToday,
			RemainingMonth: remainingMonth,
			UsagePercent:   usagePercent,
		}
	}

	if b.MonthlyUsage+adjusted > totalAvailable {
		return Admission{
			Allowed:        false,
			Reason:         "monthly_limit",
			Message:        fmt.Sprintf("Monthly token budget exhausted. Used: %d/%d", b.MonthlyUsage, totalAvailable),
			ResetTime:      nextMonthReset(now),
			Suggestion:     "Upgrade to Pro for 5x more tokens",
			AdjustedTokens: adjusted,
			RemainingToday: remainingToday,
			RemainingMonth: remainingMonth,
			UsagePercent:   usagePercent,
		}
	}

	projectedPercent := float64(b.MonthlyUsage+adjusted) / float64(totalAvailable)
	var warning *Warning
	if projectedPercent >= cfg.WarningThreshold {
		level := "warning"
		suggestion := "Monitor your usage"
		if projectedPercent >= 0.95 {
			level = "critical"
			suggestion = "Consider upgrading soon"
		}
		warning = &Warning{
			Level:           level,
			Message:         fmt.Sprintf("%d%% of monthly budget used", int(math.Round(projectedPercent*100))),
			RemainingTokens: totalAvailable - b.MonthlyUsage - adjusted,
			Suggestion:      suggestion,
		}

		// One warning record per day
		recorded := false
		for _, w := range b.Warnings {
			if w.Date == today {
				recorded = true
				break
			}
		}
		if !recorded {
			b.Warnings = append(b.Warnings, WarningRecord{
				Date:    today,
				Percent: projectedPercent,
				Level:   level,
			})
		}
	}

	return Admission{
		Allowed:        true,
		AdjustedTokens: adjusted,
		RemainingToday: cfg.DailyMax - dailyUsed - adjusted,
		RemainingMonth: totalAvailable - b.MonthlyUsage - adjusted,
		UsagePercent:   projectedPercent,
		Warning:        warning,
	}
}

// RecordUsage charges the actual provider-reported token count against the
// user's pools. Call only after the upstream request completed.
func (m *Manager) RecordUsage(userID string, actualTokens int, model, tier string) Recorded {
	m.mu.Lock()
	defer m.mu.Unlock()

	b := m.getUserBudget(userID, tier)
	cfg := TierFor(tier)
	today := dayKey(m.now())

	adjusted := adjustTokens(actualTokens, model, cfg)
	b.MonthlyUsage += adjusted
	b.DailyUsage[today] += adjusted

	if adjusted > 1000 {
		m.log.Info("token usage recorded", "user", userID, "tokens", adjusted, "model", model)
	}

	return Recorded{
		Recorded:     adjusted,
		MonthlyTotal: b.MonthlyUsage,
		DailyTotal:   b.DailyUsage[today],
	}
}

func nextDayReset(now time.Time) time.Time {
	t := now.UTC()
	return time.Date(t.Year(), t.Month(), t.Day()+1, 0, 0, 0, 0, time.UTC)
}

func nextMonthReset(now time.Time) time.Time {
	t := now.UTC()
	return time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, time.UTC)
}
