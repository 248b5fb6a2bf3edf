package budget

import (
	"math"
	"time"
)

// UsageStats is the full usage breakdown for one user.
type UsageStats struct {
	Subscription string `json:"subscription"`
	Current      struct {
		Monthly  int `json:"monthly"`
		Daily    int `json:"daily"`
		Rollover int `json:"rollover"`
	} `json:"current"`
	Limits struct {
		MonthlyTotal int `json:"monthlyTotal"`
		MonthlyBase  int `json:"monthlyBase"`
		Daily        int `json:"daily"`
	} `json:"limits"`
	Remaining struct {
		Month       int `json:"month"`
		Today       int `json:"today"`
		PercentUsed int `json:"percentUsed"`
	} `json:"remaining"`
	Analytics struct {
		DailyAverage     int `json:"dailyAverage"`
		ProjectedMonthly int `json:"projectedMonthly"`
		ProjectedOverage int `json:"projectedOverage"`
		DaysActive       int `json:"daysActive"`
		Warnings         int `json:"warnings"`
	} `json:"analytics"`
	Recommendations []Recommendation `json:"recommendations"`
}

// Recommendation is a qualitative usage hint.
type Recommendation struct {
	Type     string `json:"type"`
	Priority string `json:"priority"`
	Message  string `json:"message"`
	Action   string `json:"action"`
}

// GetUserStats returns the current usage picture plus a linear end-of-month
// projection from the daily average.
func (m *Manager) GetUserStats(userID, tier string) UsageStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	b := m.getUserBudget(userID, tier)
	cfg := TierFor(tier)
	now := m.now().UTC()
	today := dayKey(now)

	totalAvailable := cfg.TotalTokens + b.RolloverTokens

	daysActive := len(b.DailyUsage)
	if daysActive == 0 {
		daysActive = 1
	}
	dailyAverage := b.MonthlyUsage / daysActive

	daysLeft := daysInMonth(now) - now.Day()
	projected := b.MonthlyUsage + dailyAverage*daysLeft

	var stats UsageStats
	stats.Subscription = tier
	stats.Current.Monthly = b.MonthlyUsage
	stats.Current.Daily = b.DailyUsage[today]
	stats.Current.Rollover = b.RolloverTokens
	stats.Limits.MonthlyTotal = totalAvailable
	stats.Limits.MonthlyBase = cfg.TotalTokens
	stats.Limits.Daily = cfg.DailyMax
	stats.Remaining.Month = totalAvailable - b.MonthlyUsage
	stats.Remaining.Today = cfg.DailyMax - b.DailyUsage[today]
	stats.Remaining.PercentUsed = int(math.Round(float64(b.MonthlyUsage) / float64(totalAvailable) * 100))
	stats.Analytics.DailyAverage = dailyAverage
	stats.Analytics.ProjectedMonthly = projected
	stats.Analytics.ProjectedOverage = max(0, projected-totalAvailable)
	stats.Analytics.DaysActive = daysActive
	stats.Analytics.Warnings = len(b.Warnings)
	stats.Recommendations = recommendations(b, cfg, projected)

	return stats
}

func recommendations(b *UserBudget, cfg TierConfig, projected int) []Recommendation {
	var recs []Recommendation
	totalAvailable := cfg.TotalTokens + b.RolloverTokens

	if float64(projected) > float64(totalAvailable)*0.9 {
		recs = append(recs, Recommendation{
			Type:     "upgrade",
			Priority: "high",
			Message:  "You're on track to exceed your monthly budget",
			Action:   "Consider upgrading to the next tier",
		})
	}

	var maxDaily int
	for _, v := range b.DailyUsage {
		if v > maxDaily {
			maxDaily = v
		}
	}
	if maxDaily > 0 && float64(maxDaily) > float64(cfg.DailyMax)*0.8 {
		recs = append(recs, Recommendation{
			Type:     "usage_pattern",
			Priority: "medium",
			Message:  "You've had days with very high usage",
			Action:   "Consider spreading requests throughout the day",
		})
	}

	if float64(b.MonthlyUsage) > float64(cfg.TotalTokens)*0.5 {
		recs = append(recs, Recommendation{
			Type:     "optimization",
			Priority: "low",
			Message:  "Enable smart routing to use Haiku for simple tasks",
			Action:   "This can reduce token usage by 40-60%",
		})
	}

	return recs
}

func daysInMonth(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
