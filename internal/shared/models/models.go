package models

import "time"

// APIKey represents a gateway API key
type APIKey struct {
	ID                 string
	KeyHash            string
	KeyPrefix          string
	Name               string
	UserID             string
	SubscriptionTier   string
	RateLimitPerMinute int
	IsActive           bool
	LastUsedAt         *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// ModelPricing represents pricing and capability data for an LLM model.
// Rows from this table override the router's built-in catalog.
type ModelPricing struct {
	ID               string
	Alias            string
	Provider         string
	Model            string
	InputPerMTokens  float64
	OutputPerMTokens float64
	Capability       string
	MaxOutputTokens  int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// OptimizationLog represents a per-request optimization decision record
type OptimizationLog struct {
	ID             string
	APIKeyID       *string
	UserID         string
	RequestedModel string
	SelectedModel  string
	Complexity     string
	CacheHit       bool
	Allowed        bool
	RejectReason   *string
	TokensSaved    int
	CostSavedUSD   float64
	LatencyMs      int
	StatusCode     int
	ErrorMessage   *string
	CreatedAt      time.Time
}
