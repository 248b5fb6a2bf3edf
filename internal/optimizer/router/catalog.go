package router

// Capability orders models by what they can handle. A model can serve any
// task at or below its capability.
type Capability int

const (
	CapabilityBasic Capability = iota + 1
	CapabilityAdvanced
	CapabilityExpert
)

// ParseCapability maps a capability name from the model_pricing table to its
// level. Unrecognized names read as advanced.
func ParseCapability(s string) Capability {
	switch s {
	case "basic":
		return CapabilityBasic
	case "expert":
		return CapabilityExpert
	default:
		return CapabilityAdvanced
	}
}

// ModelInfo describes one routable model. Costs are USD per million tokens.
// All of this is configuration, not contract: the default catalog below can
// be overridden row by row from the model_pricing table.
type ModelInfo struct {
	Name       string
	Provider   string
	Model      string
	CostInput  float64
	CostOutput float64
	Speed      string
	Capability Capability
	MaxTokens  int
}

// Catalog maps model alias to its info.
type Catalog map[string]ModelInfo

// DefaultCatalog returns the built-in model table.
func DefaultCatalog() Catalog {
	return Catalog{
		"claude-3-5-haiku": {
			Name:       "Claude 3.5 Haiku",
			Provider:   "anthropic",
			Model:      "claude-3-5-haiku-20241022",
			CostInput:  0.25,
			CostOutput: 1.25,
			Speed:      "fast",
			Capability: CapabilityBasic,
			MaxTokens:  4096,
		},
		"claude-4-sonnet": {
			Name:       "RoCode 3 (Claude Sonnet)",
			Provider:   "anthropic",
			Model:      "claude-sonnet-4-20250514",
			CostInput:  3.00,
			CostOutput: 15.00,
			Speed:      "medium",
			Capability: CapabilityAdvanced,
			MaxTokens:  8192,
		},
		"claude-4-opus": {
			Name:       "RoCode Nexus 3 (Claude Opus)",
			Provider:   "anthropic",
			Model:      "claude-opus-4-20250514",
			CostInput:  15.00,
			CostOutput: 75.00,
			Speed:      "slow",
			Capability: CapabilityExpert,
			MaxTokens:  16384,
		},
	}
}

// entitlements lists model aliases per subscription tier, ordered cheapest
// first. Unknown tiers fall back to free.
var entitlements = map[string][]string{
	"free":       {"claude-3-5-haiku", "claude-4-sonnet"},
	"pro":        {"claude-3-5-haiku", "claude-4-sonnet", "claude-4-opus"},
	"enterprise": {"claude-3-5-haiku", "claude-4-sonnet", "claude-4-opus"},
}

// EntitledModels returns the model aliases a tier may use.
func EntitledModels(tier string) []string {
	if ms, ok := entitlements[tier]; ok {
		return ms
	}
	return entitlements["free"]
}
