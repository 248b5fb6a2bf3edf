// Package prompts holds the static per-model system prompt variants. Three
// modes per model: full keeps explanations available, code-only strips them,
// minimal is for trivially short requests.
package prompts

// Mode selects which system prompt variant to use.
type Mode string

const (
	ModeFull     Mode = "full"
	ModeCodeOnly Mode = "code-only"
	ModeMinimal  Mode = "minimal"
)

var systemPrompts = map[string]map[Mode]string{
	"claude-3-5-haiku": {
		ModeFull:     "Expert Roblox Luau coder. Return only code in ```lua blocks. No explanations unless asked. Efficient, secure, optimized.",
		ModeCodeOnly: "Return ONLY Luau code in ```lua blocks. NO text/explanations.",
		ModeMinimal:  "Luau code only.",
	},
	"claude-4-sonnet": {
		ModeFull:     "RoCode 3 assistant. Expert Roblox Luau developer. Respond with code in ```lua blocks. Explain ONLY if asked. Focus: efficient, secure code.",
		ModeCodeOnly: "RoCode 3. Return ONLY Luau code in ```lua blocks. NO explanations.",
		ModeMinimal:  "Code only.",
	},
	"claude-4-opus": {
		ModeFull:     "RoCode Nexus 3. Advanced Roblox development. Return code in ```lua blocks first. Brief explanation ONLY if requested. Optimize for efficiency.",
		ModeCodeOnly: "RoCode Nexus 3. ONLY Luau code in ```lua blocks. NO text.",
		ModeMinimal:  "Code only.",
	},
}

const fallbackPrompt = "Expert Roblox Luau developer. Code-focused responses."

// Get returns the system prompt for a model and mode, falling back to the
// code-only variant and then to a generic prompt for unknown models.
func Get(model string, mode Mode) string {
	variants, ok := systemPrompts[model]
	if !ok {
		return fallbackPrompt
	}
	if p, ok := variants[mode]; ok {
		return p
	}
	return variants[ModeCodeOnly]
}
