// Package classifier assigns a complexity tier, task type and response mode
// to incoming prompts. Classification is pure pattern matching over ordered
// rule tables: deterministic, no I/O, so the same prompt always routes the
// same way.
package classifier

import (
	"regexp"
	"strings"
)

// Complexity buckets drive model choice and output token caps.
type Complexity string

const (
	Simple  Complexity = "simple"
	Medium  Complexity = "medium"
	Complex Complexity = "complex"
)

// TaskType labels what kind of work the prompt is asking for.
type TaskType string

const (
	TaskBasicEdit    TaskType = "basic-edit"
	TaskFeature      TaskType = "feature-implementation"
	TaskDebugging    TaskType = "debugging"
	TaskArchitecture TaskType = "architecture"
	TaskGeneral      TaskType = "general"
)

// ResponseMode indicates how verbose the answer should be.
type ResponseMode string

const (
	ModeCodeOnly ResponseMode = "code-only"
	ModeDetailed ResponseMode = "detailed"
	ModeBalanced ResponseMode = "balanced"
)

// Model aliases suggested by classification. The router owns the full
// catalog; these are just the names the rule tables point at.
const (
	ModelHaiku  = "claude-3-5-haiku"
	ModelSonnet = "claude-4-sonnet"
	ModelOpus   = "claude-4-opus"
)

// Analysis is the result of classifying a single prompt.
type Analysis struct {
	Complexity       Complexity
	TaskType         TaskType
	ResponseMode     ResponseMode
	SuggestedModel   string
	AlternativeModel string
	Reason           string
	WordCount        int
	HasCode          bool
}

// The rule tables are plain data so they can be extended independently of
// the evaluation loop.
type rule struct {
	re *regexp.Regexp
}

func rules(patterns ...string) []rule {
	rs := make([]rule, 0, len(patterns))
	for _, p := range patterns {
		rs = append(rs, rule{re: regexp.MustCompile(p)})
	}
	return rs
}

var simpleRules = rules(
	`^(fix|correct) (this|the|my) (error|bug|syntax)`,
	`^(add|insert|put) a? ?comment`,
	`^(rename|change name)`,
	`^format (this|my|the) code`,
	`^explain (what|how|why)`,
	`^what (is|does|are)`,
	`^(clean|tidy|organize)`,
	`syntax error`,
	`^make (it|this) (faster|cleaner|better)`,
	`^(remove|delete) (the|this)`,
	`^change .{1,20} to .{1,20}$`,
	`^(simple|basic|easy) (script|code)`,
)

var mediumRules = rules(
	`^(create|make|write) a? ?(script|system|function)`,
	`^(implement|add) (feature|functionality)`,
	`^(debug|troubleshoot)`,
	`^(refactor|restructure|reorganize)`,
	`leaderstats?|leaderboard`,
	`gui|interface|ui`,
	`tween|animation`,
	`tool|weapon|item`,
	`teleport|move player`,
	`data ?store`,
	`remote ?(event|function)`,
	`click ?detector`,
)

var complexRules = rules(
	`(complex|advanced|sophisticated|comprehensive)`,
	`full (system|game|framework)`,
	`multiple (scripts|systems|features)`,
	`(integrate|integration) (with|between)`,
	`architect|architecture|design pattern`,
	`optimize performance`,
	`(security|secure|exploit|vulnerability)`,
	`ai |machine learning|pathfinding|procedural`,
	`(multiplayer|networking|replication)`,
	`entire game`,
	`production[- ]ready`,
	`scalable|modular|extensible`,
	`state management|state machine`,
	`custom (physics|rendering|lighting)`,
)

var codeOnlyRules = rules(
	`^(write|create|make|generate) (code|script)`,
	`^give me (the )?(code|script)`,
	`^show me (the )?(code|script)`,
	`^(just|only) (the )?(code|script)`,
	`no explanation`,
	`code only`,
)

var detailedRules = rules(
	`^(explain|tell me|describe|what is)`,
	`^(how|why|when|where) (does|do|should|would)`,
	`^teach me`,
	`^help me understand`,
	`with (explanation|details|comments)`,
	`step[- ]?by[- ]?step`,
)

func matchAny(rs []rule, s string) bool {
	for _, r := range rs {
		if r.re.MatchString(s) {
			return true
		}
	}
	return false
}

// Analyze classifies a prompt. Evaluation order matters: simple patterns set
// the baseline, complex patterns override it, and medium patterns only refine
// the task type when neither fired.
func Analyze(prompt string) Analysis {
	lower := strings.ToLower(prompt)
	wordCount := len(strings.Fields(prompt))
	hasCode := strings.Contains(prompt, "```")

	a := Analysis{
		Complexity:       Medium,
		TaskType:         TaskGeneral,
		ResponseMode:     ModeBalanced,
		SuggestedModel:   ModelSonnet,
		AlternativeModel: "",
		Reason:           "Default routing",
		WordCount:        wordCount,
		HasCode:          hasCode,
	}

	if matchAny(simpleRules, lower) {
		a.Complexity = Simple
		a.TaskType = TaskBasicEdit
		a.Reason = "Simple task detected"
		a.SuggestedModel = ModelHaiku
		a.AlternativeModel = ModelSonnet
	}

	// Complex takes priority over simple
	if matchAny(complexRules, lower) {
		a.Complexity = Complex
		a.TaskType = TaskArchitecture
		a.Reason = "Complex task requiring advanced capabilities"
		a.SuggestedModel = ModelOpus
		a.AlternativeModel = ModelSonnet
	}

	if a.Complexity == Medium && matchAny(mediumRules, lower) {
		a.TaskType = TaskFeature
		a.Reason = "Standard feature implementation"
		a.AlternativeModel = ModelHaiku
	}

	if matchAny(codeOnlyRules, lower) {
		a.ResponseMode = ModeCodeOnly
	}
	if matchAny(detailedRules, lower) {
		a.ResponseMode = ModeDetailed
		// Explanations tend to need the better model
		if a.Complexity == Simple {
			a.Complexity = Medium
			a.SuggestedModel = ModelSonnet
		}
	}

	// Adjust for prompt length
	if wordCount < 10 && a.Complexity != Complex {
		a.Complexity = Simple
		a.SuggestedModel = ModelHaiku
		a.Reason = "Brief prompt - likely simple task"
	} else if wordCount > 200 && a.Complexity == Simple {
		a.Complexity = Medium
		a.SuggestedModel = ModelSonnet
		a.Reason = "Long prompt requires more context understanding"
	}

	// Code blocks in the prompt usually mean a debugging request
	if hasCode {
		if a.Complexity == Simple {
			a.Complexity = Medium
			a.SuggestedModel = ModelSonnet
			a.Reason = "Code analysis required"
		}
		a.TaskType = TaskDebugging
	}

	return a
}
