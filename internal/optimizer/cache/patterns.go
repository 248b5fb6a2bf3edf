package cache

import "regexp"

// patternTag pairs a prompt regex with the category it indicates. Used only
// for tagging entries so stats can break down which request families cache
// well.
type patternTag struct {
	re       *regexp.Regexp
	category string
}

var commonPatterns = []patternTag{
	{regexp.MustCompile(`(?i)click\s+(detector|detection|script)`), "click-detection"},
	{regexp.MustCompile(`(?i)on\s+click|when\s+clicked`), "click-detection"},

	{regexp.MustCompile(`(?i)teleport\s+(player|script|pad)`), "teleport"},
	{regexp.MustCompile(`(?i)tp\s+player|move\s+player\s+to`), "teleport"},

	{regexp.MustCompile(`(?i)(create|make)\s+(gui|button|frame)`), "gui"},
	{regexp.MustCompile(`(?i)screen\s*gui|ui\s+element`), "gui"},

	{regexp.MustCompile(`(?i)tween\s+(service|animation|part)`), "tween"},
	{regexp.MustCompile(`(?i)animate\s+(part|object|gui)`), "tween"},

	{regexp.MustCompile(`(?i)leader\s*stats|leaderboard|score\s+system`), "leaderstats"},
	{regexp.MustCompile(`(?i)points?\s+system|currency\s+system`), "leaderstats"},

	{regexp.MustCompile(`(?i)(create|make)\s+(tool|weapon|sword)`), "tool"},
	{regexp.MustCompile(`(?i)equip\s+(tool|item)|give\s+player\s+tool`), "tool"},

	{regexp.MustCompile(`(?i)data\s*store|save\s+data|load\s+data`), "datastore"},
	{regexp.MustCompile(`(?i)persistent\s+data|save\s+progress`), "datastore"},

	{regexp.MustCompile(`(?i)remote\s*(event|function)`), "remote"},
	{regexp.MustCompile(`(?i)client.*server|server.*client`), "remote"},

	{regexp.MustCompile(`(?i)spawn\s+(part|brick|object)`), "spawn"},
	{regexp.MustCompile(`(?i)create\s+part\s+at|instantiate`), "spawn"},

	{regexp.MustCompile(`(?i)ray\s*cast|line\s+of\s+sight`), "raycast"},
	{regexp.MustCompile(`(?i)shoot\s+ray|detect\s+hit`), "raycast"},
}

// detectPattern returns the first matching category, or "" when the prompt
// doesn't fit any known family.
func detectPattern(prompt string) string {
	for _, p := range commonPatterns {
		if p.re.MatchString(prompt) {
			return p.category
		}
	}
	return ""
}
