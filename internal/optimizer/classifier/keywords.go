package classifier

import (
	"regexp"
	"strings"
)

var (
	codeBlockRe = regexp.MustCompile("(?s)```.*?```")
	wordSplitRe = regexp.MustCompile(`\W+`)
)

var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "this": true,
	"that": true, "from": true, "what": true, "how": true, "can": true,
	"you": true,
}

// domainKeywords is the allowlist of terms worth matching on when scoring
// conversation relevance.
var domainKeywords = map[string]bool{
	"script": true, "player": true, "part": true, "gui": true, "tween": true,
	"remote": true, "event": true, "datastore": true, "leaderstats": true,
	"tool": true, "humanoid": true, "workspace": true,
}

// ExtractKeywords returns the deduplicated domain keywords found in text.
// Code blocks are stripped first so identifier soup doesn't pollute the
// result.
func ExtractKeywords(text string) []string {
	if text == "" {
		return nil
	}

	clean := codeBlockRe.ReplaceAllString(text, "")

	seen := make(map[string]bool)
	var keywords []string
	for _, word := range wordSplitRe.Split(strings.ToLower(clean), -1) {
		if len(word) <= 3 || stopWords[word] || seen[word] {
			continue
		}
		if domainKeywords[word] || strings.Contains(word, "roblox") || strings.Contains(word, "luau") {
			seen[word] = true
			keywords = append(keywords, word)
		}
	}

	return keywords
}
