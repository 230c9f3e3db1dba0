// Package protocol extracts the structured directives the persona backend
// embeds in otherwise free-form reply text.
package protocol

import (
	"regexp"
	"strings"
)

// Two optional, order-independent directives. Non-greedy so one directive
// can never swallow the other; (?s) lets content span lines.
var (
	sceneRegex   = regexp.MustCompile(`(?s)\[\[SCENE:\s*(.*?)\]\]`)
	contextRegex = regexp.MustCompile(`(?s)\[\[CONTEXT:\s*(.*?)\]\]`)
)

// Reply is the result of parsing one raw backend reply.
type Reply struct {
	// CleanText is the display text with all directive spans removed
	// and surrounding whitespace trimmed.
	CleanText string

	// ScenePrompt and LocationContext are nil when the corresponding
	// directive was absent. An empty directive yields an empty string.
	ScenePrompt     *string
	LocationContext *string
}

// Parse extracts SCENE and CONTEXT directives from raw reply text.
// It is pure and idempotent: parsing already-cleaned text returns the
// same clean text and nil directive fields.
func Parse(raw string) Reply {
	var reply Reply

	if m := sceneRegex.FindStringSubmatch(raw); m != nil {
		prompt := strings.TrimSpace(m[1])
		reply.ScenePrompt = &prompt
	}
	if m := contextRegex.FindStringSubmatch(raw); m != nil {
		loc := strings.TrimSpace(m[1])
		reply.LocationContext = &loc
	}

	clean := sceneRegex.ReplaceAllString(raw, "")
	clean = contextRegex.ReplaceAllString(clean, "")
	reply.CleanText = strings.TrimSpace(clean)

	return reply
}
