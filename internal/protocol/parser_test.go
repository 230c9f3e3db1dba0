package protocol

import (
	"strings"
	"testing"
)

func TestParseBothDirectives(t *testing.T) {
	raw := "Who are you? How did you enter my tent?\n" +
		"[[SCENE: A cinematic close-up of Napoleon inside a military tent, 1805]]\n" +
		"[[CONTEXT: Austerlitz Encampment | December 1, 1805 | 11:45 PM]]"

	reply := Parse(raw)

	if reply.CleanText != "Who are you? How did you enter my tent?" {
		t.Errorf("unexpected clean text: %q", reply.CleanText)
	}
	if reply.ScenePrompt == nil || *reply.ScenePrompt != "A cinematic close-up of Napoleon inside a military tent, 1805" {
		t.Errorf("unexpected scene prompt: %v", reply.ScenePrompt)
	}
	if reply.LocationContext == nil || *reply.LocationContext != "Austerlitz Encampment | December 1, 1805 | 11:45 PM" {
		t.Errorf("unexpected location context: %v", reply.LocationContext)
	}
}

func TestParseOrderIndependent(t *testing.T) {
	sceneFirst := "Text body. [[SCENE: a dusty road]] [[CONTEXT: Rome | 44 BC | Noon]]"
	contextFirst := "Text body. [[CONTEXT: Rome | 44 BC | Noon]] [[SCENE: a dusty road]]"

	a := Parse(sceneFirst)
	b := Parse(contextFirst)

	if a.CleanText != b.CleanText {
		t.Errorf("clean text differs by directive order: %q vs %q", a.CleanText, b.CleanText)
	}
	if *a.ScenePrompt != *b.ScenePrompt || *a.LocationContext != *b.LocationContext {
		t.Errorf("directive captures differ by order")
	}
	if strings.Contains(a.CleanText, "[[") || strings.Contains(a.CleanText, "]]") {
		t.Errorf("bracket markers leaked into clean text: %q", a.CleanText)
	}
}

func TestParseMultilineDirectives(t *testing.T) {
	raw := "Greetings.\n[[SCENE: a tall ship\nin a storm,\ndramatic lighting]]\nFarewell."

	reply := Parse(raw)

	if reply.ScenePrompt == nil || *reply.ScenePrompt != "a tall ship\nin a storm,\ndramatic lighting" {
		t.Errorf("unexpected scene prompt: %v", reply.ScenePrompt)
	}
	if strings.Contains(reply.CleanText, "SCENE") {
		t.Errorf("directive leaked into clean text: %q", reply.CleanText)
	}
}

func TestParseNonGreedy(t *testing.T) {
	// The scene directive must stop at its own closing marker instead of
	// swallowing the context directive that follows.
	raw := "[[SCENE: first]] middle [[CONTEXT: second]]"

	reply := Parse(raw)

	if reply.ScenePrompt == nil || *reply.ScenePrompt != "first" {
		t.Errorf("scene directive swallowed trailing content: %v", reply.ScenePrompt)
	}
	if reply.LocationContext == nil || *reply.LocationContext != "second" {
		t.Errorf("unexpected location context: %v", reply.LocationContext)
	}
	if reply.CleanText != "middle" {
		t.Errorf("unexpected clean text: %q", reply.CleanText)
	}
}

func TestParseNoDirectives(t *testing.T) {
	raw := "  Plain reply with no annotations.  "

	reply := Parse(raw)

	if reply.ScenePrompt != nil {
		t.Errorf("expected nil scene prompt, got %q", *reply.ScenePrompt)
	}
	if reply.LocationContext != nil {
		t.Errorf("expected nil location context, got %q", *reply.LocationContext)
	}
	if reply.CleanText != "Plain reply with no annotations." {
		t.Errorf("expected trimmed input, got %q", reply.CleanText)
	}
}

func TestParseEmptyDirectiveDistinctFromAbsent(t *testing.T) {
	reply := Parse("Body. [[SCENE: ]]")

	if reply.ScenePrompt == nil {
		t.Fatalf("empty directive must yield empty string, not nil")
	}
	if *reply.ScenePrompt != "" {
		t.Errorf("expected empty scene prompt, got %q", *reply.ScenePrompt)
	}
}

func TestParseIdempotent(t *testing.T) {
	inputs := []string{
		"Reply. [[SCENE: a scene]] [[CONTEXT: a place | a date | a time]]",
		"Reply with no directives",
		"[[CONTEXT: only\ncontext]]",
	}

	for _, raw := range inputs {
		first := Parse(raw)
		second := Parse(first.CleanText)

		if second.CleanText != first.CleanText {
			t.Errorf("re-parse changed clean text: %q -> %q", first.CleanText, second.CleanText)
		}
		if second.ScenePrompt != nil || second.LocationContext != nil {
			t.Errorf("re-parse found directives in cleaned text %q", first.CleanText)
		}
	}
}
