package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/chronoslabs/chronos-engine/internal/domain"
)

func sampleRecord(id string) *domain.SessionRecord {
	scene := "a windswept cliff"
	ref := "data:image/png;base64,AAAA"
	return &domain.SessionRecord{
		ID: domain.SessionID(id),
		Config: domain.SessionConfig{
			Character:   "Ada Lovelace",
			Date:        "1843",
			VoiceGender: domain.VoiceFemale,
		},
		LastModified: time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC),
		Messages: []*domain.Message{
			{
				ID:          "m1",
				Role:        domain.RolePersona,
				Text:        "What manner of engine is this?",
				CreatedAt:   time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC),
				ScenePrompt: &scene,
				ImageRef:    &ref,
			},
			{
				ID:        "m2",
				Role:      domain.RoleUser,
				Text:      "One you would recognize.",
				CreatedAt: time.Date(2026, 8, 31, 12, 1, 0, 0, time.UTC),
			},
		},
	}
}

func TestSaveAndListRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewStore(t.TempDir(), "chronos_history_v1")

	if err := store.SaveSession(ctx, sampleRecord("s1")); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}

	recs, err := store.ListSessions(ctx)
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}

	got := recs[0]
	if got.ID != "s1" || got.Config.Character != "Ada Lovelace" || got.Config.VoiceGender != domain.VoiceFemale {
		t.Errorf("record header mismatch: %+v", got)
	}
	if len(got.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(got.Messages))
	}
	m1 := got.Messages[0]
	if m1.ScenePrompt == nil || *m1.ScenePrompt != "a windswept cliff" {
		t.Errorf("scene prompt lost: %v", m1.ScenePrompt)
	}
	if m1.ImageRef == nil {
		t.Error("image ref lost")
	}
	if got.Messages[1].ScenePrompt != nil {
		t.Error("absent scene prompt became present")
	}
}

func TestSaveReplacesExistingRecord(t *testing.T) {
	ctx := context.Background()
	store := NewStore(t.TempDir(), "chronos_history_v1")

	if err := store.SaveSession(ctx, sampleRecord("s1")); err != nil {
		t.Fatalf("first save failed: %v", err)
	}

	updated := sampleRecord("s1")
	updated.Messages = updated.Messages[:1]
	if err := store.SaveSession(ctx, updated); err != nil {
		t.Fatalf("second save failed: %v", err)
	}

	recs, _ := store.ListSessions(ctx)
	if len(recs) != 1 {
		t.Fatalf("save duplicated the record: %d entries", len(recs))
	}
	if len(recs[0].Messages) != 1 {
		t.Errorf("second save did not replace the document: %d messages", len(recs[0].Messages))
	}
}

func TestDeleteRemovesOnlyTarget(t *testing.T) {
	ctx := context.Background()
	store := NewStore(t.TempDir(), "chronos_history_v1")

	store.SaveSession(ctx, sampleRecord("s1"))
	store.SaveSession(ctx, sampleRecord("s2"))

	if err := store.DeleteSession(ctx, "s1"); err != nil {
		t.Fatalf("DeleteSession failed: %v", err)
	}

	recs, _ := store.ListSessions(ctx)
	if len(recs) != 1 || recs[0].ID != "s2" {
		t.Fatalf("wrong survivor set: %+v", recs)
	}

	// Deleting an unknown id is a no-op.
	if err := store.DeleteSession(ctx, "ghost"); err != nil {
		t.Errorf("delete of unknown id failed: %v", err)
	}
}

func TestConcurrentSavesKeepEveryRecord(t *testing.T) {
	ctx := context.Background()
	store := NewStore(t.TempDir(), "chronos_history_v1")

	// Two sessions persisting at the same time must not drop each other's
	// record when both read the document before either writes it back.
	const sessions = 8
	var wg sync.WaitGroup
	for i := 0; i < sessions; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			rec := sampleRecord(fmt.Sprintf("s%d", n))
			for j := 0; j < 50; j++ {
				if err := store.SaveSession(ctx, rec); err != nil {
					t.Errorf("SaveSession s%d: %v", n, err)
					return
				}
			}
		}(i)
	}
	wg.Wait()

	recs, err := store.ListSessions(ctx)
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(recs) != sessions {
		t.Fatalf("expected %d records after concurrent saves, got %d", sessions, len(recs))
	}
}

func TestMissingFileIsEmptyHistory(t *testing.T) {
	store := NewStore(t.TempDir(), "chronos_history_v1")

	recs, err := store.ListSessions(context.Background())
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(recs) != 0 {
		t.Errorf("expected empty history, got %d records", len(recs))
	}
}

func TestCorruptFileIsEmptyHistory(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	store := NewStore(root, "chronos_history_v1")

	if err := os.WriteFile(filepath.Join(root, "chronos_history_v1.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	recs, err := store.ListSessions(ctx)
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(recs) != 0 {
		t.Errorf("corrupt file yielded %d records", len(recs))
	}

	// A save over the corrupt file starts a fresh collection.
	if err := store.SaveSession(ctx, sampleRecord("s1")); err != nil {
		t.Fatalf("save over corrupt file failed: %v", err)
	}
	recs, _ = store.ListSessions(ctx)
	if len(recs) != 1 {
		t.Errorf("expected fresh collection with 1 record, got %d", len(recs))
	}
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	store := NewStore(root, "chronos_history_v1")

	if err := store.SaveSession(ctx, sampleRecord("s1")); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "chronos_history_v1.json" {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("unexpected directory contents: %v", names)
	}
}

func TestAudioNeverSerialized(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	store := NewStore(root, "chronos_history_v1")

	rec := sampleRecord("s1")
	clip := "UFVGRg=="
	rec.Messages[0].AudioPayload = &clip
	if err := store.SaveSession(ctx, rec); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}

	recs, _ := store.ListSessions(ctx)
	if recs[0].Messages[0].AudioPayload != nil {
		t.Error("audio payload survived the round trip")
	}

	raw, err := os.ReadFile(filepath.Join(root, "chronos_history_v1.json"))
	if err != nil {
		t.Fatal(err)
	}
	if string(raw) == "" {
		t.Fatal("empty history document")
	}
	if strings.Contains(string(raw), clip) {
		t.Error("audio payload bytes present in the history file")
	}
}
