// Package file provides a history store backed by a single JSON document on
// the local filesystem, one collection per namespace.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/chronoslabs/chronos-engine/internal/domain"
	"github.com/chronoslabs/chronos-engine/internal/observability"
)

// Store keeps every session record of one namespace in <root>/<namespace>.json.
// Writes replace the whole document atomically; the mutex serializes the
// load-modify-save cycle so concurrent writers for different sessions cannot
// drop each other's records.
type Store struct {
	mu        sync.Mutex
	root      string
	namespace string
}

func NewStore(root, namespace string) *Store {
	return &Store{root: root, namespace: namespace}
}

// ─────────────────────────────────────────
// Durable document shape
// ─────────────────────────────────────────

type sessionDoc struct {
	ID           string        `json:"id"`
	Config       configDoc     `json:"config"`
	Messages     []messageDoc  `json:"messages"`
	LastModified time.Time     `json:"last_modified"`
}

type configDoc struct {
	Character   string `json:"character"`
	Date        string `json:"date"`
	VoiceGender string `json:"voice_gender,omitempty"`
}

// messageDoc carries no audio payload field at all: voice clips never reach
// durable storage.
type messageDoc struct {
	ID              string    `json:"id"`
	Role            string    `json:"role"`
	Text            string    `json:"text"`
	CreatedAt       time.Time `json:"created_at"`
	ScenePrompt     *string   `json:"scene_prompt,omitempty"`
	LocationContext *string   `json:"location_context,omitempty"`
	ImageRef        *string   `json:"image_ref,omitempty"`
	ImagePending    bool      `json:"image_pending,omitempty"`
}

func (s *Store) path() string {
	return filepath.Join(s.root, s.namespace+".json")
}

// load reads the namespace document. A missing, unreadable or corrupt file
// is "no history": logged and returned as an empty collection, never fatal.
func (s *Store) load(ctx context.Context) map[string]sessionDoc {
	data, err := os.ReadFile(s.path())
	if err != nil {
		if !os.IsNotExist(err) {
			observability.LoggerFromContext(ctx).Warn("failed to read history file",
				"path", s.path(), "error", err)
		}
		return map[string]sessionDoc{}
	}

	var docs map[string]sessionDoc
	if err := json.Unmarshal(data, &docs); err != nil {
		observability.LoggerFromContext(ctx).Warn("corrupt history file, starting empty",
			"path", s.path(), "error", err)
		return map[string]sessionDoc{}
	}
	return docs
}

// save writes the namespace document via temp file and rename, so a crashed
// write can never leave a partially-written collection behind.
func (s *Store) save(docs map[string]sessionDoc) error {
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return fmt.Errorf("failed to create history dir: %w", err)
	}

	data, err := json.Marshal(docs)
	if err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}

	tmp, err := os.CreateTemp(s.root, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write history: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path()); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace history file: %w", err)
	}
	return nil
}

func (s *Store) SaveSession(ctx context.Context, rec *domain.SessionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs := s.load(ctx)
	docs[string(rec.ID)] = toDoc(rec)
	return s.save(docs)
}

func (s *Store) ListSessions(ctx context.Context) ([]*domain.SessionRecord, error) {
	docs := s.load(ctx)
	result := make([]*domain.SessionRecord, 0, len(docs))
	for _, doc := range docs {
		result = append(result, fromDoc(doc))
	}
	return result, nil
}

func (s *Store) DeleteSession(ctx context.Context, id domain.SessionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs := s.load(ctx)
	if _, ok := docs[string(id)]; !ok {
		return nil
	}
	delete(docs, string(id))
	return s.save(docs)
}

func toDoc(rec *domain.SessionRecord) sessionDoc {
	doc := sessionDoc{
		ID: string(rec.ID),
		Config: configDoc{
			Character:   rec.Config.Character,
			Date:        rec.Config.Date,
			VoiceGender: string(rec.Config.VoiceGender),
		},
		LastModified: rec.LastModified,
		Messages:     make([]messageDoc, len(rec.Messages)),
	}
	for i, m := range rec.Messages {
		doc.Messages[i] = messageDoc{
			ID:              string(m.ID),
			Role:            string(m.Role),
			Text:            m.Text,
			CreatedAt:       m.CreatedAt,
			ScenePrompt:     m.ScenePrompt,
			LocationContext: m.LocationContext,
			ImageRef:        m.ImageRef,
			ImagePending:    m.ImagePending,
		}
	}
	return doc
}

func fromDoc(doc sessionDoc) *domain.SessionRecord {
	rec := &domain.SessionRecord{
		ID: domain.SessionID(doc.ID),
		Config: domain.SessionConfig{
			Character:   doc.Config.Character,
			Date:        doc.Config.Date,
			VoiceGender: domain.VoiceGender(doc.Config.VoiceGender),
		},
		LastModified: doc.LastModified,
		Messages:     make([]*domain.Message, len(doc.Messages)),
	}
	for i, m := range doc.Messages {
		rec.Messages[i] = &domain.Message{
			ID:              domain.MessageID(m.ID),
			Role:            domain.Role(m.Role),
			Text:            m.Text,
			CreatedAt:       m.CreatedAt,
			ScenePrompt:     m.ScenePrompt,
			LocationContext: m.LocationContext,
			ImageRef:        m.ImageRef,
			ImagePending:    m.ImagePending,
		}
	}
	return rec
}
