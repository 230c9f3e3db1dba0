// Package firestore provides a history store backed by Cloud Firestore,
// one document per session in a namespace collection.
package firestore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/chronoslabs/chronos-engine/internal/domain"
)

type Store struct {
	client    *firestore.Client
	namespace string
}

// NewStore creates a Firestore history store for the given project and
// namespace collection.
func NewStore(ctx context.Context, projectID, namespace string) (*Store, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID is required for Firestore store")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}

	return &Store{client: client, namespace: namespace}, nil
}

func (s *Store) sessionsCol() *firestore.CollectionRef {
	return s.client.Collection(s.namespace)
}

func (s *Store) sessionDoc(id domain.SessionID) *firestore.DocumentRef {
	return s.sessionsCol().Doc(string(id))
}

// ─────────────────────────────────────────
// Firestore document types
// ─────────────────────────────────────────

type sessionDoc struct {
	Character    string       `firestore:"character"`
	Date         string       `firestore:"date"`
	VoiceGender  string       `firestore:"voice_gender"`
	Messages     []messageDoc `firestore:"messages"`
	LastModified time.Time    `firestore:"last_modified"`
}

// messageDoc has no audio field: voice clips never reach durable storage.
type messageDoc struct {
	ID              string    `firestore:"id"`
	Role            string    `firestore:"role"`
	Text            string    `firestore:"text"`
	CreatedAt       time.Time `firestore:"created_at"`
	ScenePrompt     *string   `firestore:"scene_prompt"`
	LocationContext *string   `firestore:"location_context"`
	ImageRef        *string   `firestore:"image_ref"`
	ImagePending    bool      `firestore:"image_pending"`
}

// ─────────────────────────────────────────
// HistoryStore implementation
// ─────────────────────────────────────────

func (s *Store) SaveSession(ctx context.Context, rec *domain.SessionRecord) error {
	doc := sessionDoc{
		Character:    rec.Config.Character,
		Date:         rec.Config.Date,
		VoiceGender:  string(rec.Config.VoiceGender),
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

	// Set replaces any prior record with the same id.
	if _, err := s.sessionDoc(rec.ID).Set(ctx, doc); err != nil {
		return fmt.Errorf("firestore SaveSession: %w", err)
	}
	return nil
}

func (s *Store) ListSessions(ctx context.Context) ([]*domain.SessionRecord, error) {
	iter := s.sessionsCol().OrderBy("last_modified", firestore.Desc).Documents(ctx)
	defer iter.Stop()

	var out []*domain.SessionRecord
	for {
		snap, err := iter.Next()
		if err != nil {
			if err == iterator.Done {
				break
			}
			return nil, fmt.Errorf("firestore ListSessions: %w", err)
		}

		var doc sessionDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode sessionDoc: %w", err)
		}

		out = append(out, fromDoc(domain.SessionID(snap.Ref.ID), doc))
	}
	return out, nil
}

func (s *Store) DeleteSession(ctx context.Context, id domain.SessionID) error {
	if _, err := s.sessionDoc(id).Delete(ctx); err != nil {
		if status.Code(err) == codes.NotFound {
			return nil
		}
		return fmt.Errorf("firestore DeleteSession: %w", err)
	}
	return nil
}

func fromDoc(id domain.SessionID, doc sessionDoc) *domain.SessionRecord {
	rec := &domain.SessionRecord{
		ID: id,
		Config: domain.SessionConfig{
			Character:   doc.Character,
			Date:        doc.Date,
			VoiceGender: domain.VoiceGender(doc.VoiceGender),
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
