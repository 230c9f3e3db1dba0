// Package session owns active conversation sessions: the ordered message
// log, durable persistence with audio stripped, and the conversation engine
// coordinating the remote collaborators.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chronoslabs/chronos-engine/internal/domain"
	"github.com/chronoslabs/chronos-engine/internal/metrics"
	"github.com/chronoslabs/chronos-engine/internal/observability"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrMessageNotFound = errors.New("message not found")
)

// Store owns every active session and serializes durable writes per session.
// Messages inside the store are mutated only through AppendMessage and
// PatchMessage.
type Store struct {
	mu       sync.Mutex
	sessions map[domain.SessionID]*domain.Session
	seq      map[domain.SessionID]uint64 // snapshot version per session
	written  map[domain.SessionID]uint64 // last version flushed to storage

	writersMu sync.Mutex
	writers   map[domain.SessionID]*sync.Mutex

	history domain.HistoryStore
	met     *metrics.Metrics
	now     func() time.Time
}

// NewStore creates a session store over the given durable history backend.
// met may be nil.
func NewStore(history domain.HistoryStore, met *metrics.Metrics) *Store {
	return &Store{
		sessions: make(map[domain.SessionID]*domain.Session),
		seq:      make(map[domain.SessionID]uint64),
		written:  make(map[domain.SessionID]uint64),
		writers:  make(map[domain.SessionID]*sync.Mutex),
		history:  history,
		met:      met,
		now:      time.Now,
	}
}

// CreateSession allocates a fresh session. Nothing is persisted until the
// first message is appended.
func (s *Store) CreateSession(cfg domain.SessionConfig) *domain.Session {
	sess := &domain.Session{
		ID:           domain.SessionID(uuid.NewString()),
		Config:       cfg,
		LastModified: s.now(),
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	return sess.Clone()
}

// Adopt takes ownership of a session loaded from durable storage, making it
// the live copy for its id.
func (s *Store) Adopt(rec *domain.SessionRecord) *domain.Session {
	sess := &domain.Session{
		ID:           rec.ID,
		Config:       rec.Config,
		LastModified: rec.LastModified,
		Messages:     make([]*domain.Message, len(rec.Messages)),
	}
	for i, m := range rec.Messages {
		mc := *m
		sess.Messages[i] = &mc
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	return sess.Clone()
}

// GetSession returns a copy of the live session.
func (s *Store) GetSession(id domain.SessionID) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess.Clone(), nil
}

// Evict drops the in-memory copy of a session. The durable record stays.
func (s *Store) Evict(id domain.SessionID) {
	s.forget(id)
}

// forget drops the live copy and all write bookkeeping for a session, so a
// long-lived process does not accumulate an entry per session ever touched.
func (s *Store) forget(id domain.SessionID) {
	s.mu.Lock()
	delete(s.sessions, id)
	delete(s.seq, id)
	delete(s.written, id)
	s.mu.Unlock()

	s.writersMu.Lock()
	delete(s.writers, id)
	s.writersMu.Unlock()
}

// AppendMessage inserts the message at the tail of the session's log,
// preserving arrival order, and triggers persistence.
func (s *Store) AppendMessage(ctx context.Context, id domain.SessionID, msg *domain.Message) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if !ok {
		s.mu.Unlock()
		return ErrSessionNotFound
	}

	// Ownership of the message transfers to the store here.
	mc := *msg
	sess.Messages = append(sess.Messages, &mc)
	sess.LastModified = s.now()
	snap, seq := s.snapshotLocked(sess)
	s.mu.Unlock()

	s.persist(ctx, snap, seq)
	return nil
}

// PatchMessage merges the patch into the message matching messageID and
// triggers persistence. A missing message is a no-op.
func (s *Store) PatchMessage(ctx context.Context, id domain.SessionID, messageID domain.MessageID, patch domain.MessagePatch) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if !ok {
		s.mu.Unlock()
		return ErrSessionNotFound
	}

	found := false
	for _, m := range sess.Messages {
		if m.ID == messageID {
			patch.Apply(m)
			found = true
			break
		}
	}
	if !found {
		// Messages are never removed in practice; tolerate it anyway.
		s.mu.Unlock()
		return nil
	}

	sess.LastModified = s.now()
	snap, seq := s.snapshotLocked(sess)
	s.mu.Unlock()

	s.persist(ctx, snap, seq)
	return nil
}

// ListSessions returns all durable session records. Storage trouble is
// logged and yields an empty history, never a failure.
func (s *Store) ListSessions(ctx context.Context) []*domain.SessionRecord {
	recs, err := s.history.ListSessions(ctx)
	if err != nil {
		observability.LoggerFromContext(ctx).Warn("failed to load session history", "error", err)
		return nil
	}
	return recs
}

// DeleteSession removes exactly one session's durable record and drops any
// live copy.
func (s *Store) DeleteSession(ctx context.Context, id domain.SessionID) error {
	s.forget(id)

	if err := s.history.DeleteSession(ctx, id); err != nil {
		observability.LoggerFromContext(ctx).Error("failed to delete session record",
			"session_id", id, "error", err)
		return err
	}
	return nil
}

// snapshotLocked builds the durable record for a session, excluding every
// audio payload: voice clips are large base64 blobs and must never count
// against the storage quota. Caller holds s.mu.
func (s *Store) snapshotLocked(sess *domain.Session) (*domain.SessionRecord, uint64) {
	rec := &domain.SessionRecord{
		ID:           sess.ID,
		Config:       sess.Config,
		LastModified: sess.LastModified,
		Messages:     make([]*domain.Message, len(sess.Messages)),
	}
	for i, m := range sess.Messages {
		mc := *m
		mc.AudioPayload = nil
		rec.Messages[i] = &mc
	}

	s.seq[sess.ID]++
	return rec, s.seq[sess.ID]
}

// persist writes one snapshot through the session's serialized writer.
// Snapshots older than the last written one are discarded, so a straggling
// early write can never clobber a later state. Failures are logged; the
// conversation continues in memory.
func (s *Store) persist(ctx context.Context, rec *domain.SessionRecord, seq uint64) {
	w := s.writerFor(rec.ID)
	w.Lock()
	defer w.Unlock()

	s.mu.Lock()
	stale := seq <= s.written[rec.ID]
	s.mu.Unlock()
	if stale {
		if s.met != nil {
			s.met.PersistStale.Inc()
		}
		return
	}

	if err := s.history.SaveSession(ctx, rec); err != nil {
		observability.LoggerFromContext(ctx).Error("failed to persist session",
			"session_id", rec.ID, "error", err)
		if s.met != nil {
			s.met.PersistFailures.Inc()
		}
		return
	}

	s.mu.Lock()
	if seq > s.written[rec.ID] {
		s.written[rec.ID] = seq
	}
	s.mu.Unlock()
	if s.met != nil {
		s.met.PersistWrites.Inc()
	}
}

func (s *Store) writerFor(id domain.SessionID) *sync.Mutex {
	s.writersMu.Lock()
	defer s.writersMu.Unlock()
	w, ok := s.writers[id]
	if !ok {
		w = &sync.Mutex{}
		s.writers[id] = w
	}
	return w
}
