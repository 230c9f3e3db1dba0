// Package httpapi exposes the conversation engine over a JSON HTTP API.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/chronoslabs/chronos-engine/internal/domain"
	"github.com/chronoslabs/chronos-engine/internal/session"
)

type Server struct {
	engine *session.Engine
}

func NewServer(engine *session.Engine) http.Handler {
	s := &Server{engine: engine}
	mux := http.NewServeMux()

	// /sessions           → POST: start session, GET: list saved sessions
	mux.HandleFunc("/sessions", s.handleSessions)

	// /sessions/{id}                      → GET: timeline, DELETE: forget session
	// /sessions/{id}/messages             → POST: send turn
	// /sessions/{id}/messages/{mid}/voice → POST: toggle voice playback
	// /sessions/{id}/resume               → POST: resume from storage
	mux.HandleFunc("/sessions/", s.handleSessionWithID)

	mux.HandleFunc("/audio/stop", s.handleStopAudio)
	mux.HandleFunc("/transcribe", s.handleTranscribe)
	mux.HandleFunc("/lifespan", s.handleLifespan)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())

	return chainMiddlewares(mux, withRequestID, withLogging, withCORS)
}

// ─────────────────────────────────────────────
// DTOs (request/response)
// ─────────────────────────────────────────────

type startSessionRequest struct {
	Character   string `json:"character"`
	Date        string `json:"date"`
	VoiceGender string `json:"voice_gender,omitempty"`
}

type sessionResponse struct {
	ID           string            `json:"id"`
	Character    string            `json:"character"`
	Date         string            `json:"date"`
	VoiceGender  string            `json:"voice_gender,omitempty"`
	Messages     []messageResponse `json:"messages"`
	LastModified time.Time         `json:"last_modified"`
}

type sessionSummary struct {
	ID           string    `json:"id"`
	Character    string    `json:"character"`
	Date         string    `json:"date"`
	Blocks       int       `json:"blocks"`
	LastModified time.Time `json:"last_modified"`
}

type messageResponse struct {
	ID              string    `json:"id"`
	Role            string    `json:"role"`
	Text            string    `json:"text"`
	CreatedAt       time.Time `json:"created_at"`
	ScenePrompt     *string   `json:"scene_prompt,omitempty"`
	LocationContext *string   `json:"location_context,omitempty"`
	ImageRef        *string   `json:"image_ref,omitempty"`
	ImagePending    bool      `json:"image_pending,omitempty"`
}

type sendTurnRequest struct {
	Text string `json:"text"`
}

type sendTurnResponse struct {
	UserMessage    messageResponse `json:"user_message"`
	PersonaMessage messageResponse `json:"persona_message"`
}

type playVoiceResponse struct {
	MessageID string `json:"message_id"`
	Playing   bool   `json:"playing"`
}

type transcribeRequest struct {
	Payload string `json:"payload"`
}

type transcribeResponse struct {
	Text *string `json:"text"`
}

type lifespanResponse struct {
	BirthYear int    `json:"birth_year"`
	DeathYear int    `json:"death_year"`
	Gender    string `json:"gender"`
}

// ─────────────────────────────────────────────
// Routing
// ─────────────────────────────────────────────

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleStartSession(w, r)
	case http.MethodGet:
		s.handleListSessions(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleSessionWithID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/sessions/")
	if path == "" {
		http.NotFound(w, r)
		return
	}

	parts := strings.Split(path, "/")
	id := domain.SessionID(parts[0])
	if id == "" {
		http.NotFound(w, r)
		return
	}

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			s.handleGetSession(w, r, id)
		case http.MethodDelete:
			s.handleDeleteSession(w, r, id)
		default:
			methodNotAllowed(w)
		}
		return
	}

	if len(parts) == 2 && r.Method == http.MethodPost {
		switch parts[1] {
		case "messages":
			s.handleSendTurn(w, r, id)
			return
		case "resume":
			s.handleResumeSession(w, r, id)
			return
		}
	}

	if len(parts) == 4 && parts[1] == "messages" && parts[3] == "voice" && r.Method == http.MethodPost {
		s.handlePlayVoice(w, r, id, domain.MessageID(parts[2]))
		return
	}

	http.NotFound(w, r)
}

// ─────────────────────────────────────────────
// Concrete handlers
// ─────────────────────────────────────────────

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Character) == "" {
		badRequest(w, "character is required")
		return
	}
	if strings.TrimSpace(req.Date) == "" {
		badRequest(w, "date is required")
		return
	}

	cfg := domain.SessionConfig{
		Character:   req.Character,
		Date:        req.Date,
		VoiceGender: domain.VoiceGender(req.VoiceGender),
	}
	if cfg.VoiceGender == "" {
		cfg.VoiceGender = domain.VoiceMale
	}

	sess, err := s.engine.StartSession(r.Context(), cfg)
	if err != nil {
		internalError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toSessionResponse(sess))
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	recs := s.engine.Store().ListSessions(r.Context())

	out := make([]sessionSummary, 0, len(recs))
	for _, rec := range recs {
		out = append(out, sessionSummary{
			ID:           string(rec.ID),
			Character:    rec.Config.Character,
			Date:         rec.Config.Date,
			Blocks:       len(rec.Messages),
			LastModified: rec.LastModified,
		})
	}

	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request, id domain.SessionID) {
	sess, err := s.engine.Store().GetSession(id)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			http.NotFound(w, r)
			return
		}
		internalError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toSessionResponse(sess))
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request, id domain.SessionID) {
	if err := s.engine.Store().DeleteSession(r.Context(), id); err != nil {
		internalError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleResumeSession(w http.ResponseWriter, r *http.Request, id domain.SessionID) {
	recs := s.engine.Store().ListSessions(r.Context())

	var target *domain.SessionRecord
	for _, rec := range recs {
		if rec.ID == id {
			target = rec
			break
		}
	}
	if target == nil {
		http.NotFound(w, r)
		return
	}

	sess, err := s.engine.ResumeSession(r.Context(), target)
	if err != nil {
		internalError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toSessionResponse(sess))
}

func (s *Server) handleSendTurn(w http.ResponseWriter, r *http.Request, id domain.SessionID) {
	var req sendTurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		badRequest(w, "text is required")
		return
	}

	userMsg, personaMsg, err := s.engine.SendTurn(r.Context(), id, req.Text)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			http.NotFound(w, r)
			return
		}
		internalError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sendTurnResponse{
		UserMessage:    toMessageResponse(userMsg),
		PersonaMessage: toMessageResponse(personaMsg),
	})
}

func (s *Server) handlePlayVoice(w http.ResponseWriter, r *http.Request, id domain.SessionID, messageID domain.MessageID) {
	if err := s.engine.PlayVoice(r.Context(), id, messageID); err != nil {
		if errors.Is(err, session.ErrSessionNotFound) || errors.Is(err, session.ErrMessageNotFound) {
			http.NotFound(w, r)
			return
		}
		internalError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, playVoiceResponse{
		MessageID: string(messageID),
		Playing:   s.engine.ActiveAudio() == string(messageID),
	})
}

func (s *Server) handleStopAudio(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	s.engine.StopAudio()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var req transcribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if req.Payload == "" {
		badRequest(w, "payload is required")
		return
	}

	text, err := s.engine.Transcribe(r.Context(), req.Payload)
	if err != nil {
		internalError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, transcribeResponse{Text: text})
}

func (s *Server) handleLifespan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	character := r.URL.Query().Get("character")
	if character == "" {
		badRequest(w, "character is required")
		return
	}

	lifespan, err := s.engine.LookupLifespan(r.Context(), character)
	if err != nil {
		internalError(w, err)
		return
	}
	if lifespan == nil {
		http.NotFound(w, r)
		return
	}

	writeJSON(w, http.StatusOK, lifespanResponse{
		BirthYear: lifespan.BirthYear,
		DeathYear: lifespan.DeathYear,
		Gender:    string(lifespan.Gender),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ─────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────

func toSessionResponse(sess *domain.Session) sessionResponse {
	return sessionResponse{
		ID:           string(sess.ID),
		Character:    sess.Config.Character,
		Date:         sess.Config.Date,
		VoiceGender:  string(sess.Config.VoiceGender),
		Messages:     toMessagesResponse(sess.Messages),
		LastModified: sess.LastModified,
	}
}

func toMessageResponse(m *domain.Message) messageResponse {
	return messageResponse{
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

func toMessagesResponse(msgs []*domain.Message) []messageResponse {
	out := make([]messageResponse, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, toMessageResponse(m))
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func badRequest(w http.ResponseWriter, msg string) {
	http.Error(w, msg, http.StatusBadRequest)
}

func methodNotAllowed(w http.ResponseWriter) {
	http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
}

func internalError(w http.ResponseWriter, err error) {
	http.Error(w, err.Error(), http.StatusInternalServerError)
}
