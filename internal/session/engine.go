package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/chronoslabs/chronos-engine/internal/audio"
	"github.com/chronoslabs/chronos-engine/internal/domain"
	"github.com/chronoslabs/chronos-engine/internal/enrich"
	"github.com/chronoslabs/chronos-engine/internal/metrics"
	"github.com/chronoslabs/chronos-engine/internal/observability"
	"github.com/chronoslabs/chronos-engine/internal/protocol"
)

// Engine drives conversations: it feeds user turns to the chat backend,
// parses the reply protocol, keeps the session store current and hands
// media work to the playback controller and the enrichment orchestrator.
type Engine struct {
	backend  domain.ChatBackend
	speech   domain.SpeechSynthesizer
	stt      domain.Transcriber
	lifespan domain.LifespanOracle

	store    *Store
	enricher *enrich.Orchestrator
	player   *audio.Player
	recorder *audio.Recorder

	lang domain.Language
	met  *metrics.Metrics
	now  func() time.Time
}

// EngineDeps bundles the collaborators the engine is wired with.
type EngineDeps struct {
	Backend  domain.ChatBackend
	Speech   domain.SpeechSynthesizer
	STT      domain.Transcriber
	Lifespan domain.LifespanOracle

	Store    *Store
	Enricher *enrich.Orchestrator
	Player   *audio.Player
	Recorder *audio.Recorder

	Language domain.Language
	Metrics  *metrics.Metrics
}

// NewEngine wires a conversation engine.
func NewEngine(deps EngineDeps) *Engine {
	lang := deps.Language
	if lang == "" {
		lang = domain.LangSpanish
	}
	return &Engine{
		backend:  deps.Backend,
		speech:   deps.Speech,
		stt:      deps.STT,
		lifespan: deps.Lifespan,
		store:    deps.Store,
		enricher: deps.Enricher,
		player:   deps.Player,
		recorder: deps.Recorder,
		lang:     lang,
		met:      deps.Metrics,
		now:      time.Now,
	}
}

// Store exposes the session store for directory operations.
func (e *Engine) Store() *Store { return e.store }

// Visuals exposes the enrichment orchestrator's current visual pointer.
func (e *Engine) Visuals() *enrich.Orchestrator { return e.enricher }

// StartSession initializes the persona simulation and seeds the log with
// the persona's greeting. Initialization failure is fatal to the session.
func (e *Engine) StartSession(ctx context.Context, cfg domain.SessionConfig) (*domain.Session, error) {
	log := observability.LoggerFromContext(ctx).With(
		"character", cfg.Character,
		"date", cfg.Date,
	)
	log.Info("starting new session")

	if err := e.backend.InitializeChat(ctx, cfg.Character, cfg.Date, e.lang); err != nil {
		log.Error("failed to initialize chat", "error", err)
		return nil, fmt.Errorf("session initialization failed: %w", err)
	}

	sess := e.store.CreateSession(cfg)

	greeting := fmt.Sprintf(
		"(SYSTEM: Anomaly detected. A user from the future has appeared. React with shock and authentic confusion as %s in %s.)",
		cfg.Character, cfg.Date,
	)

	if _, err := e.personaTurn(ctx, sess.ID, greeting, true); err != nil {
		log.Error("failed to obtain greeting", "error", err)
		e.store.Evict(sess.ID)
		return nil, fmt.Errorf("session initialization failed: %w", err)
	}

	if e.met != nil {
		e.met.SessionsStarted.Inc()
	}
	log.Info("session started", "session_id", sess.ID)

	return e.store.GetSession(sess.ID)
}

// ResumeSession loads a saved session, re-initializes the chat backend with
// its config and recomputes the latest visual pointer.
func (e *Engine) ResumeSession(ctx context.Context, rec *domain.SessionRecord) (*domain.Session, error) {
	if err := e.backend.InitializeChat(ctx, rec.Config.Character, rec.Config.Date, e.lang); err != nil {
		return nil, fmt.Errorf("session initialization failed: %w", err)
	}

	sess := e.store.Adopt(rec)

	// Latest message with an image or a scene prompt becomes the visual.
	e.enricher.SetVisual(nil)
	for i := len(sess.Messages) - 1; i >= 0; i-- {
		m := sess.Messages[i]
		if m.ImageRef != nil || m.ScenePrompt != nil {
			e.enricher.SetVisual(m)
			break
		}
	}

	observability.LoggerFromContext(ctx).Info("session resumed",
		"session_id", sess.ID, "message_count", len(sess.Messages))

	return sess, nil
}

// SendTurn appends the user's utterance, obtains the persona's reply and
// launches image enrichment when the reply carries a scene directive. A
// backend failure leaves the log as it was after the user append; the user
// may retry by sending again.
func (e *Engine) SendTurn(ctx context.Context, sessionID domain.SessionID, text string) (*domain.Message, *domain.Message, error) {
	log := observability.LoggerFromContext(ctx).With("session_id", sessionID)

	// A new turn silences any active voice clip.
	e.player.Stop()

	userMsg := &domain.Message{
		ID:        domain.MessageID(uuid.NewString()),
		Role:      domain.RoleUser,
		Text:      text,
		CreatedAt: e.now(),
	}
	if err := e.store.AppendMessage(ctx, sessionID, userMsg); err != nil {
		return nil, nil, err
	}

	personaMsg, err := e.personaTurn(ctx, sessionID, text, false)
	if err != nil {
		if e.met != nil {
			e.met.TurnFailures.Inc()
		}
		log.Error("turn failed", "error", err)
		return userMsg, nil, err
	}

	if e.met != nil {
		e.met.TurnsSent.Inc()
	}
	log.Info("turn completed", "message_id", personaMsg.ID)

	return userMsg, personaMsg, nil
}

// personaTurn sends one prompt to the backend, parses the reply and appends
// the persona message, launching enrichment for a scene directive. The
// greeting turn always becomes the visual; later turns only when they carry
// a scene.
func (e *Engine) personaTurn(ctx context.Context, sessionID domain.SessionID, prompt string, alwaysVisual bool) (*domain.Message, error) {
	raw, err := e.backend.SendTurn(ctx, prompt)
	if err != nil {
		return nil, err
	}

	reply := protocol.Parse(raw)
	hasScene := reply.ScenePrompt != nil && *reply.ScenePrompt != ""

	msg := &domain.Message{
		ID:              domain.MessageID(uuid.NewString()),
		Role:            domain.RolePersona,
		Text:            reply.CleanText,
		CreatedAt:       e.now(),
		ScenePrompt:     reply.ScenePrompt,
		LocationContext: reply.LocationContext,
		ImagePending:    hasScene,
	}

	if err := e.store.AppendMessage(ctx, sessionID, msg); err != nil {
		return nil, err
	}

	if hasScene || alwaysVisual {
		e.enricher.SetVisual(msg)
	}
	if hasScene {
		e.enricher.Enrich(ctx, sessionID, msg.ID, *reply.ScenePrompt)
	}

	return msg, nil
}

// PlayVoice plays the voice clip for a message, synthesizing it on first
// use and caching the payload on the message thereafter. Playing the
// message that is already audible stops it. A synthesis miss degrades
// silently; the next press tries again.
func (e *Engine) PlayVoice(ctx context.Context, sessionID domain.SessionID, messageID domain.MessageID) error {
	log := observability.LoggerFromContext(ctx).With(
		"session_id", sessionID,
		"message_id", messageID,
	)

	sess, err := e.store.GetSession(sessionID)
	if err != nil {
		return err
	}

	var msg *domain.Message
	for _, m := range sess.Messages {
		if m.ID == messageID {
			msg = m
			break
		}
	}
	if msg == nil {
		return fmt.Errorf("%w: %s", ErrMessageNotFound, messageID)
	}

	payload := msg.AudioPayload
	if payload == nil {
		synthesized, err := e.speech.GenerateSpeech(ctx, msg.Text, sess.Config.VoiceGender)
		if err != nil {
			log.Warn("speech synthesis failed", "error", err)
			return err
		}
		if synthesized == nil {
			log.Warn("speech synthesis returned no audio")
			return nil
		}
		if e.met != nil {
			e.met.SpeechSyntheses.Inc()
		}
		payload = synthesized
		// Cached for this exact text, never regenerated. The persist
		// triggered here strips the payload before writing.
		if err := e.store.PatchMessage(ctx, sessionID, messageID, domain.MessagePatch{AudioPayload: payload}); err != nil {
			return err
		}
	}

	if err := e.player.Play(ctx, string(messageID), *payload); err != nil {
		if e.met != nil {
			e.met.PlaybackErrors.Inc()
		}
		return err
	}
	if e.met != nil && e.player.ActiveID() == string(messageID) {
		e.met.PlaybackStarts.Inc()
	}
	return nil
}

// StopAudio stops any active playback.
func (e *Engine) StopAudio() {
	e.player.Stop()
}

// ActiveAudio returns the id of the message currently audible, or "".
func (e *Engine) ActiveAudio() string {
	return e.player.ActiveID()
}

// StartCapture opens the microphone capture session.
func (e *Engine) StartCapture(ctx context.Context) error {
	if e.recorder == nil {
		return fmt.Errorf("no capture device configured")
	}
	return e.recorder.Start(ctx)
}

// StopCapture closes the capture session and transcribes the recording.
// A nil result means the transcription collaborator declined.
func (e *Engine) StopCapture(ctx context.Context) (*string, error) {
	if e.recorder == nil {
		return nil, fmt.Errorf("no capture device configured")
	}
	payload, err := e.recorder.Stop(ctx)
	if err != nil {
		return nil, err
	}
	return e.Transcribe(ctx, payload)
}

// Transcribe hands a base64 audio payload to the transcription collaborator.
func (e *Engine) Transcribe(ctx context.Context, payload string) (*string, error) {
	if e.met != nil {
		e.met.Transcriptions.Inc()
	}
	return e.stt.Transcribe(ctx, payload, e.lang)
}

// LookupLifespan queries birth/death years and gender for a character.
func (e *Engine) LookupLifespan(ctx context.Context, character string) (*domain.Lifespan, error) {
	return e.lifespan.LookupLifespan(ctx, character)
}

// ExitSession stops audio and drops the in-memory session state. The
// durable record is untouched.
func (e *Engine) ExitSession(sessionID domain.SessionID) {
	e.player.Stop()
	e.enricher.SetVisual(nil)
	e.store.Evict(sessionID)
}
