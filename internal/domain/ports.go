package domain

import "context"

// ChatBackend defines how the engine talks to the remote persona simulation.
type ChatBackend interface {
	// InitializeChat starts (or restarts) the persona simulation for one
	// session. It must be called before SendTurn.
	InitializeChat(ctx context.Context, character, date string, lang Language) error

	// SendTurn sends one user utterance and returns the raw reply text,
	// directives included.
	SendTurn(ctx context.Context, text string) (string, error)
}

// ImageGenerator produces an image reference for a scene prompt.
// A nil reference with a nil error means the service declined — best effort.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) (*string, error)
}

// SpeechSynthesizer renders text as a base64-encoded raw PCM voice clip.
type SpeechSynthesizer interface {
	GenerateSpeech(ctx context.Context, text string, gender VoiceGender) (*string, error)
}

// Transcriber turns a base64-encoded audio payload into text.
type Transcriber interface {
	Transcribe(ctx context.Context, payload string, lang Language) (*string, error)
}

// LifespanOracle looks up birth/death years and gender for a character.
type LifespanOracle interface {
	LookupLifespan(ctx context.Context, character string) (*Lifespan, error)
}

// SessionRecord is the durable shape of a session. Messages inside a record
// never carry audio payloads.
type SessionRecord struct {
	ID           SessionID
	Config       SessionConfig
	Messages     []*Message
	LastModified Timestamp
}

// HistoryStore defines durable persistence for session records. All records
// live in one collection under a fixed namespace; SaveSession replaces any
// prior record with the same id and never touches other sessions.
type HistoryStore interface {
	SaveSession(ctx context.Context, rec *SessionRecord) error
	ListSessions(ctx context.Context) ([]*SessionRecord, error)
	DeleteSession(ctx context.Context, id SessionID) error
}
