// Package backend provides a deterministic offline implementation of every
// remote collaborator, useful for local development and tests.
package backend

import (
	"context"
	"fmt"
	"sync"

	"github.com/chronoslabs/chronos-engine/internal/audio"
	"github.com/chronoslabs/chronos-engine/internal/domain"
)

// Mock implements ChatBackend, ImageGenerator, SpeechSynthesizer,
// Transcriber and LifespanOracle without network access.
type Mock struct {
	mu        sync.Mutex
	character string
	date      string
	turns     int
}

func NewMock() *Mock {
	return &Mock{}
}

func (m *Mock) InitializeChat(_ context.Context, character, date string, _ domain.Language) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.character = character
	m.date = date
	m.turns = 0
	return nil
}

func (m *Mock) SendTurn(_ context.Context, text string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.character == "" {
		return "", fmt.Errorf("chat not initialized")
	}
	m.turns++
	return fmt.Sprintf(
		"Who goes there? You speak strangely for %s.\n[[SCENE: %s startled in a dim study, %s, candle light, photorealistic, 8k]]\n[[CONTEXT: Unknown Chamber | %s | Night]]",
		m.date, m.character, m.date, m.date,
	), nil
}

func (m *Mock) GenerateImage(_ context.Context, prompt string) (*string, error) {
	ref := "mock://image/" + fmt.Sprintf("%d", len(prompt))
	return &ref, nil
}

func (m *Mock) GenerateSpeech(_ context.Context, text string, _ domain.VoiceGender) (*string, error) {
	// A silent clip of at least one second keeps playback observable.
	n := len(text) * 256
	if n < audio.DefaultSampleRate {
		n = audio.DefaultSampleRate
	}
	payload := audio.EncodePayload(make([]int16, n))
	return &payload, nil
}

func (m *Mock) Transcribe(_ context.Context, _ string, _ domain.Language) (*string, error) {
	text := "mock transcription"
	return &text, nil
}

func (m *Mock) LookupLifespan(_ context.Context, character string) (*domain.Lifespan, error) {
	if character == "" {
		return nil, nil
	}
	return &domain.Lifespan{BirthYear: 1769, DeathYear: 1821, Gender: domain.VoiceMale}, nil
}
