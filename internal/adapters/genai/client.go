// Package genai implements every remote collaborator of the conversation
// engine on top of the Gemini API: chat turns, image generation, speech
// synthesis, transcription and lifespan lookup.
package genai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync"

	"google.golang.org/genai"

	"github.com/chronoslabs/chronos-engine/internal/domain"
)

// ModelConfig names the models used per capability.
type ModelConfig struct {
	ChatModel   string
	ImageModel  string
	SpeechModel string
}

// Client talks to Gemini. One client serves one active chat at a time,
// matching the single-active-session assumption of the engine.
type Client struct {
	client *genai.Client
	models ModelConfig

	mu      sync.Mutex
	system  *genai.Content
	history []*genai.Content
}

// NewClient creates a Gemini client against Vertex AI.
func NewClient(ctx context.Context, projectID, location string, models ModelConfig) (*Client, error) {
	if projectID == "" || location == "" {
		return nil, fmt.Errorf("project and location must be set")
	}
	if models.ChatModel == "" {
		models.ChatModel = "gemini-2.5-flash"
	}
	if models.ImageModel == "" {
		models.ImageModel = "gemini-2.5-flash-image"
	}
	if models.SpeechModel == "" {
		models.SpeechModel = "gemini-2.5-flash-preview-tts"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  projectID,
		Location: location,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating Gemini client: %w", err)
	}

	return &Client{client: client, models: models}, nil
}

// InitializeChat resets the chat history and installs the persona system
// instruction for one session.
func (c *Client) InitializeChat(_ context.Context, character, date string, lang domain.Language) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.system = genai.NewContentFromText(buildSystemPrompt(character, date, lang), genai.RoleUser)
	c.history = nil
	return nil
}

// SendTurn sends one user utterance and returns the raw reply text,
// directives included.
func (c *Client) SendTurn(ctx context.Context, text string) (string, error) {
	c.mu.Lock()
	if c.system == nil {
		c.mu.Unlock()
		return "", fmt.Errorf("chat not initialized")
	}
	contents := make([]*genai.Content, len(c.history), len(c.history)+1)
	copy(contents, c.history)
	contents = append(contents, genai.NewContentFromText(text, genai.RoleUser))
	system := c.system
	c.mu.Unlock()

	temp := float32(0.9)
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: system,
		Temperature:       &temp,
	}

	res, err := c.client.Models.GenerateContent(ctx, c.models.ChatModel, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}

	raw := res.Text()
	if raw == "" {
		return "", fmt.Errorf("gemini returned empty text")
	}

	c.mu.Lock()
	c.history = append(c.history,
		genai.NewContentFromText(text, genai.RoleUser),
		genai.NewContentFromText(raw, genai.RoleModel),
	)
	c.mu.Unlock()

	return raw, nil
}

// GenerateImage renders a scene prompt and returns a data-URL image
// reference, or nil when the model produced no image.
func (c *Client) GenerateImage(ctx context.Context, prompt string) (*string, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(prompt+imagePromptSuffix, genai.RoleUser),
	}

	res, err := c.client.Models.GenerateContent(ctx, c.models.ImageModel, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("gemini generate image: %w", err)
	}

	for _, cand := range res.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				ref := fmt.Sprintf("data:%s;base64,%s",
					part.InlineData.MIMEType,
					base64.StdEncoding.EncodeToString(part.InlineData.Data))
				return &ref, nil
			}
		}
	}
	return nil, nil
}

// GenerateSpeech synthesizes text as a base64 raw PCM payload, or nil when
// the model produced no audio.
func (c *Client) GenerateSpeech(ctx context.Context, text string, gender domain.VoiceGender) (*string, error) {
	voiceName := "Kore"
	if gender == domain.VoiceMale {
		voiceName = "Charon"
	}

	cfg := &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: voiceName},
			},
		},
	}

	contents := []*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}

	res, err := c.client.Models.GenerateContent(ctx, c.models.SpeechModel, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini generate speech: %w", err)
	}

	for _, cand := range res.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				payload := base64.StdEncoding.EncodeToString(part.InlineData.Data)
				return &payload, nil
			}
		}
	}
	return nil, nil
}

// Transcribe sends a base64 PCM payload for transcription.
func (c *Client) Transcribe(ctx context.Context, payload string, lang domain.Language) (*string, error) {
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("invalid audio payload: %w", err)
	}

	prompt := fmt.Sprintf(
		"Transcribe this audio verbatim. The speaker is most likely speaking %s. Return only the transcription, nothing else.",
		languageName(lang),
	)

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(data, "audio/wav"),
			genai.NewPartFromText(prompt),
		}, genai.RoleUser),
	}

	res, err := c.client.Models.GenerateContent(ctx, c.models.ChatModel, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("gemini transcribe: %w", err)
	}

	text := res.Text()
	if text == "" {
		return nil, nil
	}
	return &text, nil
}

// LookupLifespan queries birth/death years and gender for a character using
// a constrained JSON response.
func (c *Client) LookupLifespan(ctx context.Context, character string) (*domain.Lifespan, error) {
	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"birthYear": {Type: genai.TypeInteger},
				"deathYear": {Type: genai.TypeInteger},
				"gender":    {Type: genai.TypeString, Enum: []string{"MALE", "FEMALE"}},
			},
			Required: []string{"birthYear", "deathYear", "gender"},
		},
	}

	contents := []*genai.Content{
		genai.NewContentFromText(fmt.Sprintf(lifespanPromptTemplate, character), genai.RoleUser),
	}

	res, err := c.client.Models.GenerateContent(ctx, c.models.ChatModel, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini lifespan lookup: %w", err)
	}

	text := res.Text()
	if text == "" || text == "null" {
		return nil, nil
	}

	var out struct {
		BirthYear int    `json:"birthYear"`
		DeathYear int    `json:"deathYear"`
		Gender    string `json:"gender"`
	}
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return nil, fmt.Errorf("decode lifespan response: %w", err)
	}

	return &domain.Lifespan{
		BirthYear: out.BirthYear,
		DeathYear: out.DeathYear,
		Gender:    domain.VoiceGender(out.Gender),
	}, nil
}
