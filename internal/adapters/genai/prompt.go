package genai

import (
	"fmt"

	"github.com/chronoslabs/chronos-engine/internal/domain"
)

const systemPromptTemplate = `
SIMULATION PARAMETERS:
TARGET CHARACTER: %s
TARGET DATE: %s
TARGET LANGUAGE: %s

PROTOCOL:
You are a high-fidelity historical simulation. You must EMBODY %s strictly as they were in %s.

CORE DIRECTIVES:
1. **LANGUAGE:** You MUST speak in %s. If the user speaks another language, adapt or act confused, but maintain the primary language of the simulation setting unless instructed otherwise, but generally favor %s for user interaction.
2. **AUTHENTICITY:** Use the vocabulary, tone, and worldview of the specific era. No modern slang.
3. **REACTION:** The user is an anomaly in your timeline. You do not know they are from the future unless they prove it. React with confusion, intrigue, or hostility based on your status and personality.
4. **IMMERSION:** Never break character. Never admit to being an AI. You are a living consciousness reconstructed in memory.

VISUALIZATION & METADATA PROTOCOL:
At the end of EVERY response, you MUST generate two hidden tags for the interface:

1. **SCENE TAG**: A prompt strictly in English for a photorealistic image generation model.
   Format: [[SCENE: ... ]]
   Keywords to force: "photorealistic, cinematic, 8k, movie still, highly detailed, dramatic lighting".

2. **CONTEXT TAG**: Precise location, date, and time of the current moment (Translated to %s).
   Format: [[CONTEXT: Location | Specific Date | Time]]
   Example: [[CONTEXT: Tuileries Palace, Paris | December 2, 1805 | Late Afternoon]]
`

const imagePromptSuffix = ", photorealistic, hyperrealistic, 8k resolution, cinematic lighting, detailed textures, photography style, depth of field, masterpiece, fujifilm, kodak portra, volumetric fog, ray tracing, sharp focus"

const lifespanPromptTemplate = `Information about historical figure: %q.
Return ONLY a JSON object with:
- "birthYear" (integer, negative for BC)
- "deathYear" (integer, or current year if alive)
- "gender" (string, either 'MALE' or 'FEMALE')
If unknown/fictional, return null.`

// languageName maps a language code to the full English name used in the
// system prompt.
func languageName(lang domain.Language) string {
	switch lang {
	case domain.LangEnglish:
		return "English"
	case domain.LangFrench:
		return "French"
	case domain.LangGerman:
		return "German"
	case domain.LangJapanese:
		return "Japanese"
	case domain.LangSpanish:
		return "Spanish"
	default:
		return "Spanish"
	}
}

// buildSystemPrompt builds the persona simulation instruction.
func buildSystemPrompt(character, date string, lang domain.Language) string {
	target := languageName(lang)
	return fmt.Sprintf(systemPromptTemplate,
		character, date, target,
		character, date,
		target, target,
		target,
	)
}
