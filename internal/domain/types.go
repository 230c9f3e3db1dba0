package domain

import "time"

type SessionID string
type MessageID string

type Role string

const (
	RoleUser    Role = "user"
	RolePersona Role = "persona"
)

type VoiceGender string

const (
	VoiceMale   VoiceGender = "MALE"
	VoiceFemale VoiceGender = "FEMALE"
)

// Language is a two-letter UI language code supported by the simulation.
type Language string

const (
	LangSpanish  Language = "es"
	LangEnglish  Language = "en"
	LangFrench   Language = "fr"
	LangGerman   Language = "de"
	LangJapanese Language = "ja"
)

type Timestamp = time.Time
