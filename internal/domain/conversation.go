package domain

// Message represents one entry in a session's timeline (user or persona).
type Message struct {
	ID        MessageID
	Role      Role
	Text      string
	CreatedAt Timestamp

	// Extracted by the protocol parser, nil when the reply carried no directive.
	ScenePrompt     *string
	LocationContext *string

	// Image enrichment state. ImagePending is true from the moment a scene
	// prompt is extracted until the enrichment resolves, success or failure.
	ImageRef     *string
	ImagePending bool

	// AudioPayload caches a synthesized voice clip for this exact text.
	// Once set it is never regenerated and never persisted.
	AudioPayload *string
}

// SessionConfig is the persona setup a session was started with.
type SessionConfig struct {
	Character   string
	Date        string
	VoiceGender VoiceGender
}

// Session is one conversation: its config and ordered message log.
// The session store owns Messages exclusively once a message is appended.
type Session struct {
	ID           SessionID
	Config       SessionConfig
	Messages     []*Message
	LastModified Timestamp
}

// Clone returns a deep copy of the session, suitable for handing outside
// the store without losing ownership of the live message slice.
func (s *Session) Clone() *Session {
	cp := &Session{
		ID:           s.ID,
		Config:       s.Config,
		LastModified: s.LastModified,
		Messages:     make([]*Message, len(s.Messages)),
	}
	for i, m := range s.Messages {
		mc := *m
		cp.Messages[i] = &mc
	}
	return cp
}

// MessagePatch is a partial in-place update of a message. Nil fields are
// left untouched.
type MessagePatch struct {
	ImageRef     *string
	ImagePending *bool
	AudioPayload *string
}

// Apply merges the patch into the message.
func (p MessagePatch) Apply(m *Message) {
	if p.ImageRef != nil {
		m.ImageRef = p.ImageRef
	}
	if p.ImagePending != nil {
		m.ImagePending = *p.ImagePending
	}
	if p.AudioPayload != nil {
		m.AudioPayload = p.AudioPayload
	}
}

// Lifespan is the structured result of a character lifespan lookup,
// used by the setup flow to pre-seed a target date and voice gender.
type Lifespan struct {
	BirthYear int
	DeathYear int
	Gender    VoiceGender
}
