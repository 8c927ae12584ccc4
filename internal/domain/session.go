package domain

// SessionSettings holds the persisted configuration of a named conversation.
// The session name is the storage key, not a field; it is immutable once the
// session is created.
type SessionSettings struct {
	ModelName    string `json:"modelName"`
	Streaming    bool   `json:"streaming"`
	SystemPrompt string `json:"systemPrompt,omitempty"`
}

// SessionPatch is a partial update of session settings. Nil fields are left
// unchanged by an update.
type SessionPatch struct {
	ModelName    *string
	Streaming    *bool
	SystemPrompt *string
}

// Apply merges the patch into s field by field.
func (p SessionPatch) Apply(s *SessionSettings) {
	if p.ModelName != nil {
		s.ModelName = *p.ModelName
	}
	if p.Streaming != nil {
		s.Streaming = *p.Streaming
	}
	if p.SystemPrompt != nil {
		s.SystemPrompt = *p.SystemPrompt
	}
}
