package session

import (
	contractx "github.com/marcovalle/ventia/assistant/contract"
)

// Session holds one conversation's ordered message history. history[0] is
// always the fixed system instruction; the history is append-only until the
// session is ended. A Session must only be touched while its store lock is
// held (see Store.Acquire).
type Session struct {
	id      string
	history []contractx.Message
}

func newSession(id, systemPrompt string) *Session {
	return &Session{
		id:      id,
		history: []contractx.Message{contractx.NewSystemMessage(systemPrompt)},
	}
}

func (s *Session) ID() string {
	return s.id
}

// Append adds a message to the end of the history.
func (s *Session) Append(msg contractx.Message) {
	s.history = append(s.history, msg)
}

// History returns a copy of the current history.
func (s *Session) History() []contractx.Message {
	cp := make([]contractx.Message, len(s.history))
	copy(cp, s.history)
	return cp
}

func (s *Session) Len() int {
	return len(s.history)
}
