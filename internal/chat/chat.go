// Package chat runs the assistant conversation sessions. A session owns
// its transcript; while a reply stream is in flight further sends are
// dropped, and a failed stream is replaced by a fixed apology so the
// transcript never ends mid-sentence.
package chat

import (
	"context"
	"sync"

	"github.com/ajayprojects/portal/pkg/models"
	"github.com/rs/zerolog/log"
)

const (
	greeting = "Hello! I'm the Ajay Projects AI Assistant. How can I help with your construction planning today?"
	apology  = "I'm experiencing a high load. Please try again shortly."
)

// Streamer produces assistant replies as a stream of text deltas.
type Streamer interface {
	StreamChat(ctx context.Context, history []models.ChatMessage, text string, onDelta func(delta string)) (string, error)
}

// Session is one client conversation.
type Session struct {
	mu       sync.Mutex
	id       string
	streamer Streamer
	messages []models.ChatMessage
	typing   bool
}

// NewSession starts a conversation seeded with the assistant greeting.
func NewSession(id string, streamer Streamer) *Session {
	return &Session{
		id:       id,
		streamer: streamer,
		messages: []models.ChatMessage{{Role: models.RoleAssistant, Text: greeting}},
	}
}

// Messages returns a copy of the transcript.
func (s *Session) Messages() []models.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ChatMessage, len(s.messages))
	copy(out, s.messages)
	return out
}

// Typing reports whether a reply stream is in flight.
func (s *Session) Typing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.typing
}

// Send submits a user message and streams the reply, forwarding each delta
// to onDelta. While a previous reply is still streaming the send is dropped
// silently and Send returns false. Blank messages are dropped too.
func (s *Session) Send(ctx context.Context, text string, onDelta func(delta string)) bool {
	if text == "" {
		return false
	}

	s.mu.Lock()
	if s.typing {
		s.mu.Unlock()
		return false
	}
	s.typing = true
	history := make([]models.ChatMessage, len(s.messages))
	copy(history, s.messages)
	s.messages = append(s.messages,
		models.ChatMessage{Role: models.RoleUser, Text: text},
		models.ChatMessage{Role: models.RoleAssistant, Text: ""},
	)
	s.mu.Unlock()

	_, err := s.streamer.StreamChat(ctx, history, text, func(delta string) {
		s.mu.Lock()
		s.messages[len(s.messages)-1].Text += delta
		s.mu.Unlock()
		if onDelta != nil {
			onDelta(delta)
		}
	})

	s.mu.Lock()
	if err != nil {
		// Whatever partial text arrived is replaced by the apology so the
		// transcript never ends mid-sentence.
		s.messages[len(s.messages)-1].Text = apology
		log.Warn().Err(err).Str("session", s.id).Msg("Chat stream failed")
	}
	s.typing = false
	s.mu.Unlock()

	if err != nil && onDelta != nil {
		onDelta(apology)
	}
	return true
}

// Manager hands out one session per client.
type Manager struct {
	mu       sync.Mutex
	streamer Streamer
	sessions map[string]*Session
}

func NewManager(streamer Streamer) *Manager {
	return &Manager{
		streamer: streamer,
		sessions: make(map[string]*Session),
	}
}

// Session returns the client's conversation, creating it on first use.
func (m *Manager) Session(clientID string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[clientID]
	if !ok {
		s = NewSession(clientID, m.streamer)
		m.sessions[clientID] = s
	}
	return s
}
