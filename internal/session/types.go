// Package session persists chat histories. Two backends implement the
// History interface: PostgresStore for a configured database and FileStore
// as the local JSON fallback. The backend is chosen once at startup.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// DefaultTitle names sessions that have no user message to derive a title
// from.
const DefaultTitle = "Nouvelle discussion"

// TitleMaxRunes caps auto-generated titles before truncation.
const TitleMaxRunes = 30

// ErrSessionNotFound indicates the session ID does not exist.
var ErrSessionNotFound = errors.New("session not found")

// Message is one chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Chat is one stored conversation.
type Chat struct {
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Messages  []Message `json:"messages"`
}

// History is the persistence surface the chat loop needs. Implementations
// must be safe for concurrent use.
type History interface {
	// LoadAll returns every stored chat keyed by session ID, most
	// recently updated first when the caller sorts by UpdatedAt. An
	// empty userID loads all sessions.
	LoadAll(ctx context.Context, userID string) (map[string]Chat, error)

	// Save creates or replaces the message list of a session. An empty
	// title derives one from the first user message.
	Save(ctx context.Context, sessionID string, messages []Message, userID, title string) error

	// Delete removes one session and its messages.
	Delete(ctx context.Context, sessionID string) error

	// DeleteAll removes every session of userID, or every session when
	// userID is empty. Reports whether the purge ran.
	DeleteAll(ctx context.Context, userID string) (bool, error)
}

// NewSessionID generates a fresh session identifier.
func NewSessionID() string {
	return uuid.NewString()
}

// autoTitle picks the stored title for a session: the explicit title when
// given, else the first user message truncated to TitleMaxRunes, else the
// default.
func autoTitle(title string, messages []Message) string {
	if title != "" {
		return title
	}
	for _, msg := range messages {
		if msg.Role != RoleUser || msg.Content == "" {
			continue
		}
		runes := []rune(msg.Content)
		if len(runes) > TitleMaxRunes {
			return string(runes[:TitleMaxRunes]) + "..."
		}
		return msg.Content
	}
	return DefaultTitle
}
