package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

// FileStore persists chat histories in a single JSON file, keyed by
// session ID. It is the fallback backend when no database is configured.
//
// A file lock guards against other processes; the mutex guards against
// goroutines in this one.
type FileStore struct {
	mu     sync.Mutex
	path   string
	lock   *flock.Flock
	logger *slog.Logger
}

var _ History = (*FileStore)(nil)

// NewFileStore creates a store at path, creating parent directories and an
// empty history file as needed.
func NewFileStore(path string, logger *slog.Logger) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := os.WriteFile(path, []byte("{}"), 0o600); err != nil {
			return nil, fmt.Errorf("initializing history file: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("checking history file: %w", err)
	}

	return &FileStore{
		path:   path,
		lock:   flock.New(path + ".lock"),
		logger: logger,
	}, nil
}

// withLock runs fn while holding both the in-process mutex and the
// cross-process file lock.
func (s *FileStore) withLock(ctx context.Context, fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	locked, err := s.lock.TryLockContext(ctx, 50*time.Millisecond)
	if err != nil {
		return fmt.Errorf("locking history file: %w", err)
	}
	if !locked {
		return errors.New("history file is locked by another process")
	}
	defer func() {
		if err := s.lock.Unlock(); err != nil {
			s.logger.Warn("unlocking history file", "error", err)
		}
	}()

	return fn()
}

// read loads the whole history map. A missing file is an empty history.
func (s *FileStore) read() (map[string]Chat, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]Chat{}, nil
		}
		return nil, fmt.Errorf("reading history file: %w", err)
	}

	chats := map[string]Chat{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &chats); err != nil {
			return nil, fmt.Errorf("decoding history file: %w", err)
		}
	}
	return chats, nil
}

// write atomically replaces the history file.
func (s *FileStore) write(chats map[string]Chat) error {
	raw, err := json.MarshalIndent(chats, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding history: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("writing history file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replacing history file: %w", err)
	}
	return nil
}

// LoadAll returns every stored chat. userID is ignored: the file store is
// single-user by construction.
func (s *FileStore) LoadAll(ctx context.Context, _ string) (map[string]Chat, error) {
	var chats map[string]Chat
	err := s.withLock(ctx, func() error {
		var err error
		chats, err = s.read()
		return err
	})
	return chats, err
}

// Save creates or replaces the message list of a session.
func (s *FileStore) Save(ctx context.Context, sessionID string, messages []Message, _ string, title string) error {
	return s.withLock(ctx, func() error {
		chats, err := s.read()
		if err != nil {
			return err
		}

		now := time.Now()
		chat, ok := chats[sessionID]
		if !ok {
			chat = Chat{
				Title:     autoTitle(title, messages),
				CreatedAt: now,
			}
		} else if chat.Title == DefaultTitle {
			// A placeholder title upgrades once a user message exists.
			chat.Title = autoTitle(title, messages)
		}
		chat.UpdatedAt = now
		chat.Messages = messages
		chats[sessionID] = chat

		return s.write(chats)
	})
}

// Delete removes one session.
func (s *FileStore) Delete(ctx context.Context, sessionID string) error {
	return s.withLock(ctx, func() error {
		chats, err := s.read()
		if err != nil {
			return err
		}
		if _, ok := chats[sessionID]; !ok {
			return fmt.Errorf("deleting session %s: %w", sessionID, ErrSessionNotFound)
		}
		delete(chats, sessionID)
		return s.write(chats)
	})
}

// DeleteAll empties the history file.
func (s *FileStore) DeleteAll(ctx context.Context, _ string) (bool, error) {
	err := s.withLock(ctx, func() error {
		return s.write(map[string]Chat{})
	})
	if err != nil {
		return false, err
	}
	return true, nil
}
