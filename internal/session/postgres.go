package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists chat histories in the chat_sessions and
// chat_messages tables (see db/migrations).
//
// Safe for concurrent use; every Save runs in its own transaction.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

var _ History = (*PostgresStore)(nil)

// NewPostgresStore creates a store over an established pool.
func NewPostgresStore(pool *pgxpool.Pool, logger *slog.Logger) *PostgresStore {
	return &PostgresStore{pool: pool, logger: logger}
}

// Save creates the session row on first write, then replaces its message
// list wholesale. Replacing rather than appending keeps the stored state
// identical to the caller's view of the conversation.
func (s *PostgresStore) Save(ctx context.Context, sessionID string, messages []Message, userID, title string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && err != pgx.ErrTxClosed {
			s.logger.Debug("transaction rollback", "error", err)
		}
	}()

	var exists bool
	err = tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM chat_sessions WHERE session_id = $1)`,
		sessionID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("checking session: %w", err)
	}

	owner := nullableID(userID)
	if !exists {
		_, err = tx.Exec(ctx,
			`INSERT INTO chat_sessions (session_id, user_id, title) VALUES ($1, $2, $3)`,
			sessionID, owner, autoTitle(title, messages),
		)
		if err != nil {
			return fmt.Errorf("creating session: %w", err)
		}
	} else {
		_, err = tx.Exec(ctx,
			`UPDATE chat_sessions
			 SET updated_at = CURRENT_TIMESTAMP, user_id = COALESCE(user_id, $1)
			 WHERE session_id = $2`,
			owner, sessionID,
		)
		if err != nil {
			return fmt.Errorf("touching session: %w", err)
		}
	}

	if _, err = tx.Exec(ctx,
		`DELETE FROM chat_messages WHERE session_id = $1`, sessionID,
	); err != nil {
		return fmt.Errorf("clearing messages: %w", err)
	}

	for i, msg := range messages {
		if _, err = tx.Exec(ctx,
			`INSERT INTO chat_messages (session_id, role, content, sequence_number)
			 VALUES ($1, $2, $3, $4)`,
			sessionID, msg.Role, msg.Content, i,
		); err != nil {
			return fmt.Errorf("inserting message %d: %w", i, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing save: %w", err)
	}

	s.logger.Debug("saved chat", "session_id", sessionID, "messages", len(messages))
	return nil
}

// LoadAll returns every chat visible to userID, including unowned
// sessions so pre-login history stays reachable.
func (s *PostgresStore) LoadAll(ctx context.Context, userID string) (map[string]Chat, error) {
	query := `SELECT session_id, COALESCE(title, ''), created_at, updated_at
	          FROM chat_sessions ORDER BY updated_at DESC`
	args := []any{}
	if userID != "" {
		query = `SELECT session_id, COALESCE(title, ''), created_at, updated_at
		         FROM chat_sessions
		         WHERE user_id = $1 OR user_id IS NULL
		         ORDER BY updated_at DESC`
		args = append(args, userID)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	type sessionRow struct {
		id   string
		chat Chat
	}
	var sessions []sessionRow
	for rows.Next() {
		var row sessionRow
		var created, updated time.Time
		if err := rows.Scan(&row.id, &row.chat.Title, &created, &updated); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		row.chat.CreatedAt = created
		row.chat.UpdatedAt = updated
		sessions = append(sessions, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading sessions: %w", err)
	}

	chats := make(map[string]Chat, len(sessions))
	for _, row := range sessions {
		messages, err := s.loadMessages(ctx, row.id)
		if err != nil {
			return nil, err
		}
		row.chat.Messages = messages
		chats[row.id] = row.chat
	}

	s.logger.Debug("loaded chats", "count", len(chats))
	return chats, nil
}

func (s *PostgresStore) loadMessages(ctx context.Context, sessionID string) ([]Message, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT role, content FROM chat_messages
		 WHERE session_id = $1
		 ORDER BY sequence_number, created_at`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying messages for %s: %w", sessionID, err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var msg Message
		if err := rows.Scan(&msg.Role, &msg.Content); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading messages: %w", err)
	}
	return messages, nil
}

// Delete removes a session; its messages cascade.
func (s *PostgresStore) Delete(ctx context.Context, sessionID string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM chat_sessions WHERE session_id = $1`, sessionID,
	)
	if err != nil {
		return fmt.Errorf("deleting session %s: %w", sessionID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("deleting session %s: %w", sessionID, ErrSessionNotFound)
	}
	return nil
}

// DeleteAll purges every session of userID, or everything when userID is
// empty.
func (s *PostgresStore) DeleteAll(ctx context.Context, userID string) (bool, error) {
	var err error
	if userID != "" {
		_, err = s.pool.Exec(ctx, `DELETE FROM chat_sessions WHERE user_id = $1`, userID)
	} else {
		_, err = s.pool.Exec(ctx, `DELETE FROM chat_sessions`)
	}
	if err != nil {
		return false, fmt.Errorf("deleting sessions: %w", err)
	}
	return true, nil
}

// nullableID maps an empty user ID to SQL NULL.
func nullableID(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}
