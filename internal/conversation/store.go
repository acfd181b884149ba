// Package conversation persists the append-only transcript of user and
// assistant turns, scoped by conversation id.
//
// Messages are never updated or deleted here; removing a whole conversation
// is an administrative operation outside this package.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of pgxpool.Pool the store needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Message is one transcript entry. Ordering by CreatedAt (equivalently by
// insertion order) is the conversation transcript.
type Message struct {
	ID             int64
	ConversationID uuid.UUID
	Role           string
	Content        string
	CreatedAt      time.Time
}

// Store manages conversations and messages in PostgreSQL.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	db     DB
	logger *slog.Logger
}

// NewStore creates a Store. logger may be nil.
func NewStore(db DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger}
}

// Create starts a new conversation and returns its id.
func (s *Store) Create(ctx context.Context) (uuid.UUID, error) {
	const sql = `INSERT INTO conversations DEFAULT VALUES RETURNING id`

	var id uuid.UUID
	if err := s.db.QueryRow(ctx, sql).Scan(&id); err != nil {
		return uuid.Nil, fmt.Errorf("creating conversation: %w", err)
	}

	s.logger.Debug("created conversation", "id", id)
	return id, nil
}

// Exists reports whether the conversation id is known.
func (s *Store) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	const sql = `SELECT 1 FROM conversations WHERE id = $1`

	var one int
	err := s.db.QueryRow(ctx, sql, id).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking conversation %s: %w", id, err)
	}
	return true, nil
}

// Append adds one turn to a conversation. Each call is a single atomic
// insert; the role must be RoleUser or RoleAssistant. An unknown
// conversation id yields ErrConversationNotFound.
func (s *Store) Append(ctx context.Context, conversationID uuid.UUID, role, content string) error {
	if role != RoleUser && role != RoleAssistant {
		return fmt.Errorf("role %q: %w", role, ErrInvalidRole)
	}

	const sql = `INSERT INTO messages (conversation_id, role, content) VALUES ($1, $2, $3)`

	if _, err := s.db.Exec(ctx, sql, conversationID, role, content); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return fmt.Errorf("conversation %s: %w", conversationID, ErrConversationNotFound)
		}
		return fmt.Errorf("appending %s message to %s: %w", role, conversationID, err)
	}
	return nil
}

// Messages returns up to limit transcript entries in insertion order.
func (s *Store) Messages(ctx context.Context, conversationID uuid.UUID, limit int) ([]Message, error) {
	const sql = `
		SELECT id, conversation_id, role, content, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at, id
		LIMIT $2`

	rows, err := s.db.Query(ctx, sql, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("loading messages of %s: %w", conversationID, err)
	}
	defer rows.Close()

	var msgs []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning message row: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating message rows: %w", err)
	}

	return msgs, nil
}
