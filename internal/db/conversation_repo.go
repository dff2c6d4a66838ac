package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Conversation is one connect/disconnect span of an agent session.
type Conversation struct {
	ID               string     `json:"id"`
	SessionID        string     `json:"session_id"`
	AgentID          string     `json:"agent_id"`
	Cwd              string     `json:"cwd,omitempty"`
	CredentialSource string     `json:"credential_source,omitempty"`
	ConnectedAt      time.Time  `json:"connected_at"`
	DisconnectedAt   *time.Time `json:"disconnected_at,omitempty"`
}

type ConversationRepo struct {
	db *sql.DB
}

func NewConversationRepo(db *sql.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

// RecordConnect inserts a new conversation row for the session.
func (r *ConversationRepo) RecordConnect(ctx context.Context, sessionID, agentID, cwd, source string) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO conversations (id, session_id, agent_id, cwd, credential_source, connected_at)
VALUES (?, ?, ?, ?, ?, ?)
`, uuid.NewString(), sessionID, agentID, cwd, source, formatTimestamp(nowUTC()))
	if err != nil {
		return fmt.Errorf("failed to record conversation for session %q: %w", sessionID, err)
	}
	return nil
}

// RecordDisconnect stamps the session's conversation as ended. Unknown
// sessions are a no-op.
func (r *ConversationRepo) RecordDisconnect(ctx context.Context, sessionID string) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE conversations SET disconnected_at = ? WHERE session_id = ? AND disconnected_at IS NULL
`, formatTimestamp(nowUTC()), sessionID)
	if err != nil {
		return fmt.Errorf("failed to close conversation for session %q: %w", sessionID, err)
	}
	return nil
}

// Get returns the conversation for a session id, or nil if none exists.
func (r *ConversationRepo) Get(ctx context.Context, sessionID string) (*Conversation, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, session_id, agent_id, cwd, credential_source, connected_at, disconnected_at
FROM conversations
WHERE session_id = ?
`, sessionID)

	c, err := scanConversation(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get conversation for session %q: %w", sessionID, err)
	}
	return c, nil
}

// Recent lists the most recently started conversations, newest first.
func (r *ConversationRepo) Recent(ctx context.Context, limit int) ([]*Conversation, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT id, session_id, agent_id, cwd, credential_source, connected_at, disconnected_at
FROM conversations
ORDER BY connected_at DESC
LIMIT ?
`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	var out []*Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate conversations: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConversation(row rowScanner) (*Conversation, error) {
	var c Conversation
	var connectedRaw string
	var disconnectedRaw sql.NullString

	if err := row.Scan(&c.ID, &c.SessionID, &c.AgentID, &c.Cwd, &c.CredentialSource, &connectedRaw, &disconnectedRaw); err != nil {
		return nil, err
	}

	var err error
	c.ConnectedAt, err = parseTimestamp(connectedRaw)
	if err != nil {
		return nil, err
	}
	if disconnectedRaw.Valid {
		ts, err := parseTimestamp(disconnectedRaw.String)
		if err != nil {
			return nil, err
		}
		c.DisconnectedAt = &ts
	}
	return &c, nil
}

func nowUTC() time.Time {
	return time.Now().UTC()
}

func formatTimestamp(ts time.Time) string {
	if ts.IsZero() {
		ts = nowUTC()
	}
	return ts.UTC().Format(time.RFC3339)
}

func parseTimestamp(v string) (time.Time, error) {
	ts, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse timestamp %q: %w", v, err)
	}
	return ts, nil
}
