// Package sqlstore implements storage.Driver on database/sql. The sqlite and
// postgres drivers share it and differ only in Dialect.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/papercomputeco/turntable/pkg/chat"
	"github.com/papercomputeco/turntable/pkg/storage"
)

// Dialect captures the few differences between SQL engines.
type Dialect int

const (
	// SQLite uses "?" placeholders.
	SQLite Dialect = iota

	// Postgres uses "$n" placeholders.
	Postgres
)

const schema = `
CREATE TABLE IF NOT EXISTS conversations (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL DEFAULT '',
	created_at BIGINT NOT NULL,
	updated_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS chat_rows (
	conversation_id TEXT NOT NULL REFERENCES conversations (id) ON DELETE CASCADE,
	id              TEXT NOT NULL,
	turn_id         TEXT NOT NULL,
	role            TEXT NOT NULL,
	type            TEXT NOT NULL DEFAULT '',
	content         TEXT NOT NULL,
	created_at      BIGINT NOT NULL,
	duration        DOUBLE PRECISION,
	seq             BIGINT NOT NULL,
	PRIMARY KEY (conversation_id, id)
);

CREATE INDEX IF NOT EXISTS chat_rows_conversation_seq ON chat_rows (conversation_id, seq);
`

// Store implements storage.Driver.
type Store struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

var _ storage.Driver = (*Store)(nil)

// New wraps db and creates the schema if needed. The Store owns db and
// closes it on Close.
func New(ctx context.Context, db *sql.DB, dialect Dialect) (*Store, error) {
	s := &Store{db: db, dialect: dialect, now: time.Now}

	for _, stmt := range strings.Split(schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	return s, nil
}

// DB exposes the underlying handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

// rebind rewrites "?" placeholders for the dialect.
func (s *Store) rebind(query string) string {
	if s.dialect != Postgres {
		return query
	}

	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// PutRows appends rows to a conversation in one transaction.
func (s *Store) PutRows(ctx context.Context, conversationID string, rows []chat.RawRow) (int, error) {
	if conversationID == "" {
		return 0, errors.New("cannot store rows without a conversation id")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := s.now().UnixMilli()
	_, err = tx.ExecContext(ctx, s.rebind(`
		INSERT INTO conversations (id, title, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			updated_at = excluded.updated_at,
			title = CASE WHEN conversations.title = '' THEN excluded.title ELSE conversations.title END`),
		conversationID, storage.Title(rows), now, now,
	)
	if err != nil {
		return 0, fmt.Errorf("upserting conversation: %w", err)
	}

	var seq int64
	err = tx.QueryRowContext(ctx,
		s.rebind(`SELECT COALESCE(MAX(seq), 0) FROM chat_rows WHERE conversation_id = ?`),
		conversationID,
	).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("reading row sequence: %w", err)
	}

	insert := s.rebind(`
		INSERT INTO chat_rows (conversation_id, id, turn_id, role, type, content, created_at, duration, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (conversation_id, id) DO NOTHING`)

	inserted := 0
	for _, r := range rows {
		if r.ID == "" {
			return 0, errors.New("cannot store a row without an id")
		}

		seq++
		res, err := tx.ExecContext(ctx, insert,
			conversationID,
			string(r.ID),
			string(r.Turn()),
			r.Role,
			string(r.Type),
			string(r.Content),
			r.Timestamp(),
			nullFloat(r.Duration),
			seq,
		)
		if err != nil {
			return 0, fmt.Errorf("inserting row %s: %w", r.ID, err)
		}

		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("inserting row %s: %w", r.ID, err)
		}
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing rows: %w", err)
	}
	return inserted, nil
}

// Rows returns the rows of a conversation in insertion order.
func (s *Store) Rows(ctx context.Context, conversationID string) ([]chat.RawRow, error) {
	if err := s.mustExist(ctx, conversationID); err != nil {
		return nil, err
	}

	rs, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT id, turn_id, role, type, content, created_at, duration
		FROM chat_rows
		WHERE conversation_id = ?
		ORDER BY seq`),
		conversationID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying rows: %w", err)
	}
	defer rs.Close()

	var out []chat.RawRow
	for rs.Next() {
		var (
			r                         chat.RawRow
			id, turnID, rowType, body string
			createdAt                 int64
			duration                  sql.NullFloat64
		)
		if err := rs.Scan(&id, &turnID, &r.Role, &rowType, &body, &createdAt, &duration); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		r.ID = chat.ID(id)
		r.TurnID = chat.ID(turnID)
		r.Type = chat.RowType(rowType)
		r.Content = chat.Text(body)
		r.CreatedAt = createdAt
		if duration.Valid {
			d := duration.Float64
			r.Duration = &d
		}
		out = append(out, r)
	}
	if err := rs.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}
	return out, nil
}

// Conversations lists conversations, most recently updated first.
func (s *Store) Conversations(ctx context.Context) ([]chat.ConversationSummary, error) {
	rs, err := s.db.QueryContext(ctx, `
		SELECT id, title, created_at, updated_at
		FROM conversations
		ORDER BY updated_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("querying conversations: %w", err)
	}
	defer rs.Close()

	var out []chat.ConversationSummary
	for rs.Next() {
		var (
			c                    chat.ConversationSummary
			createdAt, updatedAt int64
		)
		if err := rs.Scan(&c.ID, &c.Title, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning conversation: %w", err)
		}
		c.CreatedAt = createdAt
		c.UpdatedAt = updatedAt
		out = append(out, c)
	}
	if err := rs.Err(); err != nil {
		return nil, fmt.Errorf("iterating conversations: %w", err)
	}
	return out, nil
}

// DeleteConversation removes a conversation and its rows.
func (s *Store) DeleteConversation(ctx context.Context, conversationID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM chat_rows WHERE conversation_id = ?`), conversationID); err != nil {
		return fmt.Errorf("deleting rows: %w", err)
	}

	res, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM conversations WHERE id = ?`), conversationID)
	if err != nil {
		return fmt.Errorf("deleting conversation: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return storage.NotFoundError{ConversationID: conversationID}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing delete: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) mustExist(ctx context.Context, conversationID string) error {
	var one int
	err := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT 1 FROM conversations WHERE id = ?`),
		conversationID,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.NotFoundError{ConversationID: conversationID}
	}
	if err != nil {
		return fmt.Errorf("looking up conversation: %w", err)
	}
	return nil
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}
