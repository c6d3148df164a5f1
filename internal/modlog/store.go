// Package modlog persists the notes and warnings recorded by moderation rules.
package modlog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// ErrClosed is returned when the store is used after Close.
var ErrClosed = errors.New("modlog store is closed")

// Kind is the type of a modlog entry.
type Kind string

const (
	KindNote Kind = "note"
	KindWarn Kind = "warn"
)

// Entry is one note or warning recorded against a guild member.
type Entry struct {
	ID      string
	GuildID uint64
	UserID  uint64
	Kind    Kind
	// Source names what recorded the entry, usually a rule label.
	Source    string
	Text      string
	CreatedAt time.Time
}

const schema = `
CREATE TABLE IF NOT EXISTS entries (
	id TEXT PRIMARY KEY,
	guild_id INTEGER NOT NULL,
	user_id INTEGER NOT NULL,
	kind TEXT NOT NULL,
	source TEXT NOT NULL,
	text TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS entries_member ON entries (guild_id, user_id, created_at);
`

// Store is a SQLite backed modlog. It is safe for concurrent use.
type Store struct {
	mu   sync.Mutex
	conn *sqlite.Conn
	now  func() time.Time
}

// Open opens or creates the modlog database at path.
func Open(path string) (*Store, error) {
	conn, err := sqlite.OpenConn(path, sqlite.OpenCreate|sqlite.OpenReadWrite|sqlite.OpenWAL)
	if err != nil {
		return nil, fmt.Errorf("failed to open modlog database: %w", err)
	}

	if err := sqlitex.ExecuteScript(conn, schema, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create modlog schema: %w", err)
	}

	return &Store{conn: conn, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}

// Add records a new entry and returns it with its id and timestamp set.
func (s *Store) Add(ctx context.Context, guildID, userID uint64, kind Kind, source, text string) (Entry, error) {
	entry := Entry{
		ID:        uuid.New().String(),
		GuildID:   guildID,
		UserID:    userID,
		Kind:      kind,
		Source:    source,
		Text:      text,
		CreatedAt: s.now().UTC(),
	}

	err := s.with(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn,
			"INSERT INTO entries (id, guild_id, user_id, kind, source, text, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
			&sqlitex.ExecOptions{
				Args: []any{
					entry.ID, int64(entry.GuildID), int64(entry.UserID), string(entry.Kind),
					entry.Source, entry.Text, entry.CreatedAt.UnixMilli(),
				},
			})
	})
	if err != nil {
		return Entry{}, fmt.Errorf("failed to insert modlog entry: %w", err)
	}

	return entry, nil
}

// List returns a member's entries, oldest first.
func (s *Store) List(ctx context.Context, guildID, userID uint64) ([]Entry, error) {
	var entries []Entry

	err := s.with(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn,
			"SELECT id, kind, source, text, created_at FROM entries WHERE guild_id = ? AND user_id = ? ORDER BY created_at, rowid",
			&sqlitex.ExecOptions{
				Args: []any{int64(guildID), int64(userID)},
				ResultFunc: func(stmt *sqlite.Stmt) error {
					entries = append(entries, Entry{
						ID:        stmt.ColumnText(0),
						GuildID:   guildID,
						UserID:    userID,
						Kind:      Kind(stmt.ColumnText(1)),
						Source:    stmt.ColumnText(2),
						Text:      stmt.ColumnText(3),
						CreatedAt: time.UnixMilli(stmt.ColumnInt64(4)).UTC(),
					})
					return nil
				},
			})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list modlog entries: %w", err)
	}

	return entries, nil
}

// Count returns how many entries of a kind a member has.
func (s *Store) Count(ctx context.Context, guildID, userID uint64, kind Kind) (int, error) {
	var count int

	err := s.with(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn,
			"SELECT COUNT(*) FROM entries WHERE guild_id = ? AND user_id = ? AND kind = ?",
			&sqlitex.ExecOptions{
				Args: []any{int64(guildID), int64(userID), string(kind)},
				ResultFunc: func(stmt *sqlite.Stmt) error {
					count = stmt.ColumnInt(0)
					return nil
				},
			})
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count modlog entries: %w", err)
	}

	return count, nil
}

// with runs fn on the connection, interrupting it when ctx is done.
func (s *Store) with(ctx context.Context, fn func(conn *sqlite.Conn) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return ErrClosed
	}

	s.conn.SetInterrupt(ctx.Done())
	defer s.conn.SetInterrupt(nil)

	return fn(s.conn)
}
