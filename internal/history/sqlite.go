package history

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/KaramelBytes/datachat-cli/internal/utils"
	_ "modernc.org/sqlite"
)

// sqliteOpener shares one database across all sessions.
type sqliteOpener struct {
	db *sql.DB
}

func openSQLite(path string) (*sqliteOpener, error) {
	if path != ":memory:" {
		if err := utils.EnsureDir(filepath.Dir(path)); err != nil {
			return nil, fmt.Errorf("ensure dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One writer keeps appends ordered and avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	o := &sqliteOpener{db: db}
	if err := o.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return o, nil
}

func (o *sqliteOpener) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS turns (
			session_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (session_id, seq)
		)`,
	}
	for _, m := range migrations {
		if _, err := o.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}
	return nil
}

func (o *sqliteOpener) Open(ctx context.Context, sessionID string) (Store, error) {
	if sessionID == "" {
		sessionID = DefaultSession
	}
	s := &SQLiteStore{db: o.db, sessionID: sessionID}
	if _, err := s.Load(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (o *sqliteOpener) Close() error { return o.db.Close() }

// SQLiteStore keeps one session's turns as rows keyed by (session_id, seq).
// A write that fails leaves the memory copy ahead of the database; the next
// write stores everything still missing.
type SQLiteStore struct {
	mu        sync.Mutex
	db        *sql.DB
	sessionID string
	turns     []Turn
	// persisted counts the leading turns already stored.
	persisted int
	nextSeq   int64
	// stale is set while rows from before a failed Clear remain stored.
	stale bool
}

func (s *SQLiteStore) Load(ctx context.Context) ([]Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, role, content FROM turns WHERE session_id = ? ORDER BY seq`, s.sessionID)
	if err != nil {
		return nil, fmt.Errorf("query turns: %w", err)
	}
	defer rows.Close()

	var turns []Turn
	var seq int64 = -1
	for rows.Next() {
		var t Turn
		var role string
		if err := rows.Scan(&seq, &role, &t.Content); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		t.Role = Role(role)
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate turns: %w", err)
	}
	s.turns = turns
	s.persisted = len(turns)
	s.nextSeq = seq + 1
	s.stale = false
	return append([]Turn(nil), turns...), nil
}

func (s *SQLiteStore) Append(ctx context.Context, t Turn) error {
	if err := t.validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.turns = append(s.turns, t)
	if err := s.flush(ctx); err != nil {
		return fmt.Errorf("persist turn: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.turns = nil
	s.persisted = 0
	s.stale = true
	if err := s.flush(ctx); err != nil {
		return fmt.Errorf("clear turns: %w", err)
	}
	return nil
}

// flush brings the stored rows in line with s.turns in one transaction. It
// ignores cancellation of ctx so a turn interrupted by the user is still saved.
func (s *SQLiteStore) flush(ctx context.Context) error {
	ctx = context.WithoutCancel(ctx)
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	seq := s.nextSeq
	if s.stale {
		if _, err := tx.ExecContext(ctx, `DELETE FROM turns WHERE session_id = ?`, s.sessionID); err != nil {
			return err
		}
		seq = 0
	}
	now := time.Now().UTC()
	for _, t := range s.turns[s.persisted:] {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO turns (session_id, seq, role, content, created_at) VALUES (?, ?, ?, ?, ?)`,
			s.sessionID, seq, string(t.Role), t.Content, now); err != nil {
			return err
		}
		seq++
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.nextSeq = seq
	s.persisted = len(s.turns)
	s.stale = false
	return nil
}

func (s *SQLiteStore) Turns() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Turn(nil), s.turns...)
}
