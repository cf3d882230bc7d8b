// Package history persists the ordered transcript of a conversation.
package history

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// DefaultSession is the session used by the single-user CLI.
const DefaultSession = "default"

// Turn is one message in a conversation. Turns are immutable once appended.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

func (t Turn) validate() error {
	if t.Role != RoleUser && t.Role != RoleAssistant {
		return fmt.Errorf("invalid role %q", t.Role)
	}
	return nil
}

// Store holds one conversation. Every mutation is persisted before it returns.
// When persisting fails the in-memory copy still carries the change and the
// error is returned for the caller to report.
type Store interface {
	// Load replaces the in-memory turns with the persisted ones.
	Load(ctx context.Context) ([]Turn, error)
	Append(ctx context.Context, t Turn) error
	Clear(ctx context.Context) error
	// Turns returns a copy of the in-memory turns in arrival order.
	Turns() []Turn
}

// Opener hands out the Store for a session.
type Opener interface {
	Open(ctx context.Context, sessionID string) (Store, error)
	Close() error
}

const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// NewOpener builds an Opener for the configured backend. For the file
// backend location is the default session's JSON file; other sessions live
// next to it under sessions/. For sqlite it is the database path.
func NewOpener(backend, location string) (Opener, error) {
	switch backend {
	case "", BackendFile:
		return &fileOpener{path: location}, nil
	case BackendSQLite:
		return openSQLite(location)
	}
	return nil, fmt.Errorf("unknown history backend %q (want %s or %s)", backend, BackendFile, BackendSQLite)
}

type fileOpener struct{ path string }

func (o *fileOpener) Open(ctx context.Context, sessionID string) (Store, error) {
	path := o.path
	if sessionID != "" && sessionID != DefaultSession {
		if !sessionIDPattern.MatchString(sessionID) {
			return nil, fmt.Errorf("invalid session id %q", sessionID)
		}
		path = filepath.Join(filepath.Dir(o.path), "sessions", sessionID+".json")
	}
	s := NewFileStore(path)
	if _, err := s.Load(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (o *fileOpener) Close() error { return nil }
