package chat

import (
	"sync"

	"github.com/KaramelBytes/datachat-cli/internal/history"
)

// Session is the per-conversation state passed through the dispatcher.
// Only one message per session is processed at a time.
type Session struct {
	mu sync.Mutex

	ID    string
	Store history.Store
	// LastQuery is the most recent regular question. Corrections replay it
	// and never clear it.
	LastQuery string
}

func NewSession(id string, store history.Store) *Session {
	return &Session{ID: id, Store: store}
}
