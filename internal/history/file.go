package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/KaramelBytes/datachat-cli/internal/utils"
)

// FileStore keeps the conversation as a JSON array in a single file that is
// rewritten wholesale after every change.
type FileStore struct {
	mu    sync.Mutex
	path  string
	turns []Turn
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Path() string { return s.path }

// Load reads the file. A missing file is an empty conversation.
func (s *FileStore) Load(_ context.Context) ([]Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.turns = nil
			return nil, nil
		}
		return nil, fmt.Errorf("read history: %w", err)
	}
	var turns []Turn
	if err := json.Unmarshal(b, &turns); err != nil {
		return nil, fmt.Errorf("parse history %s: %w", s.path, err)
	}
	s.turns = turns
	return append([]Turn(nil), turns...), nil
}

func (s *FileStore) Append(_ context.Context, t Turn) error {
	if err := t.validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = append(s.turns, t)
	return s.persist()
}

func (s *FileStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = nil
	return s.persist()
}

func (s *FileStore) Turns() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Turn(nil), s.turns...)
}

func (s *FileStore) persist() error {
	turns := s.turns
	if turns == nil {
		turns = []Turn{}
	}
	data, err := utils.PrettyJSON(turns)
	if err != nil {
		return err
	}
	if err := utils.SafeWriteFile(s.path, data); err != nil {
		return fmt.Errorf("persist history: %w", err)
	}
	return nil
}
