package jsonfile

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/colonyops/promptstack/internal/core/conversation"
)

// ConversationFile is the root JSON structure stored on disk.
type ConversationFile struct {
	Turns []conversation.Turn `json:"turns"`
}

// ConversationStore implements conversation.Store with one JSON file per project.
type ConversationStore struct {
	dir string
	mu  sync.RWMutex
}

var _ conversation.Store = (*ConversationStore)(nil)

// NewConversationStore creates a store rooted at dir (usually <data-dir>/projects).
func NewConversationStore(dir string) *ConversationStore {
	return &ConversationStore{dir: dir}
}

func (s *ConversationStore) path(projectID string) string {
	return filepath.Join(s.dir, projectID, "conversation.json")
}

// Append adds a turn to the end of the project's history.
func (s *ConversationStore) Append(ctx context.Context, projectID string, turn conversation.Turn) error {
	if projectID == "" {
		return fmt.Errorf("append turn: project id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var file ConversationFile
	if _, err := readJSON(s.path(projectID), &file); err != nil {
		return fmt.Errorf("load conversation: %w", err)
	}

	file.Turns = append(file.Turns, turn)

	if err := writeJSON(s.path(projectID), file); err != nil {
		return fmt.Errorf("save conversation: %w", err)
	}
	return nil
}

// Recent returns at most n of the newest turns in chronological order.
func (s *ConversationStore) Recent(ctx context.Context, projectID string, n int) ([]conversation.Turn, error) {
	turns, err := s.List(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return conversation.Window(turns, n), nil
}

// List returns the full history in chronological order.
func (s *ConversationStore) List(ctx context.Context, projectID string) ([]conversation.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var file ConversationFile
	if _, err := readJSON(s.path(projectID), &file); err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}
	return file.Turns, nil
}
