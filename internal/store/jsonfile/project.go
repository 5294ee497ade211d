package jsonfile

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/colonyops/promptstack/internal/core/project"
)

// ProjectStore implements project.Store with one JSON file per project.
type ProjectStore struct {
	dir string
	mu  sync.RWMutex
	now func() time.Time
}

var _ project.Store = (*ProjectStore)(nil)

// NewProjectStore creates a store rooted at dir (usually <data-dir>/projects).
func NewProjectStore(dir string) *ProjectStore {
	return &ProjectStore{dir: dir, now: time.Now}
}

func (s *ProjectStore) path(id string) string {
	return filepath.Join(s.dir, id, "project.json")
}

// Get returns the record for id. Returns project.ErrNotFound if absent.
func (s *ProjectStore) Get(ctx context.Context, id string) (project.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.get(id)
}

func (s *ProjectStore) get(id string) (project.Record, error) {
	var rec project.Record
	found, err := readJSON(s.path(id), &rec)
	if err != nil {
		return project.Record{}, fmt.Errorf("load project %s: %w", id, err)
	}
	if !found {
		return project.Record{}, project.ErrNotFound
	}
	return rec, nil
}

// Save creates or replaces a record.
func (s *ProjectStore) Save(ctx context.Context, rec project.Record) error {
	if rec.ID == "" {
		return fmt.Errorf("save project: id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec.UpdatedAt = s.now().UTC()
	return writeJSON(s.path(rec.ID), rec)
}

// UpdateStructure replaces the cached file list and rendered tree.
func (s *ProjectStore) UpdateStructure(ctx context.Context, id string, files []string, structure string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.get(id)
	if err != nil {
		return err
	}

	rec.Files = files
	rec.Structure = structure
	rec.UpdatedAt = s.now().UTC()
	return writeJSON(s.path(id), rec)
}
