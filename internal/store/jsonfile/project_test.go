package jsonfile

import (
	"context"
	"testing"
	"time"

	"github.com/colonyops/promptstack/internal/core/project"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectStore_GetMissing(t *testing.T) {
	store := NewProjectStore(t.TempDir())

	_, err := store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, project.ErrNotFound)
}

func TestProjectStore_SaveAndUpdateStructure(t *testing.T) {
	ctx := context.Background()
	store := NewProjectStore(t.TempDir())
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	store.now = func() time.Time { return fixed }

	require.NoError(t, store.Save(ctx, project.Record{ID: "p1", Owner: "acme", Repo: "site"}))
	require.NoError(t, store.UpdateStructure(ctx, "p1", []string{"package.json"}, "package.json\n"))

	rec, err := store.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "acme/site", rec.FullName())
	assert.Equal(t, []string{"package.json"}, rec.Files)
	assert.Equal(t, "package.json\n", rec.Structure)
	assert.Equal(t, fixed, rec.UpdatedAt)
}

func TestProjectStore_UpdateStructureMissing(t *testing.T) {
	store := NewProjectStore(t.TempDir())

	err := store.UpdateStructure(context.Background(), "nope", nil, "")
	assert.ErrorIs(t, err, project.ErrNotFound)
}
