package github

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildZip(t *testing.T, entries map[string]string, order []string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range order {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = io.WriteString(w, entries[name])
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestLatestRun(t *testing.T) {
	repo := newTestRepo(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/acme/site/actions/workflows/nextjs.yml/runs", r.URL.Path)
		assert.Equal(t, "1", r.URL.Query().Get("per_page"))
		assert.Equal(t, "main", r.URL.Query().Get("branch"))
		_, _ = io.WriteString(w, `{"total_count":1,"workflow_runs":[
			{"id":42,"status":"completed","conclusion":"failure","created_at":"2026-01-02T03:04:05Z"}
		]}`)
	}))

	run, err := repo.LatestRun(context.Background(), "nextjs.yml")
	require.NoError(t, err)
	assert.Equal(t, int64(42), run.ID)
	assert.Equal(t, "failure", run.Conclusion)
	assert.True(t, run.Done())
	assert.Equal(t, 2026, run.CreatedAt.Year())
}

func TestLatestRun_InProgressHasNoConclusion(t *testing.T) {
	repo := newTestRepo(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"total_count":1,"workflow_runs":[{"id":1,"status":"in_progress","conclusion":null}]}`)
	}))

	run, err := repo.LatestRun(context.Background(), "nextjs.yml")
	require.NoError(t, err)
	assert.False(t, run.Done())
}

func TestLatestRun_NoRuns(t *testing.T) {
	repo := newTestRepo(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"total_count":0,"workflow_runs":[]}`)
	}))

	_, err := repo.LatestRun(context.Background(), "nextjs.yml")
	require.ErrorIs(t, err, ErrNoRuns)
}

func TestRunLogs_ExtractsInNameOrder(t *testing.T) {
	archive := buildZip(t, map[string]string{
		"2_build.txt": "npm run build\nError: boom",
		"1_setup.txt": "setup ok\n",
		"build/":      "",
	}, []string{"2_build.txt", "build/", "1_setup.txt"})

	repo := newTestRepo(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/acme/site/actions/runs/7/logs", r.URL.Path)
		_, _ = w.Write(archive)
	}))

	logs, err := repo.RunLogs(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "setup ok\nnpm run build\nError: boom", logs)
}

func TestExtractLogs_InvalidArchive(t *testing.T) {
	_, err := ExtractLogs([]byte("not a zip"))
	require.Error(t, err)
}
