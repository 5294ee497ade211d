package agent

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/promptstack/internal/core/eventbus"
	"github.com/colonyops/promptstack/internal/core/eventbus/testbus"
	"github.com/colonyops/promptstack/internal/core/toolcall"
)

func reads(paths ...string) []toolcall.Call {
	out := make([]toolcall.Call, len(paths))
	for i, p := range paths {
		out[i] = toolcall.Call{Tool: toolcall.ToolRead, Path: p}
	}
	return out
}

func TestReader_BoundedConcurrencyAndOrder(t *testing.T) {
	files := map[string]string{}
	var paths []string
	for i := range 20 {
		p := fmt.Sprintf("src/f%02d.js", i)
		paths = append(paths, p)
		if i%4 != 0 {
			files[p] = "content " + p
		}
	}
	repo := newFakeRepo(files)
	repo.getDelay = 10 * time.Millisecond

	r := NewReader(repo, ReaderOptions{Concurrency: 5, Logger: zerolog.Nop()})
	results := r.Read(context.Background(), "req", reads(paths...))

	require.Len(t, results, 20)
	assert.LessOrEqual(t, repo.maxInflight, 5)
	for i, res := range results {
		assert.Equal(t, paths[i], res.Path)
		if i%4 == 0 {
			assert.False(t, res.Found)
			assert.Equal(t, MissingFileContent, res.Content)
		} else {
			assert.True(t, res.Found)
			assert.Equal(t, "content "+paths[i], res.Content)
		}
	}
}

func TestReader_DedupesAndSkipsEmptyPaths(t *testing.T) {
	repo := newFakeRepo(map[string]string{"package.json": "{}"})
	r := NewReader(repo, ReaderOptions{Logger: zerolog.Nop()})

	results := r.Read(context.Background(), "req", reads("package.json", "", "./package.json", "/package.json"))

	require.Len(t, results, 1)
	assert.Equal(t, 1, repo.gets)
}

func TestReader_LineWindow(t *testing.T) {
	repo := newFakeRepo(map[string]string{"a.js": "1\n2\n3\n4"})
	r := NewReader(repo, ReaderOptions{Logger: zerolog.Nop()})

	results := r.Read(context.Background(), "req", []toolcall.Call{{Tool: toolcall.ToolRead, Path: "a.js", Start: 2, End: 3}})
	require.Len(t, results, 1)
	assert.Equal(t, "2\n3", results[0].Content)
}

func TestReader_TimeoutYieldsSentinel(t *testing.T) {
	repo := newFakeRepo(map[string]string{"slow.js": "x"})
	repo.getDelay = time.Second

	r := NewReader(repo, ReaderOptions{Timeout: 20 * time.Millisecond, Logger: zerolog.Nop()})
	results := r.Read(context.Background(), "req", reads("slow.js"))

	require.Len(t, results, 1)
	assert.False(t, results[0].Found)
	assert.Equal(t, MissingFileContent, results[0].Content)
}

func TestReader_PublishesEvents(t *testing.T) {
	tb := testbus.New(t)
	repo := newFakeRepo(map[string]string{"a.js": "x"})
	r := NewReader(repo, ReaderOptions{Bus: tb.EventBus, Logger: zerolog.Nop()})

	r.Read(context.Background(), "req-1", reads("a.js"))

	require.Eventually(t, func() bool { return len(tb.FileOperations()) == 2 }, time.Second, 5*time.Millisecond)
	ops := tb.FileOperations()
	assert.Equal(t, eventbus.FileOperationPayload{RequestID: "req-1", Path: "a.js", Operation: eventbus.OpReading}, ops[0])
	assert.Equal(t, eventbus.FileOperationPayload{RequestID: "req-1", Path: "a.js", Operation: eventbus.OpRead}, ops[1])
}

func TestFormatReads(t *testing.T) {
	got := FormatReads([]ReadResult{
		{Path: "a.js", Content: "A", Found: true},
		{Path: "b.js", Content: MissingFileContent},
	})
	assert.Equal(t, "File: a.js\n\nA\n\nFile: b.js\n\n"+MissingFileContent+"\n", got)
}

func TestAllMissing(t *testing.T) {
	assert.False(t, AllMissing(nil))
	assert.True(t, AllMissing([]ReadResult{{Path: "a"}, {Path: "b"}}))
	assert.False(t, AllMissing([]ReadResult{{Path: "a"}, {Path: "b", Found: true}}))
	assert.Equal(t, []string{"a"}, MissingPaths([]ReadResult{{Path: "a"}, {Path: "b", Found: true}}))
}
