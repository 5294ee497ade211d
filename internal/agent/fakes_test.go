package agent

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/colonyops/promptstack/internal/core/conversation"
	"github.com/colonyops/promptstack/internal/core/project"
	"github.com/colonyops/promptstack/internal/github"
	"github.com/colonyops/promptstack/internal/llm"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// fakeRepo is an in-memory repository with the status semantics of the
// contents API.
type fakeRepo struct {
	mu    sync.Mutex
	files   map[string]github.File
	seq     int
	commits int

	getDelay    time.Duration
	inflight    int
	maxInflight int
	gets        int
	failPut     map[string]error
	treeErr     error

	runs     []github.Run
	runErr   error
	polls    int
	logs     string
	logCalls int
}

func newFakeRepo(files map[string]string) *fakeRepo {
	r := &fakeRepo{files: map[string]github.File{}, failPut: map[string]error{}}
	for p, c := range files {
		r.seq++
		r.files[p] = github.File{Path: p, Content: c, SHA: fmt.Sprintf("sha%d", r.seq)}
	}
	return r
}

func notFound(op string) error {
	return &github.APIError{Operation: op, StatusCode: http.StatusNotFound, Body: "Not Found"}
}

func (r *fakeRepo) FullName() string { return "acme/site" }

func (r *fakeRepo) GetFile(ctx context.Context, path string) (github.File, error) {
	r.mu.Lock()
	r.gets++
	r.inflight++
	if r.inflight > r.maxInflight {
		r.maxInflight = r.inflight
	}
	delay := r.getDelay
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.inflight--
		r.mu.Unlock()
	}()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return github.File{}, ctx.Err()
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.files[path]
	if !ok {
		return github.File{}, notFound("get file")
	}
	return f, nil
}

func (r *fakeRepo) PutFile(_ context.Context, path, content, sha, _ string) (github.WriteResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.failPut[path]; err != nil {
		return github.WriteResult{}, err
	}

	cur, exists := r.files[path]
	switch {
	case sha == "" && exists:
		return github.WriteResult{}, &github.APIError{Operation: "put file", StatusCode: http.StatusUnprocessableEntity, Body: `"sha" wasn't supplied`}
	case sha != "" && !exists:
		return github.WriteResult{}, notFound("put file")
	case sha != "" && cur.SHA != sha:
		return github.WriteResult{}, &github.APIError{Operation: "put file", StatusCode: http.StatusConflict, Body: "sha mismatch"}
	}

	r.seq++
	f := github.File{Path: path, Content: content, SHA: fmt.Sprintf("sha%d", r.seq)}
	r.files[path] = f
	return github.WriteResult{ContentSHA: f.SHA, CommitSHA: r.commit()}, nil
}

func (r *fakeRepo) DeleteFile(_ context.Context, path, sha, _ string) (github.WriteResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.files[path]
	if !ok {
		return github.WriteResult{}, notFound("delete file")
	}
	if cur.SHA != sha {
		return github.WriteResult{}, &github.APIError{Operation: "delete file", StatusCode: http.StatusConflict}
	}
	delete(r.files, path)
	return github.WriteResult{CommitSHA: r.commit()}, nil
}

// commit must be called with mu held.
func (r *fakeRepo) commit() string {
	r.commits++
	return fmt.Sprintf("commit%d", r.commits)
}

func (r *fakeRepo) Tree(context.Context, string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.treeErr != nil {
		return nil, r.treeErr
	}
	paths := make([]string, 0, len(r.files))
	for p := range r.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths, nil
}

// LatestRun returns runs in order, repeating the last one.
func (r *fakeRepo) LatestRun(context.Context, string) (github.Run, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.polls++
	if r.runErr != nil {
		return github.Run{}, r.runErr
	}
	if len(r.runs) == 0 {
		return github.Run{}, github.ErrNoRuns
	}
	i := min(r.polls-1, len(r.runs)-1)
	return r.runs[i], nil
}

func (r *fakeRepo) RunLogs(context.Context, int64) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logCalls++
	return r.logs, nil
}

func (r *fakeRepo) content(path string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.files[path]
	return f.Content, ok
}

// fakeClock advances instantly whenever a caller waits.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock { return &fakeClock{now: t0} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	c.now = c.now.Add(d)
	now := c.now
	c.mu.Unlock()

	ch := make(chan time.Time, 1)
	ch <- now
	return ch
}

// fakeChat answers with fn and records every call.
type fakeChat struct {
	mu    sync.Mutex
	calls [][]llm.Message
	fn    func(call int, msgs []llm.Message) (string, error)
}

func (c *fakeChat) Name() string { return "fake" }

func (c *fakeChat) Chat(_ context.Context, msgs []llm.Message) (string, error) {
	c.mu.Lock()
	n := len(c.calls)
	c.calls = append(c.calls, msgs)
	c.mu.Unlock()
	return c.fn(n, msgs)
}

func (c *fakeChat) prompts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.calls))
	for i, m := range c.calls {
		out[i] = m[len(m)-1].Content
	}
	return out
}

type memConversations struct {
	mu    sync.Mutex
	turns map[string][]conversation.Turn
}

func newMemConversations() *memConversations {
	return &memConversations{turns: map[string][]conversation.Turn{}}
}

func (m *memConversations) Append(_ context.Context, projectID string, turn conversation.Turn) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns[projectID] = append(m.turns[projectID], turn)
	return nil
}

func (m *memConversations) Recent(ctx context.Context, projectID string, n int) ([]conversation.Turn, error) {
	all, _ := m.List(ctx, projectID)
	return conversation.Window(all, n), nil
}

func (m *memConversations) List(_ context.Context, projectID string) ([]conversation.Turn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]conversation.Turn, len(m.turns[projectID]))
	copy(out, m.turns[projectID])
	return out, nil
}

type memProjects struct {
	mu      sync.Mutex
	records map[string]project.Record
}

func newMemProjects(recs ...project.Record) *memProjects {
	m := &memProjects{records: map[string]project.Record{}}
	for _, r := range recs {
		m.records[r.ID] = r
	}
	return m
}

func (m *memProjects) Get(_ context.Context, id string) (project.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	if !ok {
		return project.Record{}, project.ErrNotFound
	}
	return r, nil
}

func (m *memProjects) Save(_ context.Context, rec project.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.ID] = rec
	return nil
}

func (m *memProjects) UpdateStructure(_ context.Context, id string, files []string, structure string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	if !ok {
		return project.ErrNotFound
	}
	r.Files = files
	r.Structure = structure
	m.records[id] = r
	return nil
}
