package agent

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/colonyops/promptstack/internal/core/eventbus"
	"github.com/colonyops/promptstack/internal/core/toolcall"
	"github.com/colonyops/promptstack/internal/core/vtree"
	"github.com/colonyops/promptstack/internal/github"
)

// MissingFileContent replaces the content of any file that could not be read.
const MissingFileContent = "[File not found or error reading]"

// ReadResult is the outcome of reading one file.
type ReadResult struct {
	Path    string
	Content string
	Found   bool
}

// ReaderOptions configures a Reader.
type ReaderOptions struct {
	Concurrency int
	Timeout     time.Duration
	Bus         *eventbus.EventBus
	Logger      zerolog.Logger
}

// Reader resolves read calls against the repository with bounded concurrency.
type Reader struct {
	files   FileReader
	pool    *WorkerPool
	timeout time.Duration
	bus     *eventbus.EventBus
	log     zerolog.Logger
}

// NewReader creates a Reader. Zero options default to 5 workers and a 10s
// per-file timeout.
func NewReader(files FileReader, opts ReaderOptions) *Reader {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	return &Reader{
		files:   files,
		pool:    NewWorkerPool(opts.Concurrency),
		timeout: opts.Timeout,
		bus:     opts.Bus,
		log:     opts.Logger,
	}
}

// Read fetches every distinct path named by calls and returns one result per
// path in request order. It never fails: unreadable files carry
// MissingFileContent.
func (r *Reader) Read(ctx context.Context, requestID string, calls []toolcall.Call) []ReadResult {
	calls = dedupeReads(calls)
	results := make([]ReadResult, len(calls))

	var wg sync.WaitGroup
	for i, call := range calls {
		results[i] = ReadResult{Path: call.Path, Content: MissingFileContent}

		wg.Add(1)
		go func() {
			defer wg.Done()
			err := r.pool.RunContext(ctx, func() {
				results[i] = r.readOne(ctx, requestID, call)
			})
			if err != nil {
				r.log.Debug().Err(err).Str("path", call.Path).Msg("read cancelled before start")
			}
		}()
	}
	wg.Wait()

	return results
}

func (r *Reader) readOne(ctx context.Context, requestID string, call toolcall.Call) ReadResult {
	r.bus.PublishFileOperation(eventbus.FileOperationPayload{RequestID: requestID, Path: call.Path, Operation: eventbus.OpReading})
	defer r.bus.PublishFileOperation(eventbus.FileOperationPayload{RequestID: requestID, Path: call.Path, Operation: eventbus.OpRead})

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	f, err := r.files.GetFile(ctx, call.Path)
	if err != nil {
		ev := r.log.Warn()
		if github.IsNotFound(err) {
			ev = r.log.Debug()
		}
		ev.Err(err).Str("path", call.Path).Msg("read failed")
		return ReadResult{Path: call.Path, Content: MissingFileContent}
	}

	return ReadResult{Path: call.Path, Content: LineWindow(f.Content, call.Start, call.End), Found: true}
}

// dedupeReads drops calls without a path and repeated paths, keeping the
// first occurrence.
func dedupeReads(calls []toolcall.Call) []toolcall.Call {
	seen := make(map[string]bool, len(calls))
	out := make([]toolcall.Call, 0, len(calls))
	for _, c := range calls {
		p := vtree.Normalize(c.Path)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		c.Path = p
		out = append(out, c)
	}
	return out
}

// FormatReads folds results into the context block sent to the model.
func FormatReads(results []ReadResult) string {
	parts := make([]string, 0, len(results))
	for _, r := range results {
		parts = append(parts, "File: "+r.Path+"\n\n"+r.Content+"\n")
	}
	return strings.Join(parts, "\n")
}

// MissingPaths returns the paths that could not be read.
func MissingPaths(results []ReadResult) []string {
	var out []string
	for _, r := range results {
		if !r.Found {
			out = append(out, r.Path)
		}
	}
	return out
}

// AllMissing reports whether at least one read was requested and none succeeded.
func AllMissing(results []ReadResult) bool {
	return len(results) > 0 && len(MissingPaths(results)) == len(results)
}
