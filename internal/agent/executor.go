package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"

	"github.com/colonyops/promptstack/internal/core/eventbus"
	"github.com/colonyops/promptstack/internal/core/project"
	"github.com/colonyops/promptstack/internal/core/toolcall"
	"github.com/colonyops/promptstack/internal/core/vtree"
	"github.com/colonyops/promptstack/internal/github"
)

// ErrReadInBatch is returned when a mutation batch contains a read call.
// Reads are resolved before a batch reaches the executor.
var ErrReadInBatch = errors.New("read call in mutation batch")

// OpError records a failed call. Failures do not stop the rest of a batch.
type OpError struct {
	Call toolcall.Call
	Err  error
}

func (e OpError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Call.Tool, e.Call.Path, e.Err)
}

// BatchReport summarizes one applied batch.
type BatchReport struct {
	Created []string
	Edited  []string
	Deleted []string
	Skipped []string
	Failed  []OpError
	// Reconciled is false when the remote listing could not be fetched and
	// the locally updated tree was kept.
	Reconciled bool
	// HeadSHA is the commit created by the last successful write.
	HeadSHA string
}

// Changed reports whether anything was written to the repository.
func (b BatchReport) Changed() bool {
	return len(b.Created)+len(b.Edited)+len(b.Deleted) > 0
}

// ExecutorOptions configures an Executor.
type ExecutorOptions struct {
	// ProtectedPaths are doublestar globs the model may not touch.
	ProtectedPaths []string
	Projects       project.Store
	Bus            *eventbus.EventBus
	Logger         zerolog.Logger
}

// Executor applies create, edit and delete calls to the repository.
type Executor struct {
	files     FileWriter
	protected []string
	projects  project.Store
	bus       *eventbus.EventBus
	log       zerolog.Logger
}

// NewExecutor creates an Executor.
func NewExecutor(files FileWriter, opts ExecutorOptions) *Executor {
	return &Executor{
		files:     files,
		protected: opts.ProtectedPaths,
		projects:  opts.Projects,
		bus:       opts.Bus,
		log:       opts.Logger,
	}
}

// applyFunc performs one call and returns the sha of the commit it made.
type applyFunc func(ctx context.Context, req *Request, call toolcall.Call) (string, error)

// Apply runs calls in order, updates req.Tree, then reconciles the tree from
// the remote listing and persists it to the project record.
func (e *Executor) Apply(ctx context.Context, req *Request, calls []toolcall.Call) (BatchReport, error) {
	for _, c := range calls {
		if c.Tool == toolcall.ToolRead {
			return BatchReport{}, fmt.Errorf("%w: %s", ErrReadInBatch, c.Path)
		}
	}

	var report BatchReport
	for _, call := range calls {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		call.Path = vtree.Normalize(call.Path)

		var (
			fn            applyFunc
			pending, done eventbus.FileOp
			succeeded     *[]string
		)
		switch call.Tool {
		case toolcall.ToolCreate:
			fn, pending, done, succeeded = e.create, eventbus.OpCreating, eventbus.OpCreated, &report.Created
		case toolcall.ToolEdit:
			fn, pending, done, succeeded = e.edit, eventbus.OpEditing, eventbus.OpEdited, &report.Edited
		case toolcall.ToolDelete:
			fn, pending, done, succeeded = e.delete, eventbus.OpDeleting, eventbus.OpDeleted, &report.Deleted
		case toolcall.ToolRead:
			return report, fmt.Errorf("%w: %s", ErrReadInBatch, call.Path)
		default:
			return report, fmt.Errorf("unhandled tool %q", call.Tool)
		}

		if e.isProtected(call.Path) {
			e.log.Warn().Str("path", call.Path).Str("tool", string(call.Tool)).Msg("refusing to modify protected path")
			e.skip(req, call, &report)
			continue
		}

		e.publish(req, call.Path, pending)

		commit, err := fn(ctx, req, call)
		switch {
		case errors.Is(err, errNoop):
			e.skip(req, call, &report)
		case err != nil:
			e.log.Error().Err(err).Str("path", call.Path).Str("tool", string(call.Tool)).Msg("file operation failed")
			report.Failed = append(report.Failed, OpError{Call: call, Err: err})
			e.publish(req, call.Path, eventbus.OpFailed)
		default:
			if commit != "" {
				report.HeadSHA = commit
			}
			*succeeded = append(*succeeded, call.Path)
			e.publish(req, call.Path, done)
		}
	}

	report.Reconciled = e.reconcile(ctx, req)
	return report, nil
}

// errNoop marks an operation whose target state already holds.
var errNoop = errors.New("no-op")

func (e *Executor) create(ctx context.Context, req *Request, call toolcall.Call) (string, error) {
	res, err := e.files.PutFile(ctx, call.Path, call.Code, "", commitMessage(call))
	if github.IsConflict(err) {
		e.log.Debug().Str("path", call.Path).Msg("file already exists, create skipped")
		req.Tree.Add(call.Path)
		return "", errNoop
	}
	if err != nil {
		return "", err
	}
	req.Tree.Add(call.Path)
	return res.CommitSHA, nil
}

func (e *Executor) edit(ctx context.Context, req *Request, call toolcall.Call) (string, error) {
	current, err := e.files.GetFile(ctx, call.Path)
	missing := github.IsNotFound(err)
	if err != nil && !missing {
		return "", fmt.Errorf("fetch current content: %w", err)
	}

	if call.WholeFile() {
		res, err := e.files.PutFile(ctx, call.Path, call.Code, current.SHA, commitMessage(call))
		if err != nil {
			return "", err
		}
		if missing {
			req.Tree.Add(call.Path)
		}
		return res.CommitSHA, nil
	}

	if missing {
		e.log.Warn().Str("path", call.Path).Msg("edit target does not exist, skipped")
		return "", errNoop
	}

	updated := Splice(current.Content, call.Start, call.End, call.Code)
	res, err := e.files.PutFile(ctx, call.Path, updated, current.SHA, commitMessage(call))
	if err != nil {
		return "", err
	}
	return res.CommitSHA, nil
}

func (e *Executor) delete(ctx context.Context, req *Request, call toolcall.Call) (string, error) {
	current, err := e.files.GetFile(ctx, call.Path)
	if github.IsNotFound(err) {
		req.Tree.Remove(call.Path)
		return "", errNoop
	}
	if err != nil {
		return "", fmt.Errorf("fetch current sha: %w", err)
	}

	res, err := e.files.DeleteFile(ctx, call.Path, current.SHA, commitMessage(call))
	if err != nil && !github.IsNotFound(err) {
		return "", err
	}
	req.Tree.Remove(call.Path)
	if err != nil {
		return "", errNoop
	}
	return res.CommitSHA, nil
}

func (e *Executor) skip(req *Request, call toolcall.Call, report *BatchReport) {
	report.Skipped = append(report.Skipped, call.Path)
	e.publish(req, call.Path, eventbus.OpSkipped)
}

func (e *Executor) publish(req *Request, path string, op eventbus.FileOp) {
	e.bus.PublishFileOperation(eventbus.FileOperationPayload{RequestID: req.ID, Path: path, Operation: op})
}

func (e *Executor) isProtected(path string) bool {
	for _, pattern := range e.protected {
		if ok, _ := doublestar.Match(pattern, path); ok {
			return true
		}
	}
	return false
}

// reconcile replaces req.Tree with the remote listing and stores the
// rendered structure. It reports whether the remote listing was used.
func (e *Executor) reconcile(ctx context.Context, req *Request) bool {
	reconciled := true
	paths, err := e.files.Tree(ctx, "")
	if err != nil {
		e.log.Warn().Err(err).Msg("tree reconciliation failed, keeping local tree")
		reconciled = false
	} else {
		req.Tree = vtree.FromPaths(paths)
	}

	if e.projects != nil && req.ProjectID != "" {
		if err := e.projects.UpdateStructure(ctx, req.ProjectID, req.Tree.Paths(), req.Tree.Render()); err != nil {
			e.log.Warn().Err(err).Str("project", req.ProjectID).Msg("failed to persist project structure")
		}
	}
	return reconciled
}

// Refresh rebuilds a project's structure from the remote listing and stores
// it. Unlike the reconcile after a batch, a listing failure is an error.
func (e *Executor) Refresh(ctx context.Context, projectID string) (*vtree.Tree, error) {
	paths, err := e.files.Tree(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("list remote tree: %w", err)
	}

	tree := vtree.FromPaths(paths)
	if e.projects != nil {
		if err := e.projects.UpdateStructure(ctx, projectID, tree.Paths(), tree.Render()); err != nil {
			return tree, fmt.Errorf("save structure: %w", err)
		}
	}
	return tree, nil
}

func commitMessage(call toolcall.Call) string {
	return fmt.Sprintf("promptstack: %s %s", call.Tool, call.Path)
}
