// Package agent runs the request loop: it asks the model for tool calls,
// applies them to the remote repository, and verifies the result in CI.
package agent

import (
	"context"

	"github.com/colonyops/promptstack/internal/github"
)

// FileReader fetches repository files.
type FileReader interface {
	GetFile(ctx context.Context, path string) (github.File, error)
}

// FileWriter mutates repository files and lists the tree.
type FileWriter interface {
	FileReader
	PutFile(ctx context.Context, path, content, sha, message string) (github.WriteResult, error)
	DeleteFile(ctx context.Context, path, sha, message string) (github.WriteResult, error)
	Tree(ctx context.Context, ref string) ([]string, error)
}

// Workflows reads CI runs and their logs.
type Workflows interface {
	LatestRun(ctx context.Context, workflow string) (github.Run, error)
	RunLogs(ctx context.Context, runID int64) (string, error)
}

// Repository is everything the orchestrator needs from the remote.
type Repository interface {
	FileWriter
	Workflows
	FullName() string
}

var _ Repository = (*github.Repository)(nil)
