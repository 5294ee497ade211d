// Package project defines the per-project record the agent reads and updates.
package project

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// ErrNotFound is returned when a project record does not exist.
var ErrNotFound = errors.New("project not found")

// Record describes a project backed by a remote repository.
type Record struct {
	ID    string `json:"id"`
	Owner string `json:"owner"`
	Repo  string `json:"repo"`
	// Files is the last reconciled list of repository file paths.
	Files []string `json:"files"`
	// Structure is the rendered tree of Files, cached for prompts.
	Structure string    `json:"structure"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FullName returns "owner/repo".
func (r Record) FullName() string {
	return r.Owner + "/" + r.Repo
}

// Store persists project records.
type Store interface {
	Get(ctx context.Context, id string) (Record, error)
	Save(ctx context.Context, rec Record) error
	// UpdateStructure replaces the cached file list and rendered tree.
	UpdateStructure(ctx context.Context, id string, files []string, structure string) error
}

var remoteRe = regexp.MustCompile(`^(?:https?://[^/]+/|git@[^:]+:|ssh://git@[^/]+/)(.+?)(?:\.git)?/?$`)

// ParseRepo extracts owner and repository name from "owner/repo", an HTTPS
// remote, or an SSH remote. For nested groups the last two segments are used.
func ParseRepo(s string) (owner, repo string, err error) {
	s = strings.TrimSpace(s)
	p := s
	if m := remoteRe.FindStringSubmatch(s); m != nil {
		p = m[1]
	}
	p = strings.TrimSuffix(p, ".git")

	parts := strings.Split(strings.Trim(p, "/"), "/")
	if len(parts) < 2 || parts[len(parts)-2] == "" || parts[len(parts)-1] == "" || strings.Contains(p, ":") {
		return "", "", fmt.Errorf("invalid repository %q: want owner/repo or a git remote URL", s)
	}
	return parts[len(parts)-2], parts[len(parts)-1], nil
}
