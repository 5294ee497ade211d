package github

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

const contentCacheSize = 256

// File is a decoded blob from the contents API.
type File struct {
	Path    string
	SHA     string
	Content string
}

// Repository binds a Client to one owner/name and an optional branch.
// Fetched files are cached by path until the next write to that path.
type Repository struct {
	client *Client
	owner  string
	name   string
	branch string
	cache  *lru.Cache[string, File]
}

// Repository returns a handle for owner/name. An empty branch targets the
// repository's default branch.
func (c *Client) Repository(owner, name, branch string) *Repository {
	cache, err := lru.New[string, File](contentCacheSize)
	if err != nil {
		// only fails for a non-positive size
		panic(err)
	}
	return &Repository{client: c, owner: owner, name: name, branch: branch, cache: cache}
}

// FullName returns owner/name.
func (r *Repository) FullName() string {
	return r.owner + "/" + r.name
}

// Branch returns the configured branch, which may be empty.
func (r *Repository) Branch() string {
	return r.branch
}

func (r *Repository) repoPath(suffix string) string {
	return fmt.Sprintf("/repos/%s/%s%s", url.PathEscape(r.owner), url.PathEscape(r.name), suffix)
}

func escapePath(p string) string {
	parts := strings.Split(strings.Trim(p, "/"), "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}

func (r *Repository) contentsPath(p string) string {
	return r.repoPath("/contents/" + escapePath(p))
}

type contentResponse struct {
	Type     string `json:"type"`
	Path     string `json:"path"`
	SHA      string `json:"sha"`
	Encoding string `json:"encoding"`
	Content  string `json:"content"`
}

// GetFile fetches and base64-decodes a file. A missing file returns an
// *APIError for which IsNotFound is true.
func (r *Repository) GetFile(ctx context.Context, path string) (File, error) {
	if f, ok := r.cache.Get(path); ok {
		return f, nil
	}

	reqPath := r.contentsPath(path)
	if r.branch != "" {
		reqPath += "?ref=" + url.QueryEscape(r.branch)
	}

	var resp contentResponse
	if err := r.client.doJSON(ctx, "get file", http.MethodGet, reqPath, nil, &resp); err != nil {
		return File{}, err
	}
	if resp.Type != "file" {
		return File{}, fmt.Errorf("get file %s: not a file (type %q)", path, resp.Type)
	}
	if resp.Encoding != "base64" {
		return File{}, fmt.Errorf("get file %s: unsupported encoding %q", path, resp.Encoding)
	}

	raw, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(resp.Content, "\n", ""))
	if err != nil {
		return File{}, fmt.Errorf("get file %s: decode content: %w", path, err)
	}

	f := File{Path: path, SHA: resp.SHA, Content: string(raw)}
	r.cache.Add(path, f)
	return f, nil
}

type putFileRequest struct {
	Message string `json:"message"`
	Content string `json:"content"`
	SHA     string `json:"sha,omitempty"`
	Branch  string `json:"branch,omitempty"`
}

// WriteResult identifies what a contents write produced. ContentSHA is empty
// after a delete.
type WriteResult struct {
	ContentSHA string
	CommitSHA  string
}

type writeResponse struct {
	Content *struct {
		SHA string `json:"sha"`
	} `json:"content"`
	Commit struct {
		SHA string `json:"sha"`
	} `json:"commit"`
}

func (w writeResponse) result() WriteResult {
	res := WriteResult{CommitSHA: w.Commit.SHA}
	if w.Content != nil {
		res.ContentSHA = w.Content.SHA
	}
	return res
}

// PutFile creates path when sha is empty, or updates it when sha is the
// current blob sha.
func (r *Repository) PutFile(ctx context.Context, path, content, sha, message string) (WriteResult, error) {
	r.cache.Remove(path)

	body := putFileRequest{
		Message: message,
		Content: base64.StdEncoding.EncodeToString([]byte(content)),
		SHA:     sha,
		Branch:  r.branch,
	}

	var resp writeResponse
	if err := r.client.doJSON(ctx, "put file", http.MethodPut, r.contentsPath(path), body, &resp); err != nil {
		return WriteResult{}, err
	}
	return resp.result(), nil
}

type deleteFileRequest struct {
	Message string `json:"message"`
	SHA     string `json:"sha"`
	Branch  string `json:"branch,omitempty"`
}

// DeleteFile removes path at blob sha.
func (r *Repository) DeleteFile(ctx context.Context, path, sha, message string) (WriteResult, error) {
	r.cache.Remove(path)

	body := deleteFileRequest{Message: message, SHA: sha, Branch: r.branch}
	var resp writeResponse
	if err := r.client.doJSON(ctx, "delete file", http.MethodDelete, r.contentsPath(path), body, &resp); err != nil {
		return WriteResult{}, err
	}
	return resp.result(), nil
}

type treeResponse struct {
	Tree []struct {
		Path string `json:"path"`
		Type string `json:"type"`
	} `json:"tree"`
	Truncated bool `json:"truncated"`
}

// Tree lists every blob path reachable from ref. An empty ref uses the
// repository branch, falling back to HEAD.
func (r *Repository) Tree(ctx context.Context, ref string) ([]string, error) {
	if ref == "" {
		ref = r.branch
	}
	if ref == "" {
		ref = "HEAD"
	}

	var resp treeResponse
	reqPath := r.repoPath("/git/trees/" + url.PathEscape(ref) + "?recursive=1")
	if err := r.client.doJSON(ctx, "get tree", http.MethodGet, reqPath, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Truncated {
		r.client.log.Warn().Str("repo", r.FullName()).Msg("tree listing truncated by api")
	}

	paths := make([]string, 0, len(resp.Tree))
	for _, entry := range resp.Tree {
		if entry.Type == "blob" {
			paths = append(paths, entry.Path)
		}
	}
	return paths, nil
}
