package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// ErrNoRuns is returned by LatestRun when the workflow has never run.
var ErrNoRuns = errors.New("no workflow runs")

// Run is one workflow run. Conclusion is empty while the run is queued or
// in progress.
type Run struct {
	ID         int64     `json:"id"`
	Status     string    `json:"status"`
	Conclusion string    `json:"conclusion"`
	HeadSHA    string    `json:"head_sha"`
	HTMLURL    string    `json:"html_url"`
	LogsURL    string    `json:"logs_url"`
	CreatedAt  time.Time `json:"created_at"`
}

// Done reports whether the run has a conclusion.
func (r Run) Done() bool {
	return r.Conclusion != ""
}

type runsResponse struct {
	TotalCount   int    `json:"total_count"`
	WorkflowRuns []*Run `json:"workflow_runs"`
}

// LatestRun returns the newest run of workflow (a file name such as
// "nextjs.yml" or a numeric id) on the repository branch, if set.
func (r *Repository) LatestRun(ctx context.Context, workflow string) (Run, error) {
	q := url.Values{}
	q.Set("per_page", "1")
	if r.branch != "" {
		q.Set("branch", r.branch)
	}

	reqPath := r.repoPath("/actions/workflows/" + url.PathEscape(workflow) + "/runs?" + q.Encode())

	var resp runsResponse
	if err := r.client.doJSON(ctx, "list workflow runs", http.MethodGet, reqPath, nil, &resp); err != nil {
		return Run{}, err
	}
	if len(resp.WorkflowRuns) == 0 || resp.WorkflowRuns[0] == nil {
		return Run{}, ErrNoRuns
	}
	return *resp.WorkflowRuns[0], nil
}

// RunLogs downloads the run's log archive and returns its text entries
// concatenated in name order.
func (r *Repository) RunLogs(ctx context.Context, runID int64) (string, error) {
	reqPath := r.repoPath(fmt.Sprintf("/actions/runs/%d/logs", runID))

	data, err := r.client.do(ctx, "download run logs", http.MethodGet, reqPath, nil)
	if err != nil {
		return "", err
	}
	return ExtractLogs(data)
}
