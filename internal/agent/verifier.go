package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/colonyops/promptstack/internal/core/eventbus"
	"github.com/colonyops/promptstack/internal/github"
)

// BuildStatus is the observed state of a CI run.
type BuildStatus string

const (
	BuildSuccess    BuildStatus = "success"
	BuildFailure    BuildStatus = "failure"
	BuildInProgress BuildStatus = "in_progress"
	BuildNoRuns     BuildStatus = "no_runs"
	BuildTimeout    BuildStatus = "timeout"
	BuildError      BuildStatus = "error"
)

// BuildResult is the verdict of one verification.
type BuildResult struct {
	Status     BuildStatus `json:"status"`
	RunID      int64       `json:"run_id,omitempty"`
	Conclusion string      `json:"conclusion,omitempty"`
	URL        string      `json:"url,omitempty"`
	ErrorLogs  string      `json:"error_logs,omitempty"`
}

// BuildTarget identifies the run a verification waits for. A run whose head
// commit is HeadSHA matches regardless of clocks; when either sha is unknown,
// any run created at or after Since matches.
type BuildTarget struct {
	Since   time.Time
	HeadSHA string
}

func (t BuildTarget) matches(run github.Run) bool {
	if t.HeadSHA != "" && run.HeadSHA != "" {
		return run.HeadSHA == t.HeadSHA
	}
	return !run.CreatedAt.Before(t.Since.Truncate(time.Second))
}

// Clock abstracts time for polling.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// VerifierOptions configures a Verifier. Zero values take the defaults of a
// 5s poll interval, a 120s budget, 5 context lines and 1000 log characters.
type VerifierOptions struct {
	Workflow     string
	PollInterval time.Duration
	Timeout      time.Duration
	ContextLines int
	MaxLogChars  int
	Clock        Clock
	Bus          *eventbus.EventBus
	Logger       zerolog.Logger
}

// Verifier polls the latest workflow run until it concludes or the budget
// runs out.
type Verifier struct {
	runs         Workflows
	workflow     string
	interval     time.Duration
	timeout      time.Duration
	contextLines int
	maxLogChars  int
	clock        Clock
	bus          *eventbus.EventBus
	log          zerolog.Logger
}

// NewVerifier creates a Verifier.
func NewVerifier(runs Workflows, opts VerifierOptions) *Verifier {
	if opts.Workflow == "" {
		opts.Workflow = "nextjs.yml"
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 5 * time.Second
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 120 * time.Second
	}
	if opts.ContextLines <= 0 {
		opts.ContextLines = 5
	}
	if opts.MaxLogChars <= 0 {
		opts.MaxLogChars = 1000
	}
	if opts.Clock == nil {
		opts.Clock = realClock{}
	}
	return &Verifier{
		runs:         runs,
		workflow:     opts.Workflow,
		interval:     opts.PollInterval,
		timeout:      opts.Timeout,
		contextLines: opts.ContextLines,
		maxLogChars:  opts.MaxLogChars,
		clock:        opts.Clock,
		bus:          opts.Bus,
		log:          opts.Logger,
	}
}

// Verify waits for a run matching target and returns its verdict. Runs that
// do not match count as no run yet.
func (v *Verifier) Verify(ctx context.Context, requestID string, attempt int, target BuildTarget) BuildResult {
	deadline := v.clock.Now().Add(v.timeout)

	var (
		last     BuildResult
		lastErr  error
		sawRun   bool
		reported BuildStatus
	)

	for {
		if err := ctx.Err(); err != nil {
			return BuildResult{Status: BuildError, ErrorLogs: err.Error()}
		}

		run, err := v.runs.LatestRun(ctx, v.workflow)
		lastErr = nil
		switch {
		case errors.Is(err, github.ErrNoRuns):
			last = BuildResult{Status: BuildNoRuns}
		case err != nil:
			if ctx.Err() != nil {
				return BuildResult{Status: BuildError, ErrorLogs: ctx.Err().Error()}
			}
			v.log.Warn().Err(err).Int("attempt", attempt).Msg("polling workflow runs failed")
			lastErr = err
		case !target.matches(run):
			last = BuildResult{Status: BuildNoRuns}
		case !run.Done():
			sawRun = true
			last = BuildResult{Status: BuildInProgress, RunID: run.ID, URL: run.HTMLURL}
		default:
			sawRun = true
			res := v.conclude(ctx, run)
			v.report(requestID, attempt, res)
			return res
		}

		if lastErr == nil && last.Status != reported {
			v.report(requestID, attempt, last)
			reported = last.Status
		}

		now := v.clock.Now()
		if !now.Before(deadline) {
			break
		}
		wait := min(v.interval, deadline.Sub(now))

		select {
		case <-ctx.Done():
			return BuildResult{Status: BuildError, ErrorLogs: ctx.Err().Error()}
		case <-v.clock.After(wait):
		}
	}

	var res BuildResult
	switch {
	case lastErr != nil:
		res = BuildResult{Status: BuildError, ErrorLogs: lastErr.Error()}
	case sawRun:
		res = BuildResult{Status: BuildTimeout, RunID: last.RunID, URL: last.URL}
	default:
		res = BuildResult{Status: BuildNoRuns}
	}
	v.report(requestID, attempt, res)
	return res
}

func (v *Verifier) conclude(ctx context.Context, run github.Run) BuildResult {
	res := BuildResult{RunID: run.ID, Conclusion: run.Conclusion, URL: run.HTMLURL}
	if run.Conclusion == "success" {
		res.Status = BuildSuccess
		return res
	}

	res.Status = BuildFailure
	logs, err := v.runs.RunLogs(ctx, run.ID)
	if err != nil {
		v.log.Warn().Err(err).Int64("run", run.ID).Msg("failed to download run logs")
		res.ErrorLogs = fmt.Sprintf("build concluded with %q; logs unavailable: %v", run.Conclusion, err)
		return res
	}
	res.ErrorLogs = SanitizeLogs(logs, v.contextLines, v.maxLogChars)
	return res
}

func (v *Verifier) report(requestID string, attempt int, res BuildResult) {
	v.bus.PublishBuildStatus(eventbus.BuildStatusPayload{
		RequestID: requestID,
		Attempt:   attempt,
		Status:    string(res.Status),
		ErrorLogs: res.ErrorLogs,
	})
}
