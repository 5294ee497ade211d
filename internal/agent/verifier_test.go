package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/promptstack/internal/core/eventbus"
	"github.com/colonyops/promptstack/internal/core/eventbus/testbus"
	"github.com/colonyops/promptstack/internal/github"
)

func newTestVerifier(repo *fakeRepo, clock *fakeClock, bus *eventbus.EventBus) *Verifier {
	return NewVerifier(repo, VerifierOptions{Clock: clock, Bus: bus, Logger: zerolog.Nop()})
}

func run(id int64, conclusion string, created time.Time) github.Run {
	return github.Run{ID: id, Conclusion: conclusion, CreatedAt: created}
}

func TestVerifier_SuccessShortCircuits(t *testing.T) {
	repo := newFakeRepo(nil)
	repo.runs = []github.Run{run(1, "", t0.Add(time.Second)), run(1, "success", t0.Add(time.Second))}
	clock := newFakeClock()

	res := newTestVerifier(repo, clock, nil).Verify(context.Background(), "req", 1, BuildTarget{Since: t0})

	assert.Equal(t, BuildSuccess, res.Status)
	assert.Equal(t, 2, repo.polls)
	assert.Zero(t, repo.logCalls)
	assert.Equal(t, 5*time.Second, clock.Now().Sub(t0))
}

func TestVerifier_FailureFetchesAndSanitizesLogs(t *testing.T) {
	repo := newFakeRepo(nil)
	repo.runs = []github.Run{run(7, "failure", t0.Add(time.Second))}
	repo.logs = "2026-03-01T12:00:00Z setup\n2026-03-01T12:00:01Z Error: cannot find module 'x'"

	res := newTestVerifier(repo, newFakeClock(), nil).Verify(context.Background(), "req", 1, BuildTarget{Since: t0})

	assert.Equal(t, BuildFailure, res.Status)
	assert.Equal(t, int64(7), res.RunID)
	assert.Equal(t, "failure", res.Conclusion)
	assert.Equal(t, "setup\nError: cannot find module 'x'", res.ErrorLogs)
	assert.Equal(t, 1, repo.logCalls)
}

func TestVerifier_TimesOutExactlyAtBudget(t *testing.T) {
	repo := newFakeRepo(nil)
	repo.runs = []github.Run{run(3, "", t0.Add(time.Second))}
	clock := newFakeClock()

	res := newTestVerifier(repo, clock, nil).Verify(context.Background(), "req", 1, BuildTarget{Since: t0})

	assert.Equal(t, BuildTimeout, res.Status)
	assert.Equal(t, 120*time.Second, clock.Now().Sub(t0))
	assert.Equal(t, 25, repo.polls)
}

func TestVerifier_NoRuns(t *testing.T) {
	repo := newFakeRepo(nil)

	res := newTestVerifier(repo, newFakeClock(), nil).Verify(context.Background(), "req", 1, BuildTarget{Since: t0})

	assert.Equal(t, BuildNoRuns, res.Status)
}

func TestVerifier_IgnoresRunsOlderThanSince(t *testing.T) {
	repo := newFakeRepo(nil)
	repo.runs = []github.Run{
		run(1, "success", t0.Add(-time.Hour)),
		run(1, "success", t0.Add(-time.Hour)),
		run(2, "failure", t0.Add(3*time.Second)),
	}

	res := newTestVerifier(repo, newFakeClock(), nil).Verify(context.Background(), "req", 1, BuildTarget{Since: t0})

	assert.Equal(t, BuildFailure, res.Status)
	assert.Equal(t, int64(2), res.RunID)
}

func TestVerifier_MatchesHeadSHADespiteClockSkew(t *testing.T) {
	repo := newFakeRepo(nil)
	r := run(4, "success", t0.Add(-10*time.Second))
	r.HeadSHA = "c1"
	repo.runs = []github.Run{r}

	res := newTestVerifier(repo, newFakeClock(), nil).Verify(context.Background(), "req", 1, BuildTarget{Since: t0, HeadSHA: "c1"})

	assert.Equal(t, BuildSuccess, res.Status)
	assert.Equal(t, int64(4), res.RunID)
}

func TestVerifier_IgnoresRunForOtherCommit(t *testing.T) {
	repo := newFakeRepo(nil)
	stale := run(1, "success", t0.Add(2*time.Second))
	stale.HeadSHA = "c0"
	fresh := run(2, "failure", t0.Add(3*time.Second))
	fresh.HeadSHA = "c1"
	repo.runs = []github.Run{stale, stale, fresh}

	res := newTestVerifier(repo, newFakeClock(), nil).Verify(context.Background(), "req", 1, BuildTarget{Since: t0, HeadSHA: "c1"})

	assert.Equal(t, BuildFailure, res.Status)
	assert.Equal(t, int64(2), res.RunID)
	assert.Equal(t, 3, repo.polls)
}

func TestVerifier_ErrorOnLastPoll(t *testing.T) {
	repo := newFakeRepo(nil)
	repo.runErr = errors.New("bad gateway")

	res := newTestVerifier(repo, newFakeClock(), nil).Verify(context.Background(), "req", 1, BuildTarget{Since: t0})

	assert.Equal(t, BuildError, res.Status)
	assert.Contains(t, res.ErrorLogs, "bad gateway")
}

func TestVerifier_CancelledContext(t *testing.T) {
	repo := newFakeRepo(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := newTestVerifier(repo, newFakeClock(), nil).Verify(ctx, "req", 1, BuildTarget{Since: t0})
	assert.Equal(t, BuildError, res.Status)
}

func TestVerifier_PublishesStatusChanges(t *testing.T) {
	tb := testbus.New(t)
	repo := newFakeRepo(nil)
	repo.runs = []github.Run{run(1, "", t0), run(1, "", t0), run(1, "success", t0)}

	newTestVerifier(repo, newFakeClock(), tb.EventBus).Verify(context.Background(), "req-9", 2, BuildTarget{Since: t0})

	var statuses []string
	require.Eventually(t, func() bool {
		statuses = statuses[:0]
		for _, e := range tb.Events() {
			if p, ok := e.Payload.(eventbus.BuildStatusPayload); ok {
				statuses = append(statuses, p.Status)
				assert.Equal(t, 2, p.Attempt)
				assert.Equal(t, "req-9", p.RequestID)
			}
		}
		return len(statuses) == 2
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"in_progress", "success"}, statuses)
}
