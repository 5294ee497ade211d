package eventbus_test

import (
	"testing"
	"time"

	"github.com/colonyops/promptstack/internal/core/eventbus"
	"github.com/colonyops/promptstack/internal/core/eventbus/testbus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func latestAgentMessage(tb *testbus.Bus, t *testing.T) eventbus.AgentMessagePayload {
	t.Helper()
	tb.AssertPublished(t, eventbus.EventAgentMessage)

	var payload eventbus.AgentMessagePayload
	for _, e := range tb.Events() {
		if e.Event != eventbus.EventAgentMessage {
			continue
		}
		p, ok := e.Payload.(eventbus.AgentMessagePayload)
		require.True(t, ok)
		payload = p
	}

	return payload
}

func TestNarrationRouter_BuildFailure(t *testing.T) {
	tb := testbus.New(t)
	eventbus.NewNarrationRouter(tb.EventBus).Register()

	tb.PublishBuildStatus(eventbus.BuildStatusPayload{RequestID: "req-1", Attempt: 2, Status: "failure"})
	p := latestAgentMessage(tb, t)

	assert.Equal(t, "req-1", p.RequestID)
	assert.Contains(t, p.Text, "Build failed")
}

func TestNarrationRouter_BuildInProgress(t *testing.T) {
	tb := testbus.New(t)
	eventbus.NewNarrationRouter(tb.EventBus).Register()

	tb.PublishBuildStatus(eventbus.BuildStatusPayload{Attempt: 3, Status: "in_progress"})
	p := latestAgentMessage(tb, t)

	assert.Contains(t, p.Text, "attempt 3")
}

func TestNarrationRouter_FileFailed(t *testing.T) {
	tb := testbus.New(t)
	eventbus.NewNarrationRouter(tb.EventBus).Register()

	tb.PublishFileOperation(eventbus.FileOperationPayload{Path: "src/app.js", Operation: eventbus.OpFailed})
	p := latestAgentMessage(tb, t)

	assert.Contains(t, p.Text, "src/app.js")
}

func TestNarrationRouter_FileCreated_doesNotPublish(t *testing.T) {
	tb := testbus.New(t)
	eventbus.NewNarrationRouter(tb.EventBus).Register()

	tb.PublishFileOperation(eventbus.FileOperationPayload{Path: "a.js", Operation: eventbus.OpCreated})
	tb.AssertNotPublished(t, eventbus.EventAgentMessage, 100*time.Millisecond)
}

func TestNarrationRouter_NoRuns_doesNotPublish(t *testing.T) {
	tb := testbus.New(t)
	eventbus.NewNarrationRouter(tb.EventBus).Register()

	tb.PublishBuildStatus(eventbus.BuildStatusPayload{Status: "no_runs"})
	tb.AssertNotPublished(t, eventbus.EventAgentMessage, 100*time.Millisecond)
}
