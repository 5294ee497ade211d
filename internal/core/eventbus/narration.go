package eventbus

import "fmt"

// NarrationRouter turns build and file events into user-facing agent messages.
type NarrationRouter struct {
	bus *EventBus
}

// NewNarrationRouter constructs a router for event-to-narration mappings.
func NewNarrationRouter(bus *EventBus) *NarrationRouter {
	return &NarrationRouter{bus: bus}
}

// Register subscribes all supported event mappings.
func (r *NarrationRouter) Register() {
	if r == nil || r.bus == nil {
		return
	}

	r.bus.SubscribeBuildStatus(func(p BuildStatusPayload) {
		switch p.Status {
		case "in_progress":
			r.narrate(p.RequestID, "Testing the build (attempt %d)", p.Attempt)
		case "success":
			r.narrate(p.RequestID, "Build passed")
		case "failure":
			r.narrate(p.RequestID, "Build failed, asking the engineer to fix it")
		case "timeout":
			r.narrate(p.RequestID, "Build did not finish in time")
		}
	})

	r.bus.SubscribeFileOperation(func(p FileOperationPayload) {
		if p.Operation == OpFailed {
			r.narrate(p.RequestID, "Could not update %s", p.Path)
		}
	})
}

func (r *NarrationRouter) narrate(requestID, format string, args ...any) {
	r.bus.PublishAgentMessage(AgentMessagePayload{
		RequestID: requestID,
		Text:      fmt.Sprintf(format, args...),
	})
}
