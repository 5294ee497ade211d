// Package eventbus provides a typed publish/subscribe event bus used to
// report orchestration progress to whoever is watching a request.
package eventbus

const (
	EventAgentMessage  Event = "agent.message"
	EventBuildStatus   Event = "build.status"
	EventFileOperation Event = "file.operation"
)

// FileOp is the progress state of a single file operation.
type FileOp string

const (
	OpReading  FileOp = "reading"
	OpRead     FileOp = "read"
	OpCreating FileOp = "creating"
	OpCreated  FileOp = "created"
	OpEditing  FileOp = "editing"
	OpEdited   FileOp = "edited"
	OpDeleting FileOp = "deleting"
	OpDeleted  FileOp = "deleted"
	OpSkipped  FileOp = "skipped"
	OpFailed   FileOp = "failed"
)

// Done reports whether the operation state is terminal for its file.
func (o FileOp) Done() bool {
	switch o {
	case OpRead, OpCreated, OpEdited, OpDeleted, OpSkipped, OpFailed:
		return true
	default:
		return false
	}
}

// FileOperationPayload is emitted before and after every file read or mutation.
type FileOperationPayload struct {
	RequestID string
	Path      string
	Operation FileOp
}

// BuildStatusPayload is emitted on every change of the observed CI status.
type BuildStatusPayload struct {
	RequestID string
	Attempt   int
	Status    string
	ErrorLogs string
}

// AgentMessagePayload carries narration text meant for the user.
type AgentMessagePayload struct {
	RequestID string
	Text      string
}

// PublishFileOperation enqueues a file.operation event.
func (bus *EventBus) PublishFileOperation(p FileOperationPayload) {
	if bus == nil {
		return
	}
	bus.send(EventFileOperation, p)
}

// SubscribeFileOperation registers fn for file.operation events.
func (bus *EventBus) SubscribeFileOperation(fn func(FileOperationPayload)) {
	bus.subscribe(EventFileOperation, func(p any) { fn(p.(FileOperationPayload)) })
}

// PublishBuildStatus enqueues a build.status event.
func (bus *EventBus) PublishBuildStatus(p BuildStatusPayload) {
	if bus == nil {
		return
	}
	bus.send(EventBuildStatus, p)
}

// SubscribeBuildStatus registers fn for build.status events.
func (bus *EventBus) SubscribeBuildStatus(fn func(BuildStatusPayload)) {
	bus.subscribe(EventBuildStatus, func(p any) { fn(p.(BuildStatusPayload)) })
}

// PublishAgentMessage enqueues an agent.message event.
func (bus *EventBus) PublishAgentMessage(p AgentMessagePayload) {
	if bus == nil {
		return
	}
	bus.send(EventAgentMessage, p)
}

// SubscribeAgentMessage registers fn for agent.message events.
func (bus *EventBus) SubscribeAgentMessage(fn func(AgentMessagePayload)) {
	bus.subscribe(EventAgentMessage, func(p any) { fn(p.(AgentMessagePayload)) })
}
