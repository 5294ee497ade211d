package printer

import (
	"fmt"

	"github.com/colonyops/promptstack/internal/core/eventbus"
	"github.com/colonyops/promptstack/internal/core/styles"
)

// AttachProgress subscribes p to bus and renders file, build and narration
// events as they are dispatched. Pending states are not printed.
func (p *Printer) AttachProgress(bus *eventbus.EventBus) {
	bus.SubscribeFileOperation(func(e eventbus.FileOperationPayload) {
		if !e.Operation.Done() {
			return
		}
		p.line(fileOpLine(e))
	})

	bus.SubscribeBuildStatus(func(e eventbus.BuildStatusPayload) {
		p.line(buildLine(e))
	})

	bus.SubscribeAgentMessage(func(e eventbus.AgentMessagePayload) {
		p.line(styles.TextSecondaryStyle.Render(styles.IconBrain) + styles.TextForegroundStyle.Render(e.Text))
	})
}

func fileOpLine(e eventbus.FileOperationPayload) string {
	var icon, label string
	style := styles.TextMutedStyle

	switch e.Operation {
	case eventbus.OpRead:
		icon, label = styles.IconFileRead, "read"
	case eventbus.OpCreated:
		icon, label, style = styles.IconFileCreate, "created", styles.TextSuccessStyle
	case eventbus.OpEdited:
		icon, label, style = styles.IconFileEdit, "edited", styles.TextPrimaryBoldStyle
	case eventbus.OpDeleted:
		icon, label, style = styles.IconFileDelete, "deleted", styles.TextWarningStyle
	case eventbus.OpSkipped:
		icon, label = styles.IconFileSkipped, "skipped"
	case eventbus.OpFailed:
		icon, label, style = styles.IconFileFailed, "failed", styles.TextErrorStyle
	default:
		icon, label = " ", string(e.Operation)
	}

	return fmt.Sprintf("  %s %-8s %s", style.Render(icon), style.Render(label), e.Path)
}

func buildLine(e eventbus.BuildStatusPayload) string {
	switch e.Status {
	case "success":
		return styles.TextSuccessStyle.Render(styles.IconBuildSuccess + " build passed")
	case "failure":
		return styles.TextErrorStyle.Render(styles.IconBuildFailure + " build failed")
	case "in_progress":
		return styles.TextMutedStyle.Render(fmt.Sprintf("%s build running (attempt %d)", styles.IconBuildRunning, e.Attempt))
	default:
		return styles.TextWarningStyle.Render(fmt.Sprintf("%s build %s", styles.IconBuildRunning, e.Status))
	}
}
