package eventbus

import (
	"fmt"

	"github.com/rs/zerolog"
)

// RegisterDebugLogger logs every published event at debug level, dropped
// events at warn and subscriber panics at error, tagged with the request and
// the payload's subject.
func RegisterDebugLogger(bus *EventBus, logger zerolog.Logger) {
	bus.OnPublish(func(event Event, payload any) {
		payloadFields(logger.Debug(), event, payload).Msg("event published")
	})

	bus.OnDrop(func(event Event, payload any) {
		payloadFields(logger.Warn(), event, payload).Msg("event dropped, queue full")
	})

	bus.OnPanic(func(event Event, payload any, recovered any) {
		payloadFields(logger.Error(), event, payload).
			Str("panic", fmt.Sprint(recovered)).
			Msg("subscriber panicked")
	})
}

func payloadFields(e *zerolog.Event, event Event, payload any) *zerolog.Event {
	e = e.Str("event", string(event))
	switch p := payload.(type) {
	case FileOperationPayload:
		e = e.Str("request_id", p.RequestID).Str("path", p.Path).Str("op", string(p.Operation))
	case BuildStatusPayload:
		e = e.Str("request_id", p.RequestID).Int("attempt", p.Attempt).Str("status", p.Status)
	case AgentMessagePayload:
		e = e.Str("request_id", p.RequestID).Int("chars", len(p.Text))
	}
	return e
}
