package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"

	"github.com/restreamkit/restreamctl/internal/events"
)

// registerEventRoutes registers the SSE event stream endpoint.
func (s *Server) registerEventRoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "events-stream",
		Method:      http.MethodGet,
		Path:        "/api/events/stream",
		Summary:     "Event Stream",
		Description: "Real-time orchestration and monitoring events via Server-Sent Events",
		Tags:        []string{"events"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, map[string]any{
		"multistream_started": events.MultistreamStartedEvent{},
		"multistream_stopped": events.MultistreamStoppedEvent{},
		"destination_changed": events.DestinationChangedEvent{},
		"connection_changed":  events.ConnectionChangedEvent{},
		"process_state":       events.ProcessStateEvent{},
		"sessions_updated":    events.SessionsUpdatedEvent{},
		"engine_unreachable":  events.EngineUnreachableEvent{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		// Create event channel for this connection
		eventCh := make(chan any, 64)

		unsubs := []func(){
			events.SubscribeToChannel[events.MultistreamStartedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.MultistreamStoppedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.DestinationChangedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.ConnectionChangedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.ProcessStateEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.SessionsUpdatedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.EngineUnreachableEvent](s.eventBus, eventCh),
		}
		defer func() {
			for _, unsub := range unsubs {
				unsub()
			}
		}()

		// Stream events as they arrive
		for {
			select {
			case <-ctx.Done():
				return
			case event := <-eventCh:
				if err := send.Data(event); err != nil {
					return
				}
			}
		}
	})
}
