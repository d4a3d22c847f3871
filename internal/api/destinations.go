package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/restreamkit/restreamctl/internal/api/models"
	"github.com/restreamkit/restreamctl/internal/config"
	"github.com/restreamkit/restreamctl/internal/events"
	"github.com/restreamkit/restreamctl/internal/multistream"
)

// destinationToAPI converts a persisted destination to its API shape.
func destinationToAPI(index int, d config.DestinationSettings) models.DestinationData {
	service := multistream.Service(d.Service)
	orientation := multistream.Orientation(d.Orientation)
	dest := multistream.Destination{
		Service:     service,
		StreamKey:   d.StreamKey,
		Orientation: orientation,
		Enabled:     d.Enabled,
	}
	return models.DestinationData{
		Index:       index,
		Service:     service.String(),
		StreamKey:   d.StreamKey,
		Orientation: orientation.String(),
		Enabled:     d.Enabled,
		DeliveryURL: dest.DeliveryURL(),
	}
}

// destinationFromRequest validates and converts an API request body.
func destinationFromRequest(body models.DestinationRequestData) (config.DestinationSettings, error) {
	service, err := multistream.ParseService(body.Service)
	if err != nil {
		return config.DestinationSettings{}, huma.Error400BadRequest("unknown service", err)
	}
	orientation := multistream.OrientationAuto
	if body.Orientation != "" {
		orientation, err = multistream.ParseOrientation(body.Orientation)
		if err != nil {
			return config.DestinationSettings{}, huma.Error400BadRequest("unknown orientation", err)
		}
	}
	return config.DestinationSettings{
		Service:     int(service),
		StreamKey:   body.StreamKey,
		Orientation: int(orientation),
		Enabled:     body.Enabled,
	}, nil
}

func destinationToDomain(d config.DestinationSettings) multistream.Destination {
	return multistream.Destination{
		Service:     multistream.Service(d.Service),
		StreamKey:   d.StreamKey,
		Orientation: multistream.Orientation(d.Orientation),
		Enabled:     d.Enabled,
	}
}

// applyLiveChange mutates the running fan-out job to match a registry
// change, keying update and removal off the output id realized at add time
// rather than the registry index, which shifts on removal. Best effort: the
// registry is already persisted, so a live mutation failure is logged
// rather than surfaced.
func (s *Server) applyLiveChange(ctx context.Context, action string, d config.DestinationSettings, index int) {
	if !s.orchestrator.IsActive() {
		return
	}

	source := multistream.Orientation(s.store.Get().SourceOrientation)
	dest := destinationToDomain(d)

	var err error
	switch action {
	case "added", "enabled":
		if d.RemoteOutputID != "" {
			// Already realized on the engine.
			return
		}
		var outputID string
		outputID, err = s.orchestrator.AddLiveOutput(ctx, dest, index, source)
		if err == nil {
			s.store.SetDestinationOutputID(index, outputID)
		}
	case "updated":
		if d.RemoteOutputID == "" {
			// Start-time outputs live inside the tee command and cannot be
			// mutated individually.
			return
		}
		err = s.orchestrator.UpdateLiveOutput(ctx, dest, d.RemoteOutputID, source)
	case "removed", "disabled":
		if d.RemoteOutputID == "" {
			return
		}
		err = s.orchestrator.RemoveLiveOutput(ctx, d.RemoteOutputID)
		if err == nil && action == "disabled" {
			s.store.SetDestinationOutputID(index, "")
		}
	}
	if err != nil {
		s.logger.Warn("Live output mutation failed", "action", action, "index", index, "error", err)
	}
}

func (s *Server) publishDestinationChange(index int, service string, action string) {
	s.eventBus.Publish(events.DestinationChangedEvent{
		Index:     index,
		Service:   service,
		Action:    action,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// registerDestinationRoutes registers destination registry endpoints
func (s *Server) registerDestinationRoutes() {
	// List destinations
	huma.Register(s.api, huma.Operation{
		OperationID: "list-destinations",
		Method:      http.MethodGet,
		Path:        "/api/destinations",
		Summary:     "List Destinations",
		Description: "Get the ordered destination registry",
		Tags:        []string{"destinations"},
		Errors:      []int{401},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct{}) (*models.DestinationListResponse, error) {
		settings := s.store.Get()
		destinations := make([]models.DestinationData, len(settings.Destinations))
		for i, d := range settings.Destinations {
			destinations[i] = destinationToAPI(i, d)
		}
		return &models.DestinationListResponse{
			Body: models.DestinationListData{
				Destinations: destinations,
				Count:        len(destinations),
			},
		}, nil
	})

	// Add destination
	huma.Register(s.api, huma.Operation{
		OperationID: "add-destination",
		Method:      http.MethodPost,
		Path:        "/api/destinations",
		Summary:     "Add Destination",
		Description: "Append a destination to the registry",
		Tags:        []string{"destinations"},
		Errors:      []int{400, 401, 500},
		Security:    withAuth(),
	}, func(ctx context.Context, input *models.DestinationRequest) (*models.DestinationResponse, error) {
		d, err := destinationFromRequest(input.Body)
		if err != nil {
			return nil, err
		}
		if addErr := s.store.AddDestination(d); addErr != nil {
			return nil, huma.Error400BadRequest("failed to add destination", addErr)
		}

		settings := s.store.Get()
		index := len(settings.Destinations) - 1
		if d.Enabled {
			s.applyLiveChange(ctx, "added", d, index)
		}
		s.publishDestinationChange(index, input.Body.Service, "added")

		return &models.DestinationResponse{
			Body: destinationToAPI(index, settings.Destinations[index]),
		}, nil
	})

	// Update destination
	huma.Register(s.api, huma.Operation{
		OperationID: "update-destination",
		Method:      http.MethodPut,
		Path:        "/api/destinations/{index}",
		Summary:     "Update Destination",
		Description: "Replace the destination at the given registry index",
		Tags:        []string{"destinations"},
		Errors:      []int{400, 401, 404},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct {
		Index int `path:"index" minimum:"0" example:"0" doc:"Registry index"`
		Body  models.DestinationRequestData
	}) (*models.DestinationResponse, error) {
		d, err := destinationFromRequest(input.Body)
		if err != nil {
			return nil, err
		}
		if updateErr := s.store.UpdateDestination(input.Index, d); updateErr != nil {
			return nil, huma.Error404NotFound("destination not found", updateErr)
		}

		// Re-read the stored entry; it carries the realized output id.
		stored := s.store.Get().Destinations[input.Index]
		if stored.Enabled {
			s.applyLiveChange(ctx, "updated", stored, input.Index)
		} else {
			s.applyLiveChange(ctx, "disabled", stored, input.Index)
		}
		s.publishDestinationChange(input.Index, input.Body.Service, "updated")

		return &models.DestinationResponse{
			Body: destinationToAPI(input.Index, d),
		}, nil
	})

	// Remove destination
	huma.Register(s.api, huma.Operation{
		OperationID: "remove-destination",
		Method:      http.MethodDelete,
		Path:        "/api/destinations/{index}",
		Summary:     "Remove Destination",
		Description: "Remove the destination at the given registry index, preserving the order of the remainder",
		Tags:        []string{"destinations"},
		Errors:      []int{401, 404},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct {
		Index int `path:"index" minimum:"0" example:"0" doc:"Registry index"`
	}) (*struct{}, error) {
		settings := s.store.Get()
		service := ""
		var removed config.DestinationSettings
		if input.Index >= 0 && input.Index < len(settings.Destinations) {
			removed = settings.Destinations[input.Index]
			service = multistream.Service(removed.Service).String()
		}

		if err := s.store.RemoveDestination(input.Index); err != nil {
			return nil, huma.Error404NotFound("destination not found", err)
		}

		if removed.Enabled {
			s.applyLiveChange(ctx, "removed", removed, input.Index)
		}
		s.publishDestinationChange(input.Index, service, "removed")
		return &struct{}{}, nil
	})

	// Enable or disable destination
	huma.Register(s.api, huma.Operation{
		OperationID: "set-destination-enabled",
		Method:      http.MethodPut,
		Path:        "/api/destinations/{index}/enabled",
		Summary:     "Enable Destination",
		Description: "Toggle whether the destination participates in fan-out",
		Tags:        []string{"destinations"},
		Errors:      []int{401, 404},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct {
		Index int `path:"index" minimum:"0" example:"0" doc:"Registry index"`
		Body  models.DestinationEnableRequestData
	}) (*models.DestinationResponse, error) {
		if err := s.store.SetDestinationEnabled(input.Index, input.Body.Enabled); err != nil {
			return nil, huma.Error404NotFound("destination not found", err)
		}

		settings := s.store.Get()
		d := settings.Destinations[input.Index]

		action := "disabled"
		if input.Body.Enabled {
			action = "enabled"
		}
		s.applyLiveChange(ctx, action, d, input.Index)
		s.publishDestinationChange(input.Index, multistream.Service(d.Service).String(), action)

		return &models.DestinationResponse{
			Body: destinationToAPI(input.Index, d),
		}, nil
	})
}
