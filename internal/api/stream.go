package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/restreamkit/restreamctl/internal/api/models"
	"github.com/restreamkit/restreamctl/internal/events"
	"github.com/restreamkit/restreamctl/internal/multistream"
)

// registerMultistreamRoutes registers the fan-out lifecycle endpoints
func (s *Server) registerMultistreamRoutes() {
	// Start multistream
	huma.Register(s.api, huma.Operation{
		OperationID: "start-multistream",
		Method:      http.MethodPost,
		Path:        "/api/multistream/start",
		Summary:     "Start Multistream",
		Description: "Create and autostart a fan-out job delivering the input stream to every enabled destination",
		Tags:        []string{"multistream"},
		Errors:      []int{400, 401, 409, 502},
		Security:    withAuth(),
	}, func(ctx context.Context, input *models.MultistreamStartRequest) (*models.MultistreamStatusResponse, error) {
		cfg := s.store.Get().Multistream()

		err := s.orchestrator.Start(ctx, cfg, input.Body.InputURL)
		switch {
		case errors.Is(err, multistream.ErrNoDestinations):
			return nil, huma.Error409Conflict("no destinations configured")
		case errors.Is(err, multistream.ErrNoEnabledDestinations):
			return nil, huma.Error409Conflict("no enabled destinations")
		case err != nil:
			return nil, huma.Error502BadGateway("failed to start multistream", err)
		}

		// Output ids realized against a previous job are meaningless now.
		s.store.ClearDestinationOutputIDs()

		s.eventBus.Publish(events.MultistreamStartedEvent{
			Reference:    s.orchestrator.Reference(),
			Destinations: len(cfg.EnabledDestinations()),
			Timestamp:    time.Now().UTC().Format(time.RFC3339),
		})

		return &models.MultistreamStatusResponse{
			Body: models.MultistreamStatusData{
				Active:    true,
				Reference: s.orchestrator.Reference(),
			},
		}, nil
	})

	// Stop multistream
	huma.Register(s.api, huma.Operation{
		OperationID: "stop-multistream",
		Method:      http.MethodPost,
		Path:        "/api/multistream/stop",
		Summary:     "Stop Multistream",
		Description: "Stop the running fan-out job. The job is re-resolved by reference against live engine state.",
		Tags:        []string{"multistream"},
		Errors:      []int{401, 404, 502},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct{}) (*models.MultistreamStatusResponse, error) {
		reference := s.orchestrator.Reference()

		err := s.orchestrator.Stop(ctx)
		switch {
		case errors.Is(err, multistream.ErrProcessNotFound):
			return nil, huma.Error404NotFound("process not found")
		case err != nil:
			return nil, huma.Error502BadGateway("failed to stop multistream", err)
		}

		s.store.ClearDestinationOutputIDs()

		s.eventBus.Publish(events.MultistreamStoppedEvent{
			Reference: reference,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})

		return &models.MultistreamStatusResponse{
			Body: models.MultistreamStatusData{
				Active:    false,
				Reference: reference,
			},
		}, nil
	})

	// Multistream status
	huma.Register(s.api, huma.Operation{
		OperationID: "multistream-status",
		Method:      http.MethodGet,
		Path:        "/api/multistream/status",
		Summary:     "Multistream Status",
		Description: "Get the current fan-out job status from live engine state",
		Tags:        []string{"multistream"},
		Errors:      []int{401, 502},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct{}) (*models.MultistreamStatusResponse, error) {
		status := models.MultistreamStatusData{
			Active:    s.orchestrator.IsActive(),
			Reference: s.orchestrator.Reference(),
		}

		process, err := s.orchestrator.Status(ctx)
		switch {
		case errors.Is(err, multistream.ErrProcessNotFound):
			// No backing process; report local state only.
		case err != nil:
			return nil, huma.Error502BadGateway("failed to query engine", err)
		default:
			status.ProcessID = process.ID
			status.State = process.State
			status.UptimeSeconds = process.UptimeSeconds
			status.CPUPercent = process.CPUPercent
			status.MemoryBytes = process.MemoryBytes
		}

		return &models.MultistreamStatusResponse{Body: status}, nil
	})
}
