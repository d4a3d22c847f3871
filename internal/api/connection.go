package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/restreamkit/restreamctl/internal/api/models"
	"github.com/restreamkit/restreamctl/internal/config"
	"github.com/restreamkit/restreamctl/internal/events"
	"github.com/restreamkit/restreamctl/internal/restreamer"
)

// registerConnectionRoutes registers the engine connection endpoints
func (s *Server) registerConnectionRoutes() {
	// Get current connection settings
	huma.Register(s.api, huma.Operation{
		OperationID: "get-connection",
		Method:      http.MethodGet,
		Path:        "/api/connection",
		Summary:     "Get Connection",
		Description: "Get the restreamer engine connection settings. The password is never returned.",
		Tags:        []string{"connection"},
		Errors:      []int{401},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct{}) (*models.ConnectionResponse, error) {
		settings := s.store.Get()
		return &models.ConnectionResponse{
			Body: models.ConnectionData{
				Host:        settings.Host,
				Port:        settings.Port,
				UseHTTPS:    settings.UseHTTPS,
				Username:    settings.Username,
				PasswordSet: settings.Password != "",
			},
		}, nil
	})

	// Update connection settings
	huma.Register(s.api, huma.Operation{
		OperationID: "update-connection",
		Method:      http.MethodPut,
		Path:        "/api/connection",
		Summary:     "Update Connection",
		Description: "Update the restreamer engine connection settings. The engine client reconnects with the new settings.",
		Tags:        []string{"connection"},
		Errors:      []int{400, 401, 500},
		Security:    withAuth(),
	}, func(ctx context.Context, input *models.ConnectionRequest) (*models.ConnectionResponse, error) {
		if err := s.store.SetConnection(
			input.Body.Host,
			input.Body.Port,
			input.Body.UseHTTPS,
			input.Body.Username,
			input.Body.Password,
		); err != nil {
			return nil, huma.Error500InternalServerError("failed to save connection settings", err)
		}

		settings := s.store.Get()
		conn := settings.Connection()
		s.engine.Swap(conn)
		config.SetGlobalConnection(&conn)

		s.eventBus.Publish(events.ConnectionChangedEvent{
			Host:      settings.Host,
			Port:      settings.Port,
			UseHTTPS:  settings.UseHTTPS,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})

		return &models.ConnectionResponse{
			Body: models.ConnectionData{
				Host:        settings.Host,
				Port:        settings.Port,
				UseHTTPS:    settings.UseHTTPS,
				Username:    settings.Username,
				PasswordSet: settings.Password != "",
			},
		}, nil
	})

	// Test connection
	huma.Register(s.api, huma.Operation{
		OperationID: "test-connection",
		Method:      http.MethodPost,
		Path:        "/api/connection/test",
		Summary:     "Test Connection",
		Description: "Validate connection settings by logging in to the engine. Settings in the request body are tested without being saved; an empty body tests the stored settings.",
		Tags:        []string{"connection"},
		Errors:      []int{401},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct {
		Body models.ConnectionRequestData `required:"false"`
	}) (*models.ConnectionTestResponse, error) {
		var testErr error
		if input.Body.Host != "" {
			conn := restreamer.Connection{
				Host:     input.Body.Host,
				Port:     uint16(input.Body.Port),
				UseTLS:   input.Body.UseHTTPS,
				Username: input.Body.Username,
				Password: restreamer.NewSecret(input.Body.Password),
			}
			client := restreamer.NewClient(conn)
			defer client.Close()
			testErr = client.TestConnection(ctx)
		} else {
			testErr = s.engine.TestConnection(ctx)
		}

		if testErr != nil {
			return &models.ConnectionTestResponse{
				Body: models.ConnectionTestData{Reachable: false, Error: testErr.Error()},
			}, nil
		}
		return &models.ConnectionTestResponse{
			Body: models.ConnectionTestData{Reachable: true},
		}, nil
	})
}
