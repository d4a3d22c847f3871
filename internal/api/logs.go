package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/restreamkit/restreamctl/internal/api/models"
	"github.com/restreamkit/restreamctl/internal/logging"
)

// registerLogRoutes registers the log inspection endpoint.
func (s *Server) registerLogRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-logs",
		Method:      http.MethodGet,
		Path:        "/api/logs",
		Summary:     "Recent Logs",
		Description: "Get recent log entries from the in-memory ring buffer, oldest first",
		Tags:        []string{"logs"},
		Errors:      []int{401},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct {
		Limit int `query:"limit" minimum:"0" example:"100" doc:"Maximum number of entries to return, 0 for all"`
	}) (*models.LogListResponse, error) {
		var entries []models.LogEntryData

		if buffer := logging.GetBuffer(); buffer != nil {
			raw := buffer.ReadAll()
			if input.Limit > 0 && len(raw) > input.Limit {
				raw = raw[len(raw)-input.Limit:]
			}
			entries = make([]models.LogEntryData, len(raw))
			for i, entry := range raw {
				entries[i] = models.LogEntryData{
					Timestamp:  entry.Timestamp.Format(time.RFC3339Nano),
					Level:      entry.Level,
					Module:     entry.Module,
					Message:    entry.Message,
					Attributes: entry.Attributes,
				}
			}
		}

		return &models.LogListResponse{
			Body: models.LogListData{
				Entries: entries,
				Count:   len(entries),
			},
		}, nil
	})
}
