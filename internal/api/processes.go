package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/restreamkit/restreamctl/internal/api/models"
	"github.com/restreamkit/restreamctl/internal/restreamer"
)

func processToAPI(p restreamer.Process) models.ProcessData {
	return models.ProcessData{
		ID:            p.ID,
		Reference:     p.Reference,
		State:         p.State,
		UptimeSeconds: p.UptimeSeconds,
		CPUPercent:    p.CPUPercent,
		MemoryBytes:   p.MemoryBytes,
	}
}

// registerEngineRoutes registers engine process and session endpoints
func (s *Server) registerEngineRoutes() {
	// List processes
	huma.Register(s.api, huma.Operation{
		OperationID: "list-processes",
		Method:      http.MethodGet,
		Path:        "/api/processes",
		Summary:     "List Processes",
		Description: "List all processes on the restreamer engine",
		Tags:        []string{"engine"},
		Errors:      []int{401, 502},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct{}) (*models.ProcessListResponse, error) {
		processes, err := s.engine.ListProcesses(ctx)
		if err != nil {
			return nil, huma.Error502BadGateway("failed to list processes", err)
		}

		apiProcesses := make([]models.ProcessData, len(processes))
		for i, p := range processes {
			apiProcesses[i] = processToAPI(p)
		}
		return &models.ProcessListResponse{
			Body: models.ProcessListData{
				Processes: apiProcesses,
				Count:     len(apiProcesses),
			},
		}, nil
	})

	// Get specific process
	huma.Register(s.api, huma.Operation{
		OperationID: "get-process",
		Method:      http.MethodGet,
		Path:        "/api/processes/{process_id}",
		Summary:     "Get Process",
		Description: "Get details of one engine process",
		Tags:        []string{"engine"},
		Errors:      []int{401, 502},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct {
		ProcessID string `path:"process_id" example:"restreamer-ui:ingest:abc" doc:"Engine process id"`
	}) (*models.ProcessResponse, error) {
		process, err := s.engine.GetProcess(ctx, input.ProcessID)
		if err != nil {
			return nil, huma.Error502BadGateway("failed to get process", err)
		}
		return &models.ProcessResponse{Body: processToAPI(*process)}, nil
	})

	// Process lifecycle commands
	huma.Register(s.api, huma.Operation{
		OperationID: "process-command",
		Method:      http.MethodPost,
		Path:        "/api/processes/{process_id}/command",
		Summary:     "Process Command",
		Description: "Send a lifecycle command (start, stop, restart) to an engine process",
		Tags:        []string{"engine"},
		Errors:      []int{400, 401, 502},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct {
		ProcessID string `path:"process_id" doc:"Engine process id"`
		Body      struct {
			Command string `json:"command" enum:"start,stop,restart" example:"restart" doc:"Lifecycle command"`
		}
	}) (*struct{}, error) {
		var err error
		switch input.Body.Command {
		case "start":
			err = s.engine.StartProcess(ctx, input.ProcessID)
		case "stop":
			err = s.engine.StopProcess(ctx, input.ProcessID)
		case "restart":
			err = s.engine.RestartProcess(ctx, input.ProcessID)
		}
		if err != nil {
			return nil, huma.Error502BadGateway("process command failed", err)
		}
		return &struct{}{}, nil
	})

	// Delete process
	huma.Register(s.api, huma.Operation{
		OperationID: "delete-process",
		Method:      http.MethodDelete,
		Path:        "/api/processes/{process_id}",
		Summary:     "Delete Process",
		Description: "Remove a process from the restreamer engine",
		Tags:        []string{"engine"},
		Errors:      []int{401, 502},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct {
		ProcessID string `path:"process_id" doc:"Engine process id"`
	}) (*struct{}, error) {
		if err := s.engine.DeleteProcess(ctx, input.ProcessID); err != nil {
			return nil, huma.Error502BadGateway("failed to delete process", err)
		}
		return &struct{}{}, nil
	})

	// List sessions
	huma.Register(s.api, huma.Operation{
		OperationID: "list-sessions",
		Method:      http.MethodGet,
		Path:        "/api/sessions",
		Summary:     "List Sessions",
		Description: "List active sessions on the restreamer engine",
		Tags:        []string{"engine"},
		Errors:      []int{401, 502},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct{}) (*models.SessionListResponse, error) {
		sessions, err := s.engine.ListSessions(ctx)
		if err != nil {
			return nil, huma.Error502BadGateway("failed to list sessions", err)
		}

		apiSessions := make([]models.SessionData, len(sessions))
		for i, sess := range sessions {
			apiSessions[i] = models.SessionData{
				ID:            sess.ID,
				Reference:     sess.Reference,
				BytesSent:     sess.BytesSent,
				BytesReceived: sess.BytesReceived,
				RemoteAddr:    sess.RemoteAddr,
			}
		}
		return &models.SessionListResponse{
			Body: models.SessionListData{
				Sessions: apiSessions,
				Count:    len(apiSessions),
			},
		}, nil
	})
}
