// Package api is the Huma v2 control API: engine connection management,
// destination CRUD, multistream lifecycle, and engine introspection.
package api

import (
	"context"
	"encoding/base64"
	"log/slog"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"

	"github.com/restreamkit/restreamctl/internal/api/models"
	"github.com/restreamkit/restreamctl/internal/config"
	"github.com/restreamkit/restreamctl/internal/events"
	"github.com/restreamkit/restreamctl/internal/logging"
	"github.com/restreamkit/restreamctl/internal/multistream"
	"github.com/restreamkit/restreamctl/internal/version"
)

// Server represents the Huma v2 control API server
type Server struct {
	api          huma.API
	mux          *http.ServeMux
	httpServer   *http.Server
	store        *config.SettingsStore
	engine       *EngineClient
	orchestrator *multistream.Orchestrator
	eventBus     *events.Bus
	options      *Options
	logger       *slog.Logger
}

// Options represents the control API server options
type Options struct {
	AuthUsername      string
	AuthPassword      string
	Store             *config.SettingsStore
	EventBus          *events.Bus
	PrometheusHandler http.Handler // Optional Prometheus metrics handler
}

// basicAuthMiddleware creates middleware for HTTP basic authentication
func (s *Server) basicAuthMiddleware(username, password string) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		// Skip auth for operations without security requirements
		op := ctx.Operation()
		if op != nil && len(op.Security) == 0 {
			next(ctx)
			return
		}

		// Try Authorization header first
		authHeader := ctx.Header("Authorization")
		var credentials string
		var parts []string

		if authHeader != "" {
			// Parse "Basic <credentials>" format
			const prefix = "Basic "
			if !strings.HasPrefix(authHeader, prefix) {
				ctx.SetHeader("WWW-Authenticate", `Basic realm="Restreamctl API"`)
				huma.WriteErr(s.api, ctx, http.StatusUnauthorized, "Invalid authentication type")
				return
			}

			// Decode base64 credentials
			encoded := authHeader[len(prefix):]
			decoded, err := base64.StdEncoding.DecodeString(encoded)
			if err != nil {
				ctx.SetHeader("WWW-Authenticate", `Basic realm="Restreamctl API"`)
				huma.WriteErr(s.api, ctx, http.StatusUnauthorized, "Invalid credentials format", err)
				return
			}

			credentials = string(decoded)
		} else {
			// For SSE endpoints, try query parameters as fallback
			queryAuth := ctx.Query("auth")
			if queryAuth != "" {
				decoded, err := base64.StdEncoding.DecodeString(queryAuth)
				if err != nil {
					ctx.SetHeader("WWW-Authenticate", `Basic realm="Restreamctl API"`)
					huma.WriteErr(s.api, ctx, http.StatusUnauthorized, "Invalid credentials format", err)
					return
				}
				credentials = string(decoded)
			}
		}

		if credentials == "" {
			ctx.SetHeader("WWW-Authenticate", `Basic realm="Restreamctl API"`)
			huma.WriteErr(s.api, ctx, http.StatusUnauthorized, "Authentication required")
			return
		}

		// Split username:password
		parts = strings.SplitN(credentials, ":", 2)
		if len(parts) != 2 {
			ctx.SetHeader("WWW-Authenticate", `Basic realm="Restreamctl API"`)
			huma.WriteErr(s.api, ctx, http.StatusUnauthorized, "Invalid credentials format")
			return
		}

		// Validate credentials
		if parts[0] != username || parts[1] != password {
			ctx.SetHeader("WWW-Authenticate", `Basic realm="Restreamctl API"`)
			huma.WriteErr(s.api, ctx, http.StatusUnauthorized, "Invalid credentials")
			return
		}

		// Continue to next handler
		next(ctx)
	}
}

// NewServer creates a new API server with Huma v2 using Go 1.22+ native routing
func NewServer(opts *Options) *Server {
	mux := http.NewServeMux()

	cors := defaultCORSPolicy()
	registerCORSPreflight(mux, cors)

	// Create Huma API with Go standard library adapter
	humaConfig := huma.DefaultConfig("Restreamctl API", version.String())
	humaConfig.Info.Description = "Destination management and fan-out orchestration for a restreamer engine"
	// Empty servers list will make OpenAPI use relative paths, working with any host
	humaConfig.Servers = []*huma.Server{}

	// Configure basic auth security scheme
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"basicAuth": {
			Type:   "http",
			Scheme: "basic",
		},
	}

	humaAPI := humago.New(mux, humaConfig)

	settings := opts.Store.Get()
	engine := newEngineClient(settings.Connection())

	server := &Server{
		api:          humaAPI,
		mux:          mux,
		store:        opts.Store,
		engine:       engine,
		orchestrator: multistream.NewOrchestrator(engine),
		eventBus:     opts.EventBus,
		options:      opts,
		logger:       logging.GetLogger("api"),
	}

	// Apply CORS middleware first (before auth)
	humaAPI.UseMiddleware(corsMiddleware(cors))

	// Apply HTTP logging middleware after CORS but before auth
	humaAPI.UseMiddleware(HTTPLoggingMiddleware)

	// Apply basic auth middleware globally if credentials are provided
	if opts.AuthUsername != "" && opts.AuthPassword != "" {
		humaAPI.UseMiddleware(server.basicAuthMiddleware(opts.AuthUsername, opts.AuthPassword))
	}

	// Register Prometheus metrics endpoint before other routes (no auth required)
	if opts.PrometheusHandler != nil {
		mux.Handle("GET /metrics", opts.PrometheusHandler)
	}

	// Register routes
	server.registerRoutes()

	return server
}

// GetMux returns the underlying HTTP ServeMux for additional setup
func (s *Server) GetMux() *http.ServeMux {
	return s.mux
}

// GetAPI returns the Huma API instance
func (s *Server) GetAPI() huma.API {
	return s.api
}

// Engine returns the live engine client used by the server, for wiring the
// monitor to the same connection.
func (s *Server) Engine() *EngineClient {
	return s.engine
}

// ReloadSettings swaps the engine connection after a settings change, for
// example from the settings file watcher.
func (s *Server) ReloadSettings(settings config.Settings) {
	s.engine.Swap(settings.Connection())
	s.logger.Info("Engine connection reloaded", "host", settings.Host, "port", settings.Port)
}

// Start starts the HTTP server on the specified address
func (s *Server) Start(addr string) error {
	s.logger.Info("Starting control API server", "addr", addr)
	s.logger.Info("OpenAPI documentation available", "url", "http://"+addr+"/docs")

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.mux,
	}

	return s.httpServer.ListenAndServe()
}

// Stop gracefully shuts down the server
func (s *Server) Stop() error {
	s.logger.Info("Stopping API server")

	s.engine.Close()

	if s.httpServer != nil {
		return s.httpServer.Close()
	}

	return nil
}

// registerRoutes sets up all API endpoints
func (s *Server) registerRoutes() {
	// Health check endpoint - no auth required
	huma.Register(s.api, huma.Operation{
		OperationID: "health-check",
		Method:      http.MethodGet,
		Path:        "/api/health",
		Summary:     "Health",
		Description: "Check API health status",
		Tags:        []string{"health"},
		Security:    []map[string][]string{}, // Empty security = no auth required
	}, func(ctx context.Context, input *struct{}) (*models.HealthResponse, error) {
		return &models.HealthResponse{
			Body: models.HealthData{
				Status:  "ok",
				Message: "API is healthy",
			},
		}, nil
	})

	// Version endpoint - no auth required
	huma.Register(s.api, huma.Operation{
		OperationID: "get-version",
		Method:      http.MethodGet,
		Path:        "/api/version",
		Summary:     "Version",
		Description: "Get application version information",
		Tags:        []string{"system"},
		Security:    []map[string][]string{}, // Empty security = no auth required
	}, func(ctx context.Context, input *struct{}) (*models.VersionResponse, error) {
		versionInfo := version.Get()
		return &models.VersionResponse{
			Body: models.VersionData{
				Version:   versionInfo.Version,
				GitCommit: versionInfo.GitCommit,
				BuildDate: versionInfo.BuildDate,
				GoVersion: versionInfo.GoVersion,
				Compiler:  versionInfo.Compiler,
				Platform:  versionInfo.Platform,
			},
		}, nil
	})

	// Engine connection endpoints
	s.registerConnectionRoutes()

	// Destination registry endpoints
	s.registerDestinationRoutes()

	// Multistream lifecycle endpoints
	s.registerMultistreamRoutes()

	// Engine process and session endpoints
	s.registerEngineRoutes()

	// Log endpoints
	s.registerLogRoutes()

	// SSE event stream
	s.registerEventRoutes()
}

// withAuth returns security requirement for basic auth
func withAuth() []map[string][]string {
	return []map[string][]string{
		{"basicAuth": {}},
	}
}
