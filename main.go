package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/restreamkit/restreamctl/cmd"
	"github.com/restreamkit/restreamctl/internal/api"
	"github.com/restreamkit/restreamctl/internal/config"
	"github.com/restreamkit/restreamctl/internal/events"
	"github.com/restreamkit/restreamctl/internal/logging"
	"github.com/restreamkit/restreamctl/internal/monitor"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"config.toml"`

	// Server settings
	Port string `help:"Address to listen on" short:"p" default:":8090" toml:"server.port" env:"SERVER_PORT"`

	// Settings file holding the engine connection and destination registry
	SettingsFile string `help:"Path to settings file" default:"restreamctl.toml" toml:"settings.file" env:"SETTINGS_FILE"`

	// Monitoring settings
	MonitorInterval string `help:"Engine poll interval" default:"5s" toml:"monitor.interval" env:"MONITOR_INTERVAL"`

	// Auth settings
	AuthUsername string `help:"Basic auth username" default:"" toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword string `help:"Basic auth password" default:"" toml:"auth.password" env:"AUTH_PASSWORD"`

	// Logging settings
	LoggingLevel       string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat      string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingRestreamer  string `help:"Engine client logging level" default:"info" toml:"logging.restreamer" env:"LOGGING_RESTREAMER"`
	LoggingMultistream string `help:"Orchestrator logging level" default:"info" toml:"logging.multistream" env:"LOGGING_MULTISTREAM"`
	LoggingMonitor     string `help:"Monitor logging level" default:"info" toml:"logging.monitor" env:"LOGGING_MONITOR"`
	LoggingAPI         string `help:"API logging level" default:"info" toml:"logging.api" env:"LOGGING_API"`
}

func main() {
	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		if loadErr := config.LoadConfig(opts, nil); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		loggingConfig := logging.Config{
			Level:  opts.LoggingLevel,
			Format: opts.LoggingFormat,
			Modules: map[string]string{
				"restreamer":  opts.LoggingRestreamer,
				"multistream": opts.LoggingMultistream,
				"monitor":     opts.LoggingMonitor,
				"api":         opts.LoggingAPI,
			},
		}
		logging.Initialize(loggingConfig)

		logger := logging.GetLogger("main")

		// Load the settings file holding the engine connection and the
		// destination registry. A missing file starts with defaults.
		store := config.NewSettingsStore(opts.SettingsFile)
		if loadErr := store.Load(); loadErr != nil {
			logger.Warn("Failed to load settings, using defaults", "error", loadErr)
		}

		// Seed the process-wide engine connection from the settings.
		conn := store.Get().Connection()
		config.SetGlobalConnection(&conn)

		eventBus := events.New()

		server := api.NewServer(&api.Options{
			AuthUsername:      opts.AuthUsername,
			AuthPassword:      opts.AuthPassword,
			Store:             store,
			EventBus:          eventBus,
			PrometheusHandler: promhttp.Handler(),
		})

		pollInterval, err := time.ParseDuration(opts.MonitorInterval)
		if err != nil {
			pollInterval = 5 * time.Second
		}
		poller := monitor.NewPoller(server.Engine(), eventBus, pollInterval)

		// Watch the settings file so external edits retarget the engine
		// connection without a restart.
		watcher := config.NewConfigWatcher(
			opts.SettingsFile,
			config.LoadSettings,
			logger,
			config.WithDebounce[config.Settings](1500*time.Millisecond),
		)
		watcher.OnReload(func(settings config.Settings) {
			server.ReloadSettings(settings)
			reloaded := settings.Connection()
			config.SetGlobalConnection(&reloaded)
		})

		hooks.OnStart(func() {
			poller.Start(context.Background())

			if watchErr := watcher.Start(); watchErr != nil {
				logger.Warn("Failed to start settings watcher, hot-reload disabled", "error", watchErr)
			}

			logger.Info("Starting HTTP server", "addr", opts.Port)
			if startErr := server.Start(opts.Port); startErr != nil && !errors.Is(startErr, http.ErrServerClosed) {
				logger.Error("Failed to start HTTP server", "error", startErr)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down server")
			if stopErr := watcher.Stop(); stopErr != nil {
				logger.Error("Error stopping settings watcher", "error", stopErr)
			}
			poller.Stop()
			if stopErr := server.Stop(); stopErr != nil {
				logger.Error("Error stopping HTTP server", "error", stopErr)
			}
			config.DestroyGlobalConnection()
		})
	})

	cli.Root().AddCommand(cmd.CreateEngineCmd())
	cli.Root().AddCommand(cmd.CreateMultistreamCmd())

	cli.Run()
}
