// Package cmd holds the one-shot CLI subcommands.
package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/restreamkit/restreamctl/internal/config"
	"github.com/restreamkit/restreamctl/internal/logging"
	"github.com/restreamkit/restreamctl/internal/restreamer"
)

// newEngineClient loads the settings file and dials the engine it points at.
func newEngineClient(settingsFile string, logJSON bool) (*restreamer.Client, *config.SettingsStore) {
	loggingConfig := logging.Config{
		Level:  "warn",
		Format: "text",
	}
	if logJSON {
		loggingConfig.Format = "json"
	}
	logging.Initialize(loggingConfig)
	logger := logging.GetLogger("cli")

	store := config.NewSettingsStore(settingsFile)
	if err := store.Load(); err != nil {
		logger.Error("Failed to load settings", "error", err, "path", store.Path())
		os.Exit(1)
	}

	settings := store.Get()
	return restreamer.NewClient(settings.Connection()), store
}

// CreateEngineCmd creates the engine command with its inspection subcommands.
func CreateEngineCmd() *cobra.Command {
	var settingsFile string
	var logJSON bool
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "engine",
		Short: "Inspect the restreamer engine",
		Long:  `Talks to the restreamer engine configured in the settings file: test credentials, list processes and list sessions.`,
	}

	cmd.PersistentFlags().StringVar(&settingsFile, "settings", "restreamctl.toml", "Path to settings file")
	cmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Use JSON log format")
	cmd.PersistentFlags().DurationVar(&timeout, "timeout", 15*time.Second, "Engine request timeout")

	testCmd := &cobra.Command{
		Use:   "test",
		Short: "Test engine connectivity and credentials",
		Run: func(_ *cobra.Command, _ []string) {
			client, store := newEngineClient(settingsFile, logJSON)
			defer client.Close()

			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			settings := store.Get()
			if err := client.TestConnection(ctx); err != nil {
				fmt.Printf("engine %s:%d: unreachable: %v\n", settings.Host, settings.Port, err)
				os.Exit(1)
			}
			fmt.Printf("engine %s:%d: ok\n", settings.Host, settings.Port)
		},
	}

	processesCmd := &cobra.Command{
		Use:   "processes",
		Short: "List engine processes",
		Run: func(_ *cobra.Command, _ []string) {
			client, _ := newEngineClient(settingsFile, logJSON)
			defer client.Close()

			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			processes, err := client.ListProcesses(ctx)
			if err != nil {
				fmt.Fprintf(os.Stderr, "failed to list processes: %v\n", err)
				os.Exit(1)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tREFERENCE\tSTATE\tUPTIME\tCPU%\tMEMORY")
			for _, p := range processes {
				fmt.Fprintf(w, "%s\t%s\t%s\t%ds\t%.1f\t%d\n",
					p.ID, p.Reference, p.State, p.UptimeSeconds, p.CPUPercent, p.MemoryBytes)
			}
			w.Flush()
		},
	}

	sessionsCmd := &cobra.Command{
		Use:   "sessions",
		Short: "List active engine sessions",
		Run: func(_ *cobra.Command, _ []string) {
			client, _ := newEngineClient(settingsFile, logJSON)
			defer client.Close()

			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			sessions, err := client.ListSessions(ctx)
			if err != nil {
				fmt.Fprintf(os.Stderr, "failed to list sessions: %v\n", err)
				os.Exit(1)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tREFERENCE\tSENT\tRECEIVED\tREMOTE")
			for _, s := range sessions {
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n",
					s.ID, s.Reference, s.BytesSent, s.BytesReceived, s.RemoteAddr)
			}
			w.Flush()
		},
	}

	cmd.AddCommand(testCmd, processesCmd, sessionsCmd)
	return cmd
}
