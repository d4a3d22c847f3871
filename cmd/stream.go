package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/restreamkit/restreamctl/internal/multistream"
)

// CreateMultistreamCmd creates the multistream command with its lifecycle
// subcommands.
func CreateMultistreamCmd() *cobra.Command {
	var settingsFile string
	var logJSON bool
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "multistream",
		Short: "Manage the fan-out job",
		Long: `Starts, stops and inspects the fan-out job that delivers one input stream ` +
			`to every enabled destination in the settings file.`,
	}

	cmd.PersistentFlags().StringVar(&settingsFile, "settings", "restreamctl.toml", "Path to settings file")
	cmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Use JSON log format")
	cmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Engine request timeout")

	startCmd := &cobra.Command{
		Use:   "start [input-url]",
		Short: "Start the fan-out job",
		Args:  cobra.ExactArgs(1),
		Run: func(_ *cobra.Command, args []string) {
			client, store := newEngineClient(settingsFile, logJSON)
			defer client.Close()

			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			settings := store.Get()
			orchestrator := multistream.NewOrchestrator(client)
			if err := orchestrator.Start(ctx, settings.Multistream(), args[0]); err != nil {
				fmt.Fprintf(os.Stderr, "failed to start multistream: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("started %s\n", orchestrator.Reference())
		},
	}

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop running fan-out jobs",
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

			stopped := 0
			for _, p := range processes {
				if !multistream.IsJobReference(p.Reference) {
					continue
				}
				if stopErr := client.StopProcess(ctx, p.ID); stopErr != nil {
					fmt.Fprintf(os.Stderr, "failed to stop %s: %v\n", p.Reference, stopErr)
					os.Exit(1)
				}
				fmt.Printf("stopped %s\n", p.Reference)
				stopped++
			}
			if stopped == 0 {
				fmt.Println("no running fan-out job")
			}
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show fan-out job status",
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

			found := false
			for _, p := range processes {
				if !multistream.IsJobReference(p.Reference) {
					continue
				}
				found = true
				fmt.Printf("%s: %s (uptime %ds, cpu %.1f%%, memory %d bytes)\n",
					p.Reference, p.State, p.UptimeSeconds, p.CPUPercent, p.MemoryBytes)
			}
			if !found {
				fmt.Println("no fan-out job")
			}
		},
	}

	cmd.AddCommand(startCmd, stopCmd, statusCmd)
	return cmd
}
