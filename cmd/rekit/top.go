package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"rekit/panel"
	"rekit/snapshot"

	"github.com/spf13/cobra"
)

const processesPanel = "View/Processes"

// clearScreen moves the cursor home and clears the terminal.
const clearScreen = "\033[H\033[2J"

func newTopCommand(e *env) (cmd *cobra.Command) {
	var (
		sortBy     string
		limit      int
		iterations int
	)

	cmd = &cobra.Command{
		Use:   "top",
		Short: "continuously display the process table",
		RunE: func(cmd *cobra.Command, args []string) error {
			specs, err := snapshot.ParseSortSpecs(sortBy)
			if err != nil {
				return err
			}

			svc := e.newService()
			if err := svc.Refresh(); err != nil {
				return err
			}
			svc.Start()
			defer svc.Stop()

			registry := panel.NewRegistry()
			registry.AddPanel(processesPanel, func(w io.Writer) error {
				records := svc.GetSnapshot()
				snapshot.Sort(records, specs...)
				if limit > 0 && len(records) > limit {
					records = records[:limit]
				}
				fmt.Fprintf(w, "%d processes\n", svc.Count())
				renderProcesses(w, records)
				return nil
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			return drawLoop(ctx, e, registry, iterations)
		},
	}

	cmd.Flags().StringVar(&sortBy, "sort", "-workingset", "comma separated columns, prefix with - for descending")
	cmd.Flags().IntVar(&limit, "limit", 25, "rows to display, 0 for all")
	cmd.Flags().IntVar(&iterations, "iterations", 0, "frames to draw before exiting, 0 to run until interrupted")

	return cmd
}

// drawLoop redraws every registered panel once per poll interval.
func drawLoop(ctx context.Context, e *env, registry *panel.Registry, iterations int) error {
	ticker := e.clock.Ticker(e.cfg.Snapshot.PollInterval)
	defer ticker.Stop()

	for frame := 1; ; frame++ {
		fmt.Fprint(e.out, clearScreen)
		for _, path := range registry.Paths() {
			if err := registry.Draw(path, e.out); err != nil {
				return err
			}
		}
		if iterations > 0 && frame >= iterations {
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
