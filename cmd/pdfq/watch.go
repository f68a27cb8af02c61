package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"pdf-questions/internal/events"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print run completion events as they are published (requires EVENTS_PROVIDER=nats)",
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps(cmd)
		if err != nil {
			return err
		}
		defer deps.Close()
		if deps.Config.EventsProvider != "nats" {
			return fmt.Errorf("watch requires EVENTS_PROVIDER=nats (got %q)", deps.Config.EventsProvider)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return deps.Bus.Subscribe(ctx, events.TypeRunCompleted, printRunCompleted(cmd.OutOrStdout()))
	},
}

func printRunCompleted(w io.Writer) events.Handler {
	return func(_ context.Context, ev events.Event) error {
		var rc events.RunCompleted
		if err := json.Unmarshal(ev.Payload, &rc); err != nil {
			return fmt.Errorf("decode run event: %w", err)
		}
		fmt.Fprintf(w, "%s  run %s  pages %d-%d  count %d  ok %d  failed %d  -> %s\n",
			rc.CompletedAt.Format("2006-01-02 15:04:05"),
			rc.RunID, rc.StartPage, rc.EndPage, rc.Count, rc.Succeeded, rc.Failed, rc.OutputPath)
		return nil
	}
}
