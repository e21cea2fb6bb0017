// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/pdiddy/mathnote/internal/sos"
	"github.com/pdiddy/mathnote/internal/store"
	"github.com/pdiddy/mathnote/internal/submit"
	"github.com/pdiddy/mathnote/pkg/types"
)

var reprocessCmd = &cobra.Command{
	Use:   "reprocess <task-id>",
	Short: "Run analysis again on an uploaded video",
	Long: `Reprocess starts analysis again for a video that is already on the
backend, for example with different SOS marks or slide detection settings.`,
	Args: cobra.ExactArgs(1),
	RunE: runReprocess,
}

func init() {
	reprocessCmd.Flags().Float64Slice("sos", nil, "playback position in seconds to explain in depth (repeatable)")
	reprocessCmd.Flags().Float64("frame-interval", 0, "slide sampling interval in seconds: 1, 3, or 5 (default from config)")
	reprocessCmd.Flags().Float64("ssim", 0, "slide change threshold between 0.5 and 1.0 (default from config)")
	rootCmd.AddCommand(reprocessCmd)
}

func runReprocess(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	taskID := args[0]

	opts, err := processOptionsFromFlags(cmd)
	if err != nil {
		return err
	}
	marks, _ := cmd.Flags().GetFloat64Slice("sos")
	log := sos.NewLog()
	for _, t := range marks {
		if _, err := log.Capture(t); err != nil {
			return fmt.Errorf("--sos %g: %w", t, err)
		}
	}

	client := newClient()
	resp, err := submit.New(client, appConfig.Upload).Reprocess(ctx, taskID, log.Snapshot(), opts)
	if err != nil {
		return err
	}

	recordReprocess(ctx, taskID, resp.Status, log.Events())
	fmt.Fprintf(cmd.OutOrStdout(), "Reprocessing: task %s (%s)\n", resp.TaskID, resp.Status)
	return nil
}

// recordReprocess notes the restarted task and its SOS marks in the
// history. Failures are logged; the backend call already succeeded.
func recordReprocess(ctx context.Context, taskID string, status types.TaskStatus, events []types.SosEvent) {
	hist, err := openStore()
	if err != nil {
		slog.Warn("opening history", "task_id", taskID, "error", err)
		return
	}
	defer hist.Close()
	saveReprocess(ctx, hist, taskID, status, events)
}

func saveReprocess(ctx context.Context, hist *store.Store, taskID string, status types.TaskStatus, events []types.SosEvent) {
	if err := hist.RecordTask(ctx, store.TaskRecord{ID: taskID, Status: status}); err != nil {
		slog.Warn("recording task", "task_id", taskID, "error", err)
	}
	if err := hist.SaveSOS(ctx, taskID, events); err != nil {
		slog.Warn("saving sos events", "task_id", taskID, "error", err)
	}
}
