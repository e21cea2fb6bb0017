// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/pdiddy/mathnote/internal/note"
	"github.com/pdiddy/mathnote/internal/store"
)

var statusCmd = &cobra.Command{
	Use:   "status <task-id>",
	Short: "Show the current status of a task",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().Bool("json", false, "output the task as JSON")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	task, err := newClient().Status(ctx, args[0])
	if err != nil {
		return unknownTask(args[0], err)
	}

	if hist, err := openStore(); err != nil {
		slog.Warn("opening history", "task_id", task.ID, "error", err)
	} else {
		if err := hist.RecordTask(ctx, store.TaskRecord{ID: task.ID, Status: task.Status, ErrorMessage: task.ErrorMessage}); err != nil {
			slog.Warn("recording task", "task_id", task.ID, "error", err)
		}
		hist.Close()
	}

	out := cmd.OutOrStdout()
	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(task)
	}

	fmt.Fprintf(out, "Task:   %s\n", task.ID)
	fmt.Fprintf(out, "Status: %s\n", task.Status)
	in := note.Input{Task: task}
	switch note.Classify(in) {
	case note.StateLoading:
		fmt.Fprintln(out, note.LoadingLine(task))
	case note.StateFailed:
		fmt.Fprintf(out, "Error:  %s\n", note.FailureText(task))
	}
	return nil
}
