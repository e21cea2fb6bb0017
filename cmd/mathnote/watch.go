// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/pdiddy/mathnote/internal/store"
	"github.com/pdiddy/mathnote/pkg/types"
)

var watchCmd = &cobra.Command{
	Use:   "watch <task-id>",
	Short: "Follow an existing task until its note is ready",
	Long: `Watch polls the status of a previously submitted task, printing
per-stage progress, and renders the note once processing completes.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fopts, err := followOptionsFromFlags(cmd)
		if err != nil {
			return err
		}
		return runWatch(cmd, args[0], fopts)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve <task-id>",
	Short: "Follow a task with the local viewer running",
	Long: `Serve is watch with the viewer enabled: the browser page can stream
progress, read the note slide by slide, mark SOS moments, and trigger the
Notion export. It runs until interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fopts, err := followOptionsFromFlags(cmd)
		if err != nil {
			return err
		}
		fopts.serve = true
		return runWatch(cmd, args[0], fopts)
	},
}

func init() {
	addFollowFlags(watchCmd)
	serveCmd.Flags().String("mode", "annotated", "note view: annotated or transcript")
	serveCmd.Flags().String("addr", "", "viewer listen address (default from config server.addr)")

	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(serveCmd)
}

func runWatch(cmd *cobra.Command, taskID string, fopts followOptions) error {
	hist, err := openStore()
	if err != nil {
		return err
	}
	defer hist.Close()

	mode, source := knownSource(cmd.Context(), hist, taskID)

	ctx, stop := signalContext()
	defer stop()
	sess := newSession(newClient())
	startSession(ctx, sess)

	if err := sess.Track(taskID, mode, source); err != nil {
		return err
	}
	return follow(ctx, sess, hist, fopts)
}

// knownSource looks up how a task was submitted so the player can be
// resolved the same way. Unknown tasks are treated as file submissions.
func knownSource(ctx context.Context, hist *store.Store, taskID string) (types.SubmitMode, string) {
	rec, err := hist.Task(ctx, taskID)
	if err != nil || rec.Mode == "" {
		return types.ModeFile, ""
	}
	if rec.Mode == types.ModeURL {
		return rec.Mode, rec.Source
	}
	return rec.Mode, ""
}
