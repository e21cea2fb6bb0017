// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/pdiddy/mathnote/internal/api"
	"github.com/pdiddy/mathnote/internal/note"
	"github.com/pdiddy/mathnote/internal/store"
	"github.com/pdiddy/mathnote/pkg/types"
)

var noteCmd = &cobra.Command{
	Use:   "note <task-id>",
	Short: "Print the finished note of a task",
	Long: `Note fetches the finished note from the backend and renders it as
Markdown, slides in order. With --offline the copy in the local history is
used instead. --slide prints a single slide; --at prints the slide playing
at a given second.`,
	Args: cobra.ExactArgs(1),
	RunE: runNote,
}

func init() {
	noteCmd.Flags().String("mode", string(note.ModeAnnotated), "view: annotated or transcript")
	noteCmd.Flags().Bool("json", false, "output the note as JSON")
	noteCmd.Flags().Bool("offline", false, "read the note from the local history only")
	noteCmd.Flags().Int("slide", 0, "print only the slide with this number")
	noteCmd.Flags().Float64("at", -1, "print only the slide playing at this second")
	rootCmd.AddCommand(noteCmd)
}

func runNote(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	taskID := args[0]

	raw, _ := cmd.Flags().GetString("mode")
	mode, err := note.ParseMode(raw)
	if err != nil {
		return err
	}

	hist, err := openStore()
	if err != nil {
		return err
	}
	defer hist.Close()

	var (
		n      *types.Note
		client *api.Client
	)
	offline, _ := cmd.Flags().GetBool("offline")
	if offline {
		n, err = hist.LoadNote(ctx, taskID)
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("no saved note for task %s", taskID)
		}
	} else {
		client = newClient()
		n, err = client.Note(ctx, taskID)
		err = unknownTask(taskID, err)
		if err == nil {
			if serr := hist.SaveNote(ctx, n); serr != nil {
				slog.Warn("saving note to history", "task_id", taskID, "error", serr)
			}
		}
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(n)
	}

	cur := note.NewCursor(n)
	number, _ := cmd.Flags().GetInt("slide")
	at, _ := cmd.Flags().GetFloat64("at")
	switch {
	case number > 0:
		if !cur.Seek(number) {
			return fmt.Errorf("note has no slide %d", number)
		}
	case at >= 0:
		if !cur.SeekTime(at) {
			return fmt.Errorf("no slide at %s", note.Timestamp(at))
		}
	default:
		return note.RenderNote(out, n, mode)
	}

	sl, _ := cur.Current()
	if client != nil {
		sl = refreshImage(ctx, client, taskID, sl)
	}
	return note.RenderSlide(out, sl, mode)
}

// slideImager issues fresh links to slide frames.
type slideImager interface {
	SlideImage(ctx context.Context, taskID string, number int) (string, error)
}

// refreshImage replaces the slide's stored image link, which may have
// expired, with a fresh one. The stored link is kept when that fails.
func refreshImage(ctx context.Context, images slideImager, taskID string, sl types.Slide) types.Slide {
	u, err := images.SlideImage(ctx, taskID, sl.Number)
	if err != nil {
		slog.Warn("refreshing slide image", "task_id", taskID, "slide", sl.Number, "error", err)
		return sl
	}
	if u != "" {
		sl.ImageURL = u
	}
	return sl
}

// unknownTask rewords a backend 404 for taskID.
func unknownTask(taskID string, err error) error {
	if api.IsNotFound(err) {
		return fmt.Errorf("task %s is not known to the backend: %w", taskID, err)
	}
	return err
}
