// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/mathnote/internal/store"
	"github.com/pdiddy/mathnote/internal/submit"
	"github.com/pdiddy/mathnote/pkg/types"
)

var submitCmd = &cobra.Command{
	Use:   "submit <file|url>",
	Short: "Submit a lecture video for analysis",
	Long: `Submit uploads a local MP4 or MOV file, or hands a YouTube link to the
backend to fetch. Files are checked locally for type and size before any
upload. Mark moments you did not understand with --sos; the backend adds a
deep-dive explanation to the matching slides.

With --watch the command follows processing and prints the finished note.`,
	Args: cobra.ExactArgs(1),
	RunE: runSubmit,
}

func init() {
	submitCmd.Flags().Float64Slice("sos", nil, "playback position in seconds to explain in depth (repeatable)")
	submitCmd.Flags().Float64("frame-interval", 0, "slide sampling interval in seconds: 1, 3, or 5 (default from config)")
	submitCmd.Flags().Float64("ssim", 0, "slide change threshold between 0.5 and 1.0 (default from config)")
	submitCmd.Flags().Bool("watch", false, "follow processing until the note is ready")
	addFollowFlags(submitCmd)

	rootCmd.AddCommand(submitCmd)
}

// isURL reports whether arg names a remote video rather than a local file.
func isURL(arg string) bool {
	lower := strings.ToLower(strings.TrimSpace(arg))
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

func processOptionsFromFlags(cmd *cobra.Command) (types.ProcessOptions, error) {
	opts := appConfig.Process
	if cmd.Flags().Changed("frame-interval") {
		v, _ := cmd.Flags().GetFloat64("frame-interval")
		if !validFrameInterval(v) {
			return opts, fmt.Errorf("--frame-interval must be one of %v", types.FrameIntervalChoices)
		}
		opts.FrameIntervalSec = v
	}
	if cmd.Flags().Changed("ssim") {
		v, _ := cmd.Flags().GetFloat64("ssim")
		if v < 0.5 || v > 1.0 {
			return opts, fmt.Errorf("--ssim must be between 0.5 and 1.0")
		}
		opts.SSIMThreshold = v
	}
	return opts, nil
}

func validFrameInterval(v float64) bool {
	for _, c := range types.FrameIntervalChoices {
		if v == c {
			return true
		}
	}
	return false
}

func runSubmit(cmd *cobra.Command, args []string) error {
	fopts, err := followOptionsFromFlags(cmd)
	if err != nil {
		return err
	}
	opts, err := processOptionsFromFlags(cmd)
	if err != nil {
		return err
	}
	watch, _ := cmd.Flags().GetBool("watch")
	marks, _ := cmd.Flags().GetFloat64Slice("sos")

	hist, err := openStore()
	if err != nil {
		return err
	}
	defer hist.Close()

	ctx, stop := signalContext()
	defer stop()
	sess := newSession(newClient())
	startSession(ctx, sess)

	for _, t := range marks {
		if _, err := sess.CaptureSOS(t); err != nil {
			return fmt.Errorf("--sos %g: %w", t, err)
		}
	}

	in := submit.Input{SOS: sess.SOSTimestamps(), Options: opts}
	if isURL(args[0]) {
		in.Mode, in.URL = types.ModeURL, args[0]
	} else {
		in.Mode, in.Path = types.ModeFile, args[0]
	}

	h, err := sess.Submit(ctx, in)
	if err != nil {
		slog.Debug("submission failed", "error", err)
		return err
	}
	fmt.Fprintf(fopts.out, "Submitted: task %s (%s)\n", h.TaskID, h.Status)
	if h.EstimatedTime > 0 {
		fmt.Fprintf(fopts.out, "Estimated processing time: %ds\n", h.EstimatedTime)
	}

	if !watch && !fopts.serve {
		return recordHandle(ctx, hist, h, args[0], in.SOS)
	}
	return follow(ctx, sess, hist, fopts)
}

func recordHandle(ctx context.Context, hist *store.Store, h submit.Handle, source string, sos []float64) error {
	if err := hist.RecordTask(ctx, store.TaskRecord{ID: h.TaskID, Mode: h.Mode, Source: source, Status: h.Status}); err != nil {
		return err
	}
	if len(sos) == 0 {
		return nil
	}
	events := make([]types.SosEvent, len(sos))
	for i, t := range sos {
		events[i] = types.SosEvent{Timestamp: t}
	}
	return hist.SaveSOS(ctx, h.TaskID, events)
}
