// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/pdiddy/mathnote/internal/api"
	"github.com/pdiddy/mathnote/internal/note"
	"github.com/pdiddy/mathnote/internal/poll"
	"github.com/pdiddy/mathnote/internal/server"
	"github.com/pdiddy/mathnote/internal/session"
	"github.com/pdiddy/mathnote/internal/store"
	"github.com/pdiddy/mathnote/internal/submit"
	"github.com/pdiddy/mathnote/pkg/types"
)

// followOptions control how a tracked task is reported.
type followOptions struct {
	mode  note.Mode
	serve bool
	addr  string
	out   io.Writer
}

func addFollowFlags(cmd *cobra.Command) {
	cmd.Flags().String("mode", string(note.ModeAnnotated), "note view: annotated or transcript")
	cmd.Flags().Bool("serve", false, "run the local viewer while following and after completion")
	cmd.Flags().String("addr", "", "viewer listen address (default from config server.addr)")
}

func followOptionsFromFlags(cmd *cobra.Command) (followOptions, error) {
	raw, _ := cmd.Flags().GetString("mode")
	mode, err := note.ParseMode(raw)
	if err != nil {
		return followOptions{}, err
	}
	serve, _ := cmd.Flags().GetBool("serve")
	addr, _ := cmd.Flags().GetString("addr")
	if addr == "" {
		addr = appConfig.Server.Addr
	}
	return followOptions{mode: mode, serve: serve, addr: addr, out: cmd.OutOrStdout()}, nil
}

func newSession(client *api.Client) *session.Session {
	return session.New(session.Deps{
		Submitter: submit.New(client, appConfig.Upload),
		Status:    client,
		Notes:     client,
		Exporter:  note.NewExporter(client),
		Poll:      appConfig.Poll,
	})
}

// startSession runs sess until ctx is done.
func startSession(ctx context.Context, sess *session.Session) {
	go func() {
		if err := sess.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Debug("session stopped", "error", err)
		}
	}()
}

// follow reports progress until the session settles, recording the task
// and its note in hist. With opts.serve the viewer keeps running until
// ctx is done.
func follow(ctx context.Context, sess *session.Session, hist *store.Store, opts followOptions) error {
	if opts.serve {
		srv := server.New(sess)
		go func() {
			if err := srv.Run(ctx, opts.addr); err != nil {
				slog.Error("viewer stopped", "error", err)
			}
		}()
		fmt.Fprintf(opts.out, "Viewer: http://%s/api/state\n", opts.addr)
	}

	rec := &recorder{hist: hist}
	states, cancel := sess.Subscribe()
	defer cancel()

	var last string
	var final session.State
	for settled := false; !settled; {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case st := <-states:
			if line := progressLine(st); line != "" && line != last {
				fmt.Fprintln(opts.out, line)
				last = line
			}
			rec.record(ctx, st)
			final, settled = st, st.Settled()
		}
	}

	if err := note.Render(opts.out, final.View(), opts.mode); err != nil {
		return err
	}

	if opts.serve {
		fmt.Fprintln(opts.out, "Viewer still running; press Ctrl-C to stop.")
		<-ctx.Done()
	}
	return outcome(final)
}

func progressLine(st session.State) string {
	if msg := session.Message(st); msg != "" {
		return msg
	}
	if note.Classify(st.View()) == note.StateLoading {
		return note.LoadingLine(st.Task)
	}
	return ""
}

// outcome turns a settled state into the command's exit error.
func outcome(st session.State) error {
	switch {
	case st.SubmitErr != nil:
		return st.SubmitErr
	case st.Stalled:
		err := st.PollErr
		if err == nil {
			err = poll.ErrPollStalled
		}
		return fmt.Errorf("stopped checking task %s: %w", st.TaskID, err)
	case st.Task != nil && st.Task.Status == types.StatusFailed:
		return fmt.Errorf("task %s failed: %s", st.TaskID, note.FailureText(st.Task))
	}
	return nil
}

// recorder writes task outcomes and notes to the history once each.
type recorder struct {
	hist      *store.Store
	status    types.TaskStatus
	taskID    string
	savedNote bool
	sosCount  int
}

func (r *recorder) record(ctx context.Context, st session.State) {
	if r.hist == nil || st.TaskID == "" {
		return
	}
	if st.TaskID != r.taskID {
		*r = recorder{hist: r.hist, taskID: st.TaskID}
	}

	if st.Task != nil && st.Task.Status != r.status {
		rec := store.TaskRecord{ID: st.TaskID, Mode: st.Mode, Status: st.Task.Status, ErrorMessage: st.Task.ErrorMessage}
		rec.Source = st.SubmittedURL
		if rec.Source == "" {
			rec.Source = st.FileURL
		}
		if err := r.hist.RecordTask(ctx, rec); err != nil {
			slog.Warn("recording task", "task_id", st.TaskID, "error", err)
		} else {
			r.status = st.Task.Status
		}
	}
	if st.Note != nil && !r.savedNote {
		if err := r.hist.SaveNote(ctx, st.Note); err != nil {
			slog.Warn("saving note", "task_id", st.TaskID, "error", err)
		} else {
			r.savedNote = true
		}
	}
	if len(st.SOS) != r.sosCount {
		if err := r.hist.SaveSOS(ctx, st.TaskID, st.SOS); err != nil {
			slog.Warn("saving sos events", "task_id", st.TaskID, "error", err)
		} else {
			r.sosCount = len(st.SOS)
		}
	}
}
