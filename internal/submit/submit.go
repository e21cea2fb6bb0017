// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package submit hands a lecture video to the analysis backend, either as
// a local file (validated, uploaded, then processed) or as a URL the
// backend fetches itself.
package submit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/pdiddy/mathnote/internal/api"
	"github.com/pdiddy/mathnote/pkg/types"
)

// ErrSubmit matches every *SubmitError.
var ErrSubmit = errors.New("submission failed")

// SubmitError wraps a transport or backend failure during submission. Its
// message is safe to show to users; the cause is kept for logs.
type SubmitError struct {
	Err error
}

func (e *SubmitError) Error() string        { return "upload failed, please try again" }
func (e *SubmitError) Unwrap() error        { return e.Err }
func (e *SubmitError) Is(target error) bool { return target == ErrSubmit }

// Backend is the subset of the API client used for submission.
type Backend interface {
	Upload(ctx context.Context, filename, contentType string, r io.Reader) (api.UploadResponse, error)
	Process(ctx context.Context, taskID string, in api.ProcessRequest) (api.ProcessResponse, error)
	FetchURL(ctx context.Context, in api.FetchURLRequest) (api.ProcessResponse, error)
}

// Input describes one submission. In file mode either Path or File (with
// Name and Size) is set. In URL mode URL is set.
type Input struct {
	Mode types.SubmitMode

	Path string
	File io.Reader
	Name string
	Size int64

	URL string

	SOS     []float64
	Options types.ProcessOptions
}

// Handle identifies the task created by a successful submission.
type Handle struct {
	TaskID        string           `json:"task_id"`
	Mode          types.SubmitMode `json:"mode"`
	URL           string           `json:"url,omitempty"`
	FileURL       string           `json:"file_url,omitempty"`
	Status        types.TaskStatus `json:"status"`
	EstimatedTime int              `json:"estimated_time_sec,omitempty"`
}

// Client submits videos. Each Submit call performs exactly one submission.
type Client struct {
	backend   Backend
	validator *Validator
}

// New returns a Client using backend and the upload checks in cfg.
func New(backend Backend, cfg types.UploadConfig) *Client {
	return &Client{backend: backend, validator: NewValidator(cfg)}
}

// Submit validates in and hands it to the backend. Validation failures
// return a *ValidationError without any network call; backend failures
// return a *SubmitError and no task id.
func (c *Client) Submit(ctx context.Context, in Input) (Handle, error) {
	switch in.Mode {
	case types.ModeFile:
		return c.submitFile(ctx, in)
	case types.ModeURL:
		return c.submitURL(ctx, in)
	default:
		return Handle{}, fmt.Errorf("unknown submission mode %q", in.Mode)
	}
}

func (c *Client) submitFile(ctx context.Context, in Input) (Handle, error) {
	r, name, size := in.File, in.Name, in.Size
	if r == nil {
		f, err := os.Open(in.Path)
		if err != nil {
			return Handle{}, fmt.Errorf("opening %s: %w", in.Path, err)
		}
		defer f.Close()
		info, err := f.Stat()
		if err != nil {
			return Handle{}, fmt.Errorf("stat %s: %w", in.Path, err)
		}
		if info.IsDir() {
			return Handle{}, fmt.Errorf("%s is a directory", in.Path)
		}
		r, name, size = f, in.Path, info.Size()
	}

	checked, err := c.validator.File(name, size, r)
	if err != nil {
		return Handle{}, err
	}

	slog.Info("uploading video", "name", checked.Name, "type", checked.ContentType, "size", size)
	up, err := c.backend.Upload(ctx, checked.Name, checked.ContentType, checked.Body)
	if err != nil {
		return Handle{}, &SubmitError{Err: err}
	}

	resp, err := c.backend.Process(ctx, up.TaskID, api.ProcessRequest{
		SOSTimestamps: in.SOS,
		Options:       optionsOrNil(in.Options),
	})
	if err != nil {
		slog.Warn("upload succeeded but processing did not start", "task_id", up.TaskID, "error", err)
		return Handle{}, &SubmitError{Err: err}
	}

	return Handle{
		TaskID:        up.TaskID,
		Mode:          types.ModeFile,
		FileURL:       up.FileURL,
		Status:        resp.Status,
		EstimatedTime: resp.EstimatedTimeSec,
	}, nil
}

func (c *Client) submitURL(ctx context.Context, in Input) (Handle, error) {
	u, err := URL(in.URL)
	if err != nil {
		return Handle{}, err
	}

	slog.Info("submitting video url", "url", u)
	resp, err := c.backend.FetchURL(ctx, api.FetchURLRequest{URL: u, SOSTimestamps: in.SOS})
	if err != nil {
		return Handle{}, &SubmitError{Err: err}
	}
	return Handle{
		TaskID:        resp.TaskID,
		Mode:          types.ModeURL,
		URL:           u,
		Status:        resp.Status,
		EstimatedTime: resp.EstimatedTimeSec,
	}, nil
}

// Reprocess restarts analysis of an existing task, typically to send a
// fresh SOS snapshot.
func (c *Client) Reprocess(ctx context.Context, taskID string, sos []float64, opts types.ProcessOptions) (api.ProcessResponse, error) {
	if taskID == "" {
		return api.ProcessResponse{}, errors.New("reprocess: empty task id")
	}
	resp, err := c.backend.Process(ctx, taskID, api.ProcessRequest{
		SOSTimestamps: sos,
		Options:       optionsOrNil(opts),
	})
	if err != nil {
		return api.ProcessResponse{}, &SubmitError{Err: err}
	}
	return resp, nil
}

func optionsOrNil(o types.ProcessOptions) *types.ProcessOptions {
	if o == (types.ProcessOptions{}) {
		return nil
	}
	return &o
}
