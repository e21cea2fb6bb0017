// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package api

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"

	"github.com/pdiddy/mathnote/pkg/types"
)

// UploadResponse is returned by POST /videos/upload.
type UploadResponse struct {
	TaskID  string           `json:"task_id"`
	FileURL string           `json:"file_url"`
	Status  types.TaskStatus `json:"status"`
}

// FetchURLRequest is the body of POST /videos/fetch-url.
type FetchURLRequest struct {
	URL           string    `json:"url"`
	SOSTimestamps []float64 `json:"sos_timestamps"`
}

// ProcessRequest is the body of POST /videos/{task_id}/process.
type ProcessRequest struct {
	SOSTimestamps []float64             `json:"sos_timestamps"`
	Options       *types.ProcessOptions `json:"options,omitempty"`
}

// ProcessResponse is returned by fetch-url and process.
type ProcessResponse struct {
	TaskID           string           `json:"task_id"`
	Status           types.TaskStatus `json:"status"`
	EstimatedTimeSec int              `json:"estimated_time_sec,omitempty"`
}

// statusResponse mirrors GET /videos/{task_id}/status.
type statusResponse struct {
	TaskID       string           `json:"task_id"`
	Status       types.TaskStatus `json:"status"`
	Progress     *types.Progress  `json:"progress"`
	ErrorMessage *string          `json:"error_message"`
	FileURL      string           `json:"file_url"`
}

// Upload streams a video file to the backend as multipart field "file".
// The body is streamed, so the request is never retried.
func (c *Client) Upload(ctx context.Context, filename, contentType string, r io.Reader) (UploadResponse, error) {
	const op = "upload"

	ctx, cancel := context.WithTimeout(ctx, c.uploadTimeout)
	defer cancel()

	pr, pw := io.Pipe()
	defer pr.Close()
	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeMultipartFile(mw, filename, contentType, r))
	}()

	req, err := c.newRequest(ctx, http.MethodPost, c.endpoint("videos", "upload"), pr)
	if err != nil {
		return UploadResponse{}, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	// Uploads can legitimately outlive the default client timeout.
	hc := *c.http
	hc.Timeout = 0
	resp, err := hc.Do(req)
	if err != nil {
		return UploadResponse{}, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return UploadResponse{}, decodeStatusError(op, resp)
	}

	var out UploadResponse
	if err := decodeJSON(resp.Body, &out); err != nil {
		return UploadResponse{}, fmt.Errorf("%s: parsing response: %w", op, err)
	}
	if out.TaskID == "" {
		return UploadResponse{}, fmt.Errorf("%s: response carries no task id", op)
	}
	return out, nil
}

func writeMultipartFile(mw *multipart.Writer, filename, contentType string, r io.Reader) error {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h.Set("Content-Type", contentType)

	part, err := mw.CreatePart(h)
	if err != nil {
		return fmt.Errorf("creating multipart part: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return fmt.Errorf("copying video data: %w", err)
	}
	return mw.Close()
}

// FetchURL asks the backend to download and process an externally hosted
// video.
func (c *Client) FetchURL(ctx context.Context, in FetchURLRequest) (ProcessResponse, error) {
	if in.SOSTimestamps == nil {
		in.SOSTimestamps = []float64{}
	}
	var out ProcessResponse
	if err := c.postJSON(ctx, "fetch-url", c.endpoint("videos", "fetch-url"), in, &out); err != nil {
		return ProcessResponse{}, err
	}
	if out.TaskID == "" {
		return ProcessResponse{}, fmt.Errorf("fetch-url: response carries no task id")
	}
	return out, nil
}

// Process starts (or restarts) analysis of an uploaded video.
func (c *Client) Process(ctx context.Context, taskID string, in ProcessRequest) (ProcessResponse, error) {
	if in.SOSTimestamps == nil {
		in.SOSTimestamps = []float64{}
	}
	var out ProcessResponse
	if err := c.postJSON(ctx, "process", c.endpoint("videos", taskID, "process"), in, &out); err != nil {
		return ProcessResponse{}, err
	}
	if out.TaskID == "" {
		out.TaskID = taskID
	}
	return out, nil
}

// Status fetches the current task snapshot. Progress fractions are clamped
// to [0, 1]; an unknown status is an error.
func (c *Client) Status(ctx context.Context, taskID string) (*types.Task, error) {
	var out statusResponse
	if err := c.getJSON(ctx, "status", c.endpoint("videos", taskID, "status"), &out); err != nil {
		return nil, err
	}
	if !out.Status.Valid() {
		return nil, fmt.Errorf("status: unknown task status %q", out.Status)
	}

	t := &types.Task{
		ID:         out.TaskID,
		Status:     out.Status,
		StorageRef: out.FileURL,
	}
	if t.ID == "" {
		t.ID = taskID
	}
	if out.Progress != nil {
		p := out.Progress.Clamp()
		t.Progress = &p
	}
	if out.ErrorMessage != nil {
		t.ErrorMessage = *out.ErrorMessage
	}
	return t, nil
}
