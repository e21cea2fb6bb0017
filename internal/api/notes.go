// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/pdiddy/mathnote/pkg/types"
)

// backendTimeLayouts covers ISO-8601 timestamps with and without a zone
// offset; naive timestamps are read as UTC.
var backendTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func parseBackendTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range backendTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

func decodeJSON(r io.Reader, out any) error {
	return json.NewDecoder(r).Decode(out)
}

type noteResponse struct {
	TaskID    string        `json:"task_id"`
	Title     string        `json:"title"`
	CreatedAt string        `json:"created_at"`
	Slides    []types.Slide `json:"slides"`
}

// Note fetches the finished note for a completed task. The slides are
// returned in response order and the note is validated.
func (c *Client) Note(ctx context.Context, taskID string) (*types.Note, error) {
	var out noteResponse
	if err := c.getJSON(ctx, "note", c.endpoint("notes", taskID), &out); err != nil {
		return nil, err
	}
	created, err := parseBackendTime(out.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("note: %w", err)
	}
	n := &types.Note{
		TaskID:    out.TaskID,
		Title:     out.Title,
		CreatedAt: created,
		Slides:    out.Slides,
	}
	if n.TaskID == "" {
		n.TaskID = taskID
	}
	if err := n.Validate(); err != nil {
		return nil, fmt.Errorf("note: %w", err)
	}
	return n, nil
}

type downloadResponse struct {
	DownloadURL string `json:"download_url"`
	Filename    string `json:"filename"`
	ExpiresAt   string `json:"expires_at"`
}

// DownloadLink requests a time-limited link to the rendered note file.
func (c *Client) DownloadLink(ctx context.Context, taskID string) (types.DownloadLink, error) {
	var out downloadResponse
	if err := c.getJSON(ctx, "download", c.endpoint("notes", taskID, "download"), &out); err != nil {
		return types.DownloadLink{}, err
	}
	expires, err := parseBackendTime(out.ExpiresAt)
	if err != nil {
		return types.DownloadLink{}, fmt.Errorf("download: %w", err)
	}
	return types.DownloadLink{URL: out.DownloadURL, Filename: out.Filename, ExpiresAt: expires}, nil
}

// SlideImage returns a fresh link to a slide's captured frame.
func (c *Client) SlideImage(ctx context.Context, taskID string, number int) (string, error) {
	var out struct {
		ImageURL string `json:"image_url"`
	}
	target := c.endpoint("notes", taskID, "slides", strconv.Itoa(number), "image")
	if err := c.getJSON(ctx, "slide image", target, &out); err != nil {
		return "", err
	}
	return out.ImageURL, nil
}

// SyncNotion pushes the note to Notion and returns the created page URL.
func (c *Client) SyncNotion(ctx context.Context, taskID string) (string, error) {
	var out struct {
		NotionPageURL string `json:"notion_page_url"`
	}
	if err := c.postJSON(ctx, "notion", c.endpoint("notes", taskID, "notion"), nil, &out); err != nil {
		return "", err
	}
	if out.NotionPageURL == "" {
		return "", fmt.Errorf("notion: response carries no page url")
	}
	return out.NotionPageURL, nil
}
