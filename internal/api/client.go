// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package api is the typed client for the lecture analysis backend's REST
// contract: video submission, task status, finished notes, download links,
// and Notion export.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pdiddy/mathnote/internal/httputil"
	"github.com/pdiddy/mathnote/pkg/types"
)

const (
	defaultTimeout       = 30 * time.Second
	defaultUploadTimeout = 30 * time.Minute
	defaultUserAgent     = "mathnote/0.1"
)

// StatusError is returned when the backend answers with a non-2xx status.
// Detail carries the backend's "detail" field when present.
type StatusError struct {
	Op     string
	Code   int
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: backend returned HTTP %d: %s", e.Op, e.Code, e.Detail)
	}
	return fmt.Sprintf("%s: backend returned HTTP %d", e.Op, e.Code)
}

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusNotFound
}

// Client talks to the backend. It is safe for concurrent use.
type Client struct {
	baseURL    string
	prefix     string
	userAgent  string
	token      string
	maxRetries int

	http          *http.Client
	uploadTimeout time.Duration
}

// New builds a Client from cfg. When hc is nil a client with cfg.Timeout
// is created.
func New(cfg types.APIConfig, hc *http.Client) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}
	uploadTimeout := cfg.UploadTimeout
	if uploadTimeout <= 0 {
		uploadTimeout = defaultUploadTimeout
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	return &Client{
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		prefix:        "/" + strings.Trim(cfg.Prefix, "/"),
		userAgent:     ua,
		token:         cfg.Token,
		maxRetries:    cfg.MaxRetries,
		http:          hc,
		uploadTimeout: uploadTimeout,
	}
}

// endpoint joins the base URL, API prefix, and path segments. Segments are
// path-escaped so opaque task ids cannot alter the route.
func (c *Client) endpoint(segments ...string) string {
	var b strings.Builder
	b.WriteString(c.baseURL)
	if c.prefix != "/" {
		b.WriteString(c.prefix)
	}
	for _, s := range segments {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(s))
	}
	return b.String()
}

func (c *Client) newRequest(ctx context.Context, method, target string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

// getJSON issues a GET and decodes the JSON response into out.
func (c *Client) getJSON(ctx context.Context, op, target string, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	return c.do(ctx, op, req, out)
}

// postJSON issues a POST with a JSON body (nil for none) and decodes the
// response into out.
func (c *Client) postJSON(ctx context.Context, op, target string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encoding request: %w", op, err)
		}
		body = bytes.NewReader(data)
	}
	req, err := c.newRequest(ctx, http.MethodPost, target, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(ctx, op, req, out)
}

func (c *Client) do(ctx context.Context, op string, req *http.Request, out any) error {
	resp, err := httputil.DoWithRetry(ctx, c.http, req, c.maxRetries)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeStatusError(op, resp)
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: parsing response: %w", op, err)
	}
	return nil
}

// decodeStatusError reads a FastAPI-style {"detail": ...} body. Validation
// errors carry a list in detail; only string details are kept.
func decodeStatusError(op string, resp *http.Response) error {
	se := &StatusError{Op: op, Code: resp.StatusCode}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var body struct {
		Detail json.RawMessage `json:"detail"`
	}
	if json.Unmarshal(data, &body) == nil && len(body.Detail) > 0 {
		var s string
		if json.Unmarshal(body.Detail, &s) == nil {
			se.Detail = s
		}
	}
	return se
}

// Health checks that the backend is reachable. The health route lives
// outside the API prefix.
func (c *Client) Health(ctx context.Context) error {
	var out struct {
		Status string `json:"status"`
	}
	if err := c.getJSON(ctx, "health", c.baseURL+"/health", &out); err != nil {
		return err
	}
	if out.Status != "healthy" {
		return fmt.Errorf("health: backend reports %q", out.Status)
	}
	return nil
}
