// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"time"

	"github.com/c2h5oh/datasize"
)

// APIConfig holds settings for talking to the analysis backend.
type APIConfig struct {
	// BaseURL is the backend origin (e.g. "http://localhost:8000").
	BaseURL string `json:"base_url" yaml:"base_url" mapstructure:"base_url"`

	// Prefix is prepended to every endpoint path (e.g. "/api/v1").
	Prefix string `json:"prefix" yaml:"prefix" mapstructure:"prefix"`

	// Timeout bounds each HTTP request. Uploads use UploadTimeout instead.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UploadTimeout bounds multipart uploads, which can be large.
	UploadTimeout time.Duration `json:"upload_timeout" yaml:"upload_timeout" mapstructure:"upload_timeout"`

	// UserAgent is sent with every request.
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`

	// Token, when set, is sent as a Bearer credential.
	Token string `json:"-" yaml:"-" mapstructure:"token"`

	// MaxRetries bounds retries on HTTP 429/503 (0 uses the default).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`
}

// UploadConfig holds the local checks applied before a file is sent.
type UploadConfig struct {
	// MaxSize is the largest accepted file (e.g. "500MB").
	MaxSize datasize.ByteSize `json:"max_size" yaml:"max_size" mapstructure:"max_size"`

	// AllowedTypes lists accepted MIME types.
	AllowedTypes []string `json:"allowed_types" yaml:"allowed_types" mapstructure:"allowed_types"`

	// AllowedExtensions lists accepted file extensions, dot included.
	AllowedExtensions []string `json:"allowed_extensions" yaml:"allowed_extensions" mapstructure:"allowed_extensions"`
}

// ProcessOptions tunes the backend's slide detection. Zero fields are
// omitted so the backend applies its own defaults.
type ProcessOptions struct {
	FrameIntervalSec float64 `json:"frame_interval_sec,omitempty" yaml:"frame_interval_sec" mapstructure:"frame_interval_sec"`
	SSIMThreshold    float64 `json:"ssim_threshold,omitempty" yaml:"ssim_threshold" mapstructure:"ssim_threshold"`
}

// FrameIntervalChoices are the sampling intervals offered to users.
var FrameIntervalChoices = []float64{1, 3, 5}

// PollConfig controls the task status poller.
type PollConfig struct {
	// Interval is the delay between status fetches.
	Interval time.Duration `json:"interval" yaml:"interval" mapstructure:"interval"`

	// MaxFailures stops polling after this many consecutive failed fetches.
	// Zero uses the default; a negative value retries indefinitely.
	MaxFailures int `json:"max_failures" yaml:"max_failures" mapstructure:"max_failures"`
}

// StoreConfig locates the local history database.
type StoreConfig struct {
	Dir string `json:"dir" yaml:"dir" mapstructure:"dir"`
}

// ServerConfig holds the companion viewer settings.
type ServerConfig struct {
	Addr string `json:"addr" yaml:"addr" mapstructure:"addr"`
}

// Config groups every component's settings.
type Config struct {
	API     APIConfig      `json:"api" yaml:"api" mapstructure:"api"`
	Upload  UploadConfig   `json:"upload" yaml:"upload" mapstructure:"upload"`
	Process ProcessOptions `json:"process" yaml:"process" mapstructure:"process"`
	Poll    PollConfig     `json:"poll" yaml:"poll" mapstructure:"poll"`
	Store   StoreConfig    `json:"store" yaml:"store" mapstructure:"store"`
	Server  ServerConfig   `json:"server" yaml:"server" mapstructure:"server"`
}
