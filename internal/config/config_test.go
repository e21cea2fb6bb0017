// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func load(t *testing.T, cfgFile string) (string, error) {
	t.Helper()
	v := viper.New()
	used, err := Init(v, cfgFile)
	if err != nil {
		return used, err
	}
	_, err = Load(v)
	return used, err
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	v := viper.New()
	used, err := Init(v, "")
	require.NoError(t, err)
	assert.Empty(t, used)

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000", cfg.API.BaseURL)
	assert.Equal(t, "/api/v1", cfg.API.Prefix)
	assert.Equal(t, 30*time.Second, cfg.API.Timeout)
	assert.Equal(t, 500*datasize.MB, cfg.Upload.MaxSize)
	assert.Equal(t, []string{"video/mp4", "video/quicktime"}, cfg.Upload.AllowedTypes)
	assert.Equal(t, []string{".mp4", ".mov"}, cfg.Upload.AllowedExtensions)
	assert.Equal(t, 1.0, cfg.Process.FrameIntervalSec)
	assert.Equal(t, 0.85, cfg.Process.SSIMThreshold)
	assert.Equal(t, 2*time.Second, cfg.Poll.Interval)
	assert.Equal(t, 30, cfg.Poll.MaxFailures)
	assert.Equal(t, ".mathnote", cfg.Store.Dir)
	assert.Equal(t, "127.0.0.1:8765", cfg.Server.Addr)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
api:
  base_url: https://notes.example.com
  timeout: 5s
upload:
  max_size: 1GB
process:
  frame_interval_sec: 3
poll:
  interval: 500ms
`), 0o644))

	t.Setenv("MATHNOTE_POLL_MAX_FAILURES", "-1")
	t.Setenv("MATHNOTE_UPLOAD_ALLOWED_EXTENSIONS", ".mp4,.mkv")
	t.Setenv("MATHNOTE_API_TOKEN", "tok")

	v := viper.New()
	used, err := Init(v, path)
	require.NoError(t, err)
	assert.Equal(t, path, used)

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "https://notes.example.com", cfg.API.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.API.Timeout)
	assert.Equal(t, datasize.GB, cfg.Upload.MaxSize)
	assert.Equal(t, 3.0, cfg.Process.FrameIntervalSec)
	assert.Equal(t, 500*time.Millisecond, cfg.Poll.Interval)
	assert.Equal(t, -1, cfg.Poll.MaxFailures)
	assert.Equal(t, []string{".mp4", ".mkv"}, cfg.Upload.AllowedExtensions)
	assert.Equal(t, "tok", cfg.API.Token)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := load(t, filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"frame interval too small", map[string]string{"MATHNOTE_PROCESS_FRAME_INTERVAL_SEC": "0.05"}, "frame_interval_sec"},
		{"frame interval too large", map[string]string{"MATHNOTE_PROCESS_FRAME_INTERVAL_SEC": "11"}, "frame_interval_sec"},
		{"ssim too low", map[string]string{"MATHNOTE_PROCESS_SSIM_THRESHOLD": "0.4"}, "ssim_threshold"},
		{"zero poll interval", map[string]string{"MATHNOTE_POLL_INTERVAL": "0s"}, "poll.interval"},
		{"relative base url", map[string]string{"MATHNOTE_API_BASE_URL": "localhost"}, "api.base_url"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			for k, val := range tt.env {
				t.Setenv(k, val)
			}
			_, err := load(t, "")
			require.ErrorIs(t, err, ErrInvalid)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("MATHNOTE_SERVER_ADDR=0.0.0.0:9000\n"), 0o644))
	t.Setenv("MATHNOTE_SERVER_ADDR", "")
	os.Unsetenv("MATHNOTE_SERVER_ADDR")

	require.NoError(t, LoadDotEnv(path, filepath.Join(dir, "missing.env")))
	t.Chdir(dir)

	v := viper.New()
	_, err := Init(v, "")
	require.NoError(t, err)
	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9000", cfg.Server.Addr)
}
