// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package config turns a viper instance into a validated types.Config.
// Values come from defaults, an optional YAML file, a .env file, and
// MATHNOTE_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/pdiddy/mathnote/pkg/types"
)

const (
	// EnvPrefix is prepended to environment variable names.
	EnvPrefix = "MATHNOTE"

	// FileName is the config file name without extension.
	FileName = "mathnote"
)

// Backend schema bounds for slide detection options.
const (
	MinFrameInterval = 0.1
	MaxFrameInterval = 10.0
	MinSSIM          = 0.5
	MaxSSIM          = 1.0
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// SetDefaults registers every key with its default so that Unmarshal sees
// environment overrides for keys absent from the file.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", "http://localhost:8000")
	v.SetDefault("api.prefix", "/api/v1")
	v.SetDefault("api.timeout", "30s")
	v.SetDefault("api.upload_timeout", "30m")
	v.SetDefault("api.user_agent", "mathnote/0.1")
	v.SetDefault("api.token", "")
	v.SetDefault("api.max_retries", 0)

	v.SetDefault("upload.max_size", "500MB")
	v.SetDefault("upload.allowed_types", []string{"video/mp4", "video/quicktime"})
	v.SetDefault("upload.allowed_extensions", []string{".mp4", ".mov"})

	v.SetDefault("process.frame_interval_sec", 1.0)
	v.SetDefault("process.ssim_threshold", 0.85)

	v.SetDefault("poll.interval", "2s")
	v.SetDefault("poll.max_failures", 30)

	v.SetDefault("store.dir", ".mathnote")
	v.SetDefault("server.addr", "127.0.0.1:8765")
}

// Init points v at cfgFile, or at mathnote.yaml in the working directory
// or ~/.config/mathnote, and enables environment overrides. It returns the
// file used, or "" when none was found.
func Init(v *viper.Viper, cfgFile string) (string, error) {
	SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", FileName))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return "", nil
		}
		return "", fmt.Errorf("reading config: %w", err)
	}
	return v.ConfigFileUsed(), nil
}

// LoadDotEnv loads .env style files into the process environment. Missing
// files are ignored; variables already set are kept.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}

// Load decodes v into a Config and validates it.
func Load(v *viper.Viper) (types.Config, error) {
	var cfg types.Config
	err := v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.TextUnmarshallerHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)))
	if err != nil {
		return types.Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return types.Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field bounds. Zero process options are allowed
// and mean "backend default".
func Validate(cfg types.Config) error {
	var errs []error

	if u, err := url.Parse(cfg.API.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("api.base_url %q must be an absolute URL", cfg.API.BaseURL))
	}
	if cfg.API.Timeout < 0 || cfg.API.UploadTimeout < 0 {
		errs = append(errs, errors.New("api timeouts must not be negative"))
	}
	if f := cfg.Process.FrameIntervalSec; f != 0 && (f < MinFrameInterval || f > MaxFrameInterval) {
		errs = append(errs, fmt.Errorf("process.frame_interval_sec %g outside [%g, %g]", f, MinFrameInterval, MaxFrameInterval))
	}
	if s := cfg.Process.SSIMThreshold; s != 0 && (s < MinSSIM || s > MaxSSIM) {
		errs = append(errs, fmt.Errorf("process.ssim_threshold %g outside [%g, %g]", s, MinSSIM, MaxSSIM))
	}
	if cfg.Poll.Interval <= 0 {
		errs = append(errs, fmt.Errorf("poll.interval %s must be positive", cfg.Poll.Interval))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}
