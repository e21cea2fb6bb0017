// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the mathnote CLI. It submits lecture
// videos to the analysis backend, follows the task to a finished note,
// renders the note, and keeps a local history.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/mathnote/internal/api"
	"github.com/pdiddy/mathnote/internal/config"
	"github.com/pdiddy/mathnote/internal/secrets"
	"github.com/pdiddy/mathnote/internal/store"
	"github.com/pdiddy/mathnote/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// appConfig is loaded before any subcommand runs.
var appConfig types.Config

var rootCmd = &cobra.Command{
	Use:   "mathnote",
	Short: "Turn math lecture videos into structured notes",
	Long: `mathnote submits a lecture video (a local MP4/MOV file or a YouTube
link) to the analysis backend, follows processing until the note is ready,
and renders it slide by slide with formulas, summaries, and deep-dive
explanations for the moments you marked with SOS.

Finished notes are kept in a local history that can be searched and
exported.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (default: ./mathnote.yaml or ~/.config/mathnote/mathnote.yaml)")
	rootCmd.PersistentFlags().String("env-file", ".env", "dotenv file loaded before reading the environment")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "log debug output to stderr")
}

func setup(cmd *cobra.Command, args []string) error {
	verbose, _ := cmd.Flags().GetBool("verbose")
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	envFile, _ := cmd.Flags().GetString("env-file")
	if err := config.LoadDotEnv(envFile); err != nil {
		return err
	}

	cfgFile, _ := cmd.Flags().GetString("config")
	used, err := config.Init(viper.GetViper(), cfgFile)
	if err != nil {
		return err
	}
	if used != "" {
		slog.Debug("using config file", "path", used)
	}
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	s, err := secrets.Load(secrets.DefaultDir)
	if err != nil {
		return err
	}
	if keys := s.Keys(); len(keys) > 0 {
		slog.Debug("loaded secrets", "keys", keys)
	}
	cfg.API.Token = s.Default(secrets.APITokenKey, cfg.API.Token)

	appConfig = cfg
	return nil
}

func newClient() *api.Client {
	return api.New(appConfig.API, nil)
}

func openStore() (*store.Store, error) {
	return store.New(appConfig.Store)
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
