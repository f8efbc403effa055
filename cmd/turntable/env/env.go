// Package env resolves the configuration shared by turntable subcommands
// and builds the components they need from it.
package env

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/turntable/pkg/backend"
	"github.com/papercomputeco/turntable/pkg/config"
	"github.com/papercomputeco/turntable/pkg/dotdir"
	"github.com/papercomputeco/turntable/pkg/eventstream"
	eventstreamutils "github.com/papercomputeco/turntable/pkg/eventstream/utils"
	"github.com/papercomputeco/turntable/pkg/logger"
	"github.com/papercomputeco/turntable/pkg/poller"
	"github.com/papercomputeco/turntable/pkg/storage"
	storageutils "github.com/papercomputeco/turntable/pkg/storage/utils"
)

// Env is the effective configuration of one command invocation.
type Env struct {
	Config *config.Config

	// Dir is the resolved .turntable/ directory.
	Dir string

	Debug  bool
	Logger *slog.Logger
}

// Load layers flags over env vars over config.toml over defaults. flagKeys
// names the registry flags the command registered. A relative log.file is
// placed in the .turntable/ directory.
func Load(cmd *cobra.Command, flagKeys ...string) (*Env, error) {
	configDir, _ := cmd.Flags().GetString("config-dir")
	debug, _ := cmd.Flags().GetBool("debug")

	v, err := config.InitViper(configDir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	config.BindRegisteredFlags(v, cmd, config.Flags, flagKeys)

	dir, err := dotdir.NewManager().Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	cfg := config.Resolve(v)
	if debug {
		cfg.Log.Debug = true
	}
	cfg.Log.File = dotdir.Resolve(dir, cfg.Log.File)

	return &Env{
		Config: cfg,
		Dir:    dir,
		Debug:  cfg.Log.Debug,
		Logger: NewLogger(cfg.Log, cmd.ErrOrStderr()),
	}, nil
}

// NewLogger builds the CLI logger: pretty output on w plus an optional
// rotating JSON file. In debug mode file records carry their source line.
func NewLogger(c config.LogConfig, w io.Writer) *slog.Logger {
	console := logger.New(
		logger.WithDebug(c.Debug),
		logger.WithPretty(true),
		logger.WithWriter(w),
	)
	if c.File == "" {
		return console
	}

	file := logger.New(
		logger.WithDebug(c.Debug),
		logger.WithJSON(true),
		logger.WithSource(c.Debug),
		logger.WithFile(c.File, logger.FileOptions{
			MaxSizeMB:  int(c.MaxSizeMB),
			MaxBackups: int(c.MaxBackups),
		}),
	)
	return logger.Multi(console, file)
}

// Backend returns a client for the configured chat backend.
func (e *Env) Backend() (*backend.Client, error) {
	timeout, err := time.ParseDuration(e.Config.Client.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid client.timeout: %w", err)
	}

	return backend.New(e.Config.Client.BaseURL,
		backend.WithHTTPClient(&http.Client{Timeout: timeout}),
		backend.WithLogger(e.Logger),
	)
}

// Storage opens the configured local turn store. A relative SQLite path
// resolves inside the .turntable/ directory.
func (e *Env) Storage(ctx context.Context) (storage.Driver, error) {
	return storageutils.NewDriver(ctx, &storageutils.NewDriverOpts{
		Driver:      e.Config.Storage.Driver,
		SQLitePath:  dotdir.Resolve(e.Dir, e.Config.Storage.SQLitePath),
		PostgresDSN: e.Config.Storage.PostgresDSN,
	})
}

// Publisher builds the configured turn event publisher.
func (e *Env) Publisher() (eventstream.Publisher, error) {
	host, _ := os.Hostname()
	return eventstreamutils.NewPublisher(&eventstreamutils.NewPublisherOpts{
		Publisher: e.Config.EventStream.Publisher,
		Brokers:   e.Config.EventStream.Brokers(),
		Topic:     e.Config.EventStream.KafkaTopic,
		ClientID:  "turntable@" + host,
		Logger:    e.Logger,
	})
}

// PollerConfig converts the poller section into a backoff configuration.
// Fields left out fall back to poller.DefaultConfig.
func (e *Env) PollerConfig() (poller.Config, error) {
	c := poller.DefaultConfig()
	p := e.Config.Poller

	if p.InitialInterval != "" {
		d, err := time.ParseDuration(p.InitialInterval)
		if err != nil {
			return c, fmt.Errorf("invalid poller.initial_interval: %w", err)
		}
		c.InitialInterval = d
	}
	if p.MaxInterval != "" {
		d, err := time.ParseDuration(p.MaxInterval)
		if err != nil {
			return c, fmt.Errorf("invalid poller.max_interval: %w", err)
		}
		c.MaxInterval = d
	}
	if p.Factor >= 1 {
		c.Factor = p.Factor
	}
	if p.MaxRetries > 0 {
		c.MaxRetries = int(p.MaxRetries)
	}

	return c, nil
}
