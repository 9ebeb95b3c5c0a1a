package main

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"slidecast/internal/config"
	"slidecast/internal/history"
	"slidecast/internal/logging"
	"slidecast/internal/pipeline"
	"slidecast/internal/services/ffmpeg"
	"slidecast/internal/subtitles"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// runtime bundles the wired subsystems a render command needs.
type runtime struct {
	cfg      *config.Config
	logger   *slog.Logger
	pipeline *pipeline.Pipeline
	store    *history.Store
}

// buildRuntime wires transcoder, cue source, history store, and pipeline from
// the loaded config. The returned cleanup must run when the command finishes.
func (c *commandContext) buildRuntime() (*runtime, func(), error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return nil, nil, err
	}

	transcoder := ffmpeg.NewCLI(
		ffmpeg.WithBinaries(cfg.FFmpegBinary(), cfg.FFprobeBinary()),
		ffmpeg.WithTimeout(cfg.TranscodeTimeout()),
		ffmpeg.WithVerbose(cfg.Output.Verbose),
	)
	source := subtitles.NewSource(cfg.FFprobeBinary(), transcoder, logger)

	var store *history.Store
	if cfg.History.Enabled {
		store, err = history.Open(cfg)
		if err != nil {
			// A broken history database should not block rendering.
			logger.Warn("history store unavailable", logging.Error(err))
			store = nil
		}
	}

	env := &runtime{
		cfg:      cfg,
		logger:   logger,
		pipeline: pipeline.New(cfg, transcoder, source, store, logger),
		store:    store,
	}
	cleanup := func() {
		if store != nil {
			_ = store.Close()
		}
	}
	return env, cleanup, nil
}

func (c *commandContext) openHistory() (*history.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return history.Open(cfg)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
