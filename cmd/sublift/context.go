package main

import (
	"strings"
	"sync"

	"log/slog"

	"github.com/spf13/cobra"

	"sublift/internal/config"
	"sublift/internal/logging"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		c.config, c.configErr = c.loadConfig()
	})
	return c.config, c.configErr
}

func (c *commandContext) loadConfig() (*config.Config, error) {
	var explicit string
	if c.configFlag != nil {
		explicit = strings.TrimSpace(*c.configFlag)
	}
	cfg, _, _, err := config.Load(explicit)
	if err != nil {
		return nil, err
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

// resolvedLogLevel returns the persistent flag override when set, the
// configured level otherwise.
func (c *commandContext) resolvedLogLevel(cfg *config.Config) string {
	if c.logLevelFlag != nil {
		if level := strings.TrimSpace(*c.logLevelFlag); level != "" {
			return level
		}
	}
	if cfg != nil && strings.TrimSpace(cfg.Logging.Level) != "" {
		return cfg.Logging.Level
	}
	return "info"
}

// newLogger builds a console logger for one-shot commands. Output goes to
// stdout only; the log file under log_dir is reserved for batch runs.
func (c *commandContext) newLogger(cfg *config.Config) (*slog.Logger, error) {
	format := "console"
	if cfg != nil && strings.TrimSpace(cfg.Logging.Format) != "" {
		format = cfg.Logging.Format
	}
	return logging.New(logging.Options{
		Level:       c.resolvedLogLevel(cfg),
		Format:      format,
		OutputPaths: []string{"stdout"},
	})
}

func skipsConfigLoad(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations["loadsOwnConfig"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
