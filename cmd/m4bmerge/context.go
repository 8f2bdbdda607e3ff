package main

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"m4bmerge/internal/config"
	"m4bmerge/internal/logging"
)

type commandContext struct {
	configFlag *string
	debugFlag  *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string, debugFlag *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		debugFlag:  debugFlag,
	}
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
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) debug() bool {
	return c.debugFlag != nil && *c.debugFlag
}

// logger builds the process logger from the loaded config. --debug forces
// debug level so engine arguments are visible.
func (c *commandContext) logger() (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return logging.NewFromConfig(cfg, c.debug())
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
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
