package main

import (
	"strings"
	"sync"

	"github.com/jcrowe85/tiktok-analytics-sub000/internal/api"
	"github.com/jcrowe85/tiktok-analytics-sub000/internal/config"
	"github.com/jcrowe85/tiktok-analytics-sub000/internal/logging"
	"github.com/jcrowe85/tiktok-analytics-sub000/internal/queue"
	"github.com/jcrowe85/tiktok-analytics-sub000/internal/store"
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
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// withService opens the queue and result stores for the duration of one
// command. SQLite in WAL mode tolerates the daemon holding the same files.
func (c *commandContext) withService(fn func(*api.Service) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}

	queueStore, err := queue.Open(cfg)
	if err != nil {
		return err
	}
	defer queueStore.Close()

	resultStore, err := store.Open(cfg)
	if err != nil {
		return err
	}
	defer resultStore.Close()

	service := api.NewService(queueStore, resultStore, cfg.Analysis.RulesVersion, logging.NewNop())
	return fn(service)
}
