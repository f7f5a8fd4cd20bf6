package main

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"postpilot/internal/config"
	"postpilot/internal/logging"
	"postpilot/internal/metrics"
	"postpilot/internal/notifications"
	"postpilot/internal/services/llm"
	"postpilot/internal/services/reddit"
	"postpilot/internal/services/twitter"
	"postpilot/internal/store"
	"postpilot/internal/workflow"
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

// session bundles what a workflow command needs for one invocation.
type session struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *store.Store
	manager *workflow.Manager
}

type sessionOptions struct {
	requireLLM bool
	topK       int
}

func (c *commandContext) openSession(opts sessionOptions) (*session, error) {
	base, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	cfg := *base
	if opts.topK > 0 {
		cfg.Workflow.TopK = opts.topK
	}
	if opts.requireLLM {
		if err := cfg.RequireLLM(); err != nil {
			return nil, err
		}
	}

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	st, err := store.Open(&cfg)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	recorder := metrics.NewFromConfig(&cfg)
	manager := workflow.NewManagerWithOptions(&cfg, st, logger, notifications.NewService(&cfg), recorder)
	manager.ConfigureStages(workflow.NewStageSet(&cfg, st, workflow.Dependencies{
		Reasoner:  llm.NewClient(llm.ConfigFromApp(&cfg)),
		Source:    reddit.NewClient(&cfg),
		Publisher: twitter.NewClient(&cfg, nil),
	}, recorder, logger))

	return &session{cfg: &cfg, logger: logger, store: st, manager: manager}, nil
}

func (s *session) Close() {
	if s == nil || s.store == nil {
		return
	}
	if err := s.store.Close(); err != nil {
		s.logger.Warn("failed to close store", logging.Error(err))
	}
}

func (c *commandContext) withSession(opts sessionOptions, fn func(*session) error) error {
	sess, err := c.openSession(opts)
	if err != nil {
		return err
	}
	defer sess.Close()
	return fn(sess)
}

func parseWorkflowID(value string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(strings.TrimSpace(value), "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid workflow id %q", value)
	}
	return id, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
