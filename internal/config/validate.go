package config

import (
	"errors"
	"fmt"
	"sort"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateTemperatures(); err != nil {
		return err
	}
	if err := c.validateTimeouts(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.TopK < 1 {
		return errors.New("workflow.top_k must be at least 1")
	}
	if c.Workflow.RelevanceCap < 1 {
		return errors.New("workflow.relevance_cap must be at least 1")
	}
	if c.Workflow.MaxRevisions < 0 {
		return errors.New("workflow.max_revisions must be >= 0 (0 disables the cap)")
	}
	return nil
}

func (c *Config) validateTemperatures() error {
	temps := map[string]float64{
		"llm.temperature.intent":    c.LLM.Temperature.Intent,
		"llm.temperature.research":  c.LLM.Temperature.Research,
		"llm.temperature.filter":    c.LLM.Temperature.Filter,
		"llm.temperature.summarize": c.LLM.Temperature.Summarize,
		"llm.temperature.draft":     c.LLM.Temperature.Draft,
	}
	keys := make([]string, 0, len(temps))
	for key := range temps {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if value := temps[key]; value < 0 || value > 2 {
			return fmt.Errorf("%s must be between 0 and 2", key)
		}
	}
	return nil
}

func (c *Config) validateTimeouts() error {
	return ensurePositiveMap(map[string]int{
		"llm.timeout_seconds":           c.LLM.TimeoutSeconds,
		"reddit.timeout_seconds":        c.Reddit.TimeoutSeconds,
		"reddit.total_limit":            c.Reddit.TotalLimit,
		"twitter.timeout_seconds":       c.Twitter.TimeoutSeconds,
		"notifications.request_timeout": c.Notifications.RequestTimeout,
	})
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if values[key] <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
