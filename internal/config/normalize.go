package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLLM()
	c.normalizeReddit()
	c.normalizeTwitter()
	if err := c.normalizeMetrics(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeLLM() {
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	if c.LLM.APIKey == "" {
		for _, key := range []string{"POSTPILOT_LLM_API_KEY", "GROQ_API_KEY", "OPENROUTER_API_KEY"} {
			if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
				c.LLM.APIKey = strings.TrimSpace(value)
				break
			}
		}
	}
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModel
	}
	c.LLM.Referer = strings.TrimSpace(c.LLM.Referer)
	c.LLM.Title = strings.TrimSpace(c.LLM.Title)
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
}

func (c *Config) normalizeReddit() {
	c.Reddit.BaseURL = strings.TrimRight(strings.TrimSpace(c.Reddit.BaseURL), "/")
	if c.Reddit.BaseURL == "" {
		c.Reddit.BaseURL = defaultRedditBaseURL
	}
	c.Reddit.UserAgent = strings.TrimSpace(c.Reddit.UserAgent)
	if c.Reddit.UserAgent == "" {
		c.Reddit.UserAgent = defaultRedditUserAgent
	}
	if c.Reddit.TimeoutSeconds <= 0 {
		c.Reddit.TimeoutSeconds = defaultRedditTimeout
	}
	if c.Reddit.TotalLimit <= 0 {
		c.Reddit.TotalLimit = defaultRedditTotalLimit
	}
}

func (c *Config) normalizeTwitter() {
	c.Twitter.BearerToken = strings.TrimSpace(c.Twitter.BearerToken)
	if c.Twitter.BearerToken == "" {
		if value, ok := os.LookupEnv("TWITTER_BEARER_TOKEN"); ok {
			c.Twitter.BearerToken = strings.TrimSpace(value)
		}
	}
	c.Twitter.APIBaseURL = strings.TrimRight(strings.TrimSpace(c.Twitter.APIBaseURL), "/")
	if c.Twitter.APIBaseURL == "" {
		c.Twitter.APIBaseURL = defaultTwitterAPIBaseURL
	}
	c.Twitter.StatusURLBase = strings.TrimSpace(c.Twitter.StatusURLBase)
	if c.Twitter.StatusURLBase == "" {
		c.Twitter.StatusURLBase = defaultTwitterStatusURL
	}
	if c.Twitter.TimeoutSeconds <= 0 {
		c.Twitter.TimeoutSeconds = defaultTwitterTimeout
	}
}

func (c *Config) normalizeMetrics() error {
	c.Metrics.Textfile = strings.TrimSpace(c.Metrics.Textfile)
	if c.Metrics.Textfile == "" {
		return nil
	}
	var err error
	if c.Metrics.Textfile, err = expandPath(c.Metrics.Textfile); err != nil {
		return fmt.Errorf("metrics.textfile: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
}
