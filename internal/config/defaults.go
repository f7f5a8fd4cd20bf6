package config

const (
	defaultConfigPath          = "~/.config/postpilot/config.toml"
	defaultDataDir             = "~/.local/share/postpilot"
	defaultLogDir              = "~/.local/share/postpilot/logs"
	defaultLLMBaseURL          = "https://api.groq.com/openai/v1/chat/completions"
	defaultLLMModel            = "llama-3.3-70b-versatile"
	defaultLLMReferer          = "https://github.com/postpilot/postpilot"
	defaultLLMTitle            = "PostPilot"
	defaultLLMTimeoutSeconds   = 60
	defaultRedditBaseURL       = "https://www.reddit.com"
	defaultRedditUserAgent     = "PostPilot/1.0"
	defaultRedditTimeout       = 10
	defaultRedditTotalLimit    = 30
	defaultTwitterAPIBaseURL   = "https://api.twitter.com/2"
	defaultTwitterStatusURL    = "https://twitter.com/user/status/"
	defaultTwitterTimeout      = 15
	defaultTopK                = 5
	defaultRelevanceCap        = 20
	defaultMaxRevisions        = 3
	defaultNotifyTimeout       = 10
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultIntentTemperature   = 0.3
	defaultResearchTemperature = 0.4
	defaultFilterTemperature   = 0.3
	defaultSummaryTemperature  = 0.5
	defaultDraftTemperature    = 0.7
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			Referer:        defaultLLMReferer,
			Title:          defaultLLMTitle,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
			Temperature: Temperatures{
				Intent:    defaultIntentTemperature,
				Research:  defaultResearchTemperature,
				Filter:    defaultFilterTemperature,
				Summarize: defaultSummaryTemperature,
				Draft:     defaultDraftTemperature,
			},
		},
		Reddit: Reddit{
			BaseURL:        defaultRedditBaseURL,
			UserAgent:      defaultRedditUserAgent,
			TimeoutSeconds: defaultRedditTimeout,
			TotalLimit:     defaultRedditTotalLimit,
		},
		Twitter: Twitter{
			APIBaseURL:     defaultTwitterAPIBaseURL,
			StatusURLBase:  defaultTwitterStatusURL,
			TimeoutSeconds: defaultTwitterTimeout,
		},
		Workflow: Workflow{
			TopK:         defaultTopK,
			RelevanceCap: defaultRelevanceCap,
			MaxRevisions: defaultMaxRevisions,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			Review:         true,
			Published:      true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
