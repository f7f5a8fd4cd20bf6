package twitter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"postpilot/internal/config"
	"postpilot/internal/pipeline"
	"postpilot/internal/services"
	"postpilot/internal/textutil"
)

// MaxLength is the longest post the platform accepts, in runes.
const MaxLength = 280

// HTTPDoer abstracts http.Client for testability.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client posts text to the tweets endpoint with a bearer token.
type Client struct {
	apiBaseURL    string
	statusURLBase string
	token         string
	client        HTTPDoer
}

// NewClient builds a publisher from the twitter configuration section. A nil
// doer selects an http.Client honouring the configured timeout.
func NewClient(cfg *config.Config, client HTTPDoer) *Client {
	c := &Client{client: client}
	timeout := 15 * time.Second
	if cfg != nil {
		c.apiBaseURL = strings.TrimRight(strings.TrimSpace(cfg.Twitter.APIBaseURL), "/")
		c.statusURLBase = strings.TrimSpace(cfg.Twitter.StatusURLBase)
		c.token = strings.TrimSpace(cfg.Twitter.BearerToken)
		if cfg.Twitter.TimeoutSeconds > 0 {
			timeout = time.Duration(cfg.Twitter.TimeoutSeconds) * time.Second
		}
	}
	if c.statusURLBase == "" {
		c.statusURLBase = "https://twitter.com/user/status/"
	}
	if c.client == nil {
		c.client = &http.Client{Timeout: timeout}
	}
	return c
}

type createRequest struct {
	Text string `json:"text"`
}

type createResponse struct {
	Data struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// Publish posts text and returns the external id and status URL.
func (c *Client) Publish(ctx context.Context, text string) (pipeline.Publication, error) {
	text = strings.TrimSpace(text)
	switch {
	case text == "":
		return pipeline.Publication{}, services.Wrap(services.ErrInput, "publish", "post", "empty text", nil)
	case textutil.Length(text) > MaxLength:
		return pipeline.Publication{}, services.Wrap(services.ErrInput, "publish", "post",
			fmt.Sprintf("text is %d runes, limit %d", textutil.Length(text), MaxLength), nil)
	case c.token == "":
		return pipeline.Publication{}, services.Wrap(services.ErrConfiguration, "publish", "post", "twitter bearer token not configured", nil)
	case c.apiBaseURL == "":
		return pipeline.Publication{}, services.Wrap(services.ErrConfiguration, "publish", "post", "twitter api base url not configured", nil)
	}

	body, err := json.Marshal(createRequest{Text: text})
	if err != nil {
		return pipeline.Publication{}, services.Wrap(services.ErrService, "publish", "post", "encode body", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBaseURL+"/tweets", bytes.NewReader(body))
	if err != nil {
		return pipeline.Publication{}, services.Wrap(services.ErrService, "publish", "post", "build request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return pipeline.Publication{}, services.Wrap(services.ErrService, "publish", "post", "", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return pipeline.Publication{}, services.Wrap(services.ErrService, "publish", "post", "read body", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return pipeline.Publication{}, services.Wrap(services.ErrService, "publish", "post",
			fmt.Sprintf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw))), nil)
	}

	var decoded createResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return pipeline.Publication{}, services.Wrap(services.ErrDecode, "publish", "post", "decode response", err)
	}
	if len(decoded.Errors) > 0 {
		return pipeline.Publication{}, services.Wrap(services.ErrService, "publish", "post", decoded.Errors[0].Message, nil)
	}
	id := strings.TrimSpace(decoded.Data.ID)
	if id == "" {
		return pipeline.Publication{}, services.Wrap(services.ErrDecode, "publish", "post", "response missing id", nil)
	}
	return pipeline.Publication{ID: id, URL: c.statusURLBase + id}, nil
}

// HealthCheck reports whether the publisher has the settings it needs. It
// makes no request so it never spends API quota.
func (c *Client) HealthCheck(context.Context) error {
	switch {
	case c.token == "":
		return services.Wrap(services.ErrConfiguration, "publish", "health", "twitter.bearer_token is not set", nil)
	case c.apiBaseURL == "":
		return services.Wrap(services.ErrConfiguration, "publish", "health", "twitter.api_base_url is not set", nil)
	}
	return nil
}
