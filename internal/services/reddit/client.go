package reddit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"postpilot/internal/config"
	"postpilot/internal/pipeline"
	"postpilot/internal/services"
)

const (
	maxListingLimit  = 100
	selftextBudget   = 500
	permalinkBaseURL = "https://reddit.com"
)

// HTTPDoer abstracts http.Client for testability.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client reads listings from Reddit's public JSON endpoints.
type Client struct {
	baseURL   string
	userAgent string
	client    HTTPDoer
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client HTTPDoer) Option {
	return func(c *Client) {
		if client != nil {
			c.client = client
		}
	}
}

// NewClient builds a client from the reddit configuration section.
func NewClient(cfg *config.Config, opts ...Option) *Client {
	c := &Client{
		baseURL:   "https://www.reddit.com",
		userAgent: "PostPilot/1.0",
		client:    &http.Client{Timeout: 10 * time.Second},
	}
	if cfg != nil {
		if base := strings.TrimRight(strings.TrimSpace(cfg.Reddit.BaseURL), "/"); base != "" {
			c.baseURL = base
		}
		if ua := strings.TrimSpace(cfg.Reddit.UserAgent); ua != "" {
			c.userAgent = ua
		}
		if cfg.Reddit.TimeoutSeconds > 0 {
			c.client = &http.Client{Timeout: time.Duration(cfg.Reddit.TimeoutSeconds) * time.Second}
		}
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch returns up to limit candidates. With a non-empty origin it reads the
// subreddit's top listing; otherwise it searches the whole site for query.
// recency is normalized to a valid Reddit time window.
func (c *Client) Fetch(ctx context.Context, origin, query string, limit int, recency string) ([]pipeline.Candidate, error) {
	origin = strings.TrimPrefix(strings.TrimSpace(origin), "r/")
	query = strings.TrimSpace(query)
	if origin == "" && query == "" {
		return nil, services.Wrap(services.ErrInput, "research", "fetch", "origin or query required", nil)
	}
	if limit <= 0 {
		return nil, nil
	}
	if limit > maxListingLimit {
		limit = maxListingLimit
	}

	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("t", NormalizeRecency(recency))
	var endpoint string
	if origin != "" {
		endpoint = fmt.Sprintf("%s/r/%s/top.json", c.baseURL, url.PathEscape(origin))
	} else {
		endpoint = c.baseURL + "/search.json"
		params.Set("q", query)
		params.Set("sort", "top")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, services.Wrap(services.ErrService, "research", "fetch", "build request", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrService, "research", "fetch", describeOrigin(origin), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, services.Wrap(services.ErrNotFound, "research", "fetch", describeOrigin(origin)+" not found", nil)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, services.Wrap(services.ErrService, "research", "fetch",
			fmt.Sprintf("%s: status %d: %s", describeOrigin(origin), resp.StatusCode, strings.TrimSpace(string(body))), nil)
	}

	var payload listing
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, services.Wrap(services.ErrDecode, "research", "fetch", "decode listing", err)
	}

	candidates := make([]pipeline.Candidate, 0, len(payload.Data.Children))
	for _, child := range payload.Data.Children {
		candidate, ok := child.Data.candidate()
		if !ok {
			continue
		}
		candidates = append(candidates, candidate)
		if len(candidates) == limit {
			break
		}
	}
	return candidates, nil
}

func describeOrigin(origin string) string {
	if origin == "" {
		return "site search"
	}
	return "r/" + origin
}

type listing struct {
	Data struct {
		Children []struct {
			Data post `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type post struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	Selftext     string  `json:"selftext"`
	SelftextHTML string  `json:"selftext_html"`
	Author       string  `json:"author"`
	Subreddit    string  `json:"subreddit"`
	Score        int     `json:"score"`
	NumComments  int     `json:"num_comments"`
	Permalink    string  `json:"permalink"`
	CreatedUTC   float64 `json:"created_utc"`
}

func (p post) candidate() (pipeline.Candidate, bool) {
	id := strings.TrimSpace(p.ID)
	title := strings.TrimSpace(p.Title)
	if id == "" || title == "" {
		return pipeline.Candidate{}, false
	}

	body := strings.TrimSpace(p.Selftext)
	if body == "" && p.SelftextHTML != "" {
		body = htmlText(p.SelftextHTML)
	}
	content := title
	if body != "" {
		if runes := []rune(body); len(runes) > selftextBudget {
			body = string(runes[:selftextBudget])
		}
		content = title + "\n\n" + body
	}

	author := strings.TrimSpace(p.Author)
	if author == "" {
		author = "deleted"
	}
	subreddit := strings.TrimSpace(p.Subreddit)
	if subreddit == "" {
		subreddit = "unknown"
	}
	permalink := strings.TrimSpace(p.Permalink)
	if strings.HasPrefix(permalink, "/") {
		permalink = permalinkBaseURL + permalink
	}

	candidate := pipeline.Candidate{
		ID:        id,
		Title:     title,
		Author:    author,
		Origin:    subreddit,
		Content:   content,
		Permalink: permalink,
		Votes:     p.Score,
		Comments:  p.NumComments,
	}
	if p.CreatedUTC > 0 {
		candidate.PostedAt = time.Unix(int64(p.CreatedUTC), 0).UTC()
	}
	candidate.EngagementScore = pipeline.EngagementScore(candidate.Votes, candidate.Comments)
	return candidate, true
}

// htmlText flattens Reddit's entity-escaped selftext_html into plain text.
func htmlText(escaped string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html.UnescapeString(escaped)))
	if err != nil {
		return ""
	}
	var parts []string
	doc.Find("p, li, pre, blockquote").Each(func(_ int, sel *goquery.Selection) {
		if text := strings.Join(strings.Fields(sel.Text()), " "); text != "" {
			parts = append(parts, text)
		}
	})
	if len(parts) == 0 {
		return strings.Join(strings.Fields(doc.Text()), " ")
	}
	return strings.Join(parts, "\n")
}

// IsNotFound reports whether err came from a missing subreddit.
func IsNotFound(err error) bool {
	return errors.Is(err, services.ErrNotFound)
}
