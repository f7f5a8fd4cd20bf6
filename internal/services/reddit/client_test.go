package reddit_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"postpilot/internal/services"
	"postpilot/internal/services/reddit"
	"postpilot/internal/testsupport"
)

const topListing = `{
  "data": {
    "children": [
      {"data": {"id": "a1", "title": "GPT news", "selftext": "Long body", "author": "alice",
        "subreddit": "artificial", "score": 120, "num_comments": 40,
        "permalink": "/r/artificial/comments/a1/gpt_news/", "created_utc": 1700000000}},
      {"data": {"id": "a2", "title": "Link only", "selftext": "", "author": "",
        "subreddit": "", "score": 10, "num_comments": 1, "permalink": "/r/x/comments/a2/"}},
      {"data": {"id": "", "title": "broken"}}
    ]
  }
}`

func newClient(t *testing.T, server *httptest.Server) *reddit.Client {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Reddit.BaseURL = server.URL
	cfg.Reddit.UserAgent = "PostPilotTest/1.0"
	return reddit.NewClient(cfg)
}

func TestFetchTopListing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/r/artificial/top.json" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("User-Agent"); got != "PostPilotTest/1.0" {
			t.Errorf("unexpected user agent %q", got)
		}
		q := r.URL.Query()
		if q.Get("limit") != "10" || q.Get("t") != "week" {
			t.Errorf("unexpected query %v", q)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(topListing))
	}))
	defer server.Close()

	items, err := newClient(t, server).Fetch(context.Background(), "artificial", "", 10, "WEEK")
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(items))
	}
	first := items[0]
	if first.Content != "GPT news\n\nLong body" {
		t.Fatalf("unexpected content %q", first.Content)
	}
	if first.EngagementScore != 200 {
		t.Fatalf("expected engagement 200, got %d", first.EngagementScore)
	}
	if first.Permalink != "https://reddit.com/r/artificial/comments/a1/gpt_news/" {
		t.Fatalf("unexpected permalink %q", first.Permalink)
	}
	if !first.PostedAt.Equal(time.Unix(1700000000, 0)) {
		t.Fatalf("unexpected posted at %v", first.PostedAt)
	}
	second := items[1]
	if second.Author != "deleted" || second.Origin != "unknown" || second.Content != "Link only" {
		t.Fatalf("unexpected defaults %+v", second)
	}
}

func TestFetchSearchUsesQueryAndCapsLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search.json" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("q") != "quantum computing" || q.Get("sort") != "top" {
			t.Errorf("unexpected query %v", q)
		}
		if q.Get("limit") != "100" || q.Get("t") != reddit.DefaultRecency {
			t.Errorf("expected capped limit and default window, got %v", q)
		}
		_, _ = w.Write([]byte(`{"data":{"children":[]}}`))
	}))
	defer server.Close()

	items, err := newClient(t, server).Fetch(context.Background(), "", "quantum computing", 500, "fortnight")
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected no candidates, got %d", len(items))
	}
}

func TestFetchSelftextHTMLFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"children":[{"data":{"id":"h1","title":"Rich",
			"selftext_html":"&lt;div class=\"md\"&gt;&lt;p&gt;First  para&lt;/p&gt;&lt;p&gt;Second&lt;/p&gt;&lt;/div&gt;",
			"subreddit":"tech","score":1,"num_comments":0,"permalink":"/r/tech/h1"}}]}}`))
	}))
	defer server.Close()

	items, err := newClient(t, server).Fetch(context.Background(), "tech", "", 5, "day")
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if len(items) != 1 || items[0].Content != "Rich\n\nFirst para\nSecond" {
		t.Fatalf("unexpected candidates %+v", items)
	}
}

func TestFetchErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/r/missing/top.json":
			http.NotFound(w, r)
		default:
			http.Error(w, "boom", http.StatusBadGateway)
		}
	}))
	defer server.Close()
	client := newClient(t, server)

	_, err := client.Fetch(context.Background(), "missing", "", 5, "day")
	if !reddit.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	_, err = client.Fetch(context.Background(), "broken", "", 5, "day")
	if !errors.Is(err, services.ErrService) {
		t.Fatalf("expected service error, got %v", err)
	}
	_, err = client.Fetch(context.Background(), "", "  ", 5, "day")
	if !errors.Is(err, services.ErrInput) {
		t.Fatalf("expected input error, got %v", err)
	}
}

func TestNormalizeRecency(t *testing.T) {
	for input, want := range map[string]string{"Week": "week", "all": "all", "": "day", "decade": "day"} {
		if got := reddit.NormalizeRecency(input); got != want {
			t.Fatalf("NormalizeRecency(%q) = %q, want %q", input, got, want)
		}
	}
}
