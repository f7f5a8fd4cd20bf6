package research

import (
	"strings"
	"unicode"

	"postpilot/internal/services/reddit"
)

const fallbackOriginCount = 3

// Strategy says where and how far back to search.
type Strategy struct {
	Origins     []string `json:"subreddits"`
	SearchQuery string   `json:"search_query"`
	Recency     string   `json:"time_filter"`
	Reasoning   string   `json:"reasoning"`
	Fallback    bool     `json:"-"`
}

type originGroup struct {
	key     string
	origins []string
}

// Order matters: the first matching key wins.
var originTable = []originGroup{
	{"ai", []string{"artificial", "MachineLearning", "OpenAI", "ChatGPT", "singularity"}},
	{"crypto", []string{"CryptoCurrency", "Bitcoin", "ethereum", "CryptoMarkets"}},
	{"technology", []string{"technology", "tech", "gadgets", "Futurology"}},
	{"politics", []string{"politics", "worldnews", "news"}},
	{"business", []string{"business", "Economics", "stocks", "investing"}},
	{"science", []string{"science", "EverythingScience", "askscience"}},
	{"programming", []string{"programming", "coding", "learnprogramming", "webdev"}},
	{"gaming", []string{"gaming", "Games", "pcgaming"}},
	{"sports", []string{"sports", "nfl", "nba", "soccer"}},
}

var defaultOrigins = []string{"news", "worldnews"}

// FallbackOrigins picks origins for topic from the static table. A key
// matches when it appears in the lowercased topic or the topic appears in it.
func FallbackOrigins(topic string) []string {
	lower := strings.ToLower(strings.TrimSpace(topic))
	if lower != "" {
		for _, group := range originTable {
			if strings.Contains(lower, group.key) || strings.Contains(group.key, lower) {
				n := min(fallbackOriginCount, len(group.origins))
				return append([]string(nil), group.origins[:n]...)
			}
		}
	}
	return append([]string(nil), defaultOrigins...)
}

// FallbackStrategy is used when the model gives no usable strategy.
func FallbackStrategy(topic string) Strategy {
	return Strategy{
		Origins:     FallbackOrigins(topic),
		SearchQuery: strings.TrimSpace(topic),
		Recency:     reddit.DefaultRecency,
		Reasoning:   "static topic table",
		Fallback:    true,
	}
}

// normalize fills defaults and cleans origin names. A strategy whose origins
// are all unusable, or that names "all", becomes a site-wide search.
func (s Strategy) normalize(topic string) Strategy {
	s.SearchQuery = strings.TrimSpace(s.SearchQuery)
	if s.SearchQuery == "" {
		s.SearchQuery = strings.TrimSpace(topic)
	}
	s.Recency = reddit.NormalizeRecency(s.Recency)

	seen := make(map[string]struct{}, len(s.Origins))
	cleaned := make([]string, 0, len(s.Origins))
	for _, origin := range s.Origins {
		name := cleanOrigin(origin)
		if name == "" || strings.EqualFold(name, "all") {
			continue
		}
		key := strings.ToLower(name)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		cleaned = append(cleaned, name)
	}
	s.Origins = cleaned
	return s
}

func cleanOrigin(value string) string {
	value = strings.TrimSpace(value)
	value = strings.TrimPrefix(value, "/")
	value = strings.TrimPrefix(value, "r/")
	for _, r := range value {
		if !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_') {
			return ""
		}
	}
	return value
}

// perOriginLimit spreads total across origins with a small surplus so that
// deduplication still leaves enough candidates.
func perOriginLimit(total, origins int) int {
	if origins <= 0 {
		return total
	}
	return total/origins + 5
}
