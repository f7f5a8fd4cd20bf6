package pipeline

import "time"

// Candidate is a raw item returned by the candidate source.
type Candidate struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Author          string    `json:"author"`
	Origin          string    `json:"origin"`
	Content         string    `json:"content"`
	Permalink       string    `json:"permalink"`
	Votes           int       `json:"votes"`
	Comments        int       `json:"comments"`
	EngagementScore int       `json:"engagement_score"`
	PostedAt        time.Time `json:"posted_at"`
}

// EngagementScore weighs comments double since they signal deeper engagement.
func EngagementScore(votes, comments int) int {
	return votes + 2*comments
}

// Score returns a copy of the candidate with its engagement score computed.
func (c Candidate) Score() Candidate {
	c.EngagementScore = EngagementScore(c.Votes, c.Comments)
	return c
}

// RankedCandidate is a candidate that survived the ranking filter.
type RankedCandidate struct {
	Candidate
	RelevanceScore float64 `json:"relevance_score"`
	CombinedScore  float64 `json:"combined_score"`
	Reason         string  `json:"reason,omitempty"`
}

// Intent is the structured reading of a user query.
type Intent struct {
	Topic string `json:"topic"`
	Scope string `json:"scope"`
	Tone  string `json:"tone"`
	Raw   string `json:"-"`
}

// Insight is the synthesis produced from the ranked candidates.
type Insight struct {
	Summary        string   `json:"summary"`
	KeyTrends      []string `json:"key_trends"`
	ExpertOpinions []string `json:"expert_opinions"`
}

// Draft is one version of the composed post.
type Draft struct {
	Version  int    `json:"version"`
	Content  string `json:"content"`
	Fallback bool   `json:"fallback,omitempty"`
}

// Publication identifies a published post.
type Publication struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}
