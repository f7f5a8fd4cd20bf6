package testsupport

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"postpilot/internal/pipeline"
	"postpilot/internal/services"
)

// Reply is one scripted generator response.
type Reply struct {
	Text string
	Err  error
}

// GeneratorCall records one Generate invocation.
type GeneratorCall struct {
	Persona string
	Prompt  string
}

// Generator is a scripted reasoning service keyed by persona. Replies are
// consumed in order; the last reply repeats once the script is exhausted.
type Generator struct {
	mu      sync.Mutex
	replies map[string][]Reply
	calls   []GeneratorCall
}

// NewGenerator returns an empty scripted generator.
func NewGenerator() *Generator {
	return &Generator{replies: make(map[string][]Reply)}
}

// On scripts replies for persona and returns the generator for chaining.
func (g *Generator) On(persona string, replies ...Reply) *Generator {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.replies[persona] = append(g.replies[persona], replies...)
	return g
}

// Text scripts a single successful reply.
func (g *Generator) Text(persona, text string) *Generator {
	return g.On(persona, Reply{Text: text})
}

// Fail scripts a single failing reply.
func (g *Generator) Fail(persona string, err error) *Generator {
	if err == nil {
		err = services.Wrap(services.ErrService, "fake", "generate", "scripted failure", nil)
	}
	return g.On(persona, Reply{Err: err})
}

// Generate implements the reasoning service contract.
func (g *Generator) Generate(ctx context.Context, persona, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, GeneratorCall{Persona: persona, Prompt: prompt})

	script := g.replies[persona]
	if len(script) == 0 {
		return "", services.Wrap(services.ErrService, "fake", "generate", "no reply scripted for persona", nil)
	}
	reply := script[0]
	if len(script) > 1 {
		g.replies[persona] = script[1:]
	}
	return reply.Text, reply.Err
}

// Calls returns a copy of every recorded invocation.
func (g *Generator) Calls() []GeneratorCall {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]GeneratorCall, len(g.calls))
	copy(out, g.calls)
	return out
}

// CallCount returns how many times persona was invoked. An empty persona counts every call.
func (g *Generator) CallCount(persona string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	if persona == "" {
		return len(g.calls)
	}
	n := 0
	for _, c := range g.calls {
		if c.Persona == persona {
			n++
		}
	}
	return n
}

// SourceCall records one Fetch invocation.
type SourceCall struct {
	Origin  string
	Query   string
	Limit   int
	Recency string
}

// Source is a scripted candidate source keyed by origin. The empty origin
// answers global searches.
type Source struct {
	mu    sync.Mutex
	items map[string][]pipeline.Candidate
	errs  map[string]error
	calls []SourceCall
}

// NewSource returns an empty scripted candidate source.
func NewSource() *Source {
	return &Source{items: make(map[string][]pipeline.Candidate), errs: make(map[string]error)}
}

// With scripts the items returned for origin.
func (s *Source) With(origin string, items ...pipeline.Candidate) *Source {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[origin] = append(s.items[origin], items...)
	return s
}

// Failing makes fetches for origin return err.
func (s *Source) Failing(origin string, err error) *Source {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs[origin] = err
	return s
}

// Fetch implements the candidate source contract.
func (s *Source) Fetch(ctx context.Context, origin, query string, limit int, recency string) ([]pipeline.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	call := SourceCall{Origin: origin, Query: query, Limit: limit, Recency: recency}
	s.calls = append(s.calls, call)
	err := s.errs[origin]
	items := append([]pipeline.Candidate(nil), s.items[origin]...)
	s.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// Calls returns a copy of every recorded fetch.
func (s *Source) Calls() []SourceCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SourceCall, len(s.calls))
	copy(out, s.calls)
	return out
}

// Publisher is a scripted publish service.
type Publisher struct {
	mu        sync.Mutex
	Err       error
	published []string
}

// Publish implements the publish service contract.
func (p *Publisher) Publish(ctx context.Context, text string) (pipeline.Publication, error) {
	if err := ctx.Err(); err != nil {
		return pipeline.Publication{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return pipeline.Publication{}, p.Err
	}
	p.published = append(p.published, text)
	id := strconv.Itoa(1000 + len(p.published))
	return pipeline.Publication{ID: id, URL: fmt.Sprintf("https://twitter.com/user/status/%s", id)}, nil
}

// Published returns every text successfully published.
func (p *Publisher) Published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.published))
	copy(out, p.published)
	return out
}

// Candidate builds a candidate with its engagement score computed.
func Candidate(id, origin string, votes, comments int) pipeline.Candidate {
	return pipeline.Candidate{
		ID:       id,
		Title:    "Post " + id,
		Author:   "author-" + id,
		Origin:   origin,
		Content:  "Post " + id + "\n\nBody of " + id,
		Votes:    votes,
		Comments: comments,
	}.Score()
}
