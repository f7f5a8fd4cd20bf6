package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"postpilot/internal/services"
)

// jsonCompleter is implemented by generators that support a JSON-only reply mode.
type jsonCompleter interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// GenerateJSON asks gen for a reply and decodes it into T. It returns the raw
// reply alongside the decoded value so callers can persist it. Call failures
// are tagged services.ErrService and undecodable replies services.ErrDecode.
func GenerateJSON[T any](ctx context.Context, gen Generator, persona, prompt string) (T, string, error) {
	var zero T
	stage, _ := services.StageFromContext(ctx)

	var (
		raw string
		err error
	)
	if completer, ok := gen.(jsonCompleter); ok {
		raw, err = completer.CompleteJSON(ctx, persona, prompt)
	} else {
		raw, err = gen.Generate(ctx, persona, prompt)
	}
	if err != nil {
		if errors.Is(err, services.ErrService) || errors.Is(err, services.ErrInput) {
			return zero, "", err
		}
		return zero, "", services.Wrap(services.ErrService, stage, "generate", "", err)
	}

	var out T
	if err := DecodeLLMJSON(raw, &out); err != nil {
		return zero, raw, services.Wrap(services.ErrDecode, stage, "decode", "", err)
	}
	return out, raw, nil
}

// DecodeLLMJSON decodes JSON from a model reply, tolerating code fences and
// prose around the object.
func DecodeLLMJSON(content string, target any) error {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return errors.New("empty payload")
	}

	directErr := json.Unmarshal([]byte(trimmed), target)
	if directErr == nil {
		return nil
	}

	sanitized := sanitizeJSONPayload(trimmed)
	if sanitized == "" || sanitized == trimmed {
		return fmt.Errorf("%w (payload snippet: %s)", directErr, summarizePayloadSnippet(trimmed))
	}

	if err := json.Unmarshal([]byte(sanitized), target); err != nil {
		return fmt.Errorf("%w (sanitized payload snippet: %s)", err, summarizePayloadSnippet(sanitized))
	}
	return nil
}

func sanitizeJSONPayload(content string) string {
	trimmed := strings.TrimSpace(stripCodeFenceBlock(content))
	if trimmed == "" {
		return ""
	}
	if trimmed[0] == '{' || trimmed[0] == '[' {
		return trimmed
	}
	for _, pair := range [][2]string{{"{", "}"}, {"[", "]"}} {
		start := strings.Index(trimmed, pair[0])
		end := strings.LastIndex(trimmed, pair[1])
		if start >= 0 && end > start {
			return strings.TrimSpace(trimmed[start : end+1])
		}
	}
	return trimmed
}

func stripCodeFenceBlock(content string) string {
	trimmed := strings.TrimSpace(content)
	start := strings.Index(trimmed, "```")
	if start < 0 {
		return trimmed
	}
	body := strings.TrimLeft(trimmed[start+3:], " \t\r\n")
	if len(body) >= 4 && strings.EqualFold(body[:4], "json") {
		body = strings.TrimLeft(body[4:], " \t\r\n")
	}
	if idx := strings.Index(body, "```"); idx >= 0 {
		body = body[:idx]
	}
	return strings.TrimSpace(body)
}

func summarizePayloadSnippet(content string) string {
	clean := strings.Join(strings.Fields(content), " ")
	if clean == "" {
		return "<empty>"
	}
	const limit = 160
	if runes := []rune(clean); len(runes) > limit {
		clean = string(runes[:limit]) + "..."
	}
	return clean
}
