// Package llm provides a narrow gateway to a text-generation backend:
// send an instruction, receive a single JSON object. Two backends are
// supported, Ollama and any OpenAI-compatible API.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"mailagent/config"
)

// Client is the interface every pipeline stage talks to.
type Client interface {
	// Complete sends an instruction and returns the decoded JSON
	// object the backend produced. Transport errors, non-success
	// responses and payloads that are not a JSON object all fail.
	Complete(ctx context.Context, prompt string) (map[string]interface{}, error)
}

// New creates a client for the configured provider.
func New(cfg *config.Config) (Client, error) {
	switch cfg.AI.Provider {
	case "ollama":
		return NewOllamaClient(cfg.AI.OllamaURL, cfg.AI.Model, cfg.AI.Timeout())
	case "openai":
		return NewOpenAIClient(cfg.AI.OpenAIURL, cfg.AI.OpenAIKey, cfg.AI.Model, cfg.AI.Timeout())
	default:
		return nil, fmt.Errorf("unknown AI provider %q", cfg.AI.Provider)
	}
}

// parseJSONObject decodes a model response into a JSON object. Models
// occasionally wrap JSON in a markdown fence; that wrapper is stripped
// before decoding. A payload that decodes but is not an object is
// treated as a gateway failure, not as data.
func parseJSONObject(raw string) (map[string]interface{}, error) {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSuffix(strings.TrimSpace(raw), "```")
		raw = strings.TrimSpace(raw)
	}

	var value interface{}
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		return nil, fmt.Errorf("response is not valid JSON: %w", err)
	}

	obj, ok := value.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("response is valid JSON but not an object")
	}
	return obj, nil
}
