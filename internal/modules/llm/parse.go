package llm

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// CacheKey derives the deterministic digest for one generation request.
// The payload is JSON with sorted field names so equal requests always map
// to the same key.
func CacheKey(stage, persona, model, prompt string) string {
	payload, _ := json.Marshal(struct {
		Model   string `json:"model"`
		Persona string `json:"persona"`
		Prompt  string `json:"prompt"`
		Stage   string `json:"stage"`
	}{
		Model:   model,
		Persona: persona,
		Prompt:  prompt,
		Stage:   stage,
	})
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// ParseJSON extracts a JSON object from a model response. Code fences are
// stripped, a single-element array is unwrapped, and a longer array is
// wrapped as {"items": [...]}. Anything else that is not an object is an
// error.
func ParseJSON(raw string) (map[string]any, error) {
	cleaned := stripCodeFences(raw)
	if cleaned == "" {
		return nil, fmt.Errorf("empty response")
	}

	var value any
	if err := json.Unmarshal([]byte(cleaned), &value); err != nil {
		return nil, fmt.Errorf("invalid JSON response: %w", err)
	}

	switch v := value.(type) {
	case map[string]any:
		return v, nil
	case []any:
		if len(v) == 1 {
			if obj, ok := v[0].(map[string]any); ok {
				return obj, nil
			}
		}
		return map[string]any{"items": v}, nil
	default:
		return nil, fmt.Errorf("unexpected JSON response of type %T", value)
	}
}

func stripCodeFences(raw string) string {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```JSON")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	return strings.TrimSpace(cleaned)
}
