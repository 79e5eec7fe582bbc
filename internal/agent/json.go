package agent

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// ParseError reports model output that could not be decoded.
type ParseError struct {
	Step   string
	Output string
	Err    error
}

func (e *ParseError) Error() string {
	out := e.Output
	if len(out) > 120 {
		out = out[:120] + "..."
	}
	return fmt.Sprintf("agent: %s: parse model output %q: %v", e.Step, out, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// cleanJSON strips markdown code fences and surrounding prose, returning
// the outermost JSON object or array in text.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	objStart := strings.Index(text, "{")
	arrStart := strings.Index(text, "[")
	switch {
	case arrStart >= 0 && (objStart < 0 || arrStart < objStart):
		if end := strings.LastIndex(text, "]"); end > arrStart {
			return strings.TrimSpace(text[arrStart : end+1])
		}
	case objStart >= 0:
		if end := strings.LastIndex(text, "}"); end > objStart {
			return strings.TrimSpace(text[objStart : end+1])
		}
	}
	return strings.TrimSpace(text)
}

// decodeObjects decodes text as either one JSON object or an array of
// objects. When the object holds listKey as an array, that array is used.
func decodeObjects(step, text, listKey string) ([]map[string]any, error) {
	cleaned := cleanJSON(text)

	var list []map[string]any
	if err := json.Unmarshal([]byte(cleaned), &list); err == nil {
		return list, nil
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(cleaned), &obj); err != nil {
		return nil, &ParseError{Step: step, Output: text, Err: err}
	}

	if raw, ok := obj[listKey]; ok {
		items, ok := raw.([]any)
		if !ok {
			return nil, &ParseError{Step: step, Output: text, Err: eris.Errorf("%s is not a list", listKey)}
		}
		for _, it := range items {
			if m, ok := it.(map[string]any); ok {
				list = append(list, m)
			}
		}
		return list, nil
	}
	return []map[string]any{obj}, nil
}
