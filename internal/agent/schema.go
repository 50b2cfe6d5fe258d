package agent

import (
	"encoding/json"
	"fmt"
	"strings"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	"github.com/invopop/jsonschema"
)

// SchemaFor reflects the JSON schema of T as a generic map.
func SchemaFor[T any]() (map[string]interface{}, error) {
	reflector := &jsonschema.Reflector{ExpandedStruct: true, DoNotReference: true}
	var zero T
	schema := reflector.Reflect(zero)
	b, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	var out map[string]interface{}
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("unmarshal schema: %w", err)
	}
	delete(out, "$schema")
	delete(out, "$id")
	return out, nil
}

// DecodeJSON extracts a JSON object from model output, repairs it when
// malformed, and decodes it into T.
func DecodeJSON[T any](raw string) (T, error) {
	var out T
	body := extractJSON(raw)
	if body == "" {
		return out, fmt.Errorf("no JSON object in model output")
	}
	if err := json.Unmarshal([]byte(body), &out); err == nil {
		return out, nil
	}
	repaired, err := jsonrepair.RepairJSON(body)
	if err != nil {
		return out, fmt.Errorf("repair JSON: %w", err)
	}
	if err := json.Unmarshal([]byte(repaired), &out); err != nil {
		return out, fmt.Errorf("decode JSON: %w", err)
	}
	return out, nil
}

// extractJSON strips code fences and surrounding prose, returning the
// outermost {...} span. An unterminated object is returned from its opening brace.
func extractJSON(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}
	start := strings.Index(s, "{")
	if start < 0 {
		return ""
	}
	end := strings.LastIndex(s, "}")
	if end < start {
		return s[start:]
	}
	return s[start : end+1]
}

func schemaInstructions(schema map[string]interface{}) string {
	b, _ := json.MarshalIndent(schema, "", "  ")
	return "\n\nRespond with a single JSON object and nothing else. It must conform to this JSON schema:\n" + string(b)
}
