package orchestrator

import (
	"encoding/json"
	"regexp"
	"strings"
)

// ToolCall 是从补全文本中提取的一次工具调用.
type ToolCall struct {
	Name       string         `json:"name"`
	Parameters map[string]any `json:"parameters"`
}

var fencedJSON = regexp.MustCompile("(?s)```json\\s*(.*?)\\s*```")

// ExtractToolCall finds the first well-formed {"tool": ..., "parameters": {...}}
// object in text. Fenced ```json blocks are examined first, then bare objects
// in text order. It returns the winning call and how many further
// well-formed candidates were ignored. Malformed text yields no call.
func ExtractToolCall(text string) (*ToolCall, int) {
	var found []*ToolCall

	for _, m := range fencedJSON.FindAllStringSubmatch(text, -1) {
		if call, ok := decodeToolCall(m[1]); ok {
			found = append(found, call)
		}
	}
	if len(found) == 0 {
		found = scanObjects(text)
	}

	if len(found) == 0 {
		return nil, 0
	}
	return found[0], len(found) - 1
}

// scanObjects decodes a JSON object at every '{' and keeps tool calls.
func scanObjects(text string) []*ToolCall {
	var found []*ToolCall
	for i := 0; i < len(text); i++ {
		if text[i] != '{' {
			continue
		}
		dec := json.NewDecoder(strings.NewReader(text[i:]))
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			continue
		}
		if call, ok := decodeToolCall(string(raw)); ok {
			found = append(found, call)
			i += int(dec.InputOffset()) - 1
		}
	}
	return found
}

func decodeToolCall(s string) (*ToolCall, bool) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(strings.TrimSpace(s)), &obj); err != nil {
		return nil, false
	}
	rawName, ok := obj["tool"]
	if !ok {
		return nil, false
	}
	var name string
	if err := json.Unmarshal(rawName, &name); err != nil || strings.TrimSpace(name) == "" {
		return nil, false
	}

	params := map[string]any{}
	if rawParams, ok := obj["parameters"]; ok && string(rawParams) != "null" {
		if err := json.Unmarshal(rawParams, &params); err != nil {
			return nil, false
		}
	}
	return &ToolCall{Name: strings.TrimSpace(name), Parameters: params}, true
}
