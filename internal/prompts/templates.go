package prompts

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

const responseFormat = `RESPONSE FORMAT:
Respond with a JSON array only, no prose. Each element is one action, in the
order it should run:
[
  {"intent": "INTENT_NAME", "field": "value"}
]

IMPORTANT RULES:
1. Use only the intents and fields listed below. Never invent new ones.
2. open_app targets and system_command actions must be copied exactly from the allowed values.
3. Split compound requests ("open notepad and type hello") into several actions.
4. If nothing else fits, use keyboard_type with the user's words.`

// BuildTranslatePrompt renders the fixed instruction preamble followed by
// recent history and the utterance to translate.
func BuildTranslatePrompt(v *Vocabulary, sets Sets, history, utterance string) string {
	var b strings.Builder

	b.WriteString(strings.TrimSpace(v.System))
	b.WriteString("\n\n")
	b.WriteString(responseFormat)
	b.WriteString("\n\nAvailable Intents:\n")
	b.WriteString(buildIntentsSection(v, sets))

	if strings.TrimSpace(history) != "" {
		b.WriteString("\nRecent Requests:\n")
		b.WriteString(history)
		if !strings.HasSuffix(history, "\n") {
			b.WriteString("\n")
		}
	}

	b.WriteString("\nRequest:\n")
	b.WriteString(utterance)
	b.WriteString("\n")
	return b.String()
}

func buildIntentsSection(v *Vocabulary, sets Sets) string {
	var b strings.Builder
	for _, in := range v.Intents {
		fmt.Fprintf(&b, "- %s: %s\n", in.Name, in.Description)

		names := make([]string, 0, len(in.Fields))
		for name := range in.Fields {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			f := in.Fields[name]
			req := "optional"
			if f.Required {
				req = "required"
			}
			fmt.Fprintf(&b, "    %s (%s, %s)", name, f.Type, req)
			allowed := f.Enum
			if f.EnumFrom != "" {
				allowed = sets[f.EnumFrom]
			}
			if len(allowed) > 0 {
				fmt.Fprintf(&b, " one of [%s]", strings.Join(allowed, ", "))
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}

// ParseLLMResponse extracts the list of intent objects from a model reply.
// It accepts a bare array, {"commands": [...]}, or a single object, with or
// without code fences around it.
func ParseLLMResponse(content string) ([]map[string]any, error) {
	jsonContent := extractJSON(stripCodeFence(content))
	if jsonContent == "" {
		return nil, fmt.Errorf("no valid JSON found in response")
	}

	var decoded any
	if err := json.Unmarshal([]byte(jsonContent), &decoded); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	var items []any
	switch v := decoded.(type) {
	case []any:
		items = v
	case map[string]any:
		if cmds, ok := v["commands"].([]any); ok && len(v) == 1 {
			items = cmds
		} else {
			items = []any{v}
		}
	default:
		return nil, fmt.Errorf("unexpected JSON value %T", decoded)
	}

	if len(items) == 0 {
		return nil, fmt.Errorf("response contains no actions")
	}

	out := make([]map[string]any, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("action %d is not an object", i)
		}
		out = append(out, obj)
	}
	return out, nil
}

func stripCodeFence(content string) string {
	s := strings.TrimSpace(content)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		// drop the language tag line
		s = s[nl+1:]
	}
	s = strings.TrimSpace(s)
	return strings.TrimSpace(strings.TrimSuffix(s, "```"))
}

func extractJSON(content string) string {
	start := strings.IndexAny(content, "[{")
	if start == -1 {
		return ""
	}

	closer := "}"
	if content[start] == '[' {
		closer = "]"
	}
	end := strings.LastIndex(content, closer)
	if end == -1 || end <= start {
		return ""
	}

	return content[start : end+1]
}
