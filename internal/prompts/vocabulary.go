package prompts

import (
	_ "embed"
	"fmt"
	"math"
	"slices"

	"gopkg.in/yaml.v3"
)

//go:embed intents.yaml
var defaultVocabulary []byte

// Field describes one argument of an intent.
type Field struct {
	Type     string   `yaml:"type"`
	Required bool     `yaml:"required"`
	Enum     []string `yaml:"enum"`
	EnumFrom string   `yaml:"enum_from"`
}

type Intent struct {
	Name        string           `yaml:"name"`
	Description string           `yaml:"description"`
	Fields      map[string]Field `yaml:"fields"`
}

// Vocabulary is the closed set of intents the language model may emit.
type Vocabulary struct {
	System  string   `yaml:"system"`
	Intents []Intent `yaml:"intents"`
	Style   struct {
		Temperature float64 `yaml:"temperature"`
		MaxTokens   int     `yaml:"max_tokens"`
	} `yaml:"style"`

	byName map[string]*Intent
}

// LoadVocabulary parses the built-in intent vocabulary.
func LoadVocabulary() (*Vocabulary, error) {
	return ParseVocabulary(defaultVocabulary)
}

func ParseVocabulary(data []byte) (*Vocabulary, error) {
	var v Vocabulary
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("failed to parse intent vocabulary: %w", err)
	}
	if len(v.Intents) == 0 {
		return nil, fmt.Errorf("intent vocabulary is empty")
	}
	v.byName = make(map[string]*Intent, len(v.Intents))
	for i := range v.Intents {
		in := &v.Intents[i]
		if _, dup := v.byName[in.Name]; dup {
			return nil, fmt.Errorf("intent %q declared twice", in.Name)
		}
		v.byName[in.Name] = in
	}
	if v.Style.Temperature <= 0 {
		v.Style.Temperature = 0.1
	}
	if v.Style.MaxTokens <= 0 {
		v.Style.MaxTokens = 500
	}
	return &v, nil
}

func (v *Vocabulary) Lookup(name string) (*Intent, bool) {
	in, ok := v.byName[name]
	return in, ok
}

// Sets supplies values for fields declared with enum_from.
type Sets map[string][]string

// Check verifies that args carries only the intent's fields, with the right
// shapes and allowed values. It does not touch args.
func (in *Intent) Check(args map[string]any, sets Sets) error {
	for name := range args {
		if _, ok := in.Fields[name]; !ok {
			return fmt.Errorf("intent %s does not take field %q", in.Name, name)
		}
	}
	for name, f := range in.Fields {
		val, present := args[name]
		if !present || val == nil {
			if f.Required {
				return fmt.Errorf("intent %s requires field %q", in.Name, name)
			}
			continue
		}
		if err := f.checkType(val); err != nil {
			return fmt.Errorf("intent %s field %q: %w", in.Name, name, err)
		}
		allowed := f.Enum
		if f.EnumFrom != "" {
			allowed = sets[f.EnumFrom]
		}
		if len(allowed) > 0 {
			s, _ := val.(string)
			if !slices.Contains(allowed, s) {
				return fmt.Errorf("intent %s field %q: %q is not an allowed value", in.Name, name, s)
			}
		}
	}
	return nil
}

func (f Field) checkType(val any) error {
	switch f.Type {
	case "string":
		if _, ok := val.(string); !ok {
			return fmt.Errorf("expected string, got %T", val)
		}
	case "number":
		if _, ok := val.(float64); !ok {
			return fmt.Errorf("expected number, got %T", val)
		}
	case "integer":
		n, ok := val.(float64)
		if !ok || n != math.Trunc(n) {
			return fmt.Errorf("expected integer, got %v", val)
		}
	case "array":
		items, ok := val.([]any)
		if !ok || len(items) == 0 {
			return fmt.Errorf("expected non-empty array, got %v", val)
		}
		for _, it := range items {
			if _, ok := it.(string); !ok {
				return fmt.Errorf("expected array of strings, got %T item", it)
			}
		}
	}
	return nil
}
