package coach

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// Section is a rewritten profile section. Models return either a single
// string or a list of bullet strings; the shape is preserved on output.
type Section struct {
	Text  string
	Items []string
}

// TextSection builds a single-string section.
func TextSection(text string) Section { return Section{Text: text} }

// ListSection builds a bullet-list section.
func ListSection(items ...string) Section {
	if items == nil {
		items = []string{}
	}
	return Section{Items: items}
}

// IsList reports whether the section was a list.
func (s Section) IsList() bool { return s.Items != nil }

// String renders the section as plain text, one bullet per line for lists.
func (s Section) String() string {
	if s.IsList() {
		return strings.Join(s.Items, "\n")
	}
	return s.Text
}

func (s Section) MarshalJSON() ([]byte, error) {
	if s.IsList() {
		return json.Marshal(s.Items)
	}
	return json.Marshal(s.Text)
}

func (s *Section) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = Section{}
		return nil
	}

	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		*s = TextSection(text)
		return nil
	}

	var items []interface{}
	if err := json.Unmarshal(data, &items); err == nil {
		out := make([]string, 0, len(items))
		for _, item := range items {
			out = append(out, stringify(item))
		}
		*s = ListSection(out...)
		return nil
	}

	// numbers and objects are kept as their JSON text
	*s = TextSection(string(data))
	return nil
}

// ExtractJSON parses the object spanning the first '{' to the last '}' of
// text, ignoring any prose around it.
func ExtractJSON(text string) (map[string]json.RawMessage, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return nil, fmt.Errorf("no JSON object found")
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text[start:end+1]), &obj); err != nil {
		return nil, fmt.Errorf("invalid JSON object: %w", err)
	}
	return obj, nil
}

// NormalizeScore clamps numeric scores into [0,100]. Anything that is not a
// finite number yields nil.
func NormalizeScore(v interface{}) *float64 {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	f = math.Max(0, math.Min(100, f))
	return &f
}

// analysis is the structured part of a model reply.
type analysis struct {
	MatchScore        *float64
	Recommendations   []string
	RewrittenSections map[string]Section
}

// parseAnalysis extracts the structured fields from a model reply. A reply
// without a parseable object gives a null score and empty collections.
func parseAnalysis(text string) analysis {
	out := analysis{
		Recommendations:   []string{},
		RewrittenSections: map[string]Section{},
	}

	obj, err := ExtractJSON(text)
	if err != nil {
		return out
	}

	if raw, ok := obj["match_score"]; ok {
		var score interface{}
		if json.Unmarshal(raw, &score) == nil {
			out.MatchScore = NormalizeScore(score)
		}
	}

	if raw, ok := obj["recommendations"]; ok {
		var recs interface{}
		if json.Unmarshal(raw, &recs) == nil {
			switch r := recs.(type) {
			case []interface{}:
				for _, item := range r {
					out.Recommendations = append(out.Recommendations, stringify(item))
				}
			case string:
				if r != "" {
					out.Recommendations = append(out.Recommendations, r)
				}
			}
		}
	}

	if raw, ok := obj["rewritten_sections"]; ok {
		var sections map[string]Section
		if json.Unmarshal(raw, &sections) == nil && sections != nil {
			out.RewrittenSections = sections
		}
	}

	return out
}

func stringify(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case nil:
		return ""
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	}
}
