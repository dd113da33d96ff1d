package coach

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSynthesizeJobDescription(t *testing.T) {
	assert.Equal(t, GenericJobDescription, SynthesizeJobDescription(""))
	assert.Equal(t, GenericJobDescription, SynthesizeJobDescription("   "))

	desc := SynthesizeJobDescription("  Product Manager ")
	assert.Contains(t, desc, "'Product Manager'")
	assert.Contains(t, desc, "Core responsibilities")
	assert.NotEqual(t, GenericJobDescription, desc)
}

func TestExtractJSON(t *testing.T) {
	t.Run("ignores surrounding prose", func(t *testing.T) {
		text := "Here is my analysis. The profile is strong.\n" +
			`{"match_score": 80, "recommendations": ["a"], "rewritten_sections": {"headline": "h"}}` +
			"\nHope this helps."
		obj, err := ExtractJSON(text)
		require.NoError(t, err)
		assert.JSONEq(t, `80`, string(obj["match_score"]))
		assert.JSONEq(t, `["a"]`, string(obj["recommendations"]))
	})

	t.Run("braces in trailing prose", func(t *testing.T) {
		// the last brace belongs to the prose, so the span is not valid JSON
		_, err := ExtractJSON(`{"match_score": 80} Hope this helps {really}.`)
		assert.Error(t, err)
	})

	t.Run("no object", func(t *testing.T) {
		_, err := ExtractJSON("no json here")
		assert.Error(t, err)
		_, err = ExtractJSON("} backwards {")
		assert.Error(t, err)
	})

	t.Run("invalid object", func(t *testing.T) {
		_, err := ExtractJSON(`prefix {"match_score": } suffix`)
		assert.Error(t, err)
	})
}

func TestNormalizeScore(t *testing.T) {
	f := func(v float64) *float64 { return &v }

	tests := []struct {
		name string
		in   interface{}
		want *float64
	}{
		{"in range", 72.0, f(72)},
		{"fraction", 55.5, f(55.5)},
		{"above range", 140.0, f(100)},
		{"below range", -3.0, f(0)},
		{"int", 101, f(100)},
		{"json number", json.Number("42"), f(42)},
		{"string", "85", nil},
		{"bool", true, nil},
		{"nil", nil, nil},
		{"list", []interface{}{1.0}, nil},
		{"nan", math.NaN(), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeScore(tt.in)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, *tt.want, *got)
		})
	}
}

func TestSectionJSON(t *testing.T) {
	var sections map[string]Section
	require.NoError(t, json.Unmarshal([]byte(
		`{"headline": "Go engineer", "experience": ["Led X", "Shipped Y"], "empty": [], "missing": null, "number": 7}`,
	), &sections))

	assert.Equal(t, TextSection("Go engineer"), sections["headline"])
	assert.Equal(t, ListSection("Led X", "Shipped Y"), sections["experience"])
	assert.True(t, sections["empty"].IsList())
	assert.Equal(t, "", sections["missing"].String())
	assert.Equal(t, "7", sections["number"].String())
	assert.Equal(t, "Led X\nShipped Y", sections["experience"].String())

	b, err := json.Marshal(map[string]Section{
		"headline":   sections["headline"],
		"experience": sections["experience"],
		"empty":      sections["empty"],
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"headline": "Go engineer", "experience": ["Led X", "Shipped Y"], "empty": []}`, string(b))
}

func TestParseAnalysis(t *testing.T) {
	t.Run("unparseable reply", func(t *testing.T) {
		got := parseAnalysis("I could not produce JSON this time.")
		assert.Nil(t, got.MatchScore)
		assert.Equal(t, []string{}, got.Recommendations)
		assert.Equal(t, map[string]Section{}, got.RewrittenSections)
	})

	t.Run("null score and odd shapes", func(t *testing.T) {
		got := parseAnalysis(`{"match_score": null, "recommendations": "Add metrics", "rewritten_sections": "none"}`)
		assert.Nil(t, got.MatchScore)
		assert.Equal(t, []string{"Add metrics"}, got.Recommendations)
		assert.Empty(t, got.RewrittenSections)
	})

	t.Run("non-string recommendations", func(t *testing.T) {
		got := parseAnalysis(`{"match_score": "high", "recommendations": ["a", 2, {"b": 1}]}`)
		assert.Nil(t, got.MatchScore)
		assert.Equal(t, []string{"a", "2", `{"b":1}`}, got.Recommendations)
	})
}
