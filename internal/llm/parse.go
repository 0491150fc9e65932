package llm

import (
	"encoding/json"
	"regexp"
	"strconv"
	"time"

	"notionboard/internal/models"
)

var objectSpan = regexp.MustCompile(`\{[\s\S]*\}`)

// rawAnalysis keeps every value untyped so one off-type field only loses
// that field.
type rawAnalysis struct {
	Suggestions any `json:"suggestions"`
	Summary     any `json:"summary"`
	Insights    any `json:"insights"`
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

// asStrings accepts a list of scalars or a single scalar.
func asStrings(v any) []string {
	out := []string{}
	switch t := v.(type) {
	case []any:
		for _, item := range t {
			if s := asString(item); s != "" {
				out = append(out, s)
			}
		}
	default:
		if s := asString(t); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// parseAnalysis extracts the first-to-last brace span of content and
// normalizes it into an Analysis.
func parseAnalysis(content string, now time.Time, newID func() string) models.Analysis {
	span := objectSpan.FindString(content)
	if span == "" {
		return models.Analysis{
			Suggestions: []models.Suggestion{{
				ID:              newID(),
				Type:            models.SuggestionTaskUpdate,
				Title:           "AI Analysis",
				Description:     content,
				Reasoning:       "Based on the provided context",
				Confidence:      0.6,
				RelatedTaskIDs:  []string{},
				SuggestedValues: map[string]any{},
				CreatedAt:       now,
			}},
			Summary:  "Analysis completed",
			Insights: []string{},
		}
	}

	var raw rawAnalysis
	if err := json.Unmarshal([]byte(span), &raw); err != nil {
		return models.Analysis{
			Suggestions: []models.Suggestion{},
			Summary:     "Failed to parse AI response",
			Insights:    []string{content},
		}
	}

	items, _ := raw.Suggestions.([]any)
	out := models.Analysis{
		Suggestions: make([]models.Suggestion, 0, len(items)),
		Summary:     asString(raw.Summary),
		Insights:    asStrings(raw.Insights),
	}
	for _, item := range items {
		s, ok := item.(map[string]any)
		if !ok {
			continue
		}
		sug := models.Suggestion{
			ID:              newID(),
			Type:            models.SuggestionType(asString(s["type"])),
			Title:           asString(s["title"]),
			Description:     asString(s["description"]),
			Reasoning:       asString(s["reasoning"]),
			Confidence:      0.5,
			RelatedTaskIDs:  asStrings(s["relatedTaskIds"]),
			SuggestedValues: map[string]any{},
			CreatedAt:       now,
		}
		if sug.Type == "" {
			sug.Type = models.SuggestionTaskUpdate
		}
		if sug.Title == "" {
			sug.Title = "Untitled Suggestion"
		}
		if c, ok := s["confidence"].(float64); ok {
			sug.Confidence = c
		}
		if values, ok := s["suggestedValues"].(map[string]any); ok {
			sug.SuggestedValues = values
		}
		out.Suggestions = append(out.Suggestions, sug)
	}
	return out
}
