package analysis

import "strings"

// SectionStyle tells the client how to lay a section out.
type SectionStyle string

const (
	StyleParagraph SectionStyle = "paragraph"
	StyleBullets   SectionStyle = "bullets"
	StyleNumbered  SectionStyle = "numbered"
)

// Section is one display block of a result card.
type Section struct {
	Key   string       `json:"key"`
	Title string       `json:"title"`
	Style SectionStyle `json:"style"`
	Text  string       `json:"text,omitempty"`
	Items []string     `json:"items,omitempty"`
}

// RecommendationMarker is the arrow the templates ask the model to prefix
// recommendations with. It is UI decoration and never displayed as text.
const RecommendationMarker = "→"

// Present maps a valid Output into its six sections in fixed order.
func Present(out Output) []Section {
	recs := make([]string, 0, len(out.ActionableRecommendations))
	for _, r := range out.ActionableRecommendations {
		recs = append(recs, StripMarker(r))
	}

	return []Section{
		{Key: "analysisSummary", Title: "Summary", Style: StyleParagraph, Text: out.AnalysisSummary},
		{Key: "keyFindings", Title: "Key Findings", Style: StyleBullets, Items: append([]string(nil), out.KeyFindings...)},
		{Key: "actionableRecommendations", Title: "Actionable Recommendations", Style: StyleNumbered, Items: recs},
		{Key: "celebratingWins", Title: "Celebrating Wins", Style: StyleParagraph, Text: out.CelebratingWins},
		{Key: "gentleChallenges", Title: "Gentle Challenges", Style: StyleParagraph, Text: out.GentleChallenges},
		{Key: "nextWeekForecast", Title: "Next Week Forecast", Style: StyleParagraph, Text: out.NextWeekForecast},
	}
}

// StripMarker removes any leading RecommendationMarker tokens and the
// whitespace around them.
func StripMarker(s string) string {
	t := strings.TrimSpace(s)
	for strings.HasPrefix(t, RecommendationMarker) {
		t = strings.TrimSpace(strings.TrimPrefix(t, RecommendationMarker))
	}
	return t
}
