package analysis

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestPresent(t *testing.T) {
	got := Present(validOutput())

	want := []Section{
		{Key: "analysisSummary", Title: "Summary", Style: StyleParagraph, Text: "Spending is steady with a small rise in dining out."},
		{Key: "keyFindings", Title: "Key Findings", Style: StyleBullets, Items: []string{"Rent is 30% of income", "Dining out rose 12%"}},
		{Key: "actionableRecommendations", Title: "Actionable Recommendations", Style: StyleNumbered, Items: []string{
			"Recommendation 1: Cook twice more a week",
			"Set a 5% savings target for travel",
		}},
		{Key: "celebratingWins", Title: "Celebrating Wins", Style: StyleParagraph, Text: "Groceries stayed under budget."},
		{Key: "gentleChallenges", Title: "Gentle Challenges", Style: StyleParagraph, Text: "Weekend shopping spikes deserve a second look."},
		{Key: "nextWeekForecast", Title: "Next Week Forecast", Style: StyleParagraph, Text: "Expect higher travel costs before Diwali."},
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Present() mismatch (-want +got):\n%s", diff)
	}
}

func TestPresent_DoesNotAliasInput(t *testing.T) {
	out := validOutput()
	sections := Present(out)
	sections[1].Items[0] = "changed"
	assert.Equal(t, "Rent is 30% of income", out.KeyFindings[0])
}

func TestStripMarker(t *testing.T) {
	tests := map[string]string{
		"→ Save more":       "Save more",
		"→→ Save more":      "Save more",
		"  →  → Save more ": "Save more",
		"Save → more":       "Save → more",
		"→":                 "",
		"Plain":             "Plain",
	}
	for in, want := range tests {
		assert.Equal(t, want, StripMarker(in), "%q", in)
	}
}

func TestPresent_RecommendationsNeverStartWithMarker(t *testing.T) {
	out := validOutput()
	out.ActionableRecommendations = []string{"→ a", " →→ b", "→\t→ c", "d"}
	for _, item := range Present(out)[2].Items {
		assert.False(t, strings.HasPrefix(item, RecommendationMarker), "%q", item)
	}
}
