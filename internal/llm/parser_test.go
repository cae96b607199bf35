package llm

import (
	"testing"

	"github.com/Veraticus/estimatch/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanMarkdownWrapper(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain json", input: `{"matches":[]}`, want: `{"matches":[]}`},
		{name: "json fence", input: "```json\n{\"matches\":[]}\n```", want: `{"matches":[]}`},
		{name: "bare fence", input: "```\n{\"matches\":[]}\n```", want: `{"matches":[]}`},
		{name: "leading prose", input: "Here you go:\n{\"matches\":[]}\nThanks", want: `{"matches":[]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanMarkdownWrapper(tt.input))
		})
	}
}

func TestParseMatches(t *testing.T) {
	content := "```json\n" + `{"matches":[
		{"invoiceLineItemId":"i1","estimateLineItemId":"e1","confidence":0.92,"reasoning":"same rebar"},
		{"invoiceLineItemId":"i2","estimateLineItemId":"e2","confidence":0.55,"reasoning":"similar"},
		{"invoiceLineItemId":"i3","estimateLineItemId":null,"confidence":0.4,"reasoning":"nothing fits"},
		{"invoiceLineItemId":"i4","estimateLineItemId":"e4","confidence":1.4,"reasoning":"overconfident"},
		{"invoiceLineItemId":"","estimateLineItemId":"e5","confidence":0.9,"reasoning":"no id"}
	]}` + "\n```"

	matches, err := parseMatches(content)
	require.NoError(t, err)
	require.Len(t, matches, 4)

	assert.Equal(t, "e1", matches[0].EstimateLineItemID)
	assert.Equal(t, model.MatchExact, matches[0].MatchType)
	assert.Equal(t, model.SourceLLM, matches[0].Source)

	assert.Equal(t, model.MatchPartial, matches[1].MatchType)

	assert.Empty(t, matches[2].EstimateLineItemID)
	assert.Zero(t, matches[2].Confidence)
	assert.Equal(t, model.MatchNone, matches[2].MatchType)

	assert.InDelta(t, 1.0, matches[3].Confidence, 1e-9)
}

func TestParseMatchesInvalidJSON(t *testing.T) {
	_, err := parseMatches("I could not decide")
	assert.Error(t, err)
}
