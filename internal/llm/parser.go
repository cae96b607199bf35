package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Veraticus/estimatch/internal/model"
)

// matchPayload is the JSON document the model is asked to produce.
type matchPayload struct {
	Matches []struct {
		InvoiceLineItemID  string  `json:"invoiceLineItemId"`
		EstimateLineItemID *string `json:"estimateLineItemId"`
		Reasoning          string  `json:"reasoning"`
		Confidence         float64 `json:"confidence"`
	} `json:"matches"`
}

// cleanMarkdownWrapper strips code fences and any prose around the JSON object.
func cleanMarkdownWrapper(content string) string {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```JSON")
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(strings.TrimSpace(content), "```")
		content = strings.TrimSpace(content)
	}

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start >= 0 && end > start {
		content = content[start : end+1]
	}
	return content
}

// parseMatches decodes a model response into match results. Confidences are
// clamped to [0, 1] and a null or empty estimate id becomes a no-match.
func parseMatches(content string) ([]model.MatchResult, error) {
	var payload matchPayload
	if err := json.Unmarshal([]byte(cleanMarkdownWrapper(content)), &payload); err != nil {
		return nil, fmt.Errorf("failed to parse JSON response: %w", err)
	}

	results := make([]model.MatchResult, 0, len(payload.Matches))
	for _, m := range payload.Matches {
		if m.InvoiceLineItemID == "" {
			continue
		}

		estimateID := ""
		if m.EstimateLineItemID != nil {
			estimateID = strings.TrimSpace(*m.EstimateLineItemID)
		}
		if estimateID == "" {
			results = append(results, model.NoMatch(m.InvoiceLineItemID, m.Reasoning, model.SourceLLM))
			continue
		}

		match, err := model.NewMatch(m.InvoiceLineItemID, estimateID, model.ClampConfidence(m.Confidence), m.Reasoning, model.SourceLLM)
		if err != nil {
			return nil, err
		}
		results = append(results, match)
	}
	return results, nil
}
