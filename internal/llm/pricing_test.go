package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimateCost(t *testing.T) {
	tests := []struct {
		name   string
		c      Completion
		want   float64
		wantOK bool
	}{
		{
			name:   "longest prefix wins",
			c:      Completion{Model: "gpt-4o-mini-2024-07-18", PromptTokens: 1_000_000, CompletionTokens: 1_000_000},
			want:   0.75,
			wantOK: true,
		},
		{
			name:   "sonnet",
			c:      Completion{Model: "claude-3-5-sonnet-20241022", PromptTokens: 2000, CompletionTokens: 500},
			want:   0.0135,
			wantOK: true,
		},
		{
			name: "unknown model",
			c:    Completion{Model: "llama-3", PromptTokens: 10, CompletionTokens: 10},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := estimateCost(tt.c)
			assert.Equal(t, tt.wantOK, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}
