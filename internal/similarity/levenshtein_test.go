package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"kitten", "sitting", 3},
		{"flaw", "lawn", 2},
		{"rebar", "rebar", 0},
		{"héllo", "hello", 1},
	}

	for _, tt := range tests {
		t.Run(tt.a+"/"+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.want, Distance(tt.a, tt.b))
			assert.Equal(t, tt.want, Distance(tt.b, tt.a))
		})
	}
}

func TestNormalized(t *testing.T) {
	assert.InDelta(t, 1.0, Normalized("", ""), 1e-9)
	assert.InDelta(t, 1.0, Normalized("steel rebar", "steel rebar"), 1e-9)
	assert.InDelta(t, 0.0, Normalized("abc", "xyz"), 1e-9)
	assert.InDelta(t, 1-3.0/7.0, Normalized("kitten", "sitting"), 1e-9)
	assert.Greater(t, Normalized("steel rebar 10mm", "steel rebar 12mm"), 0.8)
}

func TestNormalizedFold(t *testing.T) {
	assert.InDelta(t, 1.0, NormalizedFold("  Steel Rebar ", "steel rebar"), 1e-9)
}
