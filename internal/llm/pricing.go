package llm

import (
	"strings"

	"github.com/shopspring/decimal"
)

// tokenPrice is the USD price per million tokens.
type tokenPrice struct {
	input  decimal.Decimal
	output decimal.Decimal
}

func price(input, output string) tokenPrice {
	return tokenPrice{input: decimal.RequireFromString(input), output: decimal.RequireFromString(output)}
}

// Longest prefix wins.
var modelPrices = map[string]tokenPrice{
	"gpt-4o-mini":       price("0.15", "0.60"),
	"gpt-4o":            price("2.50", "10.00"),
	"gpt-4":             price("30.00", "60.00"),
	"gpt-3.5":           price("0.50", "1.50"),
	"claude-3-5-haiku":  price("0.80", "4.00"),
	"claude-3-5-sonnet": price("3.00", "15.00"),
	"claude-3-opus":     price("15.00", "75.00"),
	"claude":            price("3.00", "15.00"),
	"gemini-1.5-flash":  price("0.075", "0.30"),
	"gemini-1.5-pro":    price("1.25", "5.00"),
	"gemini":            price("0.10", "0.40"),
}

var perMillion = decimal.NewFromInt(1_000_000)

// estimateCost returns the cost in USD of a completion, or false when the model is unknown.
func estimateCost(c Completion) (float64, bool) {
	p, ok := lookupPrice(c.Model)
	if !ok {
		return 0, false
	}
	in := p.input.Mul(decimal.NewFromInt(int64(c.PromptTokens)))
	out := p.output.Mul(decimal.NewFromInt(int64(c.CompletionTokens)))
	return in.Add(out).Div(perMillion).Round(6).InexactFloat64(), true
}

func lookupPrice(modelName string) (tokenPrice, bool) {
	modelName = strings.ToLower(modelName)
	var (
		best    tokenPrice
		bestLen int
	)
	for prefix, p := range modelPrices {
		if strings.HasPrefix(modelName, prefix) && len(prefix) > bestLen {
			best, bestLen = p, len(prefix)
		}
	}
	return best, bestLen > 0
}
