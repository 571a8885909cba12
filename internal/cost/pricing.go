// Package cost implements the Cost Tracker: per-(model, phase, task)
// accounting against a piecewise-constant pricing table.
package cost

import "strings"

// Price is dollars per million tokens for one model's input/output.
type Price struct {
	InputPerMtok  float64
	OutputPerMtok float64
}

// cacheReadMultiplier and cacheWriteMultiplier scale the input price for
// cache-read and cache-write tokens respectively.
const (
	cacheReadMultiplier  = 0.1
	cacheWriteMultiplier = 1.25
)

// fallbackPrice is used for any model name matching no entry below.
var fallbackPrice = Price{InputPerMtok: 1.0, OutputPerMtok: 3.0}

// localModelMarkers are substrings of self-hosted model names that are
// never billed.
var localModelMarkers = []string{"llama", "mistral", "gemma", "qwen", "deepseek"}

// pricingTable is keyed by a substring to match against the model name, not
// an exact name, so date-suffixed model releases still price correctly.
var pricingTable = []struct {
	substr string
	price  Price
}{
	{"gpt-5-codex", Price{InputPerMtok: 1.25, OutputPerMtok: 10.0}},
	{"gpt-4o-mini", Price{InputPerMtok: 0.15, OutputPerMtok: 0.6}},
	{"gpt-4o", Price{InputPerMtok: 2.5, OutputPerMtok: 10.0}},
	{"o3-mini", Price{InputPerMtok: 1.1, OutputPerMtok: 4.4}},
	{"claude-opus", Price{InputPerMtok: 15.0, OutputPerMtok: 75.0}},
	{"claude-sonnet", Price{InputPerMtok: 3.0, OutputPerMtok: 15.0}},
	{"claude-haiku", Price{InputPerMtok: 0.8, OutputPerMtok: 4.0}},
}

// IsLocalModel reports whether model is a self-hosted model that is never
// billed.
func IsLocalModel(model string) bool {
	lower := strings.ToLower(model)
	for _, marker := range localModelMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// PriceFor resolves the piecewise-constant price for model, falling back to
// fallbackPrice when no substring matches.
func PriceFor(model string) Price {
	lower := strings.ToLower(model)
	for _, row := range pricingTable {
		if strings.Contains(lower, row.substr) {
			return row.price
		}
	}
	return fallbackPrice
}

// Compute returns the dollar cost of usage against model's price, applying
// the cache-read/write multipliers to the input price. Local models are
// always free.
func Compute(modelName string, input, output, cacheRead, cacheWrite int64) float64 {
	if IsLocalModel(modelName) {
		return 0
	}
	p := PriceFor(modelName)

	inputCost := float64(input) / 1_000_000 * p.InputPerMtok
	outputCost := float64(output) / 1_000_000 * p.OutputPerMtok
	cacheReadCost := float64(cacheRead) / 1_000_000 * p.InputPerMtok * cacheReadMultiplier
	cacheWriteCost := float64(cacheWrite) / 1_000_000 * p.InputPerMtok * cacheWriteMultiplier

	return inputCost + outputCost + cacheReadCost + cacheWriteCost
}
