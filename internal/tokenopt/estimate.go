// Package tokenopt assembles and prunes per-iteration model context: the
// cache-stable system prompt, the per-iteration message pair, and the
// overflow-safe pruning pass that keeps assembled context under a model's
// window.
package tokenopt

import "unicode/utf8"

// EstimateTokens approximates token count as ceil(code_points/4). Counts
// Unicode code points rather than bytes so multi-byte text isn't
// over-estimated.
func EstimateTokens(s string) int64 {
	n := utf8.RuneCountInString(s)
	if n == 0 {
		return 0
	}
	return int64((n + 3) / 4)
}
