package llmprovider

import (
	"errors"

	"github.com/openai/openai-go"
	"relaycore.dev/agentcore/internal/model"
)

// contextOverflowMarkers are substrings OpenAI's API puts in the error
// message when a request exceeds the model's context window. There is no
// dedicated status code for this, so the Token Optimizer's overflow-safe
// assembly path matches on content rather than type.
var contextOverflowMarkers = []string{
	"context_length_exceeded",
	"maximum context length",
	"reduce the length of the messages",
}

// classify wraps err as a model.ProviderError, tagging context-overflow
// responses distinctly from other failures so callers can trigger the
// Token Optimizer's pruning path instead of a bare retry.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == 400 && containsAny(apiErr.Message, contextOverflowMarkers) {
			return &model.ProviderError{Kind: model.ProviderErrorContextOverflow, Err: err}
		}
		if apiErr.StatusCode == 429 || apiErr.StatusCode >= 500 {
			return &model.ProviderError{Kind: model.ProviderErrorTransport, Err: err}
		}
		return &model.ProviderError{Kind: model.ProviderErrorUnknown, Err: err}
	}

	return &model.ProviderError{Kind: model.ProviderErrorTransport, Err: err}
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if len(s) >= len(m) && indexOf(s, m) >= 0 {
			return true
		}
	}
	return false
}

func indexOf(s, substr string) int {
	n, m := len(s), len(substr)
	for i := 0; i+m <= n; i++ {
		if s[i:i+m] == substr {
			return i
		}
	}
	return -1
}
