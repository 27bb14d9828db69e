package specialist

import (
	"context"
	"fmt"

	"github.com/mossland/Algora-sub004/internal/types"
)

// Provider is the abstract LLM-providing collaborator. It is pluggable so
// deterministic test doubles can replace the real model in tests; the
// production implementation lives in langchain.go.
//
// Invoke may be slow or rate-limited. Implementations must honor ctx
// cancellation and return a retryable error for transient failures.
type Provider interface {
	// Name returns the provider name (e.g. "openai", "anthropic", "ollama").
	Name() string

	// Invoke asks the model to perform the prompted work at the given
	// difficulty tier and returns the raw text result.
	Invoke(ctx context.Context, prompt string, difficulty Difficulty) (string, error)
}

// ProviderError wraps a provider failure as a retryable AlgoraError so the
// dispatch retry loop can distinguish transient provider trouble from
// permanent task problems.
func ProviderError(provider string, cause error) error {
	return types.WrapRetryableError(types.SPECIALIST_PROVIDER_ERROR,
		fmt.Sprintf("provider %s failed", provider), cause)
}
