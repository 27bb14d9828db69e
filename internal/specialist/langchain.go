package specialist

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// ProviderConfig selects and configures the production LLM provider.
type ProviderConfig struct {
	// Kind selects the backing service: "openai", "anthropic", or "ollama".
	Kind string `mapstructure:"kind"`

	// APIKey overrides the provider's environment-variable credential.
	APIKey string `mapstructure:"api_key"`

	// ServerURL is the ollama server address (ollama only).
	ServerURL string `mapstructure:"server_url"`

	// Models maps difficulty tiers to model names. Missing tiers fall back
	// to the next lower configured tier.
	Models map[string]string `mapstructure:"models"`
}

// LangchainProvider implements Provider on top of langchaingo, selecting a
// model per difficulty tier.
type LangchainProvider struct {
	name   string
	client llms.Model
	models map[Difficulty]string
}

// NewLangchainProvider builds the production provider from configuration.
func NewLangchainProvider(cfg ProviderConfig) (*LangchainProvider, error) {
	var client llms.Model
	var err error

	switch cfg.Kind {
	case "openai":
		opts := []openai.Option{}
		if cfg.APIKey != "" {
			opts = append(opts, openai.WithToken(cfg.APIKey))
		}
		client, err = openai.New(opts...)
	case "anthropic":
		opts := []anthropic.Option{}
		if cfg.APIKey != "" {
			opts = append(opts, anthropic.WithToken(cfg.APIKey))
		}
		client, err = anthropic.New(opts...)
	case "ollama":
		opts := []ollama.Option{}
		if cfg.ServerURL != "" {
			opts = append(opts, ollama.WithServerURL(cfg.ServerURL))
		}
		if model, ok := cfg.Models["basic"]; ok {
			opts = append(opts, ollama.WithModel(model))
		}
		client, err = ollama.New(opts...)
	default:
		return nil, fmt.Errorf("unsupported provider kind: %q", cfg.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s provider: %w", cfg.Kind, err)
	}

	models, err := parseModelTiers(cfg.Models)
	if err != nil {
		return nil, err
	}

	return &LangchainProvider{
		name:   cfg.Kind,
		client: client,
		models: models,
	}, nil
}

// parseModelTiers resolves the difficulty -> model table, filling gaps from
// the nearest lower configured tier.
func parseModelTiers(raw map[string]string) (map[Difficulty]string, error) {
	tiers := []struct {
		key        string
		difficulty Difficulty
	}{
		{"basic", DifficultyBasic},
		{"standard", DifficultyStandard},
		{"advanced", DifficultyAdvanced},
		{"expert", DifficultyExpert},
	}

	models := make(map[Difficulty]string, len(tiers))
	last := ""
	for _, tier := range tiers {
		if model, ok := raw[tier.key]; ok && model != "" {
			last = model
		}
		if last == "" {
			continue
		}
		models[tier.difficulty] = last
	}

	if len(models) == 0 {
		return nil, fmt.Errorf("provider config declares no models")
	}
	if _, ok := models[DifficultyBasic]; !ok {
		return nil, fmt.Errorf("provider config must declare at least a basic-tier model")
	}
	return models, nil
}

// Name returns the provider name.
func (p *LangchainProvider) Name() string {
	return p.name
}

// Invoke sends the prompt to the model tier mapped to the difficulty level.
func (p *LangchainProvider) Invoke(ctx context.Context, prompt string, difficulty Difficulty) (string, error) {
	model, ok := p.models[difficulty]
	if !ok {
		// Tier gaps were filled downward at construction, so this only
		// happens for an out-of-range difficulty value.
		model = p.models[DifficultyBasic]
	}

	result, err := llms.GenerateFromSinglePrompt(ctx, p.client, prompt, llms.WithModel(model))
	if err != nil {
		return "", ProviderError(p.name, err)
	}
	return result, nil
}

var _ Provider = (*LangchainProvider)(nil)
