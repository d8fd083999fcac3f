package llm

import (
	"fmt"

	"github.com/Odwa2003/Phone-Controller/internal/config"
)

// FromConfig builds the configured provider. It returns nil when the
// probabilistic path is disabled or has no credential.
func FromConfig(cfg *config.Config) (Provider, error) {
	switch cfg.Provider() {
	case config.ProviderAnthropic:
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("TRANSLATOR_PROVIDER=anthropic requires ANTHROPIC_API_KEY")
		}
		p, err := NewAnthropicProvider(cfg.AnthropicAPIKey, cfg.AnthropicModel, cfg.TranslatorTimeout)
		if err != nil {
			return nil, err
		}
		return p, nil
	case config.ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("TRANSLATOR_PROVIDER=openai requires OPENAI_API_KEY")
		}
		return NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL, cfg.TranslatorTimeout), nil
	}
	return nil, nil
}
