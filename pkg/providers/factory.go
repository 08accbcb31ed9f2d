package providers

import (
	"strings"

	"github.com/havenlabs/haven/pkg/config"
	"github.com/havenlabs/haven/pkg/logger"
)

// BuildProviders assembles the ordered provider list from configuration:
// the SDK-backed chat provider first, the single-prompt text model second.
// Backends without credentials are skipped, so an empty list is possible;
// the engine still works, it just always answers from the fallback.
func BuildProviders(cfg *config.Config) []Provider {
	opts := Options{
		MaxTokens:   cfg.Companion.MaxTokens,
		Temperature: cfg.Companion.Temperature,
	}

	var out []Provider

	if key := strings.TrimSpace(cfg.Providers.OpenAI.APIKey); key != "" {
		openaiOpts := opts
		openaiOpts.Model = strings.TrimSpace(cfg.Providers.OpenAI.Model)
		out = append(out, NewOpenAIProvider(key, strings.TrimSpace(cfg.Providers.OpenAI.APIBase), openaiOpts))
	}

	if base := strings.TrimSpace(cfg.Providers.TextModel.APIBase); base != "" {
		textOpts := opts
		textOpts.Model = strings.TrimSpace(cfg.Providers.TextModel.Model)
		out = append(out, NewTextModelProvider(
			strings.TrimSpace(cfg.Providers.TextModel.APIKey),
			base,
			strings.TrimSpace(cfg.Providers.TextModel.Proxy),
			textOpts,
		))
	}

	if len(out) == 0 {
		logger.WarnC("providers", "No providers configured; every turn will use the offline responder")
	}

	return out
}
