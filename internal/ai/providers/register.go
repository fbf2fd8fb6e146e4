package providers

import (
	"github.com/sirupsen/logrus"

	"github.com/frostdev-ops/home-panel-go/internal/ai"
	"github.com/frostdev-ops/home-panel-go/internal/config"
)

// Register builds every enabled provider in cfg and adds it to the manager.
// It returns the number of providers registered.
func Register(manager *ai.LLMManager, cfg config.AIConfig, logger *logrus.Logger) int {
	registered := 0
	for _, providerCfg := range cfg.Providers {
		if !providerCfg.Enabled {
			continue
		}

		var provider ai.LLMProvider
		switch providerCfg.Type {
		case "gemini":
			if providerCfg.APIKey == "" {
				logger.Warn("Gemini provider enabled without an API key, skipping")
				continue
			}
			provider = NewGeminiProvider(providerCfg, logger)
		case "ollama":
			provider = NewOllamaProvider(providerCfg, logger)
		default:
			logger.WithField("type", providerCfg.Type).Warn("Unknown AI provider type")
			continue
		}

		manager.RegisterProvider(provider, providerCfg.Priority)
		registered++
	}

	if registered == 0 {
		logger.Warn("No AI providers configured, AI features will return fallback responses")
	}
	return registered
}
