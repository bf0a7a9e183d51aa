package ai

import (
	"context"
	"fmt"

	"lovink/backend/internal/community"
	"lovink/backend/pkg/config"
	"lovink/backend/pkg/logger"
	"lovink/backend/pkg/resilience"
	"lovink/backend/pkg/secrets"
	"lovink/backend/shared/observability"
)

// PortraitAnalyzer turns a photo into a persona suggestion
type PortraitAnalyzer interface {
	AnalyzePortrait(ctx context.Context, image string) (PortraitAnalysis, error)
}

// Providers are the model-backed collaborators of the service
type Providers struct {
	Reply *GuardedGenerator
	// Portrait is nil when no Gemini key is configured
	Portrait PortraitAnalyzer
}

// NewProviders builds the configured reply generator. The Gemini key is
// resolved through sec so it can live in Vault.
func NewProviders(ctx context.Context, cfg *config.Config, sec secrets.Manager, log *logger.Logger) (*Providers, error) {
	gc := cfg.Generator
	apiKey := secrets.GetWithDefault(ctx, sec, "generator.api-key", gc.APIKey)

	var gemini *GeminiGenerator
	if apiKey != "" && (gc.Provider == "gemini" || gc.Provider == "http") {
		g, err := NewGeminiGenerator(ctx, apiKey, gc.Model, gc.HistoryWindow)
		if err != nil {
			if gc.Provider == "gemini" {
				return nil, err
			}
			log.LogError(err, "gemini unavailable, portrait analysis disabled")
		} else {
			gemini = g
		}
	}

	var base community.ReplyGenerator
	switch gc.Provider {
	case "gemini":
		if gemini == nil {
			return nil, fmt.Errorf("generator provider gemini needs GENERATOR_API_KEY")
		}
		base = gemini
	case "http":
		base = NewHTTPGenerator(gc.Endpoint, WithAPIKey(apiKey), WithHistoryWindow(gc.HistoryWindow))
	default:
		return nil, fmt.Errorf("unknown generator provider %q", gc.Provider)
	}

	breaker := resilience.DefaultConfig("generator-" + gc.Provider)
	breaker.FailureThreshold = uint(max(gc.FailureThreshold, 1))
	breaker.RetryTimeout = gc.ResetTimeout
	breaker.OnStateChange = func(name string, from, to resilience.State) {
		observability.BreakerChanged(name, string(from), string(to))
	}

	p := &Providers{
		Reply: NewGuardedGenerator(base, GuardOptions{
			Name:           gc.Provider,
			Timeout:        gc.Timeout,
			RequestsPerSec: gc.RequestsPerSec,
			Burst:          gc.Burst,
			Breaker:        breaker,
		}, log),
	}
	if gemini != nil {
		p.Portrait = gemini
	}
	log.Info("reply generator ready", "provider", gc.Provider, "portrait_analysis", p.Portrait != nil)
	return p, nil
}
