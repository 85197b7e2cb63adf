package upstream

import (
	"context"
	"fmt"

	"plc-copilot/internal/config"
	"plc-copilot/internal/metrics"
)

// Generator is implemented by Orchestrator and Gemini.
type Generator interface {
	Generate(ctx context.Context, prompt string) ([]byte, error)
}

// FromConfig builds the generator selected by cfg.UpstreamMode and the
// verifier client.
func FromConfig(cfg config.Config, m *metrics.Metrics) (Generator, *Verifier, error) {
	plain := NewHTTPClient(cfg.UpstreamTimeout, OAuthConfig{})
	verifier := NewVerifier(cfg.VerifierURL, plain, m)

	switch cfg.UpstreamMode {
	case "", config.ModeOrchestrator:
		client := NewHTTPClient(cfg.UpstreamTimeout, OAuthConfig{
			ClientID:     cfg.OrchestratorClientID,
			ClientSecret: cfg.OrchestratorClientSecret,
			TokenURL:     cfg.OrchestratorTokenURL,
			Scopes:       cfg.OrchestratorScopes,
		})
		return NewOrchestrator(cfg.GenerateURL(), client, m), verifier, nil
	case config.ModeN8N:
		return NewWebhook(cfg.GenerateURL(), plain, m), verifier, nil
	case config.ModeGemini:
		spec, err := LoadPromptSpec(cfg.PromptFile)
		if err != nil {
			return nil, nil, fmt.Errorf("load prompt: %w", err)
		}
		return NewGemini(cfg.GeminiAPIKey, cfg.GeminiBaseURL, cfg.GeminiModel, spec, plain, m), verifier, nil
	default:
		return nil, nil, fmt.Errorf("unknown upstream mode %q", cfg.UpstreamMode)
	}
}
