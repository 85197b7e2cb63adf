package upstream

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plc-copilot/internal/config"
)

func TestFromConfig(t *testing.T) {
	prompt := filepath.Join(t.TempDir(), "copilot.yaml")
	require.NoError(t, os.WriteFile(prompt, []byte("system: rules\n"), 0o644))

	base := config.Config{
		OrchestratorURL: "http://orch/generate",
		WebhookURL:      "http://n8n/webhook",
		VerifierURL:     "http://verifier/verify",
		UpstreamTimeout: time.Second,
		PromptFile:      prompt,
	}

	tests := []struct {
		mode    string
		check   func(t *testing.T, g Generator)
		wantErr bool
	}{
		{mode: config.ModeOrchestrator, check: func(t *testing.T, g Generator) {
			o, ok := g.(*Orchestrator)
			require.True(t, ok)
			assert.Equal(t, "http://orch/generate", o.url)
			assert.Equal(t, TargetOrchestrator, o.target)
		}},
		{mode: config.ModeN8N, check: func(t *testing.T, g Generator) {
			o, ok := g.(*Orchestrator)
			require.True(t, ok)
			assert.Equal(t, "http://n8n/webhook", o.url)
			assert.Equal(t, TargetWebhook, o.target)
		}},
		{mode: config.ModeGemini, check: func(t *testing.T, g Generator) {
			_, ok := g.(*Gemini)
			assert.True(t, ok)
		}},
		{mode: "carrier-pigeon", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			cfg := base
			cfg.UpstreamMode = tt.mode
			gen, verifier, err := FromConfig(cfg, nil)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "http://verifier/verify", verifier.url)
			tt.check(t, gen)
		})
	}
}

func TestFromConfig_MissingPrompt(t *testing.T) {
	_, _, err := FromConfig(config.Config{UpstreamMode: config.ModeGemini, PromptFile: "/nonexistent/copilot.yaml"}, nil)
	assert.Error(t, err)
}
