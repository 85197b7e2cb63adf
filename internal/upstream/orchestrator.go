package upstream

import (
	"context"
	"net/http"

	"plc-copilot/internal/metrics"
	"plc-copilot/internal/types"
)

// Orchestrator posts prompts to an HTTP generation endpoint: the local
// orchestrator or an n8n webhook. Both take {"prompt": ...}.
type Orchestrator struct {
	url     string
	target  string
	client  *http.Client
	metrics *metrics.Metrics
}

func NewOrchestrator(url string, client *http.Client, m *metrics.Metrics) *Orchestrator {
	return &Orchestrator{url: url, target: TargetOrchestrator, client: client, metrics: m}
}

// NewWebhook returns an Orchestrator labelled as an n8n webhook.
func NewWebhook(url string, client *http.Client, m *metrics.Metrics) *Orchestrator {
	return &Orchestrator{url: url, target: TargetWebhook, client: client, metrics: m}
}

// Generate makes a single attempt; there is no retry.
func (o *Orchestrator) Generate(ctx context.Context, prompt string) ([]byte, error) {
	return postJSON(ctx, o.client, o.metrics, o.target, o.url, types.GenerateRequest{Prompt: prompt})
}
