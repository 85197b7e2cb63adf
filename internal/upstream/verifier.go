package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"plc-copilot/internal/metrics"
	"plc-copilot/internal/types"
)

// Verifier calls the Structured Text verification service.
type Verifier struct {
	url     string
	client  *http.Client
	metrics *metrics.Metrics
}

func NewVerifier(url string, client *http.Client, m *metrics.Metrics) *Verifier {
	return &Verifier{url: url, client: client, metrics: m}
}

func (v *Verifier) Verify(ctx context.Context, code string) (types.VerifyResponse, error) {
	data, err := postJSON(ctx, v.client, v.metrics, TargetVerifier, v.url, types.VerifyRequest{STCode: code})
	if err != nil {
		return types.VerifyResponse{}, err
	}
	var out types.VerifyResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return types.VerifyResponse{}, fmt.Errorf("decode verifier response: %w", err)
	}
	return out, nil
}
