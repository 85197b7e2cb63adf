package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"plc-copilot/internal/metrics"
)

// Upstream targets used as metric labels.
const (
	TargetOrchestrator = "orchestrator"
	TargetWebhook      = "n8n"
	TargetGemini       = "gemini"
	TargetVerifier     = "verifier"
)

const maxResponseBytes = 4 << 20

// StatusError is returned when an upstream answers with a non-2xx status.
type StatusError struct {
	URL  string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s returned HTTP %d", e.URL, e.Code)
	}
	return fmt.Sprintf("%s returned HTTP %d: %s", e.URL, e.Code, e.Body)
}

// OAuthConfig holds optional client credentials for the orchestrator.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	Scopes       []string
}

func (o OAuthConfig) enabled() bool {
	return o.ClientID != "" && o.ClientSecret != "" && o.TokenURL != ""
}

// NewHTTPClient builds the client used for upstream calls. When client
// credentials are configured, requests carry a bearer token that is fetched
// and refreshed by oauth2.
func NewHTTPClient(timeout time.Duration, auth OAuthConfig) *http.Client {
	base := &http.Client{Timeout: timeout}
	if !auth.enabled() {
		return base
	}
	cc := clientcredentials.Config{
		ClientID:     auth.ClientID,
		ClientSecret: auth.ClientSecret,
		TokenURL:     auth.TokenURL,
		Scopes:       auth.Scopes,
	}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	c := cc.Client(ctx)
	c.Timeout = timeout
	return c
}

// postJSON posts body as JSON and returns the response body for 2xx answers.
func postJSON(ctx context.Context, client *http.Client, m *metrics.Metrics, target, url string, body any) ([]byte, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		m.ObserveUpstream(target, metrics.OutcomeError, time.Since(start))
		return nil, fmt.Errorf("post %s: %w", url, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		m.ObserveUpstream(target, metrics.OutcomeStatus, time.Since(start))
		return nil, &StatusError{URL: url, Code: resp.StatusCode, Body: truncate(strings.TrimSpace(string(data)), 512)}
	}
	if err != nil {
		m.ObserveUpstream(target, metrics.OutcomeError, time.Since(start))
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	m.ObserveUpstream(target, metrics.OutcomeOK, time.Since(start))
	return data, nil
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
