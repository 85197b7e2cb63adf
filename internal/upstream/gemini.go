package upstream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"gopkg.in/yaml.v3"

	"plc-copilot/internal/metrics"
)

const promptPlaceholder = "{{ USER_PROMPT_GOES_HERE }}"

var ErrNoJSON = errors.New("model output contains no JSON object")

// PromptSpec is the prompt file used when talking to the model directly.
type PromptSpec struct {
	System       string `yaml:"system"`
	UserTemplate string `yaml:"user_template"`
	Style        struct {
		Temperature float32 `yaml:"temperature"`
		MaxTokens   int     `yaml:"max_tokens"`
		JSONMode    bool    `yaml:"json_mode"`
	} `yaml:"style"`
}

func LoadPromptSpec(path string) (PromptSpec, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return PromptSpec{}, err
	}
	var spec PromptSpec
	if err := yaml.Unmarshal(b, &spec); err != nil {
		return PromptSpec{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if strings.TrimSpace(spec.System) == "" {
		return PromptSpec{}, fmt.Errorf("%s: system prompt is empty", path)
	}
	return spec, nil
}

// UserMessage renders the user template around prompt.
func (p PromptSpec) UserMessage(prompt string) string {
	if !strings.Contains(p.UserTemplate, promptPlaceholder) {
		return prompt
	}
	return strings.ReplaceAll(p.UserTemplate, promptPlaceholder, prompt)
}

// Gemini asks the model directly through Gemini's OpenAI-compatible API and
// returns the JSON object found in its answer.
type Gemini struct {
	spec    PromptSpec
	client  *openai.Client
	model   string
	metrics *metrics.Metrics
}

func NewGemini(apiKey, baseURL, model string, spec PromptSpec, httpClient *http.Client, m *metrics.Metrics) *Gemini {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	if httpClient != nil {
		cfg.HTTPClient = httpClient
	}
	return &Gemini{spec: spec, client: openai.NewClientWithConfig(cfg), model: model, metrics: m}
}

func (g *Gemini) Generate(ctx context.Context, prompt string) ([]byte, error) {
	temp := g.spec.Style.Temperature
	if temp <= 0 {
		temp = 0.2
	}
	maxTok := g.spec.Style.MaxTokens
	if maxTok <= 0 {
		maxTok = 2048
	}
	req := openai.ChatCompletionRequest{
		Model:       g.model,
		Temperature: temp,
		MaxTokens:   maxTok,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: g.spec.System},
			{Role: openai.ChatMessageRoleUser, Content: g.spec.UserMessage(prompt)},
		},
	}
	if g.spec.Style.JSONMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}

	start := time.Now()
	resp, err := g.client.CreateChatCompletion(ctx, req)
	if err != nil {
		outcome := metrics.OutcomeError
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			outcome = metrics.OutcomeStatus
		}
		g.metrics.ObserveUpstream(TargetGemini, outcome, time.Since(start))
		return nil, fmt.Errorf("gemini completion: %w", err)
	}
	g.metrics.ObserveUpstream(TargetGemini, metrics.OutcomeOK, time.Since(start))
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("gemini completion: no choices")
	}
	raw := ExtractJSON(resp.Choices[0].Message.Content)
	if raw == "" {
		return nil, ErrNoJSON
	}
	return []byte(raw), nil
}
