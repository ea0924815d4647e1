package openaicompat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	oracle "github.com/oraclelang/oracle"
)

// maxErrorBody bounds how much of a failed response is kept in ErrHTTP.
const maxErrorBody = 4 << 10

// Provider implements oracle.Provider for any OpenAI-compatible API.
//
// Works with OpenAI, DeepSeek, OpenRouter, Groq, Together, Mistral,
// Ollama, vLLM, LM Studio and any other provider that implements the
// OpenAI chat completions API.
type Provider struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
	name    string
	opts    []Option
	logger  *slog.Logger
}

// NewProvider creates an OpenAI-compatible chat provider.
//
// baseURL is the API base (e.g. "https://api.openai.com/v1",
// "https://api.deepseek.com/v1", "http://localhost:11434/v1").
// The /chat/completions path is appended automatically.
func NewProvider(apiKey, model, baseURL string, opts ...ProviderOption) *Provider {
	p := &Provider{
		apiKey:  apiKey,
		model:   model,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{},
		name:    "openai",
		logger:  nopLogger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the provider name (default "openai", configurable via WithName).
func (p *Provider) Name() string { return p.name }

// Chat sends a chat request and returns the complete response. The
// deadline comes from ctx; there are no retries.
func (p *Provider) Chat(ctx context.Context, req oracle.ChatRequest) (oracle.ChatResponse, error) {
	start := time.Now()
	body := BuildBody(req.Messages, p.model, p.opts...)

	resp, err := p.sendHTTP(ctx, body)
	if err != nil {
		p.logger.Debug("openaicompat: request failed", "provider", p.name, "error", err, "duration", time.Since(start))
		return oracle.ChatResponse{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return oracle.ChatResponse{}, p.httpErr(resp)
	}

	var chatResp ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return oracle.ChatResponse{}, &oracle.ErrLLM{Provider: p.name, Message: fmt.Sprintf("decode response: %v", err)}
	}
	out, err := ParseResponse(p.name, chatResp)
	if err != nil {
		return oracle.ChatResponse{}, err
	}
	p.logger.Debug("openaicompat: chat ok", "provider", p.name, "model", p.model,
		"input_tokens", out.Usage.InputTokens, "output_tokens", out.Usage.OutputTokens, "duration", time.Since(start))
	return out, nil
}

// sendHTTP marshals the request body and sends it to the chat completions endpoint.
func (p *Provider) sendHTTP(ctx context.Context, body ChatRequest) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, &oracle.ErrLLM{Provider: p.name, Message: fmt.Sprintf("marshal request: %v", err)}
	}

	url := p.baseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, &oracle.ErrLLM{Provider: p.name, Message: fmt.Sprintf("create request: %v", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	return p.client.Do(httpReq)
}

// httpErr reads the response body and returns an ErrHTTP. The error
// envelope's message replaces the raw body when present.
func (p *Provider) httpErr(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	msg := string(raw)
	var eb errorBody
	if json.Unmarshal(raw, &eb) == nil && eb.Error.Message != "" {
		msg = eb.Error.Message
	}
	return &oracle.ErrHTTP{Status: resp.StatusCode, Body: msg}
}

// Compile-time interface check.
var _ oracle.Provider = (*Provider)(nil)

var nopLogger = slog.New(discardHandler{})

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }
