// Package resolve builds a chat Provider from a provider name, filling in
// the endpoint of known OpenAI-compatible services.
package resolve

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	oracle "github.com/oraclelang/oracle"
	"github.com/oraclelang/oracle/provider/openaicompat"
)

// Config holds provider-agnostic configuration for creating a chat Provider.
type Config struct {
	Provider string // "openai", "deepseek", "qwen", "moonshot", "groq", "ollama"
	APIKey   string
	Model    string
	BaseURL  string // auto-filled for known providers

	// Zero values leave the provider default in place.
	Temperature float64
	MaxTokens   int
	// Timeout bounds the HTTP client. The augmenter applies its own deadline
	// per request as well.
	Timeout time.Duration
	Logger  *slog.Logger
}

// Provider creates an oracle.Provider from cfg. Unknown providers need an
// explicit BaseURL.
func Provider(cfg Config) (oracle.Provider, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL(cfg.Provider)
	}
	if baseURL == "" {
		return nil, fmt.Errorf("resolve: unknown provider %q and no base URL", cfg.Provider)
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("resolve: no model for provider %q", cfg.Provider)
	}

	provOpts := []openaicompat.ProviderOption{openaicompat.WithName(cfg.Provider)}
	if cfg.Logger != nil {
		provOpts = append(provOpts, openaicompat.WithLogger(cfg.Logger))
	}
	if cfg.Timeout > 0 {
		provOpts = append(provOpts, openaicompat.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}))
	}
	var reqOpts []openaicompat.Option
	if cfg.Temperature > 0 {
		reqOpts = append(reqOpts, openaicompat.WithTemperature(cfg.Temperature))
	}
	if cfg.MaxTokens > 0 {
		reqOpts = append(reqOpts, openaicompat.WithMaxTokens(cfg.MaxTokens))
	}
	if len(reqOpts) > 0 {
		provOpts = append(provOpts, openaicompat.WithOptions(reqOpts...))
	}
	return openaicompat.NewProvider(cfg.APIKey, cfg.Model, baseURL, provOpts...), nil
}

func defaultBaseURL(provider string) string {
	switch provider {
	case "openai":
		return "https://api.openai.com/v1"
	case "deepseek":
		return "https://api.deepseek.com/v1"
	case "qwen":
		return "https://dashscope.aliyuncs.com/compatible-mode/v1"
	case "moonshot":
		return "https://api.moonshot.cn/v1"
	case "groq":
		return "https://api.groq.com/openai/v1"
	case "ollama":
		return "http://localhost:11434/v1"
	default:
		return ""
	}
}
