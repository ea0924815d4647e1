package resolve

import (
	"testing"
)

func TestDefaultBaseURL(t *testing.T) {
	tests := []struct {
		provider string
		want     string
	}{
		{"openai", "https://api.openai.com/v1"},
		{"deepseek", "https://api.deepseek.com/v1"},
		{"qwen", "https://dashscope.aliyuncs.com/compatible-mode/v1"},
		{"moonshot", "https://api.moonshot.cn/v1"},
		{"groq", "https://api.groq.com/openai/v1"},
		{"ollama", "http://localhost:11434/v1"},
		{"unknown", ""},
	}
	for _, tt := range tests {
		if got := defaultBaseURL(tt.provider); got != tt.want {
			t.Errorf("defaultBaseURL(%q) = %q, want %q", tt.provider, got, tt.want)
		}
	}
}

func TestProvider_KnownName(t *testing.T) {
	p, err := Provider(Config{
		Provider:    "deepseek",
		APIKey:      "test-key",
		Model:       "deepseek-chat",
		Temperature: 0.7,
		MaxTokens:   800,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Name() != "deepseek" {
		t.Errorf("Name() = %q, want %q", p.Name(), "deepseek")
	}
}

func TestProvider_CustomBaseURL(t *testing.T) {
	p, err := Provider(Config{Provider: "local", Model: "m", BaseURL: "http://127.0.0.1:8000/v1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Name() != "local" {
		t.Errorf("Name() = %q", p.Name())
	}
}

func TestProvider_Errors(t *testing.T) {
	if _, err := Provider(Config{Provider: "unknown", Model: "m"}); err == nil {
		t.Error("expected error for unknown provider without base URL")
	}
	if _, err := Provider(Config{Provider: "openai"}); err == nil {
		t.Error("expected error without model")
	}
}
