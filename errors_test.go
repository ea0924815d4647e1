package oracle

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestErrLLMError(t *testing.T) {
	tests := []struct {
		provider string
		message  string
		want     string
	}{
		{"deepseek", "no choices in response", "deepseek: no choices in response"},
		{"openai", "refused: policy", "openai: refused: policy"},
		{"", "", ": "},
	}
	for _, tt := range tests {
		e := &ErrLLM{Provider: tt.provider, Message: tt.message}
		if got := e.Error(); got != tt.want {
			t.Errorf("ErrLLM{%q, %q}.Error() = %q, want %q", tt.provider, tt.message, got, tt.want)
		}
	}
}

func TestErrHTTPError(t *testing.T) {
	e := &ErrHTTP{Status: 429, Body: "too many requests"}
	if got, want := e.Error(), "http 429: too many requests"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	var target *ErrHTTP
	if !errors.As(fmt.Errorf("chat: %w", e), &target) || target.Status != 429 {
		t.Errorf("errors.As lost the status: %+v", target)
	}
}

func TestQuotaErrorUnwrap(t *testing.T) {
	err := fmt.Errorf("divine: %w", &QuotaError{Decision: Decision{
		Limit:      3,
		RetryAfter: time.Hour,
		Window:     UsageWindow{User: "u"},
	}})
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Errorf("%v does not match ErrQuotaExceeded", err)
	}
	var qe *QuotaError
	if !errors.As(err, &qe) || qe.Decision.Limit != 3 {
		t.Errorf("errors.As = %+v", qe)
	}
}
