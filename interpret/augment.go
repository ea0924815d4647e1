package interpret

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	oracle "github.com/oraclelang/oracle"
)

// DefaultTimeout bounds one elaboration call.
const DefaultTimeout = 30 * time.Second

// Augmenter elaborates readings through an LLM provider. It makes a single
// attempt per reading and never returns an error: on any failure the
// Augmentation carries the reading's local text.
type Augmenter struct {
	provider oracle.Provider
	timeout  time.Duration
	logger   *slog.Logger
}

// AugmentOption configures an Augmenter.
type AugmentOption func(*Augmenter)

// WithTimeout bounds each provider call. Non-positive values keep the default.
func WithTimeout(d time.Duration) AugmentOption {
	return func(a *Augmenter) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// WithLogger sets the structured logger. If not set, no logs are emitted.
func WithLogger(l *slog.Logger) AugmentOption {
	return func(a *Augmenter) { a.logger = l }
}

// NewAugmenter wraps provider. A nil provider yields an Augmenter that
// always reports AugmentDisabled.
func NewAugmenter(provider oracle.Provider, opts ...AugmentOption) *Augmenter {
	a := &Augmenter{
		provider: provider,
		timeout:  DefaultTimeout,
		logger:   nopLogger,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

var _ oracle.Augmenter = (*Augmenter)(nil)

// Augment asks the provider to elaborate r for question. Readings without a
// question are not sent.
func (a *Augmenter) Augment(ctx context.Context, question string, r oracle.Reading) oracle.Augmentation {
	local := oracle.Augmentation{Status: oracle.AugmentDisabled, Text: r.Text}
	if a == nil || a.provider == nil || strings.TrimSpace(question) == "" {
		return local
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	start := time.Now()
	resp, err := a.provider.Chat(ctx, oracle.ChatRequest{
		Messages: []oracle.ChatMessage{oracle.UserMessage(BuildPrompt(question, r))},
	})
	elapsed := time.Since(start)
	if err != nil {
		local.Err = err
		local.Status = oracle.AugmentError
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			local.Status = oracle.AugmentTimeout
		}
		a.logger.Warn("augment: provider failed, using local reading",
			"provider", a.provider.Name(), "status", local.Status, "error", err, "duration", elapsed)
		return local
	}

	sections, err := ParseSections(resp.Content)
	if err != nil {
		local.Status = oracle.AugmentMalformed
		local.Err = fmt.Errorf("parse %s reply: %w", a.provider.Name(), err)
		a.logger.Warn("augment: malformed reply, using local reading",
			"provider", a.provider.Name(), "error", err, "reply_len", len(resp.Content))
		return local
	}
	if sections.Fortune == "" {
		sections.Fortune = r.Fortune
	}
	if sections.Advice == "" {
		sections.Advice = r.Advice
	}

	a.logger.Debug("augment: ok",
		"provider", a.provider.Name(), "duration", elapsed,
		"input_tokens", resp.Usage.InputTokens, "output_tokens", resp.Usage.OutputTokens)
	return oracle.Augmentation{Status: oracle.AugmentOK, Text: elaborate(r.Text, sections)}
}

func elaborate(local string, s Sections) string {
	var sb strings.Builder
	sb.WriteString(local)
	sb.WriteString("\n\n🤖 AI 解读:\n")
	sb.WriteString(s.Meaning)
	fmt.Fprintf(&sb, "\n🎯 吉凶: %s", s.Fortune)
	fmt.Fprintf(&sb, "\n💡 建议: %s", s.Advice)
	return sb.String()
}

// nopLogger is a logger that discards all output.
var nopLogger = slog.New(discardHandler{})

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }
