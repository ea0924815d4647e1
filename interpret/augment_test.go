package interpret

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	oracle "github.com/oraclelang/oracle"
	"github.com/oraclelang/oracle/glyph"
)

type stubProvider struct {
	reply string
	err   error
	block bool
	calls atomic.Int32
	last  oracle.ChatRequest
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) Chat(ctx context.Context, req oracle.ChatRequest) (oracle.ChatResponse, error) {
	p.calls.Add(1)
	p.last = req
	if p.block {
		<-ctx.Done()
		return oracle.ChatResponse{}, ctx.Err()
	}
	if p.err != nil {
		return oracle.ChatResponse{}, p.err
	}
	return oracle.ChatResponse{Content: p.reply}, nil
}

func testReading(t *testing.T) oracle.Reading {
	t.Helper()
	r, err := New(glyph.Default()).Interpret(casting(t, 1, 1))
	if err != nil {
		t.Fatal(err)
	}
	return r
}

const goodReply = `1. 整体意义解读：刚健之中有所遇合，宜谨慎。
2. 吉凶判断：平
3. 具体建议：慎重交往，勿轻许诺。`

func TestAugmentOK(t *testing.T) {
	p := &stubProvider{reply: goodReply}
	r := testReading(t)

	got := NewAugmenter(p).Augment(context.Background(), "近期合作是否顺利", r)
	if got.Status != oracle.AugmentOK {
		t.Fatalf("Status = %s, err = %v", got.Status, got.Err)
	}
	if !strings.HasPrefix(got.Text, r.Text) {
		t.Error("augmented text does not start with the local reading")
	}
	for _, want := range []string{"刚健之中有所遇合，宜谨慎。", "🎯 吉凶: 平", "慎重交往，勿轻许诺。"} {
		if !strings.Contains(got.Text, want) {
			t.Errorf("text missing %q", want)
		}
	}

	prompt := p.last.Messages[0].Content
	for _, want := range []string{"近期合作是否顺利", "本卦: 乾为天", "变卦: 天风姤", "初九：潜龙勿用。"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestAugmentFallbacks(t *testing.T) {
	tests := []struct {
		name     string
		provider *stubProvider
		question string
		status   oracle.AugmentStatus
		calls    int32
	}{
		{"no question", &stubProvider{reply: goodReply}, "", oracle.AugmentDisabled, 0},
		{"provider error", &stubProvider{err: &oracle.ErrHTTP{Status: 500, Body: "boom"}}, "问", oracle.AugmentError, 1},
		{"malformed reply", &stubProvider{reply: "我不知道。"}, "问", oracle.AugmentMalformed, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := testReading(t)
			got := NewAugmenter(tt.provider).Augment(context.Background(), tt.question, r)
			if got.Status != tt.status {
				t.Errorf("Status = %s, want %s", got.Status, tt.status)
			}
			if got.Text != r.Text {
				t.Error("fallback text differs from the local reading")
			}
			if n := tt.provider.calls.Load(); n != tt.calls {
				t.Errorf("provider called %d times, want %d", n, tt.calls)
			}
		})
	}
}

func TestAugmentNilProvider(t *testing.T) {
	r := testReading(t)
	got := NewAugmenter(nil).Augment(context.Background(), "问", r)
	if got.Status != oracle.AugmentDisabled || got.Text != r.Text {
		t.Errorf("got %s %q", got.Status, got.Text)
	}
}

func TestAugmentTimeout(t *testing.T) {
	p := &stubProvider{block: true}
	r := testReading(t)

	start := time.Now()
	got := NewAugmenter(p, WithTimeout(20*time.Millisecond)).Augment(context.Background(), "问", r)
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Augment took %v, want it bounded by the timeout", elapsed)
	}
	if got.Status != oracle.AugmentTimeout {
		t.Errorf("Status = %s, want timeout", got.Status)
	}
	if !errors.Is(got.Err, context.DeadlineExceeded) {
		t.Errorf("Err = %v, want DeadlineExceeded", got.Err)
	}
	if got.Text != r.Text {
		t.Error("timeout text differs from the local reading")
	}
	if n := p.calls.Load(); n != 1 {
		t.Errorf("provider called %d times, want exactly 1", n)
	}
}

func TestAugmentMissingSectionsUseLocal(t *testing.T) {
	p := &stubProvider{reply: "1. 整体意义：宜静不宜动。"}
	r := testReading(t)
	got := NewAugmenter(p).Augment(context.Background(), "问", r)
	if got.Status != oracle.AugmentOK {
		t.Fatalf("Status = %s", got.Status)
	}
	if !strings.HasSuffix(got.Text, "💡 建议: "+r.Advice) {
		t.Errorf("advice did not fall back to the local one:\n%s", got.Text)
	}
}
