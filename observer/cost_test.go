package observer

import (
	"math"
	"testing"
)

func TestCostCalculator(t *testing.T) {
	calc := NewCostCalculator(map[string]ModelPricing{
		"local-llama":   {InputPerMillion: 0, OutputPerMillion: 0},
		"deepseek-chat": {InputPerMillion: 0.28, OutputPerMillion: 0.42},
		"house-model":   {InputPerMillion: 5.0, OutputPerMillion: 10.0},
	})
	tests := []struct {
		model         string
		input, output int
		want          float64
	}{
		{"gpt-4o-mini", 1_000_000, 1_000_000, 0.75},
		{"qwen-turbo", 2_000_000, 1_000_000, 0.30},
		{"deepseek-chat", 1_000_000, 1_000_000, 0.70}, // override wins
		{"house-model", 500_000, 200_000, 4.5},
		{"local-llama", 1000, 1000, 0},
		{"unknown-model", 1000, 1000, 0},
		{"gpt-4o", 0, 0, 0},
	}
	for _, tt := range tests {
		got := calc.Calculate(tt.model, tt.input, tt.output)
		if math.Abs(got-tt.want) > 0.001 {
			t.Errorf("Calculate(%s, %d, %d) = %f, want %f", tt.model, tt.input, tt.output, got, tt.want)
		}
	}
}

func TestDefaultPricingUntouchedByOverrides(t *testing.T) {
	NewCostCalculator(map[string]ModelPricing{"deepseek-chat": {1, 1}})
	if p := DefaultPricing["deepseek-chat"]; p.InputPerMillion != 0.27 {
		t.Errorf("DefaultPricing mutated: %+v", p)
	}
}
