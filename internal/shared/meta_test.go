package shared

import "testing"

func TestTokenUsageTotal(t *testing.T) {
	tests := []struct {
		name  string
		usage TokenUsage
		want  int
	}{
		{"Reported", TokenUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 20}, 20},
		{"Summed", TokenUsage{PromptTokens: 10, CompletionTokens: 5}, 15},
		{"Zero", TokenUsage{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.usage.Total(); got != tt.want {
				t.Errorf("Total() = %d, want %d", got, tt.want)
			}
		})
	}
}
