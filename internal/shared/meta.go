package shared

import "time"

// TokenUsage is what a model call consumed. Local work such as plan
// assembly or a cache hit reports the zero value.
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	Model            string
}

// Total returns TotalTokens, or the sum of prompt and completion tokens
// when the provider did not report a total.
func (u TokenUsage) Total() int {
	if u.TotalTokens > 0 {
		return u.TotalTokens
	}
	return u.PromptTokens + u.CompletionTokens
}

// AgentMeta describes one execution of a named component (planner, predictor).
// Components with an empty AgentName are not recorded.
type AgentMeta struct {
	AgentName string
	Usage     TokenUsage
	Latency   time.Duration
}
