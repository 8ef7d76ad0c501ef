package shared

import (
	"time"
)

// TokenUsage tracks the tokens consumed by a request.
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	Model            string
}

// CallMeta holds operational metadata for one external API call.
type CallMeta struct {
	Service string
	Usage   TokenUsage
	Latency time.Duration
	Err     error
}

// Outcome labels the call for metrics: "ok" or "error".
func (m CallMeta) Outcome() string {
	if m.Err != nil {
		return "error"
	}
	return "ok"
}

// CallRecorder receives metadata for every external call. Implementations
// must not block the caller for long.
type CallRecorder interface {
	RecordCall(meta CallMeta)
}

// NopRecorder discards call metadata.
type NopRecorder struct{}

// RecordCall implements CallRecorder.
func (NopRecorder) RecordCall(CallMeta) {}
