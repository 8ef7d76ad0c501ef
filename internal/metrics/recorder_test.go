package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"calorie-tracker/internal/shared"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, h http.Handler) string {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestRecorder(t *testing.T) {
	t.Run("exposes counters", func(t *testing.T) {
		r := NewRecorder(nil, nil)
		r.RecordCall(shared.CallMeta{Service: "groq", Usage: shared.TokenUsage{PromptTokens: 10, CompletionTokens: 4}, Latency: 200 * time.Millisecond})
		r.RecordCall(shared.CallMeta{Service: "groq", Err: errors.New("x")})
		r.RecordCall(shared.CallMeta{Service: "imgbb"})

		body := scrape(t, r.Handler())
		assert.Contains(t, body, `calorie_tracker_external_calls_total{outcome="ok",service="groq"} 1`)
		assert.Contains(t, body, `calorie_tracker_external_calls_total{outcome="error",service="groq"} 1`)
		assert.Contains(t, body, `calorie_tracker_external_calls_total{outcome="ok",service="imgbb"} 1`)
		assert.Contains(t, body, `calorie_tracker_llm_tokens_total{kind="prompt",service="groq"} 10`)
		assert.Contains(t, body, `calorie_tracker_llm_tokens_total{kind="completion",service="groq"} 4`)
		assert.Contains(t, body, `calorie_tracker_external_call_duration_seconds_count{service="groq"} 2`)
	})

	t.Run("recorders do not share a registry", func(t *testing.T) {
		a := NewRecorder(nil, nil)
		b := NewRecorder(nil, nil)
		a.RecordCall(shared.CallMeta{Service: "gemini"})
		assert.NotContains(t, scrape(t, b.Handler()), `service="gemini"`)
	})

	t.Run("persists to store", func(t *testing.T) {
		now := time.Now()
		s := newTestStore(t, now)
		r := NewRecorder(s, nil)
		r.RecordCall(shared.CallMeta{Service: "gemini", Usage: shared.TokenUsage{PromptTokens: 7}})

		usage, err := s.GetDailyUsage(context.Background(), 1)
		require.NoError(t, err)
		require.Len(t, usage, 1)
		assert.Equal(t, 7, usage[0].TotalPrompt)
	})
}

func TestHealth(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "foods.json"), make([]byte, 2048), 0o644))

	h := ReadHealth(dir)
	assert.Equal(t, "ok", h.Status)
	assert.Equal(t, uint64(2048), h.DataBytes)
	assert.Equal(t, "2.0 KiB", h.DataSize)
	assert.Positive(t, h.Goroutines)

	rec := httptest.NewRecorder()
	HealthHandler(dir).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	var got Health
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, uint64(2048), got.DataBytes)
}
