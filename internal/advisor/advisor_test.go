package advisor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"calorie-tracker/internal/food"
	"calorie-tracker/internal/llm"
	"calorie-tracker/internal/shared"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockTextGenerator struct {
	content string
	usage   shared.TokenUsage
	err     error

	mu      sync.Mutex
	prompts []string
	block   chan struct{}
}

func (m *mockTextGenerator) GenerateContent(ctx context.Context, prompt string) (llm.ContentResponse, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()
	if m.block != nil {
		<-m.block
	}
	if m.err != nil {
		return llm.ContentResponse{}, m.err
	}
	return llm.ContentResponse{Content: m.content, Usage: m.usage}, nil
}

type recordingRecorder struct {
	mu    sync.Mutex
	calls []shared.CallMeta
}

func (r *recordingRecorder) RecordCall(meta shared.CallMeta) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, meta)
}

func testSnapshot() Snapshot {
	date := civil.Date{Year: 2024, Month: 3, Day: 10}
	return Snapshot{
		Goal:          2000,
		TodayTotal:    650,
		Remaining:     1350,
		WeeklyAverage: 1234.6,
		RecentEntries: []food.Entry{
			{ID: 1, Name: "Apple", Calories: 95, Quantity: 1, Meal: food.Snack, Date: date},
			{ID: 2, Name: "Rice", Calories: 200, Quantity: 2.5, Meal: food.Lunch, Date: date},
		},
	}
}

func TestAsk(t *testing.T) {
	t.Run("returns trimmed reply and records usage", func(t *testing.T) {
		gen := &mockTextGenerator{content: "  Eat more vegetables.\n", usage: shared.TokenUsage{PromptTokens: 10, CompletionTokens: 5}}
		rec := &recordingRecorder{}
		a := New(gen, "gemini", rec, nil)

		reply := a.Ask(context.Background(), "How am I doing?", testSnapshot())

		assert.Equal(t, "Eat more vegetables.", reply)
		require.Len(t, rec.calls, 1)
		assert.Equal(t, "gemini", rec.calls[0].Service)
		assert.Equal(t, "ok", rec.calls[0].Outcome())
		assert.Equal(t, 10, rec.calls[0].Usage.PromptTokens)
	})

	t.Run("prompt carries the snapshot", func(t *testing.T) {
		gen := &mockTextGenerator{content: "ok"}
		a := New(gen, "gemini", nil, nil)

		a.Ask(context.Background(), "What should I eat?", testSnapshot())

		require.Len(t, gen.prompts, 1)
		p := gen.prompts[0]
		assert.Contains(t, p, "Daily calorie goal: 2000")
		assert.Contains(t, p, "Today's calories consumed: 650")
		assert.Contains(t, p, "Remaining calories: 1350")
		assert.Contains(t, p, "Weekly average: 1235")
		assert.Contains(t, p, "Apple (95 cal), Rice (500 cal)")
		assert.Contains(t, p, "User question: What should I eat?")
	})

	t.Run("transport failure yields unavailable fallback", func(t *testing.T) {
		gen := &mockTextGenerator{err: &llm.StatusError{Service: "gemini", StatusCode: 500, Body: "boom"}}
		rec := &recordingRecorder{}
		a := New(gen, "gemini", rec, nil)

		reply := a.Ask(context.Background(), "hi", testSnapshot())

		assert.Equal(t, FallbackUnavailable, reply)
		require.Len(t, rec.calls, 1)
		assert.Equal(t, "error", rec.calls[0].Outcome())
	})

	t.Run("network error yields unavailable fallback", func(t *testing.T) {
		a := New(&mockTextGenerator{err: errors.New("dial tcp: refused")}, "groq", nil, nil)
		assert.Equal(t, FallbackUnavailable, a.Ask(context.Background(), "hi", testSnapshot()))
	})

	t.Run("no candidates yields no-answer fallback", func(t *testing.T) {
		a := New(&mockTextGenerator{err: llm.ErrNoContent}, "gemini", nil, nil)
		assert.Equal(t, FallbackNoAnswer, a.Ask(context.Background(), "hi", testSnapshot()))
	})

	t.Run("blank reply yields no-answer fallback", func(t *testing.T) {
		a := New(&mockTextGenerator{content: "   "}, "gemini", nil, nil)
		assert.Equal(t, FallbackNoAnswer, a.Ask(context.Background(), "hi", testSnapshot()))
	})
}

func TestBuildPrompt_NoRecentEntries(t *testing.T) {
	p, err := BuildPrompt("hello", Snapshot{Goal: 1800})
	require.NoError(t, err)
	assert.Contains(t, p, "Recent foods logged: none yet")
	assert.Contains(t, p, "Daily calorie goal: 1800")
}

func TestConversation(t *testing.T) {
	t.Run("starts with greeting", func(t *testing.T) {
		c := NewConversation(New(&mockTextGenerator{content: "x"}, "gemini", nil, nil))
		msgs := c.Messages()
		require.Len(t, msgs, 1)
		assert.Equal(t, RoleAssistant, msgs[0].Role)
		assert.Equal(t, Greeting, msgs[0].Text)
		assert.NotEmpty(t, msgs[0].ID)
	})

	t.Run("send appends user and assistant messages", func(t *testing.T) {
		c := NewConversation(New(&mockTextGenerator{content: "Try oatmeal."}, "gemini", nil, nil))

		reply, err := c.Send(context.Background(), "  breakfast ideas?  ", testSnapshot())
		require.NoError(t, err)
		assert.Equal(t, "Try oatmeal.", reply.Text)

		msgs := c.Messages()
		require.Len(t, msgs, 3)
		assert.Equal(t, RoleUser, msgs[1].Role)
		assert.Equal(t, "breakfast ideas?", msgs[1].Text)
		assert.Equal(t, RoleAssistant, msgs[2].Role)
		assert.NotEqual(t, msgs[1].ID, msgs[2].ID)
		assert.False(t, c.Pending())
	})

	t.Run("failure still appends a fallback reply", func(t *testing.T) {
		c := NewConversation(New(&mockTextGenerator{err: errors.New("down")}, "gemini", nil, nil))

		reply, err := c.Send(context.Background(), "hi", testSnapshot())
		require.NoError(t, err)
		assert.Equal(t, FallbackUnavailable, reply.Text)
		assert.Len(t, c.Messages(), 3)
	})

	t.Run("blank input is rejected", func(t *testing.T) {
		gen := &mockTextGenerator{content: "x"}
		c := NewConversation(New(gen, "gemini", nil, nil))

		_, err := c.Send(context.Background(), "   ", testSnapshot())
		assert.ErrorIs(t, err, ErrEmptyMessage)
		assert.Len(t, c.Messages(), 1)
		assert.Empty(t, gen.prompts)
	})

	t.Run("second send while pending is rejected", func(t *testing.T) {
		gen := &mockTextGenerator{content: "done", block: make(chan struct{})}
		c := NewConversation(New(gen, "gemini", nil, nil))

		done := make(chan error, 1)
		go func() {
			_, err := c.Send(context.Background(), "first", testSnapshot())
			done <- err
		}()
		require.Eventually(t, c.Pending, time.Second, time.Millisecond)

		_, err := c.Send(context.Background(), "second", testSnapshot())
		assert.ErrorIs(t, err, ErrBusy)

		close(gen.block)
		require.NoError(t, <-done)
		assert.Len(t, c.Messages(), 3)
	})
}
