// Package advisor answers free-text nutrition questions through a text
// generation API, using a snapshot of the user's current numbers as context.
package advisor

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"math"
	"strings"
	"text/template"
	"time"

	"calorie-tracker/internal/food"
	"calorie-tracker/internal/llm"
	"calorie-tracker/internal/shared"
	"calorie-tracker/internal/stats"

	"go.uber.org/zap"
)

//go:embed advisor_prompt.md
var advisorPrompt string

var promptTemplate = template.Must(template.New("advisor").
	Funcs(template.FuncMap{"join": strings.Join}).
	Parse(advisorPrompt))

// Replies used instead of surfacing errors to the chat.
const (
	FallbackUnavailable = "I'm sorry, I'm having trouble connecting right now. Please try again later."
	FallbackNoAnswer    = "I'm sorry, I couldn't process your request right now. Please try again."
)

// RecentLimit is how many of the latest entries go into the prompt.
const RecentLimit = 5

// Snapshot is the context sent along with a question.
type Snapshot struct {
	Goal          int
	TodayTotal    float64
	Remaining     float64
	WeeklyAverage float64
	RecentEntries []food.Entry
}

// NewSnapshot builds a Snapshot from derived stats and the latest entries.
func NewSnapshot(s stats.DerivedStats, recent []food.Entry) Snapshot {
	return Snapshot{
		Goal:          s.Goal,
		TodayTotal:    s.TodayTotal,
		Remaining:     s.Remaining,
		WeeklyAverage: s.WeeklyAverage,
		RecentEntries: recent,
	}
}

type promptData struct {
	Goal          int
	TodayTotal    int
	Remaining     int
	WeeklyAverage int
	Recent        []string
	Question      string
}

// Advisor is a stateless request/response wrapper around a TextGenerator.
type Advisor struct {
	textGen  llm.TextGenerator
	recorder shared.CallRecorder
	service  string
	logger   *zap.Logger
}

// New creates an Advisor. service names the provider in metrics ("gemini", "groq").
func New(textGen llm.TextGenerator, service string, recorder shared.CallRecorder, logger *zap.Logger) *Advisor {
	if recorder == nil {
		recorder = shared.NopRecorder{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Advisor{textGen: textGen, recorder: recorder, service: service, logger: logger}
}

// Ask issues one request and returns the reply text. It never returns an
// error: any failure becomes one of the fallback strings.
func (a *Advisor) Ask(ctx context.Context, question string, snap Snapshot) string {
	prompt, err := BuildPrompt(question, snap)
	if err != nil {
		a.logger.Error("failed to build advisor prompt", zap.Error(err))
		return FallbackNoAnswer
	}

	start := time.Now()
	resp, err := a.textGen.GenerateContent(ctx, prompt)
	a.recorder.RecordCall(shared.CallMeta{
		Service: a.service,
		Usage:   resp.Usage,
		Latency: time.Since(start),
		Err:     err,
	})

	switch {
	case errors.Is(err, llm.ErrNoContent):
		a.logger.Warn("advisor returned no candidates", zap.String("service", a.service))
		return FallbackNoAnswer
	case err != nil:
		a.logger.Warn("advisor request failed", zap.String("service", a.service), zap.Error(err))
		return FallbackUnavailable
	case strings.TrimSpace(resp.Content) == "":
		return FallbackNoAnswer
	}
	return strings.TrimSpace(resp.Content)
}

// BuildPrompt renders the prompt template. Numbers are rounded the way the
// dashboard shows them.
func BuildPrompt(question string, snap Snapshot) (string, error) {
	data := promptData{
		Goal:          snap.Goal,
		TodayTotal:    int(math.Round(snap.TodayTotal)),
		Remaining:     int(math.Round(snap.Remaining)),
		WeeklyAverage: int(math.Round(snap.WeeklyAverage)),
		Question:      strings.TrimSpace(question),
	}
	for _, e := range snap.RecentEntries {
		data.Recent = append(data.Recent, fmt.Sprintf("%s (%s cal)", e.Name, formatCalories(e.CaloriesContributed())))
	}

	var buf bytes.Buffer
	if err := promptTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render advisor prompt: %w", err)
	}
	return buf.String(), nil
}

func formatCalories(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.1f", v)
}
