// Package recognition runs the photo -> image host -> vision model pipeline
// and turns detected items into ledger entries on confirmation.
package recognition

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"calorie-tracker/internal/food"
	"calorie-tracker/internal/imagehost"
	"calorie-tracker/internal/llm"
	"calorie-tracker/internal/shared"

	"cloud.google.com/go/civil"
	"go.uber.org/zap"
)

// Status is the pipeline state.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusUploading Status = "uploading"
	StatusAnalyzing Status = "analyzing"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Progress values reported for each stage.
const (
	ProgressUploading = 30
	ProgressAnalyzing = 70
	ProgressCompleted = 100
)

// MaxImageSize is the largest photo accepted, in bytes.
const MaxImageSize = imagehost.MaxImageSize

// DefaultResetDelay is how long progress stays at 100 after completion.
const DefaultResetDelay = time.Second

// Precondition and state errors.
var (
	ErrNoImage      = errors.New("No image selected.")
	ErrTooLarge     = imagehost.ErrTooLarge
	ErrInvalidImage = errors.New("Please select a valid image file.")
	ErrBusy         = errors.New("an analysis is already in progress")
	ErrNothingToAdd = errors.New("no detected items to add")
	ErrNoSuchItem   = errors.New("no detected item at that position")
	ErrStale        = errors.New("the detected items have changed since this was shown")
)

// Image is the photo handed to the pipeline.
type Image = imagehost.Image

// Adder persists promoted entries. tracker.Tracker satisfies it.
type Adder interface {
	AddBatch(ctx context.Context, entries []food.Entry) ([]food.Entry, error)
}

// Snapshot is a point-in-time copy of the pipeline state.
type Snapshot struct {
	Status   Status
	Progress int
	Items    []DetectedItem
	Error    string
	ImageURL string
	// Revision changes whenever Items changes.
	Revision uint64
}

// Pipeline is a single-slot analyzer: one photo at a time.
type Pipeline struct {
	uploader      imagehost.Uploader
	vision        llm.VisionGenerator
	visionService string
	recorder      shared.CallRecorder
	logger        *zap.Logger
	resetDelay    time.Duration

	mu         sync.Mutex
	status     Status
	progress   int
	items      []DetectedItem
	errMsg     string
	imageURL   string
	generation uint64
	revision   uint64
	resetTimer *time.Timer
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithResetDelay changes how long progress stays at 100.
func WithResetDelay(d time.Duration) Option {
	return func(p *Pipeline) { p.resetDelay = d }
}

// WithRecorder reports every external call.
func WithRecorder(r shared.CallRecorder) Option {
	return func(p *Pipeline) {
		if r != nil {
			p.recorder = r
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithVisionService names the vision provider in metrics. Defaults to "groq".
func WithVisionService(name string) Option {
	return func(p *Pipeline) { p.visionService = name }
}

// New creates an idle pipeline.
func New(uploader imagehost.Uploader, vision llm.VisionGenerator, opts ...Option) *Pipeline {
	p := &Pipeline{
		uploader:      uploader,
		vision:        vision,
		visionService: "groq",
		recorder:      shared.NopRecorder{},
		logger:        zap.NewNop(),
		resetDelay:    DefaultResetDelay,
		status:        StatusIdle,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Validate checks an image before any network call.
func Validate(img Image) error {
	if len(img.Data) == 0 {
		return ErrNoImage
	}
	if img.Size() > MaxImageSize {
		return ErrTooLarge
	}
	if !strings.HasPrefix(strings.ToLower(img.ContentType), "image/") {
		return ErrInvalidImage
	}
	return nil
}

// Analyze uploads the image, asks the vision model about it and stores the
// detected items. On failure the pipeline moves to Failed and the returned
// error text is the user-facing message; calling Analyze again retries.
func (p *Pipeline) Analyze(ctx context.Context, img Image) ([]DetectedItem, error) {
	p.mu.Lock()
	if p.busyLocked() {
		p.mu.Unlock()
		return nil, ErrBusy
	}
	p.generation++
	gen := p.generation
	p.stopTimerLocked()
	p.items = nil
	p.revision++
	p.imageURL = ""
	p.errMsg = ""

	if err := Validate(img); err != nil {
		p.failLocked(err.Error())
		p.mu.Unlock()
		return nil, err
	}
	p.setLocked(StatusUploading, ProgressUploading)
	p.mu.Unlock()

	p.logger.Info("starting image analysis",
		zap.String("file_name", img.Name),
		zap.Int64("file_size", img.Size()),
		zap.String("file_type", img.ContentType))

	start := time.Now()
	url, err := p.uploader.Upload(ctx, img)
	p.recorder.RecordCall(shared.CallMeta{Service: p.uploader.Service(), Latency: time.Since(start), Err: err})
	if err != nil {
		p.logger.Warn("image upload failed", zap.Error(err))
		return nil, p.fail(gen, err)
	}

	p.mu.Lock()
	p.imageURL = url
	p.setLocked(StatusAnalyzing, ProgressAnalyzing)
	p.mu.Unlock()

	start = time.Now()
	resp, err := p.vision.AnalyzeImage(ctx, Instruction, url)
	p.recorder.RecordCall(shared.CallMeta{Service: p.visionService, Usage: resp.Usage, Latency: time.Since(start), Err: err})
	if err != nil {
		p.logger.Warn("image analysis failed", zap.Error(err))
		return nil, p.fail(gen, analysisError(err))
	}

	items, err := ParseItems(resp.Content)
	if err != nil {
		p.logger.Warn("vision response was not valid JSON", zap.Error(err), zap.String("content", resp.Content))
		return nil, p.fail(gen, analysisError(err))
	}

	p.mu.Lock()
	p.items = items
	p.revision++
	p.setLocked(StatusCompleted, ProgressCompleted)
	p.scheduleProgressResetLocked(gen)
	p.mu.Unlock()

	p.logger.Info("image analysis completed", zap.Int("items", len(items)))
	return cloneItems(items), nil
}

// AnalysisError wraps a vision-stage failure with the message shown to users.
type AnalysisError struct {
	Reason string
	Err    error
}

func (e *AnalysisError) Error() string {
	return "AI analysis failed: " + e.Reason
}

func (e *AnalysisError) Unwrap() error {
	return e.Err
}

func analysisError(err error) error {
	var statusErr *llm.StatusError
	switch {
	case errors.Is(err, ErrUnparsable):
		return &AnalysisError{Reason: "Failed to parse AI response", Err: err}
	case errors.Is(err, llm.ErrNoContent):
		return &AnalysisError{Reason: "Invalid response from AI service", Err: err}
	case errors.As(err, &statusErr):
		return &AnalysisError{
			Reason: fmt.Sprintf("Failed to analyze image: %d %s", statusErr.StatusCode, http.StatusText(statusErr.StatusCode)),
			Err:    err,
		}
	default:
		return &AnalysisError{Reason: err.Error(), Err: err}
	}
}

// AddAll promotes every detected item in one batch and returns the pipeline to Idle.
func (p *Pipeline) AddAll(ctx context.Context, adder Adder, meal food.MealType, date civil.Date) ([]food.Entry, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.addAllLocked(ctx, adder, meal, date)
}

// ConfirmAll is AddAll for a list the user saw at the given revision. It
// returns ErrStale if the list has changed since.
func (p *Pipeline) ConfirmAll(ctx context.Context, adder Adder, revision uint64, meal food.MealType, date civil.Date) ([]food.Entry, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if revision != p.revision {
		return nil, ErrStale
	}
	return p.addAllLocked(ctx, adder, meal, date)
}

func (p *Pipeline) addAllLocked(ctx context.Context, adder Adder, meal food.MealType, date civil.Date) ([]food.Entry, error) {
	if p.status != StatusCompleted || len(p.items) == 0 {
		return nil, ErrNothingToAdd
	}
	entries := make([]food.Entry, 0, len(p.items))
	for _, item := range p.items {
		entries = append(entries, Promote(item, meal, date))
	}
	added, err := adder.AddBatch(ctx, entries)
	if err != nil {
		return nil, fmt.Errorf("failed to add detected items: %w", err)
	}
	p.resetLocked()
	return added, nil
}

// AddItem promotes the item at index and removes it from the detected list.
// The pipeline returns to Idle once the list is empty.
func (p *Pipeline) AddItem(ctx context.Context, adder Adder, index int, meal food.MealType, date civil.Date) (food.Entry, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.addItemLocked(ctx, adder, index, meal, date)
}

// ConfirmItem is AddItem for a position in the list the user saw at the
// given revision. Positions shift after every add, so a repeated or late
// confirmation returns ErrStale instead of adding a different item.
func (p *Pipeline) ConfirmItem(ctx context.Context, adder Adder, revision uint64, index int, meal food.MealType, date civil.Date) (food.Entry, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if revision != p.revision {
		return food.Entry{}, ErrStale
	}
	return p.addItemLocked(ctx, adder, index, meal, date)
}

func (p *Pipeline) addItemLocked(ctx context.Context, adder Adder, index int, meal food.MealType, date civil.Date) (food.Entry, error) {
	if p.status != StatusCompleted {
		return food.Entry{}, ErrNothingToAdd
	}
	if index < 0 || index >= len(p.items) {
		return food.Entry{}, ErrNoSuchItem
	}
	added, err := adder.AddBatch(ctx, []food.Entry{Promote(p.items[index], meal, date)})
	if err != nil {
		return food.Entry{}, fmt.Errorf("failed to add detected item: %w", err)
	}
	p.items = append(p.items[:index:index], p.items[index+1:]...)
	p.revision++
	if len(p.items) == 0 {
		p.resetLocked()
	}
	return added[0], nil
}

// Reset discards detected items and returns to Idle. It fails while a
// request is in flight.
func (p *Pipeline) Reset() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.discardLocked()
}

// Discard is Reset for a list the user saw at the given revision.
func (p *Pipeline) Discard(revision uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if revision != p.revision {
		return ErrStale
	}
	return p.discardLocked()
}

func (p *Pipeline) discardLocked() error {
	if p.busyLocked() {
		return ErrBusy
	}
	p.generation++
	p.resetLocked()
	return nil
}

// Snapshot returns a copy of the current state.
func (p *Pipeline) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Snapshot{
		Status:   p.status,
		Progress: p.progress,
		Items:    cloneItems(p.items),
		Error:    p.errMsg,
		ImageURL: p.imageURL,
		Revision: p.revision,
	}
}

// Status returns the current state.
func (p *Pipeline) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

func (p *Pipeline) busyLocked() bool {
	return p.status == StatusUploading || p.status == StatusAnalyzing
}

func (p *Pipeline) setLocked(s Status, progress int) {
	p.status = s
	p.progress = progress
}

func (p *Pipeline) fail(gen uint64, err error) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if gen == p.generation {
		p.failLocked(err.Error())
	}
	return err
}

func (p *Pipeline) failLocked(msg string) {
	p.items = nil
	p.errMsg = msg
	p.setLocked(StatusFailed, 0)
}

func (p *Pipeline) resetLocked() {
	p.stopTimerLocked()
	p.items = nil
	p.revision++
	p.errMsg = ""
	p.imageURL = ""
	p.setLocked(StatusIdle, 0)
}

func (p *Pipeline) scheduleProgressResetLocked(gen uint64) {
	p.resetTimer = time.AfterFunc(p.resetDelay, func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.generation == gen && p.status == StatusCompleted {
			p.progress = 0
		}
	})
}

func (p *Pipeline) stopTimerLocked() {
	if p.resetTimer != nil {
		p.resetTimer.Stop()
		p.resetTimer = nil
	}
}

func cloneItems(items []DetectedItem) []DetectedItem {
	if items == nil {
		return nil
	}
	out := make([]DetectedItem, len(items))
	copy(out, items)
	return out
}
