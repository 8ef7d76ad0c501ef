// Package app wires configuration, storage, the tracker and the external
// clients into one object shared by the CLI and the Telegram bot.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"calorie-tracker/internal/advisor"
	"calorie-tracker/internal/config"
	"calorie-tracker/internal/database"
	"calorie-tracker/internal/imagehost"
	"calorie-tracker/internal/llm"
	"calorie-tracker/internal/logging"
	"calorie-tracker/internal/metrics"
	"calorie-tracker/internal/recognition"
	"calorie-tracker/internal/storage"
	"calorie-tracker/internal/tracker"

	"go.uber.org/zap"
)

// App holds the application's dependencies.
type App struct {
	cfg    *config.Config
	logger *zap.Logger

	db           *database.DB
	store        storage.Store
	tracker      *tracker.Tracker
	metricsStore *metrics.Store
	recorder     *metrics.Recorder

	mu          sync.Mutex
	textGen     llm.TextGenerator
	chatService string
	uploader    imagehost.Uploader
	vision      llm.VisionGenerator
	closers     []llm.Closer
}

// Option overrides a dependency, mostly for tests.
type Option func(*App)

// WithTextGenerator replaces the chat provider client.
func WithTextGenerator(gen llm.TextGenerator, service string) Option {
	return func(a *App) {
		a.textGen = gen
		a.chatService = service
	}
}

// WithVision replaces the image host and the vision client.
func WithVision(uploader imagehost.Uploader, vision llm.VisionGenerator) Option {
	return func(a *App) {
		a.uploader = uploader
		a.vision = vision
	}
}

// New opens the database, selects the ledger backend and loads the tracker.
// API clients are created on first use so commands that never call them need
// no credentials.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	logger = logging.OrNop(logger)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	db, err := database.NewDB(cfg.DatabasePath, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	a := &App{
		cfg:          cfg,
		logger:       logger,
		db:           db,
		metricsStore: metrics.NewStore(db.SQL),
	}
	a.recorder = metrics.NewRecorder(a.metricsStore, logger.Named("metrics"))

	switch cfg.StoreBackend {
	case config.BackendFile:
		fs, err := storage.NewFileStore(cfg.DataDir)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to initialize file store: %w", err)
		}
		a.store = fs
	default:
		a.store = database.NewKVStore(db.SQL)
	}

	for _, opt := range opts {
		opt(a)
	}

	a.tracker = tracker.New(a.store,
		tracker.WithLogger(logger.Named("tracker")),
		tracker.WithDefaultGoal(cfg.DefaultGoal),
	)
	a.tracker.Load(ctx)

	logger.Info("application initialized",
		zap.String("store_backend", cfg.StoreBackend),
		zap.String("database", cfg.DatabasePath),
		zap.Int("entries", len(a.tracker.Entries())),
		zap.Int("goal", a.tracker.Goal()))
	return a, nil
}

// Config returns the loaded configuration.
func (a *App) Config() *config.Config { return a.cfg }

// Tracker returns the ledger.
func (a *App) Tracker() *tracker.Tracker { return a.tracker }

// Recorder returns the external-call recorder.
func (a *App) Recorder() *metrics.Recorder { return a.recorder }

// Store returns the active ledger store.
func (a *App) Store() storage.Store { return a.store }

// DataPath is the path whose size is reported by the health check.
func (a *App) DataPath() string {
	if a.cfg.StoreBackend == config.BackendFile {
		return a.cfg.DataDir
	}
	return a.cfg.DatabasePath
}

// Advisor returns a nutrition assistant bound to the configured chat provider.
func (a *App) Advisor(ctx context.Context) (*advisor.Advisor, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.textGen == nil {
		if err := a.cfg.RequireChat(); err != nil {
			return nil, err
		}
		switch a.cfg.ChatProvider {
		case config.ProviderGroq:
			a.textGen = llm.NewGroqClient(a.cfg)
		default:
			gemini, err := llm.NewGeminiClient(ctx, a.cfg)
			if err != nil {
				return nil, fmt.Errorf("failed to initialize Gemini client: %w", err)
			}
			a.textGen = gemini
			a.closers = append(a.closers, gemini)
		}
		a.chatService = a.cfg.ChatProvider
	}
	return advisor.New(a.textGen, a.chatService, a.recorder, a.logger.Named("advisor")), nil
}

// NewPipeline returns a fresh image recognition pipeline. Each caller
// (one CLI run, one Telegram chat) owns its own pipeline.
func (a *App) NewPipeline(ctx context.Context) (*recognition.Pipeline, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.uploader == nil || a.vision == nil {
		if err := a.cfg.RequireVision(); err != nil {
			return nil, err
		}
		uploader, err := a.newUploader(ctx)
		if err != nil {
			return nil, err
		}
		a.uploader = uploader
		a.vision = llm.NewGroqClient(a.cfg)
	}
	return recognition.New(a.uploader, a.vision,
		recognition.WithRecorder(a.recorder),
		recognition.WithLogger(a.logger.Named("recognition")),
	), nil
}

func (a *App) newUploader(ctx context.Context) (imagehost.Uploader, error) {
	if a.cfg.ImageHost == config.HostS3 {
		host, err := imagehost.NewS3HostFromEnv(ctx, a.cfg.S3Region, a.cfg.S3Bucket, a.cfg.S3Prefix, a.cfg.S3PublicURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize S3 image host: %w", err)
		}
		return host, nil
	}
	return imagehost.NewImgBB(a.cfg.ImgBBAPIKey, a.cfg.ImgBBURL, a.cfg.HTTPTimeout), nil
}

// Snapshot captures the figures sent to the assistant with each question.
func (a *App) Snapshot() advisor.Snapshot {
	return advisor.NewSnapshot(a.tracker.Stats(), a.tracker.Recent(advisor.RecentLimit))
}

// Ask answers one question using the current snapshot.
func (a *App) Ask(ctx context.Context, question string) (string, error) {
	adv, err := a.Advisor(ctx)
	if err != nil {
		return "", err
	}
	return adv.Ask(ctx, question, a.Snapshot()), nil
}

// Usage returns persisted external-call totals for the last days.
func (a *App) Usage(ctx context.Context, days int) ([]metrics.DailyUsage, error) {
	return a.metricsStore.GetDailyUsage(ctx, days)
}

// CleanupMetrics removes call records older than days.
func (a *App) CleanupMetrics(ctx context.Context, days int) (int64, error) {
	if days < 0 {
		return 0, fmt.Errorf("days must not be negative, got %d", days)
	}
	return a.metricsStore.Cleanup(ctx, days)
}

// Close releases API clients and the database.
func (a *App) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	a.closers = nil
	if a.db != nil {
		errs = append(errs, a.db.Close())
		a.db = nil
	}
	return errors.Join(errs...)
}
