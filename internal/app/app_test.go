package app

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"calorie-tracker/internal/config"
	"calorie-tracker/internal/food"
	"calorie-tracker/internal/imagehost"
	"calorie-tracker/internal/llm"
	"calorie-tracker/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T, backend string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		ChatProvider: config.ProviderGemini,
		ImageHost:    config.HostImgBB,
		StoreBackend: backend,
		DataDir:      filepath.Join(dir, "data"),
		DatabasePath: filepath.Join(dir, "data", "calorie-tracker.db"),
		DefaultGoal:  2000,
		DefaultMeal:  food.Lunch,
		HTTPTimeout:  time.Second,
		LogLevel:     "info",
		LogFormat:    "console",
	}
}

func newTestApp(t *testing.T, cfg *config.Config, opts ...Option) *App {
	t.Helper()
	a, err := New(context.Background(), cfg, nil, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

type mockTextGenerator struct {
	content string
	prompts []string
}

func (m *mockTextGenerator) GenerateContent(ctx context.Context, prompt string) (llm.ContentResponse, error) {
	m.prompts = append(m.prompts, prompt)
	return llm.ContentResponse{Content: m.content}, nil
}

type mockUploader struct{}

func (mockUploader) Upload(ctx context.Context, img imagehost.Image) (string, error) {
	return "https://img.example/x.jpg", nil
}

func (mockUploader) Service() string { return "imgbb" }

type mockVision struct{ content string }

func (m mockVision) AnalyzeImage(ctx context.Context, instruction, imageURL string) (llm.ContentResponse, error) {
	return llm.ContentResponse{Content: m.content}, nil
}

func TestNew(t *testing.T) {
	for _, backend := range []string{config.BackendSQLite, config.BackendFile} {
		t.Run(backend, func(t *testing.T) {
			ctx := context.Background()
			cfg := testConfig(t, backend)

			a := newTestApp(t, cfg)
			day := a.Tracker().Today()
			_, err := a.Tracker().Add(ctx, food.Entry{Name: "Apple", Calories: 95, Quantity: 1, Meal: food.Snack, Date: day})
			require.NoError(t, err)
			require.NoError(t, a.Tracker().SetGoal(ctx, 1800))
			require.NoError(t, a.Close())

			reopened := newTestApp(t, cfg)
			assert.Len(t, reopened.Tracker().Entries(), 1)
			assert.Equal(t, 1800, reopened.Tracker().Goal())
		})
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := testConfig(t, "postgres")
	_, err := New(context.Background(), cfg, nil)
	assert.Error(t, err)
}

func TestAdvisorRequiresCredentials(t *testing.T) {
	a := newTestApp(t, testConfig(t, config.BackendFile))

	_, err := a.Ask(context.Background(), "hi")
	require.Error(t, err)
	assert.Equal(t, "GEMINI_API_KEY environment variable not set", err.Error())

	_, err = a.NewPipeline(context.Background())
	require.Error(t, err)
	assert.Equal(t, "GROQ_API_KEY environment variable not set", err.Error())
}

func TestAsk(t *testing.T) {
	ctx := context.Background()
	gen := &mockTextGenerator{content: "Have some fruit."}
	a := newTestApp(t, testConfig(t, config.BackendSQLite), WithTextGenerator(gen, "gemini"))
	_, err := a.Tracker().Add(ctx, food.Entry{Name: "Egg", Calories: 70, Quantity: 2, Meal: food.Breakfast, Date: a.Tracker().Today()})
	require.NoError(t, err)

	reply, err := a.Ask(ctx, "What next?")
	require.NoError(t, err)
	assert.Equal(t, "Have some fruit.", reply)
	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "Today's calories consumed: 140")
	assert.Contains(t, gen.prompts[0], "Egg (140 cal)")

	usage, err := a.Usage(ctx, 1)
	require.NoError(t, err)
	require.Len(t, usage, 1)
	assert.Equal(t, "gemini", usage[0].Service)

	snap := a.Snapshot()
	assert.Equal(t, 2000, snap.Goal)
	assert.Len(t, snap.RecentEntries, 1)
}

func TestPipelineAddsToLedger(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t, testConfig(t, config.BackendSQLite),
		WithVision(mockUploader{}, mockVision{content: `{"items":[{"item_name":"Banana","total_calories":105.4}]}`}))

	p, err := a.NewPipeline(ctx)
	require.NoError(t, err)

	img := imagehost.Image{Name: "b.jpg", ContentType: "image/jpeg", Data: []byte{0xff, 0xd8, 0xff}}
	_, err = p.Analyze(ctx, img)
	require.NoError(t, err)

	added, err := p.AddAll(ctx, a.Tracker(), a.Config().DefaultMeal, a.Tracker().Today())
	require.NoError(t, err)
	require.Len(t, added, 1)
	assert.Equal(t, 105.0, a.Tracker().Entries()[0].Calories)
	assert.Equal(t, food.Lunch, a.Tracker().Entries()[0].Meal)

	usage, err := a.Usage(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, usage, 2)
}

func TestMigrateFileStore(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, config.BackendSQLite)

	fs, err := storage.NewFileStore(cfg.DataDir)
	require.NoError(t, err)
	require.NoError(t, fs.Save(ctx, storage.KeyFoods, []byte(`[{"id":1,"name":"Egg","calories":70,"quantity":1,"meal":"breakfast","date":"2024-03-10"}]`)))
	require.NoError(t, fs.Save(ctx, storage.KeyGoal, []byte("1700")))

	a := newTestApp(t, cfg)
	require.Empty(t, a.Tracker().Entries())

	res, err := a.MigrateFileStore(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, []string{storage.KeyFoods, storage.KeyGoal}, res.Keys)
	assert.Len(t, a.Tracker().Entries(), 1)
	assert.Equal(t, 1700, a.Tracker().Goal())

	res, err = a.MigrateFileStore(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, res.Keys)
	assert.Equal(t, []string{storage.KeyFoods, storage.KeyGoal}, res.Skipped)
}

func TestMigrateFileStore_NothingToMigrate(t *testing.T) {
	a := newTestApp(t, testConfig(t, config.BackendSQLite))

	res, err := a.MigrateFileStore(context.Background(), true)
	require.NoError(t, err)
	assert.Empty(t, res.Keys)
	assert.Empty(t, res.Skipped)
}

func TestImportEntries(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t, testConfig(t, config.BackendFile))

	added, err := a.ImportEntries(ctx, strings.NewReader(`[
		{"id":1710000000000,"name":"Apple","calories":95,"quantity":1,"meal":"snack","date":"2024-03-10"},
		{"id":1710000000001,"name":"Chicken Breast (100g)","calories":165,"quantity":2,"meal":"lunch","date":"2024-03-10"}
	]`))
	require.NoError(t, err)
	assert.Len(t, added, 2)
	assert.Equal(t, int64(1710000000000), added[0].ID)

	_, err = a.ImportEntries(ctx, strings.NewReader(`[{"name":"","calories":1,"quantity":1,"meal":"snack","date":"2024-03-10"}]`))
	assert.Error(t, err)
	assert.Len(t, a.Tracker().Entries(), 2)

	_, err = a.ImportEntries(ctx, strings.NewReader(`not json`))
	assert.Error(t, err)
}

func TestCleanupMetrics(t *testing.T) {
	a := newTestApp(t, testConfig(t, config.BackendSQLite))
	_, err := a.CleanupMetrics(context.Background(), -1)
	assert.Error(t, err)

	n, err := a.CleanupMetrics(context.Background(), 30)
	require.NoError(t, err)
	assert.Zero(t, n)
}
