// Package tracker owns the food ledger and the daily goal.
//
// A Tracker is the single application-state object handed to the CLI and the
// Telegram bot. The storage.Store is its only I/O boundary: state is loaded
// once and the full ledger is rewritten after every mutation.
package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"calorie-tracker/internal/food"
	"calorie-tracker/internal/stats"
	"calorie-tracker/internal/storage"

	"cloud.google.com/go/civil"
	"go.uber.org/zap"
)

// DefaultGoal is used until the user sets a goal.
const DefaultGoal = 2000

// ErrInvalidGoal is returned by SetGoal for non-positive goals.
var ErrInvalidGoal = errors.New("daily goal must be a positive number of calories")

// Tracker holds the ledger and the goal.
type Tracker struct {
	store       storage.Store
	logger      *zap.Logger
	now         func() time.Time
	defaultGoal int

	mu      sync.RWMutex
	entries []food.Entry
	goal    int
	lastID  int64
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock overrides time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// WithLogger sets the logger used for silent fallbacks.
func WithLogger(l *zap.Logger) Option {
	return func(t *Tracker) {
		if l != nil {
			t.logger = l
		}
	}
}

// WithDefaultGoal changes the goal used when none is stored.
func WithDefaultGoal(goal int) Option {
	return func(t *Tracker) {
		if goal > 0 {
			t.defaultGoal = goal
		}
	}
}

// New creates a Tracker with an empty ledger. Call Load to read persisted state.
func New(store storage.Store, opts ...Option) *Tracker {
	t := &Tracker{
		store:       store,
		logger:      zap.NewNop(),
		now:         time.Now,
		defaultGoal: DefaultGoal,
		entries:     []food.Entry{},
	}
	for _, opt := range opts {
		opt(t)
	}
	t.goal = t.defaultGoal
	return t
}

// Load reads the ledger and goal from the store. Missing or unreadable data
// falls back to an empty ledger and the default goal; it is never fatal.
func (t *Tracker) Load(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.entries = []food.Entry{}
	t.goal = t.defaultGoal
	t.lastID = 0

	if data, ok := t.load(ctx, storage.KeyFoods); ok {
		var entries []food.Entry
		if err := json.Unmarshal(data, &entries); err != nil {
			t.logger.Warn("stored ledger is unreadable, starting empty", zap.Error(err))
		} else if entries != nil {
			t.entries = entries
		}
	}
	for _, e := range t.entries {
		if e.ID > t.lastID {
			t.lastID = e.ID
		}
	}

	if data, ok := t.load(ctx, storage.KeyGoal); ok {
		goal, err := strconv.Atoi(strings.Trim(strings.TrimSpace(string(data)), `"`))
		switch {
		case err != nil:
			t.logger.Warn("stored goal is unreadable, using default", zap.Error(err), zap.Int("default", t.defaultGoal))
		case goal <= 0:
			t.logger.Warn("stored goal is not positive, using default", zap.Int("stored", goal), zap.Int("default", t.defaultGoal))
		default:
			t.goal = goal
		}
	}

	t.logger.Debug("tracker loaded", zap.Int("entries", len(t.entries)), zap.Int("goal", t.goal))
}

func (t *Tracker) load(ctx context.Context, key string) ([]byte, bool) {
	data, ok, err := t.store.Load(ctx, key)
	if err != nil {
		t.logger.Warn("failed to load from store", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return data, ok
}

// Today returns the current calendar day in the local time zone.
func (t *Tracker) Today() civil.Date {
	return civil.DateOf(t.now())
}

// Add validates and appends an entry, assigning a unique id when it has none.
// The entry is kept in memory even if persisting fails; the error is returned.
func (t *Tracker) Add(ctx context.Context, e food.Entry) (food.Entry, error) {
	added, err := t.AddBatch(ctx, []food.Entry{e})
	if len(added) == 0 {
		return food.Entry{}, err
	}
	return added[0], err
}

// AddBatch validates every entry first and appends all of them or none.
func (t *Tracker) AddBatch(ctx context.Context, entries []food.Entry) ([]food.Entry, error) {
	entries = append([]food.Entry(nil), entries...)
	for i := range entries {
		entries[i].Name = strings.TrimSpace(entries[i].Name)
		if err := food.Validate(entries[i]); err != nil {
			return nil, err
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	added := make([]food.Entry, 0, len(entries))
	for _, e := range entries {
		if e.ID == 0 || t.hasID(e.ID) {
			e.ID = t.nextID()
		} else if e.ID > t.lastID {
			t.lastID = e.ID
		}
		t.entries = append(t.entries, e)
		added = append(added, e)
	}
	return added, t.saveEntries(ctx)
}

// Remove deletes the entry with the given id. Unknown ids are a no-op.
func (t *Tracker) Remove(ctx context.Context, id int64) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i, e := range t.entries {
		if e.ID == id {
			t.entries = append(t.entries[:i:i], t.entries[i+1:]...)
			return true, t.saveEntries(ctx)
		}
	}
	return false, nil
}

// Entries returns a copy of the ledger in insertion order.
func (t *Tracker) Entries() []food.Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]food.Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// ListForDate returns the entries logged on date, in insertion order.
func (t *Tracker) ListForDate(date civil.Date) []food.Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []food.Entry
	for _, e := range t.entries {
		if e.Date == date {
			out = append(out, e)
		}
	}
	return out
}

// Recent returns up to n of the most recently added entries, oldest first.
func (t *Tracker) Recent(n int) []food.Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if n <= 0 {
		return nil
	}
	start := len(t.entries) - n
	if start < 0 {
		start = 0
	}
	out := make([]food.Entry, len(t.entries)-start)
	copy(out, t.entries[start:])
	return out
}

// Goal returns the daily calorie goal.
func (t *Tracker) Goal() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.goal
}

// SetGoal replaces the goal and persists it immediately.
func (t *Tracker) SetGoal(ctx context.Context, goal int) error {
	if goal <= 0 {
		return ErrInvalidGoal
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.goal = goal
	if err := t.store.Save(ctx, storage.KeyGoal, []byte(strconv.Itoa(goal))); err != nil {
		t.logger.Error("failed to persist goal", zap.Error(err))
		return fmt.Errorf("failed to persist goal: %w", err)
	}
	return nil
}

// Stats recomputes every derived statistic from the current ledger.
func (t *Tracker) Stats() stats.DerivedStats {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return stats.Compute(t.entries, t.goal, t.Today())
}

func (t *Tracker) hasID(id int64) bool {
	for _, e := range t.entries {
		if e.ID == id {
			return true
		}
	}
	return false
}

// nextID uses the creation time in milliseconds, bumped past the last id.
func (t *Tracker) nextID() int64 {
	id := t.now().UnixMilli()
	if id <= t.lastID {
		id = t.lastID + 1
	}
	t.lastID = id
	return id
}

func (t *Tracker) saveEntries(ctx context.Context) error {
	data, err := json.Marshal(t.entries)
	if err != nil {
		return fmt.Errorf("failed to marshal ledger: %w", err)
	}
	if err := t.store.Save(ctx, storage.KeyFoods, data); err != nil {
		t.logger.Error("failed to persist ledger", zap.Error(err))
		return fmt.Errorf("failed to persist ledger: %w", err)
	}
	return nil
}
