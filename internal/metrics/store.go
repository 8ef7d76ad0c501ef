package metrics

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"calorie-tracker/internal/shared"
)

const timestampLayout = "2006-01-02 15:04:05"

// ExecutionMetric records metadata for a single external call.
type ExecutionMetric struct {
	Service          string
	Model            string
	Outcome          string
	PromptTokens     int
	CompletionTokens int
	LatencyMS        int64
	Timestamp        time.Time
}

// Store handles persistence of metrics to SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore initializes the Store with an existing, migrated database connection.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Record saves a metric to the database.
func (s *Store) Record(ctx context.Context, m ExecutionMetric) error {
	ts := m.Timestamp
	if ts.IsZero() {
		ts = s.now()
	}
	outcome := m.Outcome
	if outcome == "" {
		outcome = "ok"
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO execution_metrics (service, model, outcome, prompt_tokens, completion_tokens, latency_ms, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.Service, m.Model, outcome, m.PromptTokens, m.CompletionTokens, m.LatencyMS, ts.UTC().Format(timestampLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to insert execution metric: %w", err)
	}
	return nil
}

// RecordMeta records a metric directly from shared.CallMeta.
func (s *Store) RecordMeta(ctx context.Context, meta shared.CallMeta) error {
	return s.Record(ctx, MapCall(meta))
}

// DailyUsage represents totals for a single day and service.
type DailyUsage struct {
	Date            string
	Service         string
	TotalPrompt     int
	TotalCompletion int
	TotalCalls      int
	Errors          int
	AvgLatencyMS    int64
}

// GetDailyUsage retrieves usage for the last N days, newest first.
func (s *Store) GetDailyUsage(ctx context.Context, days int) ([]DailyUsage, error) {
	since := s.now().AddDate(0, 0, -days).UTC().Format(timestampLayout)
	rows, err := s.db.QueryContext(ctx,
		`SELECT substr(timestamp, 1, 10) AS day, service,
		        COALESCE(SUM(prompt_tokens), 0), COALESCE(SUM(completion_tokens), 0),
		        COUNT(*), COALESCE(SUM(CASE WHEN outcome = 'error' THEN 1 ELSE 0 END), 0),
		        CAST(COALESCE(AVG(latency_ms), 0) AS INTEGER)
		   FROM execution_metrics
		  WHERE timestamp >= ?
		  GROUP BY day, service
		  ORDER BY day DESC, service ASC`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily usage: %w", err)
	}
	defer rows.Close()

	var results []DailyUsage
	for rows.Next() {
		var u DailyUsage
		if err := rows.Scan(&u.Date, &u.Service, &u.TotalPrompt, &u.TotalCompletion, &u.TotalCalls, &u.Errors, &u.AvgLatencyMS); err != nil {
			return nil, fmt.Errorf("failed to scan daily usage: %w", err)
		}
		results = append(results, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read daily usage: %w", err)
	}
	return results, nil
}

// Cleanup removes records older than the specified number of days and
// returns how many were deleted.
func (s *Store) Cleanup(ctx context.Context, olderThanDays int) (int64, error) {
	threshold := s.now().AddDate(0, 0, -olderThanDays).UTC().Format(timestampLayout)
	res, err := s.db.ExecContext(ctx, `DELETE FROM execution_metrics WHERE timestamp < ?`, threshold)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up execution metrics: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted metrics: %w", err)
	}
	return n, nil
}

// MapCall converts shared.CallMeta to an ExecutionMetric.
func MapCall(meta shared.CallMeta) ExecutionMetric {
	return ExecutionMetric{
		Service:          meta.Service,
		Model:            meta.Usage.Model,
		Outcome:          meta.Outcome(),
		PromptTokens:     meta.Usage.PromptTokens,
		CompletionTokens: meta.Usage.CompletionTokens,
		LatencyMS:        meta.Latency.Milliseconds(),
	}
}
