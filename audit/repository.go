package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UsageEntry is one routed completion in the usage ledger
type UsageEntry struct {
	ID            uuid.UUID `json:"id"`
	Timestamp     time.Time `json:"timestamp"`
	TaskCategory  string    `json:"task_category"`
	ModelID       string    `json:"model_id"`
	BackendFamily string    `json:"backend_family"`
	Tier          int       `json:"tier"`
	InputTokens   int       `json:"input_tokens"`
	OutputTokens  int       `json:"output_tokens"`
	CostUSD       float64   `json:"cost_usd"`
	LatencyMs     int       `json:"latency_ms"`
}

// UsageRepository writes and reads usage ledger rows
type UsageRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewUsageRepository creates a usage repository over an open connection pool
func NewUsageRepository(db *sql.DB, logger *zap.Logger) *UsageRepository {
	return &UsageRepository{
		db:     db,
		logger: logger,
	}
}

// Insert records one routed completion. A zero ID or Timestamp is filled in.
func (r *UsageRepository) Insert(ctx context.Context, entry *UsageEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	query := `
		INSERT INTO usage_ledger (
			id, timestamp, task_category, model_id, backend_family,
			tier, input_tokens, output_tokens, cost_usd, latency_ms
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.ExecContext(ctx, query,
		entry.ID,
		entry.Timestamp,
		entry.TaskCategory,
		entry.ModelID,
		entry.BackendFamily,
		entry.Tier,
		entry.InputTokens,
		entry.OutputTokens,
		entry.CostUSD,
		entry.LatencyMs,
	)
	if err != nil {
		return fmt.Errorf("failed to insert usage entry: %w", err)
	}

	r.logger.Debug("usage entry inserted",
		zap.String("id", entry.ID.String()),
		zap.String("model_id", entry.ModelID))
	return nil
}

// ListRecent returns the most recent ledger rows, newest first
func (r *UsageRepository) ListRecent(ctx context.Context, limit int) ([]*UsageEntry, error) {
	query := `
		SELECT id, timestamp, task_category, model_id, backend_family,
		       tier, input_tokens, output_tokens, cost_usd, latency_ms
		FROM usage_ledger
		ORDER BY timestamp DESC
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list usage entries: %w", err)
	}
	defer rows.Close()

	var entries []*UsageEntry
	for rows.Next() {
		entry := &UsageEntry{}
		if err := rows.Scan(
			&entry.ID,
			&entry.Timestamp,
			&entry.TaskCategory,
			&entry.ModelID,
			&entry.BackendFamily,
			&entry.Tier,
			&entry.InputTokens,
			&entry.OutputTokens,
			&entry.CostUSD,
			&entry.LatencyMs,
		); err != nil {
			return nil, fmt.Errorf("failed to scan usage entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate usage entries: %w", err)
	}

	return entries, nil
}

// TotalCostSince sums ledger cost recorded at or after the given time
func (r *UsageRepository) TotalCostSince(ctx context.Context, since time.Time) (float64, error) {
	query := `
		SELECT COALESCE(SUM(cost_usd), 0)
		FROM usage_ledger
		WHERE timestamp >= $1
	`

	var total float64
	if err := r.db.QueryRowContext(ctx, query, since).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to sum usage cost: %w", err)
	}
	return total, nil
}
