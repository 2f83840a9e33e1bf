// Package repository defines the snapshot store interface and errors.
package repository

import (
	"context"

	"github.com/okian/modelrank/internal/domain/model"
)

// Store provides durable keyed storage for model metadata and per-day
// ranked statistics.
type Store interface {
	// UpsertModel inserts or updates a model by id. created_at is set once
	// on first insert and never changes; updated_at refreshes on every
	// call. The first-ever sighting of an id appends one "new" history row.
	UpsertModel(ctx context.Context, rec model.Record) error

	// ReplaceSnapshots replaces any existing row for each (model_id, date)
	// pair. Re-running the same date never errors and never duplicates.
	ReplaceSnapshots(ctx context.Context, snaps []model.Snapshot) error

	// CommitCycle persists one ingestion cycle's model upserts and
	// snapshot replacement atomically: either all writes land or none do.
	CommitCycle(ctx context.Context, records []model.Record, snaps []model.Snapshot) error

	// LatestRankingAtOrBefore finds the most recent snapshot date at or
	// before the threshold and returns every (model_id, rank) pair for
	// that single date. No history yet yields an empty mapping, not an
	// error.
	LatestRankingAtOrBefore(ctx context.Context, thresholdDate string) (map[string]int, error)

	// TopByScore returns the date's snapshots joined to model metadata,
	// ascending by rank, truncated to limit.
	TopByScore(ctx context.Context, date string, limit int) ([]model.RankedModel, error)

	// AllModelIDs returns the set of every known model id.
	AllModelIDs(ctx context.Context) (map[string]struct{}, error)

	// DetectNew returns the candidate ids not yet present in the store.
	DetectNew(ctx context.Context, candidateIDs []string) ([]string, error)

	// RecentEvents returns the newest audit rows, newest first.
	RecentEvents(ctx context.Context, limit int) ([]model.Event, error)

	// CountModels returns the number of distinct models tracked.
	CountModels(ctx context.Context) (int, error)

	// Close releases the underlying database handle.
	Close() error
}
