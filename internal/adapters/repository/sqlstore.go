package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/okian/modelrank/internal/domain/model"
	"github.com/okian/modelrank/pkg/metrics"
)

// Default contention-handling configuration.
const (
	defaultMaxRetries   = 3
	defaultRetryBackoff = 100 * time.Millisecond
	defaultBusyTimeout  = 5 * time.Second
)

// SQLStore implements Store on SQLite through gorm. One process is the
// single writer; a second writer attempting to commit concurrently is
// absorbed by the busy timeout plus a short bounded retry.
type SQLStore struct {
	db           *gorm.DB
	maxRetries   int
	retryBackoff time.Duration
	busyTimeout  time.Duration
}

// NewSQLStore opens (creating if needed) the SQLite database at path and
// migrates the tracker schema.
func NewSQLStore(path string, opts ...Option) (*SQLStore, error) {
	s := &SQLStore{
		maxRetries:   defaultMaxRetries,
		retryBackoff: defaultRetryBackoff,
		busyTimeout:  defaultBusyTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}

	db, err := gorm.Open(sqlite.Open(s.dsn(path)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}

	if err := db.AutoMigrate(&model.Record{}, &model.Snapshot{}, &model.Event{}); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	s.db = db
	return s, nil
}

// dsn appends WAL journaling, foreign-key enforcement, and the busy
// timeout to the file path.
func (s *SQLStore) dsn(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%s_journal_mode=WAL&_busy_timeout=%d&_foreign_keys=on",
		path, sep, s.busyTimeout.Milliseconds())
}

// Close releases the underlying database handle.
func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("underlying db handle: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// isBusy reports whether the error is transient SQLite write contention.
func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database is busy")
}

// isIntegrity reports a uniqueness or foreign-key violation.
func isIntegrity(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "foreign key constraint")
}

// withWriteRetry runs fn, retrying busy failures with a linearly growing
// delay. Integrity violations are never retried.
func (s *SQLStore) withWriteRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		err = fn()
		switch {
		case err == nil:
			return nil
		case isIntegrity(err):
			return fmt.Errorf("%w: %w", ErrIntegrity, err)
		case !isBusy(err):
			return err
		}

		if attempt == s.maxRetries {
			break
		}
		metrics.RecordStoreRetry()
		select {
		case <-ctx.Done():
			return fmt.Errorf("store write cancelled: %w", ctx.Err())
		case <-time.After(s.retryBackoff * time.Duration(attempt)):
		}
	}
	return fmt.Errorf("%w after %d attempts: %w", ErrBusy, s.maxRetries, err)
}

// upsertModelTx performs the insert-or-update inside tx and appends the
// "new" audit row on a first-ever sighting.
func upsertModelTx(tx *gorm.DB, rec model.Record) error {
	var existing model.Record
	err := tx.Select("id").Where("id = ?", rec.ID).First(&existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		if err := tx.Create(&rec).Error; err != nil {
			return fmt.Errorf("insert model %s: %w", rec.ID, err)
		}
		event := model.Event{
			ModelID: rec.ID,
			Event:   model.EventNew,
			Details: "New model added: " + rec.Name,
		}
		if err := tx.Create(&event).Error; err != nil {
			return fmt.Errorf("record new-model event for %s: %w", rec.ID, err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("lookup model %s: %w", rec.ID, err)
	}

	// id and created_at are immutable; everything else refreshes.
	updates := map[string]interface{}{
		"name":           rec.Name,
		"provider":       rec.Provider,
		"context_length": rec.ContextLength,
		"description":    rec.Description,
		"updated_at":     time.Now(),
	}
	if err := tx.Model(&model.Record{}).Where("id = ?", rec.ID).Updates(updates).Error; err != nil {
		return fmt.Errorf("update model %s: %w", rec.ID, err)
	}
	return nil
}

// replaceSnapshotsTx writes the snapshot rows inside tx, replacing any
// existing (model_id, date) rows.
func replaceSnapshotsTx(tx *gorm.DB, snaps []model.Snapshot) error {
	if len(snaps) == 0 {
		return nil
	}
	err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "model_id"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"rank", "rank_score", "prompt_price", "completion_price",
		}),
	}).Create(&snaps).Error
	if err != nil {
		return fmt.Errorf("replace snapshots: %w", err)
	}
	return nil
}

// UpsertModel inserts or updates one model by id.
func (s *SQLStore) UpsertModel(ctx context.Context, rec model.Record) error {
	return s.withWriteRetry(ctx, func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return upsertModelTx(tx, rec)
		})
	})
}

// ReplaceSnapshots replaces any existing rows for the given pairs.
func (s *SQLStore) ReplaceSnapshots(ctx context.Context, snaps []model.Snapshot) error {
	return s.withWriteRetry(ctx, func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return replaceSnapshotsTx(tx, snaps)
		})
	})
}

// CommitCycle persists one cycle's model upserts and snapshot replacement
// in a single transaction. The transaction rolls back on any failure, so a
// reader observes either the pre- or post-commit state, never a partial
// date.
func (s *SQLStore) CommitCycle(ctx context.Context, records []model.Record, snaps []model.Snapshot) error {
	return s.withWriteRetry(ctx, func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			for _, rec := range records {
				if err := upsertModelTx(tx, rec); err != nil {
					return err
				}
			}
			return replaceSnapshotsTx(tx, snaps)
		})
	})
}

// LatestRankingAtOrBefore returns model id -> rank for the most recent
// snapshot date at or before the threshold.
func (s *SQLStore) LatestRankingAtOrBefore(ctx context.Context, thresholdDate string) (map[string]int, error) {
	var maxDate sql.NullString
	err := s.db.WithContext(ctx).
		Model(&model.Snapshot{}).
		Select("MAX(date)").
		Where("date <= ?", thresholdDate).
		Scan(&maxDate).Error
	if err != nil {
		return nil, fmt.Errorf("latest snapshot date before %s: %w", thresholdDate, err)
	}
	if !maxDate.Valid || maxDate.String == "" {
		// No history yet is a valid, common state.
		return map[string]int{}, nil
	}

	var rows []model.Snapshot
	err = s.db.WithContext(ctx).
		Select("model_id", "rank").
		Where("date = ?", maxDate.String).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("rankings for %s: %w", maxDate.String, err)
	}

	ranking := make(map[string]int, len(rows))
	for _, row := range rows {
		ranking[row.ModelID] = row.Rank
	}
	return ranking, nil
}

// topRow is the flat join shape scanned from TopByScore's query.
type topRow struct {
	ID              string
	Name            string
	Provider        string
	ContextLength   int
	Description     string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	Rank            int
	RankScore       float64
	PromptPrice     float64
	CompletionPrice float64
}

// TopByScore returns the date's snapshots joined to model metadata,
// ascending by rank.
func (s *SQLStore) TopByScore(ctx context.Context, date string, limit int) ([]model.RankedModel, error) {
	var rows []topRow
	err := s.db.WithContext(ctx).
		Table("daily_stats").
		Select("models.*, daily_stats.rank, daily_stats.rank_score, daily_stats.prompt_price, daily_stats.completion_price").
		Joins("JOIN models ON models.id = daily_stats.model_id").
		Where("daily_stats.date = ?", date).
		Order("daily_stats.rank ASC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("top models for %s: %w", date, err)
	}

	top := make([]model.RankedModel, len(rows))
	for i, row := range rows {
		top[i] = model.RankedModel{
			Record: model.Record{
				ID:            row.ID,
				Name:          row.Name,
				Provider:      row.Provider,
				ContextLength: row.ContextLength,
				Description:   row.Description,
				CreatedAt:     row.CreatedAt,
				UpdatedAt:     row.UpdatedAt,
			},
			Rank:            row.Rank,
			RankScore:       row.RankScore,
			PromptPrice:     row.PromptPrice,
			CompletionPrice: row.CompletionPrice,
		}
	}
	return top, nil
}

// AllModelIDs returns the set of every known model id.
func (s *SQLStore) AllModelIDs(ctx context.Context) (map[string]struct{}, error) {
	var ids []string
	err := s.db.WithContext(ctx).
		Model(&model.Record{}).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("list model ids: %w", err)
	}

	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}

// DetectNew returns candidate ids absent from the store, preserving the
// candidates' order.
func (s *SQLStore) DetectNew(ctx context.Context, candidateIDs []string) ([]string, error) {
	existing, err := s.AllModelIDs(ctx)
	if err != nil {
		return nil, err
	}

	var fresh []string
	for _, id := range candidateIDs {
		if _, ok := existing[id]; !ok {
			fresh = append(fresh, id)
		}
	}
	return fresh, nil
}

// RecentEvents returns the newest audit rows, newest first.
func (s *SQLStore) RecentEvents(ctx context.Context, limit int) ([]model.Event, error) {
	var events []model.Event
	err := s.db.WithContext(ctx).
		Order("id DESC").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("recent events: %w", err)
	}
	return events, nil
}

// CountModels returns the number of distinct models tracked.
func (s *SQLStore) CountModels(ctx context.Context) (int, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&model.Record{}).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count models: %w", err)
	}
	return int(count), nil
}
