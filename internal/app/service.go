// Package service is the ingestion coordinator: it drives one cycle from
// source fetch through parsing, ranking, persistence, and notification,
// and serves read queries for the HTTP API.
package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/okian/modelrank/internal/adapters/repository"
	"github.com/okian/modelrank/internal/domain/delta"
	"github.com/okian/modelrank/internal/domain/extract"
	"github.com/okian/modelrank/internal/domain/model"
	"github.com/okian/modelrank/pkg/logger"
	"github.com/okian/modelrank/pkg/metrics"
)

// Source yields the raw Markdown listing.
type Source interface {
	Fetch(ctx context.Context) (string, error)
}

// Notifier pushes cycle results to an external channel. Delivery failures
// never fail the cycle; the committed snapshot is the source of truth.
type Notifier interface {
	Enabled() bool
	SendTopRankings(ctx context.Context, date string, models []model.RankedModel, prior map[string]int) error
	SendNewModels(ctx context.Context, fresh []model.Record) error
	SendSummary(ctx context.Context, totalModels int, totalScore float64, newCount int) error
}

// CycleStats summarizes the most recent completed cycle.
type CycleStats struct {
	Date        string    `json:"date"`
	CompletedAt time.Time `json:"completed_at"`
	RowsParsed  int       `json:"rows_parsed"`
	RowsSkipped int       `json:"rows_skipped"`
	Strategy    string    `json:"strategy"`
	NewModels   int       `json:"new_models"`
}

// Stats is the read-side aggregate served by the stats endpoint.
type Stats struct {
	TotalModels int         `json:"total_models"`
	LastCycle   *CycleStats `json:"last_cycle,omitempty"`
}

// RankingEntry is one row of a ranking read, carrying movement against
// the prior snapshot.
type RankingEntry struct {
	Model     model.RankedModel
	PriorRank int
	Delta     int
}

// Service coordinates ingestion cycles over its injected dependencies.
type Service struct {
	mu sync.RWMutex

	store    repository.Store
	source   Source
	notifier Notifier
	deltas   *delta.Calculator

	topN int
	now  func() time.Time

	started   bool
	lastCycle *CycleStats

	logger logger.Logger
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		topN: 5,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start validates the wiring and prepares the service for cycles.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Named("service")
	}
	if s.store == nil || s.source == nil {
		return ErrNotConfigured
	}

	s.deltas = delta.New(s.store)
	s.started = true
	s.logger.Info(ctx, "ingestion service started", logger.Int("topN", s.topN))
	return nil
}

// Stop releases the service's resources.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	if err := s.store.Close(); err != nil {
		s.logger.Error(context.Background(), "closing store", logger.Error(err))
	}
	s.started = false
	s.logger.Info(context.Background(), "ingestion service stopped")
}

// cycleOutcome carries one committed cycle's outputs for reporting.
type cycleOutcome struct {
	date     string
	records  []model.Record
	snaps    []model.Snapshot
	freshIDs []string
	prior    map[string]int
}

// RunCycle executes one full ingestion cycle. Persistence is atomic:
// either the whole day's snapshot commits or nothing does. Notification
// failures are logged but do not fail a committed cycle.
func (s *Service) RunCycle(ctx context.Context) error {
	started := s.now()
	log := s.logger.Named("cycle")

	log.Info(ctx, "cycle starting", logger.String("date", started.Format(model.DateFormat)))

	body, err := s.source.Fetch(ctx)
	if err != nil {
		metrics.RecordCycleFailed()
		return fmt.Errorf("fetch source: %w", err)
	}

	outcome, err := s.ingest(ctx, body, started)
	if err != nil {
		return err
	}

	log.Info(ctx, "cycle committed",
		logger.String("date", outcome.date),
		logger.Int("models", len(outcome.records)),
		logger.Int("new", len(outcome.freshIDs)),
	)

	s.notifyCycle(ctx, outcome)
	return nil
}

// Ingest parses and commits one listing for today, returning every
// committed record and the subset seen for the first time. It is the
// fetchless core of RunCycle; nothing is notified.
func (s *Service) Ingest(ctx context.Context, markdown string) ([]model.Record, []model.Record, error) {
	outcome, err := s.ingest(ctx, markdown, s.now())
	if err != nil {
		return nil, nil, err
	}
	return outcome.records, freshRecords(outcome.records, outcome.freshIDs), nil
}

func (s *Service) ingest(ctx context.Context, markdown string, started time.Time) (*cycleOutcome, error) {
	date := started.Format(model.DateFormat)

	result, err := extract.Extract(markdown)
	metrics.RecordRowsParsed(len(result.Candidates))
	metrics.RecordRowsSkipped(result.Skipped)
	if err != nil {
		metrics.RecordCycleFailed()
		return nil, fmt.Errorf("extract listing: %w", err)
	}
	s.logger.Debug(ctx, "listing extracted",
		logger.Int("accepted", len(result.Candidates)),
		logger.Int("skipped", result.Skipped),
		logger.String("strategy", result.Strategy),
	)

	records, snaps := Rank(result.Candidates, date)

	// Prior ranking and the new-model set are read before the commit so
	// today's writes cannot leak into the comparison baseline.
	prior, err := s.deltas.PriorRanks(ctx, started)
	if err != nil {
		metrics.RecordCycleFailed()
		return nil, fmt.Errorf("prior ranking: %w", err)
	}

	ids := make([]string, len(records))
	for i, rec := range records {
		ids[i] = rec.ID
	}
	freshIDs, err := s.store.DetectNew(ctx, ids)
	if err != nil {
		metrics.RecordCycleFailed()
		return nil, fmt.Errorf("detect new models: %w", err)
	}

	if err := s.store.CommitCycle(ctx, records, snaps); err != nil {
		metrics.RecordCycleFailed()
		return nil, fmt.Errorf("commit cycle for %s: %w", date, err)
	}

	metrics.RecordCycleCommitted()
	metrics.RecordCycleDuration(time.Since(started).Seconds())
	metrics.RecordModelsNew(len(freshIDs))
	if total, err := s.store.CountModels(ctx); err == nil {
		metrics.UpdateModelsTracked(total)
	}

	s.mu.Lock()
	s.lastCycle = &CycleStats{
		Date:        date,
		CompletedAt: s.now(),
		RowsParsed:  len(result.Candidates),
		RowsSkipped: result.Skipped,
		Strategy:    result.Strategy,
		NewModels:   len(freshIDs),
	}
	s.mu.Unlock()

	return &cycleOutcome{
		date:     date,
		records:  records,
		snaps:    snaps,
		freshIDs: freshIDs,
		prior:    prior,
	}, nil
}

// freshRecords filters records down to the ids in freshIDs, preserving
// rank order.
func freshRecords(records []model.Record, freshIDs []string) []model.Record {
	freshSet := make(map[string]struct{}, len(freshIDs))
	for _, id := range freshIDs {
		freshSet[id] = struct{}{}
	}
	var fresh []model.Record
	for _, rec := range records {
		if _, ok := freshSet[rec.ID]; ok {
			fresh = append(fresh, rec)
		}
	}
	return fresh
}

// notifyCycle delivers the three cycle embeds; each failure is logged
// and the rest still go out.
func (s *Service) notifyCycle(ctx context.Context, outcome *cycleOutcome) {
	if s.notifier == nil || !s.notifier.Enabled() {
		return
	}
	log := s.logger.Named("notify")

	top, err := s.store.TopByScore(ctx, outcome.date, s.topN)
	if err != nil {
		log.Error(ctx, "reading top ranking for notification", logger.Error(err))
		return
	}
	if err := s.notifier.SendTopRankings(ctx, outcome.date, top, outcome.prior); err != nil {
		log.Error(ctx, "sending rankings notification", logger.Error(err))
	}

	fresh := freshRecords(outcome.records, outcome.freshIDs)
	if err := s.notifier.SendNewModels(ctx, fresh); err != nil {
		log.Error(ctx, "sending new-models notification", logger.Error(err))
	}

	var totalScore float64
	for _, snap := range outcome.snaps {
		totalScore += snap.RankScore
	}
	if err := s.notifier.SendSummary(ctx, len(outcome.records), totalScore, len(fresh)); err != nil {
		log.Error(ctx, "sending summary notification", logger.Error(err))
	}
}

// Rank orders candidates by descending score and materializes the store
// rows for one date. Ties keep their extraction order, so ranking is
// deterministic for a given document.
func Rank(candidates []model.Candidate, date string) ([]model.Record, []model.Snapshot) {
	ordered := append([]model.Candidate(nil), candidates...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].RankScore > ordered[j].RankScore
	})

	records := make([]model.Record, len(ordered))
	snaps := make([]model.Snapshot, len(ordered))
	for i, c := range ordered {
		rank := i + 1
		records[i] = model.Record{
			ID:            c.ID,
			Name:          c.Name,
			Provider:      c.Provider,
			ContextLength: c.ContextLength,
			Description:   c.Description,
		}
		snaps[i] = model.Snapshot{
			ModelID:         c.ID,
			Date:            date,
			Rank:            rank,
			RankScore:       c.RankScore,
			PromptPrice:     c.PromptPrice,
			CompletionPrice: c.CompletionPrice,
		}
	}
	return records, snaps
}

// Rankings reads the ranking for the given date with movement against the
// prior snapshot. An empty date means the effective date: the last committed
// cycle's date, or today when the process has not committed yet.
func (s *Service) Rankings(ctx context.Context, date string, limit int) (string, []RankingEntry, error) {
	if date == "" {
		s.mu.RLock()
		date = s.now().Format(model.DateFormat)
		if s.lastCycle != nil {
			date = s.lastCycle.Date
		}
		s.mu.RUnlock()
	}

	top, err := s.store.TopByScore(ctx, date, limit)
	if err != nil {
		return "", nil, fmt.Errorf("ranking for %s: %w", date, err)
	}

	ref, err := time.Parse(model.DateFormat, date)
	if err != nil {
		return "", nil, fmt.Errorf("parse ranking date %s: %w", date, err)
	}
	prior, err := s.deltas.PriorRanks(ctx, ref)
	if err != nil {
		return "", nil, err
	}

	entries := make([]RankingEntry, len(top))
	for i, m := range top {
		mv := delta.Resolve(prior, m.Record.ID, m.Rank)
		entries[i] = RankingEntry{
			Model:     m,
			PriorRank: mv.PriorRank,
			Delta:     mv.Delta,
		}
	}
	return date, entries, nil
}

// GetStats reports tracker-wide aggregates for the stats endpoint.
func (s *Service) GetStats(ctx context.Context) (Stats, error) {
	total, err := s.store.CountModels(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("count models: %w", err)
	}

	s.mu.RLock()
	last := s.lastCycle
	s.mu.RUnlock()

	return Stats{TotalModels: total, LastCycle: last}, nil
}

// RecentEvents exposes the audit trail for the events endpoint.
func (s *Service) RecentEvents(ctx context.Context, limit int) ([]model.Event, error) {
	return s.store.RecentEvents(ctx, limit)
}
