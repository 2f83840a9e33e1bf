// Package delta computes day-over-day ranking movement.
package delta

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/modelrank/internal/domain/model"
)

// lookback is the comparison policy: the prior snapshot must be strictly
// more than 24 hours old, so the threshold is the day before the reference.
const lookback = 24 * time.Hour

// RankingSource is the slice of the snapshot store the calculator needs.
type RankingSource interface {
	// LatestRankingAtOrBefore returns model id -> rank for the most recent
	// snapshot date at or before the threshold; empty when no history exists.
	LatestRankingAtOrBefore(ctx context.Context, thresholdDate string) (map[string]int, error)
}

// Calculator resolves prior ranks for comparison against the current cycle.
type Calculator struct {
	source RankingSource
}

// New builds a Calculator over the given ranking source.
func New(source RankingSource) *Calculator {
	return &Calculator{source: source}
}

// PriorRanks returns the model id -> rank mapping from the latest snapshot
// taken at or before the day preceding referenceDate. An empty map means
// "no history yet" and is not an error.
func (c *Calculator) PriorRanks(ctx context.Context, referenceDate time.Time) (map[string]int, error) {
	threshold := referenceDate.Add(-lookback).Format(model.DateFormat)
	prior, err := c.source.LatestRankingAtOrBefore(ctx, threshold)
	if err != nil {
		return nil, fmt.Errorf("prior rankings before %s: %w", threshold, err)
	}
	return prior, nil
}

// Movement is one model's rank change between the prior snapshot and now.
type Movement struct {
	PriorRank   int
	CurrentRank int
	Delta       int // positive = improved (moved toward rank 1)
}

// Resolve computes the movement for one model. A model with no prior rank
// defaults to its current rank, reading as "no visible change" rather than
// producing a spurious large delta for a fresh entrant.
func Resolve(prior map[string]int, modelID string, currentRank int) Movement {
	priorRank, ok := prior[modelID]
	if !ok {
		priorRank = currentRank
	}
	return Movement{
		PriorRank:   priorRank,
		CurrentRank: currentRank,
		Delta:       priorRank - currentRank,
	}
}
