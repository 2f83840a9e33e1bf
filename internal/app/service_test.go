package service

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/modelrank/internal/adapters/repository"
	"github.com/okian/modelrank/internal/domain/extract"
	"github.com/okian/modelrank/internal/domain/model"
	"github.com/okian/modelrank/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.InitWithWriter(io.Discard); err != nil {
		panic(err)
	}
	m.Run()
}

// fakeSource serves a swappable Markdown document.
type fakeSource struct {
	mu   sync.Mutex
	body string
	err  error
}

func (f *fakeSource) set(body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.body = body
}

func (f *fakeSource) Fetch(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.body, f.err
}

// fakeNotifier records every delivery.
type fakeNotifier struct {
	mu       sync.Mutex
	enabled  bool
	fail     bool
	topDates []string
	top      [][]model.RankedModel
	prior    []map[string]int
	fresh    [][]model.Record
	summary  []int
}

func (f *fakeNotifier) Enabled() bool { return f.enabled }

func (f *fakeNotifier) SendTopRankings(ctx context.Context, date string, models []model.RankedModel, prior map[string]int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("delivery down")
	}
	f.topDates = append(f.topDates, date)
	f.top = append(f.top, models)
	f.prior = append(f.prior, prior)
	return nil
}

func (f *fakeNotifier) SendNewModels(ctx context.Context, fresh []model.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("delivery down")
	}
	f.fresh = append(f.fresh, fresh)
	return nil
}

func (f *fakeNotifier) SendSummary(ctx context.Context, totalModels int, totalScore float64, newCount int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("delivery down")
	}
	f.summary = append(f.summary, totalModels)
	return nil
}

const listingDayOne = `# Model Rankings

| Model | Input Price | Output Price | Context |
|-------|-------------|--------------|---------|
| [Mistral 7B](https://openrouter.ai/mistralai/mistral-7b) | $0.0001/M | $0.0002/M | 32K |
| [Llama 2 7B](https://openrouter.ai/meta-llama/llama-2-7b) | $0.0002/M | $0.0003/M | 16K |
`

const listingDayTwo = `# Model Rankings

| Model | Input Price | Output Price | Context |
|-------|-------------|--------------|---------|
| [Llama 2 7B](https://openrouter.ai/meta-llama/llama-2-7b) | $0.0002/M | $0.0003/M | 16K |
| [Mistral 7B](https://openrouter.ai/mistralai/mistral-7b) | $0.0001/M | $0.0002/M | 32K |
| [Claude Instant](https://openrouter.ai/anthropic/claude-instant) | $0.0008/M | $0.0024/M | 100K |
`

type fixture struct {
	svc      *Service
	store    *repository.SQLStore
	source   *fakeSource
	notifier *fakeNotifier
	clock    *time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := repository.NewSQLStore(filepath.Join(t.TempDir(), "tracker.db"))
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := &now
	source := &fakeSource{body: listingDayOne}
	notifier := &fakeNotifier{enabled: true}

	svc := New(
		WithStore(store),
		WithSource(source),
		WithNotifier(notifier),
		WithTopN(5),
		WithClock(func() time.Time { return *clock }),
	)
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("start service: %v", err)
	}
	t.Cleanup(svc.Stop)

	return &fixture{svc: svc, store: store, source: source, notifier: notifier, clock: clock}
}

func TestRank(t *testing.T) {
	Convey("Given scored candidates out of order", t, func() {
		candidates := []model.Candidate{
			{ID: "b/second", RankScore: 5000},
			{ID: "a/first", RankScore: 10000},
			{ID: "c/tied-one", RankScore: 100},
			{ID: "d/tied-two", RankScore: 100},
		}

		Convey("When they are ranked for a date", func() {
			records, snaps := Rank(candidates, "2024-01-01")

			Convey("Then ranks follow descending score", func() {
				So(records, ShouldHaveLength, 4)
				So(snaps[0].ModelID, ShouldEqual, "a/first")
				So(snaps[0].Rank, ShouldEqual, 1)
				So(snaps[1].ModelID, ShouldEqual, "b/second")
				So(snaps[1].Rank, ShouldEqual, 2)
			})

			Convey("Then ties keep their extraction order", func() {
				So(snaps[2].ModelID, ShouldEqual, "c/tied-one")
				So(snaps[3].ModelID, ShouldEqual, "d/tied-two")
			})

			Convey("Then every snapshot carries the cycle date", func() {
				for _, snap := range snaps {
					So(snap.Date, ShouldEqual, "2024-01-01")
				}
			})
		})
	})
}

func TestRunCycle(t *testing.T) {
	Convey("Given a configured service and a two-row listing", t, func() {
		fx := newFixture(t)
		ctx := context.Background()

		Convey("When one cycle runs", func() {
			So(fx.svc.RunCycle(ctx), ShouldBeNil)

			Convey("Then the day's ranking is committed in listing order", func() {
				top, err := fx.store.TopByScore(ctx, "2024-01-01", 10)
				So(err, ShouldBeNil)
				So(top, ShouldHaveLength, 2)
				So(top[0].Record.ID, ShouldEqual, "mistralai/mistral-7b")
				So(top[0].Record.ContextLength, ShouldEqual, 32768)
				So(top[1].Record.ID, ShouldEqual, "meta-llama/llama-2-7b")
			})

			Convey("Then stats reflect the cycle", func() {
				stats, err := fx.svc.GetStats(ctx)
				So(err, ShouldBeNil)
				So(stats.TotalModels, ShouldEqual, 2)
				So(stats.LastCycle, ShouldNotBeNil)
				So(stats.LastCycle.Date, ShouldEqual, "2024-01-01")
				So(stats.LastCycle.RowsParsed, ShouldEqual, 2)
				So(stats.LastCycle.Strategy, ShouldEqual, extract.StrategyTable)
				So(stats.LastCycle.NewModels, ShouldEqual, 2)
			})

			Convey("Then all three notifications went out", func() {
				So(fx.notifier.topDates, ShouldResemble, []string{"2024-01-01"})
				So(fx.notifier.top[0], ShouldHaveLength, 2)
				So(fx.notifier.fresh[0], ShouldHaveLength, 2)
				So(fx.notifier.summary, ShouldResemble, []int{2})
			})
		})

		Convey("When a second day's listing reorders and adds a model", func() {
			So(fx.svc.RunCycle(ctx), ShouldBeNil)

			*fx.clock = fx.clock.Add(24 * time.Hour)
			fx.source.set(listingDayTwo)
			So(fx.svc.RunCycle(ctx), ShouldBeNil)

			Convey("Then the ranking read shows day-over-day movement", func() {
				date, entries, err := fx.svc.Rankings(ctx, "", 10)
				So(err, ShouldBeNil)
				So(date, ShouldEqual, "2024-01-02")
				So(entries, ShouldHaveLength, 3)

				So(entries[0].Model.Record.ID, ShouldEqual, "meta-llama/llama-2-7b")
				So(entries[0].PriorRank, ShouldEqual, 2)
				So(entries[0].Delta, ShouldEqual, 1)

				So(entries[1].Model.Record.ID, ShouldEqual, "mistralai/mistral-7b")
				So(entries[1].Delta, ShouldEqual, -1)

				So(entries[2].Model.Record.ID, ShouldEqual, "anthropic/claude-instant")
				So(entries[2].PriorRank, ShouldEqual, 3)
				So(entries[2].Delta, ShouldEqual, 0)
			})

			Convey("Then only the unseen model counts as new", func() {
				stats, err := fx.svc.GetStats(ctx)
				So(err, ShouldBeNil)
				So(stats.TotalModels, ShouldEqual, 3)
				So(stats.LastCycle.NewModels, ShouldEqual, 1)

				So(fx.notifier.fresh[1], ShouldHaveLength, 1)
				So(fx.notifier.fresh[1][0].ID, ShouldEqual, "anthropic/claude-instant")
			})

			Convey("Then the notifier saw the prior day's ranking", func() {
				So(fx.notifier.prior[1], ShouldResemble, map[string]int{
					"mistralai/mistral-7b":  1,
					"meta-llama/llama-2-7b": 2,
				})
			})

			Convey("Then an explicit date reads the historical ranking", func() {
				date, entries, err := fx.svc.Rankings(ctx, "2024-01-01", 10)
				So(err, ShouldBeNil)
				So(date, ShouldEqual, "2024-01-01")
				So(entries, ShouldHaveLength, 2)
				So(entries[0].Model.Record.ID, ShouldEqual, "mistralai/mistral-7b")
				So(entries[0].Model.Rank, ShouldEqual, 1)
				So(entries[1].Model.Record.ID, ShouldEqual, "meta-llama/llama-2-7b")
			})
		})

		Convey("When a listing is ingested directly", func() {
			all, fresh, err := fx.svc.Ingest(ctx, listingDayOne)
			So(err, ShouldBeNil)

			Convey("Then every record and the new subset come back", func() {
				So(all, ShouldHaveLength, 2)
				So(fresh, ShouldHaveLength, 2)
			})

			Convey("And a repeat ingest reports nothing new", func() {
				all, fresh, err := fx.svc.Ingest(ctx, listingDayOne)
				So(err, ShouldBeNil)
				So(all, ShouldHaveLength, 2)
				So(fresh, ShouldBeEmpty)
			})
		})

		Convey("When the same day re-ingests", func() {
			So(fx.svc.RunCycle(ctx), ShouldBeNil)
			So(fx.svc.RunCycle(ctx), ShouldBeNil)

			Convey("Then snapshots are replaced, not duplicated", func() {
				top, err := fx.store.TopByScore(ctx, "2024-01-01", 10)
				So(err, ShouldBeNil)
				So(top, ShouldHaveLength, 2)
			})
		})
	})
}

func TestRunCycleFailures(t *testing.T) {
	Convey("Given a configured service", t, func() {
		fx := newFixture(t)
		ctx := context.Background()

		Convey("When the source is unreachable", func() {
			fx.source.err = errors.New("connection refused")
			err := fx.svc.RunCycle(ctx)

			Convey("Then the cycle fails and nothing commits", func() {
				So(err, ShouldNotBeNil)
				count, cerr := fx.store.CountModels(ctx)
				So(cerr, ShouldBeNil)
				So(count, ShouldEqual, 0)
			})
		})

		Convey("When the listing yields zero acceptable rows", func() {
			fx.source.set("Nothing rankable here.\n\nJust prose.")
			err := fx.svc.RunCycle(ctx)

			Convey("Then the cycle fails with the no-records sentinel", func() {
				So(err, ShouldWrap, extract.ErrNoRecords)
			})
		})

		Convey("When notification delivery is down", func() {
			fx.notifier.fail = true
			err := fx.svc.RunCycle(ctx)

			Convey("Then the cycle still commits", func() {
				So(err, ShouldBeNil)
				count, cerr := fx.store.CountModels(ctx)
				So(cerr, ShouldBeNil)
				So(count, ShouldEqual, 2)
			})
		})

		Convey("When the service is built without a store", func() {
			svc := New(WithSource(&fakeSource{}))

			Convey("Then Start refuses", func() {
				So(svc.Start(ctx), ShouldWrap, ErrNotConfigured)
			})
		})
	})
}
