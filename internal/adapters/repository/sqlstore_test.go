package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/modelrank/internal/domain/model"
)

func newTestStore(t *testing.T) *SQLStore {
	t.Helper()
	store, err := NewSQLStore(filepath.Join(t.TempDir(), "tracker.db"))
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestUpsertModel(t *testing.T) {
	Convey("Given an empty store", t, func() {
		store := newTestStore(t)
		ctx := context.Background()

		rec := model.Record{
			ID:            "mistralai/mistral-7b",
			Name:          "Mistral 7B",
			Provider:      "Mistralai",
			ContextLength: 32768,
		}

		Convey("When a model is inserted for the first time", func() {
			err := store.UpsertModel(ctx, rec)
			So(err, ShouldBeNil)

			Convey("Then it is tracked and a new-model event is recorded", func() {
				count, err := store.CountModels(ctx)
				So(err, ShouldBeNil)
				So(count, ShouldEqual, 1)

				events, err := store.RecentEvents(ctx, 10)
				So(err, ShouldBeNil)
				So(events, ShouldHaveLength, 1)
				So(events[0].Event, ShouldEqual, model.EventNew)
				So(events[0].ModelID, ShouldEqual, rec.ID)
			})
		})

		Convey("When the same id is upserted again with fresh metadata", func() {
			So(store.UpsertModel(ctx, rec), ShouldBeNil)

			var created time.Time
			{
				var row model.Record
				So(store.db.First(&row, "id = ?", rec.ID).Error, ShouldBeNil)
				created = row.CreatedAt
			}

			updated := rec
			updated.Name = "Mistral 7B Instruct"
			updated.ContextLength = 65536
			So(store.UpsertModel(ctx, updated), ShouldBeNil)

			Convey("Then metadata refreshes but identity and created_at survive", func() {
				var row model.Record
				So(store.db.First(&row, "id = ?", rec.ID).Error, ShouldBeNil)
				So(row.Name, ShouldEqual, "Mistral 7B Instruct")
				So(row.ContextLength, ShouldEqual, 65536)
				So(row.CreatedAt.Unix(), ShouldEqual, created.Unix())

				count, err := store.CountModels(ctx)
				So(err, ShouldBeNil)
				So(count, ShouldEqual, 1)
			})

			Convey("Then no second new-model event appears", func() {
				events, err := store.RecentEvents(ctx, 10)
				So(err, ShouldBeNil)
				So(events, ShouldHaveLength, 1)
			})
		})
	})
}

func TestCommitCycle(t *testing.T) {
	Convey("Given parsed records for one date", t, func() {
		store := newTestStore(t)
		ctx := context.Background()

		records := []model.Record{
			{ID: "mistralai/mistral-7b", Name: "Mistral 7B", Provider: "Mistralai", ContextLength: 32768},
			{ID: "meta-llama/llama-2-7b", Name: "Llama 2 7B", Provider: "Meta-llama", ContextLength: 16384},
		}
		snaps := []model.Snapshot{
			{ModelID: "mistralai/mistral-7b", Date: "2024-01-02", Rank: 1, RankScore: 10000, PromptPrice: 0.0001, CompletionPrice: 0.0002},
			{ModelID: "meta-llama/llama-2-7b", Date: "2024-01-02", Rank: 2, RankScore: 5000, PromptPrice: 0.0002, CompletionPrice: 0.0003},
		}

		Convey("When the cycle commits", func() {
			So(store.CommitCycle(ctx, records, snaps), ShouldBeNil)

			Convey("Then the date's ranking is readable in rank order", func() {
				top, err := store.TopByScore(ctx, "2024-01-02", 10)
				So(err, ShouldBeNil)
				So(top, ShouldHaveLength, 2)
				So(top[0].Record.ID, ShouldEqual, "mistralai/mistral-7b")
				So(top[0].Rank, ShouldEqual, 1)
				So(top[1].Record.ID, ShouldEqual, "meta-llama/llama-2-7b")
				So(top[1].Rank, ShouldEqual, 2)
			})

			Convey("And when the same date is committed again with swapped ranks", func() {
				resnap := []model.Snapshot{
					{ModelID: "mistralai/mistral-7b", Date: "2024-01-02", Rank: 2, RankScore: 5000},
					{ModelID: "meta-llama/llama-2-7b", Date: "2024-01-02", Rank: 1, RankScore: 10000},
				}
				So(store.CommitCycle(ctx, records, resnap), ShouldBeNil)

				Convey("Then rows are replaced, not duplicated", func() {
					var n int64
					So(store.db.Model(&model.Snapshot{}).Where("date = ?", "2024-01-02").Count(&n).Error, ShouldBeNil)
					So(n, ShouldEqual, 2)

					top, err := store.TopByScore(ctx, "2024-01-02", 10)
					So(err, ShouldBeNil)
					So(top[0].Record.ID, ShouldEqual, "meta-llama/llama-2-7b")
				})
			})

			Convey("Then the top-N limit truncates", func() {
				top, err := store.TopByScore(ctx, "2024-01-02", 1)
				So(err, ShouldBeNil)
				So(top, ShouldHaveLength, 1)
				So(top[0].Rank, ShouldEqual, 1)
			})
		})
	})
}

func TestLatestRankingAtOrBefore(t *testing.T) {
	Convey("Given snapshots across several dates", t, func() {
		store := newTestStore(t)
		ctx := context.Background()

		records := []model.Record{
			{ID: "a/one", Name: "One", Provider: "A"},
			{ID: "b/two", Name: "Two", Provider: "B"},
			{ID: "c/three", Name: "Three", Provider: "C"},
		}
		So(store.CommitCycle(ctx, records, []model.Snapshot{
			{ModelID: "a/one", Date: "2024-01-01", Rank: 1, RankScore: 10000},
			{ModelID: "b/two", Date: "2024-01-01", Rank: 2, RankScore: 5000},
		}), ShouldBeNil)
		So(store.ReplaceSnapshots(ctx, []model.Snapshot{
			{ModelID: "c/three", Date: "2024-01-02", Rank: 1, RankScore: 10000},
		}), ShouldBeNil)

		Convey("When asked for the ranking at or before an exact prior date", func() {
			ranking, err := store.LatestRankingAtOrBefore(ctx, "2024-01-01")
			So(err, ShouldBeNil)

			Convey("Then only that single date's pairs come back", func() {
				So(ranking, ShouldHaveLength, 2)
				So(ranking["a/one"], ShouldEqual, 1)
				So(ranking["b/two"], ShouldEqual, 2)
			})
		})

		Convey("When the threshold falls between snapshot dates", func() {
			ranking, err := store.LatestRankingAtOrBefore(ctx, "2024-01-01")
			So(err, ShouldBeNil)
			So(ranking, ShouldNotContainKey, "c/three")
		})

		Convey("When no snapshot exists at or before the threshold", func() {
			ranking, err := store.LatestRankingAtOrBefore(ctx, "2023-12-31")

			Convey("Then the mapping is empty, not an error", func() {
				So(err, ShouldBeNil)
				So(ranking, ShouldBeEmpty)
			})
		})
	})
}

func TestDetectNew(t *testing.T) {
	Convey("Given a store tracking two models", t, func() {
		store := newTestStore(t)
		ctx := context.Background()

		So(store.UpsertModel(ctx, model.Record{ID: "a/one", Name: "One", Provider: "A"}), ShouldBeNil)
		So(store.UpsertModel(ctx, model.Record{ID: "b/two", Name: "Two", Provider: "B"}), ShouldBeNil)

		Convey("When candidates include known and unknown ids", func() {
			fresh, err := store.DetectNew(ctx, []string{"a/one", "c/three", "b/two", "d/four"})
			So(err, ShouldBeNil)

			Convey("Then only the unknown ids are reported, in candidate order", func() {
				So(fresh, ShouldResemble, []string{"c/three", "d/four"})
			})
		})

		Convey("When every candidate is already tracked", func() {
			fresh, err := store.DetectNew(ctx, []string{"a/one", "b/two"})
			So(err, ShouldBeNil)
			So(fresh, ShouldBeEmpty)
		})
	})
}

func TestWriteRetry(t *testing.T) {
	Convey("Given a store with a small retry budget", t, func() {
		store, err := NewSQLStore(
			filepath.Join(t.TempDir(), "tracker.db"),
			WithMaxRetries(3),
			WithRetryBackoff(time.Millisecond),
		)
		So(err, ShouldBeNil)
		Reset(func() { _ = store.Close() })

		ctx := context.Background()

		Convey("When the write is busy once and then succeeds", func() {
			calls := 0
			err := store.withWriteRetry(ctx, func() error {
				calls++
				if calls == 1 {
					return errors.New("database is locked")
				}
				return nil
			})

			Convey("Then the write is retried and recovers", func() {
				So(err, ShouldBeNil)
				So(calls, ShouldEqual, 2)
			})
		})

		Convey("When every attempt stays busy", func() {
			calls := 0
			started := time.Now()
			err := store.withWriteRetry(ctx, func() error {
				calls++
				return errors.New("database is locked")
			})

			Convey("Then the budget is exhausted and the failure is busy", func() {
				So(err, ShouldNotBeNil)
				So(errors.Is(err, ErrBusy), ShouldBeTrue)
				So(calls, ShouldEqual, 3)
			})

			Convey("And the backoff grew between attempts", func() {
				// Two sleeps at 1x and 2x the base delay.
				So(time.Since(started), ShouldBeGreaterThanOrEqualTo, 3*time.Millisecond)
			})
		})

		Convey("When the write hits an integrity violation", func() {
			calls := 0
			err := store.withWriteRetry(ctx, func() error {
				calls++
				return errors.New("UNIQUE constraint failed: models.id")
			})

			Convey("Then it fails immediately without retrying", func() {
				So(errors.Is(err, ErrIntegrity), ShouldBeTrue)
				So(calls, ShouldEqual, 1)
			})
		})

		Convey("When the write fails for an unrelated reason", func() {
			calls := 0
			failure := errors.New("disk I/O error")
			err := store.withWriteRetry(ctx, func() error {
				calls++
				return failure
			})

			Convey("Then the error passes through untouched", func() {
				So(errors.Is(err, failure), ShouldBeTrue)
				So(errors.Is(err, ErrBusy), ShouldBeFalse)
				So(calls, ShouldEqual, 1)
			})
		})

		Convey("When the context is cancelled mid-backoff", func() {
			cancelled, cancel := context.WithCancel(ctx)
			cancel()

			calls := 0
			err := store.withWriteRetry(cancelled, func() error {
				calls++
				return errors.New("database is busy")
			})

			Convey("Then the retry loop stops on the context", func() {
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
				So(calls, ShouldEqual, 1)
			})
		})
	})
}
