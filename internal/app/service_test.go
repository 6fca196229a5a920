package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/okian/scorekeep/internal/adapters/catalog"
	"github.com/okian/scorekeep/internal/adapters/repository"
	service "github.com/okian/scorekeep/internal/app"
	"github.com/okian/scorekeep/internal/domain/model"
	"github.com/okian/scorekeep/internal/domain/submission"
	"github.com/okian/scorekeep/internal/domain/types"
	"github.com/okian/scorekeep/internal/identity"
	"github.com/okian/scorekeep/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

var games = catalog.StaticSource{
	{ID: "1", Title: "The Legend of Zelda", ImageURI: "https://img/zelda.png", Price: 59.99, Platforms: []string{"Switch"}},
	{ID: "2", Title: "Super Mario Odyssey", ImageURI: "https://img/mario.png", Price: 49.99, Platforms: []string{"Switch"}},
}

type downCatalog struct{}

func (downCatalog) Fetch(context.Context) ([]model.GameCatalogEntry, error) {
	return nil, catalog.ErrCatalogUnavailable
}

// flakyStore fails writes and deletes while failing is set.
type flakyStore struct {
	*repository.MemoryStore
	mu      sync.Mutex
	failing bool
	writes  int
}

func (f *flakyStore) setFailing(v bool) {
	f.mu.Lock()
	f.failing = v
	f.mu.Unlock()
}

func (f *flakyStore) Write(ctx context.Context, owner string, p model.Payload) (string, error) {
	f.mu.Lock()
	f.writes++
	failing := f.failing
	f.mu.Unlock()
	if failing {
		return "", &repository.PersistenceError{Op: "write", Err: errors.New("PERMISSION_DENIED")}
	}
	return f.MemoryStore.Write(ctx, owner, p)
}

func (f *flakyStore) Delete(ctx context.Context, owner, id string) error {
	f.mu.Lock()
	failing := f.failing
	f.mu.Unlock()
	if failing {
		return &repository.PersistenceError{Op: "delete", Err: errors.New("network unreachable")}
	}
	return f.MemoryStore.Delete(ctx, owner, id)
}

func (f *flakyStore) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes
}

func eventually(cond func() bool) bool {
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestService_Start(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := service.New(repository.NewMemoryStore(), games, service.WithStoreKind("memory"), service.WithDedupeSize(10))
		defer svc.Stop()

		Convey("When it is used before starting", func() {
			_, err := svc.Submit(context.Background(), identity.New("u1"), types.SubmitRequest{GameID: "1", Score: "1"})
			So(err, ShouldEqual, service.ErrNotStarted)
			So(svc.GetStats()["started"], ShouldEqual, false)
		})

		Convey("When starting the service", func() {
			So(svc.Start(context.Background()), ShouldBeNil)
			So(svc.Start(context.Background()), ShouldBeNil)

			Convey("Then stats describe it", func() {
				stats := svc.GetStats()
				So(stats["started"], ShouldEqual, true)
				So(stats["store"], ShouldEqual, "memory")
				So(stats["locale"], ShouldEqual, "es-ES")
				So(stats["activeViews"], ShouldEqual, 0)
			})
		})
	})
}

func TestService_Submit(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		store := &flakyStore{MemoryStore: repository.NewMemoryStore()}
		clock := func() time.Time { return time.Date(2024, 3, 9, 10, 0, 0, 0, time.UTC) }
		svc := service.New(store, games, service.WithClock(clock))
		So(svc.Start(ctx), ShouldBeNil)
		Reset(svc.Stop)
		owner := identity.New("u1")

		Convey("When a valid score is submitted", func() {
			res, err := svc.Submit(ctx, owner, types.SubmitRequest{GameID: "1", Score: "15000"})
			So(err, ShouldBeNil)
			So(res.ID, ShouldNotBeEmpty)

			Convey("Then it appears in the owner's scores with today's date", func() {
				So(eventually(func() bool {
					v, err := svc.Scores(ctx, owner)
					return err == nil && len(v.Records) == 1
				}), ShouldBeTrue)
				v, _ := svc.Scores(ctx, owner)
				So(v.Records[0].ID, ShouldEqual, res.ID)
				So(v.Records[0].Game, ShouldEqual, "The Legend of Zelda")
				So(v.Records[0].GameImage, ShouldEqual, "https://img/zelda.png")
				So(v.Records[0].Date, ShouldEqual, "2024-03-09")
				So(v.Records[0].UserID, ShouldEqual, "u1")
				So(v.Records[0].Meter, ShouldEqual, 100.0)
				So(v.Statistics.TotalScore, ShouldEqual, int64(15000))
				So(v.Statistics.DisplayTotal, ShouldEqual, "15.000")
			})
		})

		Convey("When the game is unknown", func() {
			_, err := svc.Submit(ctx, owner, types.SubmitRequest{GameID: "404", Score: "10"})
			So(err, ShouldEqual, submission.ErrMissingSelection)
			So(service.Outcome(err), ShouldEqual, "missing_selection")
			So(store.writeCount(), ShouldEqual, 0)
		})

		Convey("When the score is invalid", func() {
			_, err := svc.Submit(ctx, owner, types.SubmitRequest{GameID: "1", Score: "1000000"})
			So(err, ShouldEqual, submission.ErrScoreOutOfRange)
			So(store.writeCount(), ShouldEqual, 0)
		})

		Convey("When nobody is signed in", func() {
			_, err := svc.Submit(ctx, identity.Identity{}, types.SubmitRequest{GameID: "1", Score: "10"})
			So(err, ShouldEqual, identity.ErrNotAuthenticated)
			So(store.writeCount(), ShouldEqual, 0)
		})

		Convey("When the store rejects the write", func() {
			store.setFailing(true)
			_, err := svc.Submit(ctx, owner, types.SubmitRequest{GameID: "1", Score: "10", IdempotencyKey: "k"})

			Convey("Then the store message is surfaced unchanged", func() {
				So(errors.Is(err, repository.ErrPersistence), ShouldBeTrue)
				So(err.Error(), ShouldEqual, "PERMISSION_DENIED")
				So(service.Outcome(err), ShouldEqual, "persistence_error")
			})

			Convey("Then the idempotency key can be retried", func() {
				store.setFailing(false)
				res, err := svc.Submit(ctx, owner, types.SubmitRequest{GameID: "1", Score: "10", IdempotencyKey: "k"})
				So(err, ShouldBeNil)
				So(res.Duplicate, ShouldBeFalse)
				So(store.writeCount(), ShouldEqual, 2)
			})
		})

		Convey("When the same idempotency key is sent twice", func() {
			first, err := svc.Submit(ctx, owner, types.SubmitRequest{GameID: "2", Score: "7", IdempotencyKey: "abc"})
			So(err, ShouldBeNil)
			second, err := svc.Submit(ctx, owner, types.SubmitRequest{GameID: "2", Score: "7", IdempotencyKey: "abc"})
			So(err, ShouldBeNil)

			Convey("Then only one record is written", func() {
				So(second.ID, ShouldEqual, first.ID)
				So(second.Duplicate, ShouldBeTrue)
				So(store.writeCount(), ShouldEqual, 1)
			})
		})

		Convey("When the catalog is down", func() {
			down := service.New(repository.NewMemoryStore(), downCatalog{})
			So(down.Start(ctx), ShouldBeNil)
			defer down.Stop()
			_, err := down.Submit(ctx, owner, types.SubmitRequest{GameID: "1", Score: "1"})

			Convey("Then the submission cannot resolve its game", func() {
				So(errors.Is(err, catalog.ErrCatalogUnavailable), ShouldBeTrue)
				So(down.Catalog(ctx, ""), ShouldBeEmpty)
			})
		})
	})
}

func TestService_Delete(t *testing.T) {
	Convey("Given a service with two stored scores", t, func() {
		ctx := context.Background()
		store := &flakyStore{MemoryStore: repository.NewMemoryStore()}
		svc := service.New(store, games)
		So(svc.Start(ctx), ShouldBeNil)
		Reset(svc.Stop)
		owner := identity.New("u1")

		a, err := svc.Submit(ctx, owner, types.SubmitRequest{GameID: "1", Score: "100", Date: "2024-01-01"})
		So(err, ShouldBeNil)
		_, err = svc.Submit(ctx, owner, types.SubmitRequest{GameID: "2", Score: "300", Date: "2024-01-02"})
		So(err, ShouldBeNil)

		view, err := svc.View(ctx, owner)
		So(err, ShouldBeNil)
		Reset(func() { svc.Release(owner) })
		So(eventually(func() bool { return view.Snapshot().Statistics.TotalGames == 2 }), ShouldBeTrue)

		Convey("When one is deleted", func() {
			So(svc.Delete(ctx, owner, a.ID), ShouldBeNil)

			Convey("Then the view converges on the remaining record", func() {
				So(eventually(func() bool { return view.Snapshot().Statistics.TotalGames == 1 }), ShouldBeTrue)
				s := view.Snapshot()
				So(s.Statistics.HighestScore, ShouldEqual, 300)
				So(s.Records[0].Game, ShouldEqual, "Super Mario Odyssey")
			})
		})

		Convey("When the store fails the delete", func() {
			store.setFailing(true)
			err := svc.Delete(ctx, owner, a.ID)

			Convey("Then the error is a persistence error and nothing changes", func() {
				So(errors.Is(err, repository.ErrPersistence), ShouldBeTrue)
				So(err.Error(), ShouldEqual, "network unreachable")
				time.Sleep(20 * time.Millisecond)
				So(view.Snapshot().Statistics.TotalGames, ShouldEqual, 2)
			})
		})

		Convey("When the record id is blank", func() {
			So(svc.Delete(ctx, owner, " "), ShouldEqual, service.ErrInvalidRecordID)
		})

		Convey("When nobody is signed in", func() {
			So(svc.Delete(ctx, identity.Identity{}, a.ID), ShouldEqual, identity.ErrNotAuthenticated)
		})
	})
}

func TestService_Views(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		svc := service.New(repository.NewMemoryStore(), games)
		So(svc.Start(ctx), ShouldBeNil)
		Reset(svc.Stop)
		owner := identity.New("u1")

		Convey("When two readers acquire the same owner's view", func() {
			v1, err := svc.View(ctx, owner)
			So(err, ShouldBeNil)
			v2, err := svc.View(ctx, owner)
			So(err, ShouldBeNil)

			Convey("Then they share it until the last release", func() {
				So(v1, ShouldEqual, v2)
				So(svc.GetStats()["activeViews"], ShouldEqual, 1)
				svc.Release(owner)
				So(svc.GetStats()["activeViews"], ShouldEqual, 1)
				svc.Release(owner)
				So(svc.GetStats()["activeViews"], ShouldEqual, 0)
				<-v1.Done()
			})
		})

		Convey("When the owner has no records", func() {
			v, err := svc.Scores(ctx, owner)
			So(err, ShouldBeNil)
			So(v.Records, ShouldBeEmpty)
			So(v.Statistics.TotalGames, ShouldEqual, 0)
			So(v.Statistics.MostPlayedGame, ShouldEqual, "")
			So(v.Version, ShouldEqual, uint64(1))
		})

		Convey("When an anonymous caller asks for a view", func() {
			_, err := svc.View(ctx, identity.Identity{})
			So(err, ShouldEqual, identity.ErrNotAuthenticated)
		})

		Convey("When searching the catalog", func() {
			So(len(svc.Catalog(ctx, "mario")), ShouldEqual, 1)
			So(len(svc.Catalog(ctx, "")), ShouldEqual, 2)
		})
	})
}
