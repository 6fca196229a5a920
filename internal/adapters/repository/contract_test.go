package repository_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/okian/scorekeep/internal/adapters/repository"
	"github.com/okian/scorekeep/internal/domain/model"
	"github.com/okian/scorekeep/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

// collector records every snapshot a subscription delivers.
type collector struct {
	mu    sync.Mutex
	snaps []repository.Snapshot
}

func (c *collector) onChange(s repository.Snapshot) {
	c.mu.Lock()
	c.snaps = append(c.snaps, s)
	c.mu.Unlock()
}

func (c *collector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.snaps)
}

func (c *collector) last() repository.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.snaps) == 0 {
		return nil
	}
	return c.snaps[len(c.snaps)-1]
}

func (c *collector) waitFor(cond func(repository.Snapshot) bool) bool {
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if c.count() > 0 && cond(c.last()) {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

func sized(n int) func(repository.Snapshot) bool {
	return func(s repository.Snapshot) bool { return len(s) == n }
}

func payload(game string, score int) model.Payload {
	return model.Payload{Game: game, Score: score, Date: "2024-01-01", UserID: "owner-1"}
}

// storeContract exercises behaviour every Store must share.
func storeContract(t *testing.T, name string, open func() repository.Store) {
	_ = logger.Init()

	Convey("Given a "+name+" store", t, func() {
		ctx := context.Background()
		store := open()
		Reset(func() { _ = store.Close() })

		Convey("When subscribing to an owner without records", func() {
			c := &collector{}
			unsub, err := store.Subscribe(ctx, "owner-1", c.onChange)
			So(err, ShouldBeNil)
			defer unsub()

			Convey("Then an empty snapshot is delivered first", func() {
				So(c.waitFor(func(s repository.Snapshot) bool { return s == nil }), ShouldBeTrue)
			})

			Convey("And a write pushes the full set", func() {
				id, err := store.Write(ctx, "owner-1", payload("Zelda", 10))
				So(err, ShouldBeNil)
				So(id, ShouldNotBeEmpty)
				So(c.waitFor(sized(1)), ShouldBeTrue)
				So(c.last()[0].Key, ShouldEqual, id)
				So(string(c.last()[0].Raw), ShouldContainSubstring, `"game":"Zelda"`)
				So(string(c.last()[0].Raw), ShouldContainSubstring, `"userId":"owner-1"`)

				Convey("And later writes come in key order", func() {
					id2, err := store.Write(ctx, "owner-1", payload("Mario", 20))
					So(err, ShouldBeNil)
					So(c.waitFor(sized(2)), ShouldBeTrue)
					So(c.last()[0].Key, ShouldEqual, id)
					So(c.last()[1].Key, ShouldEqual, id2)
				})

				Convey("And deleting it pushes an empty set", func() {
					So(store.Delete(ctx, "owner-1", id), ShouldBeNil)
					So(c.waitFor(func(s repository.Snapshot) bool { return s == nil }), ShouldBeTrue)
				})
			})

			Convey("And other owners' writes are not delivered", func() {
				_, err := store.Write(ctx, "owner-2", payload("Tetris", 1))
				So(err, ShouldBeNil)
				time.Sleep(50 * time.Millisecond)
				So(c.last(), ShouldBeNil)
			})

			Convey("And nothing arrives after unsubscribing", func() {
				So(c.waitFor(func(s repository.Snapshot) bool { return s == nil }), ShouldBeTrue)
				unsub()
				unsub()
				before := c.count()
				_, err := store.Write(ctx, "owner-1", payload("Zelda", 1))
				So(err, ShouldBeNil)
				time.Sleep(50 * time.Millisecond)
				So(c.count(), ShouldEqual, before)
			})
		})

		Convey("When records exist before subscribing", func() {
			_, err := store.Write(ctx, "owner-1", payload("A", 1))
			So(err, ShouldBeNil)
			_, err = store.Write(ctx, "owner-1", payload("B", 2))
			So(err, ShouldBeNil)

			c := &collector{}
			unsub, err := store.Subscribe(ctx, "owner-1", c.onChange)
			So(err, ShouldBeNil)
			defer unsub()

			Convey("Then the first delivery already holds them", func() {
				So(c.waitFor(sized(2)), ShouldBeTrue)
			})
		})

		Convey("When deleting a key that does not exist", func() {
			So(store.Delete(ctx, "owner-1", "missing"), ShouldBeNil)
		})

		Convey("When the owner is blank", func() {
			_, err := store.Write(ctx, " ", payload("A", 1))
			So(errors.Is(err, repository.ErrInvalidOwner), ShouldBeTrue)
			_, err = store.Subscribe(ctx, "", func(repository.Snapshot) {})
			So(errors.Is(err, repository.ErrInvalidOwner), ShouldBeTrue)
		})

		Convey("When the store is closed", func() {
			So(store.Close(), ShouldBeNil)
			So(store.Close(), ShouldBeNil)
			_, err := store.Write(ctx, "owner-1", payload("A", 1))

			Convey("Then writes fail as persistence errors", func() {
				So(errors.Is(err, repository.ErrPersistence), ShouldBeTrue)
				So(errors.Is(err, repository.ErrClosed), ShouldBeTrue)
			})
		})
	})
}
