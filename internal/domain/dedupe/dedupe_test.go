package dedupe_test

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/okian/scorekeep/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestDeduper(t *testing.T) {
	Convey("Given a deduper", t, func() {
		ctx := context.Background()
		d, err := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(3))
		So(err, ShouldBeNil)

		Convey("When a key is reserved for the first time", func() {
			id, seen := d.Reserve(ctx, "u1", "k1")
			So(seen, ShouldBeFalse)
			So(id, ShouldBeEmpty)

			Convey("Then a second reservation sees it in flight", func() {
				id, seen := d.Reserve(ctx, "u1", "k1")
				So(seen, ShouldBeTrue)
				So(id, ShouldBeEmpty)
			})

			Convey("Then after completion the record id is returned", func() {
				d.Complete(ctx, "u1", "k1", "rec-1")
				id, seen := d.Reserve(ctx, "u1", "k1")
				So(seen, ShouldBeTrue)
				So(id, ShouldEqual, "rec-1")
			})

			Convey("Then unrecording frees the key", func() {
				d.Unrecord(ctx, "u1", "k1")
				_, seen := d.Reserve(ctx, "u1", "k1")
				So(seen, ShouldBeFalse)
			})

			Convey("Then the same key for another owner is independent", func() {
				_, seen := d.Reserve(ctx, "u2", "k1")
				So(seen, ShouldBeFalse)
				So(d.Size(), ShouldEqual, 2)
			})
		})

		Convey("When more keys arrive than fit", func() {
			for i := 0; i < 5; i++ {
				d.Reserve(ctx, "u1", "k"+strconv.Itoa(i))
			}

			Convey("Then the oldest are evicted", func() {
				So(d.Size(), ShouldEqual, 3)
				_, seen := d.Reserve(ctx, "u1", "k0")
				So(seen, ShouldBeFalse)
			})
		})

		Convey("When many goroutines race for one key", func() {
			var wins atomic.Int32
			var wg sync.WaitGroup
			for i := 0; i < 50; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if _, seen := d.Reserve(ctx, "u1", "race"); !seen {
						wins.Add(1)
					}
				}()
			}
			wg.Wait()

			Convey("Then exactly one claims it", func() {
				So(wins.Load(), ShouldEqual, int32(1))
			})
		})
	})
}
