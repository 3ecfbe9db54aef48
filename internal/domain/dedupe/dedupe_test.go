package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	dedupe "github.com/okian/soarbridge/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryDeduper(t *testing.T) {
	Convey("Given a new InMemoryDeduper", t, func() {
		ctx := context.Background()

		Convey("When creating a deduper with default options", func() {
			d := dedupe.NewInMemoryDeduper()

			Convey("Then it should be empty", func() {
				So(d, ShouldNotBeNil)
				So(d.Size(), ShouldEqual, 0)
				So(d.Snapshot(), ShouldBeEmpty)
			})
		})

		Convey("When recording alerts", func() {
			d := dedupe.NewInMemoryDeduper()

			Convey("And the alert is new", func() {
				seen := d.SeenAndRecord(ctx, "alert-1")

				Convey("Then it should return false and record the alert", func() {
					So(seen, ShouldBeFalse)
					So(d.Size(), ShouldEqual, 1)
				})
			})

			Convey("And the alert was already seen", func() {
				d.SeenAndRecord(ctx, "alert-1")
				seen := d.SeenAndRecord(ctx, "alert-1")

				Convey("Then it should return true", func() {
					So(seen, ShouldBeTrue)
					So(d.Size(), ShouldEqual, 1)
				})
			})

			Convey("And the id is empty", func() {
				So(d.SeenAndRecord(ctx, ""), ShouldBeFalse)
				So(d.SeenAndRecord(ctx, ""), ShouldBeFalse)
				So(d.Size(), ShouldEqual, 0)
			})
		})

		Convey("When the deduper is bounded", func() {
			d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(3))
			for i := 1; i <= 4; i++ {
				d.SeenAndRecord(ctx, fmt.Sprintf("alert-%d", i))
			}

			Convey("Then the oldest id should be evicted first", func() {
				So(d.Size(), ShouldEqual, 3)
				So(d.Snapshot(), ShouldResemble, []string{"alert-2", "alert-3", "alert-4"})
				So(d.SeenAndRecord(ctx, "alert-1"), ShouldBeFalse)
				So(d.Snapshot(), ShouldResemble, []string{"alert-3", "alert-4", "alert-1"})
			})
		})

		Convey("When the deduper is unbounded", func() {
			d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(0))
			for i := 0; i < 100; i++ {
				d.SeenAndRecord(ctx, fmt.Sprintf("alert-%d", i))
			}
			So(d.Size(), ShouldEqual, 100)
		})

		Convey("When unrecording an alert", func() {
			d := dedupe.NewInMemoryDeduper()
			d.SeenAndRecord(ctx, "alert-1")
			d.SeenAndRecord(ctx, "alert-2")
			d.Unrecord(ctx, "alert-1")
			d.Unrecord(ctx, "missing")

			Convey("Then it can be recorded again", func() {
				So(d.Size(), ShouldEqual, 1)
				So(d.SeenAndRecord(ctx, "alert-1"), ShouldBeFalse)
				So(d.Snapshot(), ShouldResemble, []string{"alert-2", "alert-1"})
			})
		})

		Convey("When seeding from a checkpoint", func() {
			d := dedupe.NewInMemoryDeduper(
				dedupe.WithMaxSize(2),
				dedupe.WithSeed([]string{"a", "", "b", "a", "c"}),
			)

			Convey("Then the bound and order should hold", func() {
				So(d.Snapshot(), ShouldResemble, []string{"b", "c"})
				So(d.SeenAndRecord(ctx, "c"), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, "a"), ShouldBeFalse)
			})
		})
	})
}

func TestInMemoryDeduperConcurrency(t *testing.T) {
	Convey("Given concurrent callers recording the same ids", t, func() {
		ctx := context.Background()
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(0))

		var (
			wg    sync.WaitGroup
			mu    sync.Mutex
			fresh int
		)
		for g := 0; g < 8; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < 50; i++ {
					if !d.SeenAndRecord(ctx, fmt.Sprintf("alert-%d", i)) {
						mu.Lock()
						fresh++
						mu.Unlock()
					}
				}
			}()
		}
		wg.Wait()

		Convey("Then each id should be new exactly once", func() {
			So(fresh, ShouldEqual, 50)
			So(d.Size(), ShouldEqual, 50)
		})
	})
}
