package ratings

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/okian/soarbridge/internal/adapters/repository"
	"github.com/okian/soarbridge/internal/adapters/scorecard"
	"github.com/okian/soarbridge/internal/domain/model"
	"github.com/okian/soarbridge/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

var fetchNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func alertAt(id string, created time.Time) scorecard.Alert {
	ts := created.UTC().Format("2006-01-02T15:04:05.000000Z")
	return scorecard.Alert{
		ID:         id,
		ChangeType: "score_change",
		CreatedAt:  ts,
		Raw:        []byte(fmt.Sprintf(`{"id":%q,"created_at":%q}`, id, ts)),
	}
}

func TestFetchIncidents(t *testing.T) {
	Convey("Given a configured fetch", t, func() {
		api := &fakeRatings{}
		store := repository.NewMemoryStore()
		now := fetchNow
		c := New(api,
			WithUsername("analyst@example.com"),
			WithStore(store),
			WithClock(func() time.Time { return now }),
		)
		ctx := context.Background()

		Convey("The first run looks fetchDaysAgo days back", func() {
			api.setAlerts(
				alertAt("recent", now.Add(-24*time.Hour)),
				alertAt("old", now.AddDate(0, 0, -8)),
				scorecard.Alert{ID: "broken", CreatedAt: "yesterday"},
			)
			incidents, err := c.FetchIncidents(ctx)

			So(err, ShouldBeNil)
			So(len(incidents), ShouldEqual, 1)
			So(incidents[0].Name, ShouldEqual, "SecurityScorecard 'score_change' Incident")
			So(incidents[0].Occurred, ShouldEqual, "2024-03-09T12:00:00Z")
			So(incidents[0].RawJSON, ShouldContainSubstring, `"id":"recent"`)
			So(api.lastPage, ShouldEqual, 100)

			Convey("And the checkpoint records the run and the imported id", func() {
				cp, err := store.Load(ctx, "securityscorecard")
				So(err, ShouldBeNil)
				So(cp.LastRun, ShouldEqual, now.Unix())
				So(cp.SeenIDs, ShouldResemble, []string{"recent"})
			})

			Convey("And a later run only imports alerts created after the last run", func() {
				now = now.Add(time.Hour)
				api.setAlerts(
					alertAt("recent", fetchNow.Add(-24*time.Hour)),
					alertAt("new", fetchNow.Add(30*time.Minute)),
				)
				incidents, err := c.FetchIncidents(ctx)
				So(err, ShouldBeNil)
				So(len(incidents), ShouldEqual, 1)
				So(incidents[0].RawJSON, ShouldContainSubstring, `"id":"new"`)
			})
		})

		Convey("An alert created exactly at the window start is excluded", func() {
			api.setAlerts(alertAt("edge", now.AddDate(0, 0, -7)))
			incidents, err := c.FetchIncidents(ctx)
			So(err, ShouldBeNil)
			So(incidents, ShouldBeEmpty)
		})

		Convey("An empty fetch still advances the checkpoint", func() {
			incidents, err := c.FetchIncidents(ctx)
			So(err, ShouldBeNil)
			So(incidents, ShouldBeEmpty)
			cp, err := store.Load(ctx, "securityscorecard")
			So(err, ShouldBeNil)
			So(cp.LastRun, ShouldEqual, now.Unix())
		})

		Convey("Fetch failures leave the checkpoint alone", func() {
			api.err = errors.New("vendor down")
			_, err := c.FetchIncidents(ctx)
			So(err, ShouldNotBeNil)
			_, err = store.Load(ctx, "securityscorecard")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("A username is required", func() {
			c := New(api)
			_, err := c.FetchIncidents(ctx)
			So(errors.Is(err, types.ErrInvalidArgument), ShouldBeTrue)
		})

		Convey("Checkpoint backend failures are errors", func() {
			c := New(api, WithUsername("a"), WithStore(failingStore{err: repository.ErrBackend}))
			_, err := c.FetchIncidents(ctx)
			So(errors.Is(err, repository.ErrBackend), ShouldBeTrue)
		})
	})

	Convey("Given a fetch whose incidents were not all delivered", t, func() {
		api := &fakeRatings{}
		store := repository.NewMemoryStore()
		now := fetchNow
		c := New(api,
			WithUsername("analyst@example.com"),
			WithStore(store),
			WithLookback(time.Minute),
			WithClock(func() time.Time { return now }),
		)
		ctx := context.Background()

		api.setAlerts(
			alertAt("a1", now.Add(-2*time.Hour)),
			alertAt("a2", now.Add(-time.Hour)),
		)
		incidents, err := c.FetchIncidents(ctx)
		So(err, ShouldBeNil)
		So(len(incidents), ShouldEqual, 2)
		So(incidents[1].SourceID, ShouldEqual, "a2")

		Convey("Released incidents are forgotten and fall inside the next window", func() {
			So(c.ReleaseIncidents(ctx, incidents[1:]), ShouldBeNil)

			cp, err := store.Load(ctx, "securityscorecard")
			So(err, ShouldBeNil)
			So(cp.SeenIDs, ShouldResemble, []string{"a1"})
			So(cp.LastRun, ShouldEqual, now.Add(-time.Hour+59*time.Second).Unix())

			now = now.Add(24 * time.Hour)
			again, err := c.FetchIncidents(ctx)
			So(err, ShouldBeNil)
			So(len(again), ShouldEqual, 1)
			So(again[0].SourceID, ShouldEqual, "a2")
		})

		Convey("Incidents without a source id leave the checkpoint alone", func() {
			before, err := store.Load(ctx, "securityscorecard")
			So(err, ShouldBeNil)
			So(c.ReleaseIncidents(ctx, []model.Incident{{Name: "manual"}}), ShouldBeNil)
			after, err := store.Load(ctx, "securityscorecard")
			So(err, ShouldBeNil)
			So(after, ShouldResemble, before)
		})

		Convey("Releasing before any checkpoint exists is a no-op", func() {
			fresh := New(api, WithUsername("a"), WithStore(repository.NewMemoryStore()))
			So(fresh.ReleaseIncidents(ctx, incidents), ShouldBeNil)
		})

		Convey("Checkpoint backend failures are reported", func() {
			broken := New(api, WithUsername("a"), WithStore(failingStore{err: repository.ErrBackend}))
			err := broken.ReleaseIncidents(ctx, incidents)
			So(errors.Is(err, repository.ErrBackend), ShouldBeTrue)
		})
	})

	Convey("Given a lookback wider than the fetch interval", t, func() {
		api := &fakeRatings{}
		now := fetchNow
		c := New(api,
			WithUsername("analyst@example.com"),
			WithLookback(48*time.Hour),
			WithClock(func() time.Time { return now }),
		)
		ctx := context.Background()
		api.setAlerts(alertAt("a", now.Add(-time.Hour)))

		first, err := c.FetchIncidents(ctx)
		So(err, ShouldBeNil)
		So(len(first), ShouldEqual, 1)

		Convey("Alerts seen again inside the lookback are not imported twice", func() {
			now = now.Add(time.Hour)
			api.setAlerts(alertAt("a", fetchNow.Add(-time.Hour)), alertAt("late", fetchNow.Add(-2*time.Hour)))
			again, err := c.FetchIncidents(ctx)
			So(err, ShouldBeNil)
			So(len(again), ShouldEqual, 1)
			So(again[0].RawJSON, ShouldContainSubstring, `"id":"late"`)
		})
	})

	Convey("Given a cap on incidents per fetch", t, func() {
		api := &fakeRatings{}
		store := repository.NewMemoryStore()
		now := fetchNow
		c := New(api,
			WithUsername("analyst@example.com"),
			WithStore(store),
			WithMaxIncidents(2),
			WithLookback(72*time.Hour),
			WithClock(func() time.Time { return now }),
		)
		ctx := context.Background()
		api.setAlerts(
			alertAt("1", now.Add(-3*time.Hour)),
			alertAt("2", now.Add(-2*time.Hour)),
			alertAt("3", now.Add(-time.Hour)),
		)

		incidents, err := c.FetchIncidents(ctx)
		So(err, ShouldBeNil)
		So(len(incidents), ShouldEqual, 2)
		So(api.lastPage, ShouldEqual, 2)

		Convey("The overflow is left for the next run", func() {
			cp, _ := store.Load(ctx, "securityscorecard")
			So(cp.SeenIDs, ShouldResemble, []string{"1", "2"})

			now = now.Add(time.Hour)
			next, err := c.FetchIncidents(ctx)
			So(err, ShouldBeNil)
			So(len(next), ShouldEqual, 1)
			So(next[0].RawJSON, ShouldContainSubstring, `"id":"3"`)
		})
	})
}

func TestFetchIncidentsCommand(t *testing.T) {
	Convey("The fetch-incidents command returns incidents on the result", t, func() {
		api := &fakeRatings{}
		api.setAlerts(alertAt("x", fetchNow.Add(-time.Minute)))
		c := New(api, WithUsername("u"), WithClock(func() time.Time { return fetchNow }))

		res, err := c.FetchIncidentsCommand(context.Background(), types.Args{})
		So(err, ShouldBeNil)
		So(res.ReadableOutput, ShouldEqual, "1 incidents fetched")
		So(len(res.Incidents), ShouldEqual, 1)
	})
}

func TestParseCreated(t *testing.T) {
	Convey("Alert timestamps accept optional fractions and offsets", t, func() {
		for _, s := range []string{
			"2024-03-09T12:00:00Z",
			"2024-03-09T12:00:00.123456Z",
			"2024-03-09T14:00:00+02:00",
		} {
			ts, err := parseCreated(s)
			So(err, ShouldBeNil)
			So(ts.UTC().Format("2006-01-02T15:04"), ShouldEqual, "2024-03-09T12:00")
		}
		_, err := parseCreated("09/03/2024")
		So(err, ShouldNotBeNil)
	})
}
