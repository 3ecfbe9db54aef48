package scorecard

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/okian/soarbridge/internal/adapters/http/rest"
	. "github.com/smartystreets/goconvey/convey"
)

type call struct {
	method string
	path   string
	query  map[string][]string
	auth   string
	body   map[string]any
}

func newServer(handler func(w http.ResponseWriter, r *http.Request)) (*httptest.Server, *[]call) {
	calls := &[]call{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c := call{method: r.Method, path: r.URL.Path, query: r.URL.Query(), auth: r.Header.Get("Authorization")}
		if raw, _ := io.ReadAll(r.Body); len(raw) > 0 {
			_ = json.Unmarshal(raw, &c.body)
		}
		*calls = append(*calls, c)
		handler(w, r)
	}))
	return srv, calls
}

func TestClient(t *testing.T) {
	Convey("Given a ratings server", t, func() {
		srv, calls := newServer(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/users/by-username/ops@example.com/notifications/recent":
				_, _ = w.Write([]byte(`{"entries":[{"id":"n1","change_type":"score_change","domain":"a.com","created_at":"2024-03-01T10:00:00.000Z","change_data":[{"direction":"drops","score":70}]}]}`))
			case "/users/by-username/mixed@example.com/notifications/recent":
				_, _ = w.Write([]byte(`{"entries":[{"id":7,"change_type":"score_change"},{"id":"n2","change_type":"grade_change","created_at":"2024-03-02T10:00:00Z"}]}`))
			case "/users/by-username/ops@example.com/alerts/grade", "/users/by-username/ops@example.com/alerts/score":
				_, _ = w.Write([]byte(`{"id":"alert-1"}`))
			case "/users/by-username/ops@example.com/alerts/score/alert-1":
				w.WriteHeader(http.StatusNoContent)
			case "/companies/unknown.com":
				w.WriteHeader(http.StatusNotFound)
				_, _ = w.Write([]byte(`{"error":{"message":"company not found"}}`))
			default:
				_, _ = w.Write([]byte(`{"total":1,"entries":[{"id":"p1","name":"Main"}]}`))
			}
		})
		defer srv.Close()

		c := New(rest.New("scorecard", srv.URL+"/"), "key-1")
		ctx := context.Background()

		Convey("A malformed alert entry should be skipped, not fail the feed", func() {
			alerts, err := c.FetchAlerts(ctx, "mixed@example.com", 10)
			So(err, ShouldBeNil)
			So(alerts, ShouldHaveLength, 1)
			So(alerts[0].ID, ShouldEqual, "n2")
			So(string(alerts[0].Raw), ShouldContainSubstring, `"grade_change"`)
		})

		Convey("Portfolios should authenticate with the token", func() {
			p, err := c.Portfolios(ctx)
			So(err, ShouldBeNil)
			So(p.Total, ShouldEqual, 1)
			So(p.Entries[0]["id"], ShouldEqual, "p1")
			So((*calls)[0].auth, ShouldEqual, "Token key-1")
			So((*calls)[0].path, ShouldEqual, "/portfolios")
		})

		Convey("Company filters should only send set values", func() {
			_, err := c.PortfolioCompanies(ctx, "p1", CompanyFilter{Grade: "B", Industry: "TECHNOLOGY", HadBreachWithinLastDays: 30})
			So(err, ShouldBeNil)
			got := (*calls)[0]
			So(got.path, ShouldEqual, "/portfolios/p1/companies")
			So(got.query["grade"], ShouldResemble, []string{"B"})
			So(got.query["industry"], ShouldResemble, []string{"TECHNOLOGY"})
			So(got.query["had_breach_within_last_days"], ShouldResemble, []string{"30"})
			So(got.query, ShouldNotContainKey, "vulnerability")
		})

		Convey("Factor severities should be repeated", func() {
			_, err := c.CompanyFactors(ctx, "a.com", []string{"high", "medium"})
			So(err, ShouldBeNil)
			So((*calls)[0].query["severity_in"], ShouldResemble, []string{"high", "medium"})
		})

		Convey("History queries should carry the window", func() {
			_, err := c.HistoryScore(ctx, "a.com", HistoryQuery{From: "2024-01-01", Timing: "weekly"})
			So(err, ShouldBeNil)
			got := (*calls)[0]
			So(got.path, ShouldEqual, "/companies/a.com/history/score")
			So(got.query["from"], ShouldResemble, []string{"2024-01-01"})
			So(got.query["timing"], ShouldResemble, []string{"weekly"})
			So(got.query, ShouldNotContainKey, "to")

			_, err = c.HistoryFactorScore(ctx, "a.com", HistoryQuery{})
			So(err, ShouldBeNil)
			So((*calls)[1].path, ShouldEqual, "/companies/a.com/history/factors/score")
		})

		Convey("A missing company should surface the status", func() {
			_, err := c.CompanyScore(ctx, "unknown.com")
			var se *rest.StatusError
			So(errors.As(err, &se), ShouldBeTrue)
			So(se.StatusCode, ShouldEqual, http.StatusNotFound)
			So(se.Message, ShouldEqual, "company not found")
			So(errors.Is(err, rest.ErrBadStatus), ShouldBeTrue)
		})

		Convey("Alert subscriptions should post their payload", func() {
			id, err := c.CreateThresholdAlert(ctx, "ops@example.com", ThresholdAlert{
				ChangeDirection: "drops_below", Threshold: 70, ScoreTypes: []string{"overall"}, Target: []string{"my_scorecard"},
			})
			So(err, ShouldBeNil)
			So(id, ShouldEqual, "alert-1")
			got := (*calls)[0]
			So(got.method, ShouldEqual, http.MethodPost)
			So(got.body["threshold"], ShouldEqual, float64(70))
			So(got.body["score_types"], ShouldResemble, []any{"overall"})

			id, err = c.CreateGradeAlert(ctx, "ops@example.com", GradeAlert{ChangeDirection: "drops"})
			So(err, ShouldBeNil)
			So(id, ShouldEqual, "alert-1")
			So((*calls)[1].body, ShouldNotContainKey, "target")
		})

		Convey("Deleting an alert should accept an empty body", func() {
			So(c.DeleteAlert(ctx, "ops@example.com", "score", "alert-1"), ShouldBeNil)
			So((*calls)[0].method, ShouldEqual, http.MethodDelete)
		})

		Convey("Fetching alerts should sort newest first and keep raw entries", func() {
			alerts, err := c.FetchAlerts(ctx, "ops@example.com", 0)
			So(err, ShouldBeNil)
			So(alerts, ShouldHaveLength, 1)
			So(alerts[0].ID, ShouldEqual, "n1")
			So(alerts[0].ChangeData[0].Direction, ShouldEqual, "drops")
			So(string(alerts[0].Raw), ShouldContainSubstring, `"change_type":"score_change"`)

			got := (*calls)[0]
			So(got.query["page_size"], ShouldResemble, []string{"100"})
			So(got.query["sort"], ShouldResemble, []string{"date"})
			So(got.query["order"], ShouldResemble, []string{"desc"})
			So(got.query["username"], ShouldResemble, []string{"ops@example.com"})
		})

		Convey("Recent alerts may be limited to a portfolio", func() {
			_, err := c.RecentAlerts(ctx, "ops@example.com", "p1")
			So(err, ShouldBeNil)
			So((*calls)[0].query["portfolio"], ShouldResemble, []string{"p1"})
		})
	})
}
