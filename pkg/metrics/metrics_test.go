package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should be created successfully", func() {
				So(manager, ShouldNotBeNil)
				So(manager.namespace, ShouldEqual, "soarbridge")
				So(manager.refreshInterval, ShouldEqual, defaultRefreshInterval)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test_namespace"),
				WithSubsystem("test_subsystem"),
				WithMetricPrefix("pfx"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithRefreshInterval(5*time.Second),
				WithCustomLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then names and constant labels should follow the options", func() {
				manager.alertsFetched.Add(3)
				families, err := registry.Gather()
				So(err, ShouldBeNil)

				found := false
				for _, mf := range families {
					if mf.GetName() == "test_namespace_test_subsystem_pfx_alerts_fetched_total" {
						found = true
						So(mf.GetMetric()[0].GetLabel()[0].GetName(), ShouldEqual, "env")
						So(mf.GetMetric()[0].GetCounter().GetValue(), ShouldEqual, 3)
					}
				}
				So(found, ShouldBeTrue)
				So(manager.refreshInterval, ShouldEqual, 5*time.Second)
			})
		})

		Convey("When creating with empty or invalid option values", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace(""),
				WithHistogramBuckets(nil),
				WithCustomLabels(nil),
				WithRefreshInterval(-1*time.Second),
				WithPrometheusRegistry(registry),
			)

			Convey("Then defaults should be kept", func() {
				So(manager.namespace, ShouldEqual, "soarbridge")
				So(manager.histogramBuckets, ShouldResemble, prometheus.DefBuckets)
				So(manager.customLabels, ShouldNotBeNil)
				So(manager.refreshInterval, ShouldEqual, defaultRefreshInterval)
			})
		})
	})
}

func TestGlobalRecorders(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When recording fetch metrics", func() {
			before := testutil.ToFloat64(global().incidentsImported)
			RecordIncidentsImported(2)
			RecordIncidentDuplicate()
			RecordAlertOutsideWindow()
			RecordAlertsFetched(4)
			RecordFetchRun("success")
			UpdateLastFetch(time.Unix(1700000000, 0))

			Convey("Then the counters should move", func() {
				So(testutil.ToFloat64(global().incidentsImported)-before, ShouldEqual, 2)
				So(testutil.ToFloat64(global().lastFetchUnix), ShouldEqual, 1700000000)
				So(testutil.ToFloat64(global().fetchRuns.WithLabelValues("success")), ShouldBeGreaterThanOrEqualTo, 1)
			})
		})

		Convey("When recording vendor and command metrics", func() {
			So(func() {
				RecordCommand("clarizen", "get-user", "success", 12)
				RecordVendorRequest("clarizen", "GET", 200, 8)
				RecordVendorError("securityscorecard", "transport")
				UpdateBreakerState("securityscorecard", 2)
				RecordCheckpointOperation("redis", "save", "success", 1.5)
			}, ShouldNotPanic)
			So(testutil.ToFloat64(global().breakerState.WithLabelValues("securityscorecard")), ShouldEqual, 2)
		})

		Convey("When recording queue, HTTP and process metrics", func() {
			So(func() {
				UpdateQueueSize(3)
				UpdateQueueCapacity(100)
				RecordQueueEnqueue()
				RecordQueueDequeue(3)
				RecordQueueEnqueueError()
				RecordHTTPRequest("/commands", "POST", "200")
				RecordHTTPRequestDuration("/commands", "POST", "200", 5.0)
				RecordErrorByEndpoint("/commands", "POST", "bad_request")
				UpdateSystemMemoryUsage(1024)
				UpdateSystemGoroutineCount(8)
				RecordSystemGCPauseTime(0.3)
			}, ShouldNotPanic)
			So(testutil.ToFloat64(global().queueCapacity), ShouldEqual, 100)
		})

		Convey("When reading the registry", func() {
			So(GetRegistry(), ShouldEqual, current.Load().registry)
			So(RefreshInterval(), ShouldEqual, defaultRefreshInterval)
		})
	})
}

func TestConfigure(t *testing.T) {
	Convey("Given package-level metrics configured with a prefix and labels", t, func() {
		before := GetRegistry()
		Configure(
			WithMetricPrefix("soar"),
			WithCustomLabels(map[string]string{"site": "eu"}),
			WithRefreshInterval(3*time.Second),
		)
		Reset(func() { Configure() })

		RecordIncidentsImported(4)

		Convey("Then recorders should write to a fresh registry", func() {
			So(GetRegistry(), ShouldNotEqual, before)
			So(RefreshInterval(), ShouldEqual, 3*time.Second)

			families, err := GetRegistry().Gather()
			So(err, ShouldBeNil)
			found := false
			for _, mf := range families {
				if mf.GetName() != "soarbridge_adapters_soar_incidents_imported_total" {
					continue
				}
				found = true
				So(mf.GetMetric()[0].GetLabel()[0].GetName(), ShouldEqual, "site")
				So(mf.GetMetric()[0].GetLabel()[0].GetValue(), ShouldEqual, "eu")
				So(mf.GetMetric()[0].GetCounter().GetValue(), ShouldEqual, 4)
			}
			So(found, ShouldBeTrue)
		})
	})
}
