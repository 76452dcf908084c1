package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with a dedicated registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then collectors should be registered on it", func() {
				So(manager, ShouldNotBeNil)
				manager.submissionsTotal.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				So(len(families), ShouldBeGreaterThan, 0)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{1, 10, 100}),
				WithRULBuckets([]float64{50, 100}),
				WithCustomLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then metric names should use the namespace and subsystem", func() {
				manager.submissionsIgnored.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				names := make([]string, 0, len(families))
				for _, f := range families {
					names = append(names, f.GetName())
				}
				So(names, ShouldContain, "test_unit_submissions_ignored_total")
			})
		})

		Convey("When metrics are disabled", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithMetricsEnabled(false), WithPrometheusRegistry(registry))

			Convey("Then nothing should be registered on the given registry", func() {
				manager.submissionsTotal.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				So(families, ShouldBeEmpty)
			})
		})
	})
}

func TestSubmissionMetrics(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When recording a succeeded prediction", func() {
			before := testutil.ToFloat64(globalManager.predictionsOK)
			RecordPredictionSucceeded("Stage 2", 87.5)

			Convey("Then the success counter should increase by one", func() {
				So(testutil.ToFloat64(globalManager.predictionsOK), ShouldEqual, before+1)
				So(testutil.ToFloat64(globalManager.failureTypes.WithLabelValues("Stage 2")), ShouldBeGreaterThanOrEqualTo, 1)
			})
		})

		Convey("When recording failures by kind", func() {
			before := testutil.ToFloat64(globalManager.predictionsFailed.WithLabelValues("malformed"))
			RecordPredictionFailed("malformed")
			RecordPredictionFailed("service")

			Convey("Then each kind should be counted separately", func() {
				So(testutil.ToFloat64(globalManager.predictionsFailed.WithLabelValues("malformed")), ShouldEqual, before+1)
			})
		})

		Convey("When recording other lifecycle metrics", func() {
			Convey("Then none of them should panic", func() {
				So(func() {
					RecordSubmission()
					RecordSubmissionIgnored()
					RecordStaleResponse()
					RecordPredictionLatency(120)
					UpdateActiveSessions(3)
					RecordSessionOpened()
					RecordSessionExpired()
					AddHistoryEntries(2)
					UpdateHistoryEntries(0)
					RecordSubscriberDrop()
					RecordNotificationDrop()
				}, ShouldNotPanic)
			})
		})
	})
}

func TestInfrastructureMetrics(t *testing.T) {
	Convey("Given queue, worker, HTTP and system metrics", t, func() {
		So(func() {
			UpdateQueueSize(4)
			UpdateQueueCapacity(16)
			UpdateQueueUtilization(0.25)
			RecordQueueEnqueue()
			RecordQueueDequeue()
			RecordQueueEnqueueError()
			RecordQueueProcessingLatency(1)
			UpdateWorkerCount(4)
			IncWorkerBusy()
			DecWorkerBusy()
			RecordWorkerProcessingLatency(30)
			RecordHTTPRequest("submit", "POST", "202")
			RecordHTTPRequestDuration("submit", "POST", "202", 3)
			RecordErrorByComponent("predictor", "timeout")
			RecordErrorByType("service_error", "high")
			RecordErrorByEndpoint("submit", "POST", "client_error")
			RecordErrorLatency("http", "client_error", 2)
			UpdateSystemMemoryUsage(1 << 20)
			UpdateSystemGoroutineCount(12)
			RecordSystemGCPauseTime(0.2)
		}, ShouldNotPanic)

		Convey("Then the registry should be served", func() {
			So(GetRegistry(), ShouldNotBeNil)
		})
	})
}
