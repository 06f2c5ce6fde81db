package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	. "github.com/smartystreets/goconvey/convey"
)

func value(m prometheus.Metric) float64 {
	var out dto.Metric
	if err := m.Write(&out); err != nil {
		return -1
	}
	switch {
	case out.Counter != nil:
		return out.Counter.GetValue()
	case out.Gauge != nil:
		return out.Gauge.GetValue()
	}
	return -1
}

func TestManagerCreation(t *testing.T) {
	Convey("Given a fresh registry", t, func() {
		registry := prometheus.NewRegistry()

		Convey("When creating a manager with custom options", func() {
			m := NewManager(
				WithNamespace("test"),
				WithSubsystem("path"),
				WithMetricPrefix("x"),
				WithHistogramBuckets([]float64{0.1, 1, 10}),
				WithConstLabels(map[string]string{"asset": "intro"}),
				WithMetricsEnabled(false),
				WithPrometheusRegistry(registry),
			)

			Convey("Then collectors are registered under the configured names", func() {
				So(m, ShouldNotBeNil)
				So(m.Enabled(), ShouldBeFalse)

				m.pathResets.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)

				var found bool
				for _, f := range families {
					if f.GetName() == "test_path_x_path_resets_total" {
						found = true
						So(f.GetMetric()[0].GetLabel()[0].GetValue(), ShouldEqual, "intro")
					}
				}
				So(found, ShouldBeTrue)
			})
		})

		Convey("When empty options are passed", func() {
			m := NewManager(WithNamespace(""), WithSubsystem(""), WithHistogramBuckets(nil), WithPrometheusRegistry(registry))

			Convey("Then defaults are kept", func() {
				So(m.namespace, ShouldEqual, "animpath")
				So(m.subsystem, ShouldEqual, "runtime")
				So(m.histogramBuckets, ShouldResemble, prometheus.DefBuckets)
			})
		})
	})
}

func TestPackageRecorders(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When recording path mutations", func() {
			before := value(globalManager.nodeMutations.WithLabelValues("add"))
			RecordNodeMutation("add")
			RecordNodeMutation("add")

			Convey("Then the counter moves", func() {
				So(value(globalManager.nodeMutations.WithLabelValues("add")), ShouldEqual, before+2)
			})
		})

		Convey("When updating gauges", func() {
			UpdateNodeCount(5)
			UpdateDriverTimeRatio(0.25)
			UpdateQueueSize(3)
			UpdateQueueCapacity(64)

			Convey("Then they hold the last value", func() {
				So(value(globalManager.nodeCount), ShouldEqual, 5)
				So(value(globalManager.driverTimeRatio), ShouldEqual, 0.25)
				So(value(globalManager.queueSize), ShouldEqual, 3)
				So(value(globalManager.queueCapacity), ShouldEqual, 64)
			})
		})

		Convey("When the driver state changes", func() {
			all := []string{"stopped", "playing", "paused"}
			UpdateDriverState("playing", all)

			Convey("Then only the active state is set", func() {
				So(value(globalManager.driverState.WithLabelValues("playing")), ShouldEqual, 1)
				So(value(globalManager.driverState.WithLabelValues("paused")), ShouldEqual, 0)
				So(value(globalManager.driverState.WithLabelValues("stopped")), ShouldEqual, 0)
			})
		})

		Convey("When recording everything else", func() {
			So(func() {
				RecordMutationReject("remove", "boundary_node")
				RecordPathReset()
				RecordSampleLatency(0.2)
				RecordSampleFailure("position")
				RecordDriverTick(0.1)
				RecordNodeCrossing()
				RecordScriptRun("ok")
				RecordHeldPose()
				RecordSnapshotPublished()
				RecordStoreOperation("file", "save", "ok", 1.5)
				RecordAssetReload()
				RecordQueueReject()
				RecordCommand("add_node", "ok", 0.05)
				RecordHTTPRequest("/sample", "GET", "200", 0.3)
			}, ShouldNotPanic)
		})
	})
}

func TestHandler(t *testing.T) {
	Convey("Given the metrics handler", t, func() {
		RecordPathReset()
		rec := httptest.NewRecorder()
		Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

		Convey("Then it exposes the runtime metrics", func() {
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(strings.Contains(rec.Body.String(), "animpath_runtime_path_resets_total"), ShouldBeTrue)
		})
	})
}
