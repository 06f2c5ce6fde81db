package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/okian/animpath/internal/adapters/http/api"
	"github.com/okian/animpath/internal/domain/model"
	"github.com/okian/animpath/internal/domain/path"
	"github.com/okian/animpath/internal/driver"
	. "github.com/smartystreets/goconvey/convey"
)

type mockDeps struct {
	snap   *path.Snapshot
	status driver.Status
}

func (m *mockDeps) Snapshot() *path.Snapshot { return m.snap }
func (m *mockDeps) Playback() driver.Status { return m.status }
func (m *mockDeps) Stats() map[string]any { return map[string]any{"nodes": 3} }

func newMux(deps *mockDeps, opts ...api.Option) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps, deps, opts...).Register(context.Background(), mux)
	return mux
}

func get(mux *http.ServeMux, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, http.NoBody)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func TestInspectionAPI(t *testing.T) {
	Convey("Given a server over a three node path", t, func() {
		m, err := path.New()
		So(err, ShouldBeNil)
		_, err = m.AddNode(model.Vec3{5, 5, 0}, 0.5)
		So(err, ShouldBeNil)
		So(m.SetNodeTilt(1, 20), ShouldBeNil)

		deps := &mockDeps{
			snap:   m.Snapshot(),
			status: driver.Status{State: driver.Playing, TimeRatio: 0.25},
		}
		mux := newMux(deps, api.WithDefaultSamples(5), api.WithMaxSamples(50))

		Convey("When GET /healthz", func() {
			w := get(mux, "/healthz")
			var body map[string]any
			So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)

			Convey("Then it reports the published path", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldEqual, "application/json; charset=utf-8")
				So(body["status"], ShouldEqual, "ok")
				So(body["nodes"], ShouldEqual, 3.0)
				So(body["path_version"], ShouldEqual, 2.0)
				So(body["playback"], ShouldEqual, "playing")
			})
		})

		Convey("When GET /nodes", func() {
			w := get(mux, "/nodes")
			var body struct {
				WrapMode string `json:"wrap_mode"`
				Nodes    []struct {
					Index     int        `json:"index"`
					Timestamp float64    `json:"timestamp"`
					Position  [3]float64 `json:"position"`
					Tilt      float64    `json:"tilt"`
					Ease      float64    `json:"ease"`
				} `json:"nodes"`
			}
			So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)

			Convey("Then every node is listed with its channel values", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(body.WrapMode, ShouldEqual, "clamp")
				So(body.Nodes, ShouldHaveLength, 3)
				So(body.Nodes[1].Index, ShouldEqual, 1)
				So(body.Nodes[1].Timestamp, ShouldEqual, 0.5)
				So(body.Nodes[1].Position, ShouldResemble, [3]float64{5, 5, 0})
				So(body.Nodes[1].Tilt, ShouldEqual, 20)
				So(body.Nodes[1].Ease, ShouldEqual, path.DefaultEase)
			})
		})

		Convey("When GET /sample at a node time", func() {
			w := get(mux, "/sample?t=0.5")
			var body struct {
				Resolved float64    `json:"resolved"`
				Position [3]float64 `json:"position"`
				Tilt     float64    `json:"tilt"`
			}
			So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)

			Convey("Then the node is hit exactly", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(body.Resolved, ShouldEqual, 0.5)
				So(body.Position, ShouldResemble, [3]float64{5, 5, 0})
				So(body.Tilt, ShouldEqual, 20)
			})
		})

		Convey("When GET /sample past the end of a clamped path", func() {
			w := get(mux, "/sample?t=3")
			var body struct {
				Resolved float64    `json:"resolved"`
				Position [3]float64 `json:"position"`
			}
			So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)

			Convey("Then it is clamped to the last node", func() {
				So(body.Resolved, ShouldEqual, 1)
				So(body.Position, ShouldResemble, [3]float64{10, 0, 0})
			})
		})

		Convey("When GET /sample with a bad time", func() {
			missing := get(mux, "/sample")
			nan := get(mux, "/sample?t=NaN")

			Convey("Then it is rejected", func() {
				So(missing.Code, ShouldEqual, http.StatusBadRequest)
				So(missing.Body.String(), ShouldContainSubstring, "bad_request")
				So(nan.Code, ShouldEqual, http.StatusBadRequest)
				So(nan.Body.String(), ShouldContainSubstring, "out_of_range")
			})
		})

		Convey("When GET /samples", func() {
			def := get(mux, "/samples")
			two := get(mux, "/samples?n=2")
			var d, p struct {
				Points [][3]float64 `json:"points"`
			}
			So(json.Unmarshal(def.Body.Bytes(), &d), ShouldBeNil)
			So(json.Unmarshal(two.Body.Bytes(), &p), ShouldBeNil)

			Convey("Then the points span the whole path", func() {
				So(d.Points, ShouldHaveLength, 5)
				So(p.Points, ShouldResemble, [][3]float64{{0, 0, 0}, {10, 0, 0}})
			})
		})

		Convey("When GET /samples with a bad count", func() {
			So(get(mux, "/samples?n=0").Code, ShouldEqual, http.StatusBadRequest)
			So(get(mux, "/samples?n=abc").Code, ShouldEqual, http.StatusBadRequest)
			over := get(mux, "/samples?n=51")
			So(over.Code, ShouldEqual, http.StatusBadRequest)
			So(over.Body.String(), ShouldContainSubstring, "limit_exceeded")
		})

		Convey("When GET /playback", func() {
			w := get(mux, "/playback")
			var body map[string]any
			So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)

			Convey("Then the driver status is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(body["state"], ShouldEqual, "playing")
				So(body["time_ratio"], ShouldEqual, 0.25)
			})
		})

		Convey("When GET /stats and /metrics", func() {
			_ = get(mux, "/nodes")
			stats := get(mux, "/stats")
			prom := get(mux, "/metrics")

			Convey("Then both are served", func() {
				So(stats.Code, ShouldEqual, http.StatusOK)
				So(stats.Body.String(), ShouldContainSubstring, `"nodes":3`)
				So(prom.Code, ShouldEqual, http.StatusOK)
				So(prom.Body.String(), ShouldContainSubstring, "animpath_http_requests_total")
			})
		})

		Convey("When a non-GET request arrives", func() {
			req := httptest.NewRequest(http.MethodPost, "/nodes", http.NoBody)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			Convey("Then it is not found", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})
	})

	Convey("Given a server before the first snapshot", t, func() {
		mux := newMux(&mockDeps{})

		Convey("Then path routes are unavailable", func() {
			for _, target := range []string{"/healthz", "/nodes", "/sample?t=0.5", "/samples"} {
				w := get(mux, target)
				So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
				So(w.Body.String(), ShouldContainSubstring, "not_ready")
			}
			So(get(mux, "/playback").Code, ShouldEqual, http.StatusOK)
		})
	})
}

func TestRegisterNilMux(t *testing.T) {
	Convey("Given a server", t, func() {
		s := api.NewServer(&mockDeps{}, &mockDeps{})

		Convey("Then registering on a nil mux panics", func() {
			So(func() { s.Register(context.Background(), nil) }, ShouldPanic)
		})
	})
}
