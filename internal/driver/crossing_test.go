package driver

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/animpath/internal/domain/model"
)

func TestCrossings(t *testing.T) {
	ts := []float64{0, 0.5, 1}

	Convey("Given a clamped path", t, func() {
		Convey("Then only passed nodes are reported", func() {
			So(crossings(model.Clamp, ts, 0, 0.4), ShouldBeEmpty)
			So(crossings(model.Clamp, ts, 0.4, 1), ShouldResemble, []Crossing{
				{Node: 1, Timestamp: 0.5, Lap: 0},
				{Node: 2, Timestamp: 1, Lap: 0},
			})
			So(crossings(model.Clamp, ts, 0.5, 0.5), ShouldBeEmpty)
		})
	})

	Convey("Given a looping path", t, func() {
		got := crossings(model.Loop, ts, 0.4, 2.6)

		Convey("Then every lap reports its nodes in travel order", func() {
			So(got, ShouldResemble, []Crossing{
				{Node: 1, Timestamp: 0.5, Lap: 0},
				{Node: 2, Timestamp: 1, Lap: 0},
				{Node: 0, Timestamp: 0, Lap: 1},
				{Node: 1, Timestamp: 0.5, Lap: 1},
				{Node: 2, Timestamp: 1, Lap: 1},
				{Node: 0, Timestamp: 0, Lap: 2},
				{Node: 1, Timestamp: 0.5, Lap: 2},
			})
		})

		Convey("Then moving backwards reverses the order", func() {
			So(crossings(model.Loop, ts, 1.6, 0.9), ShouldResemble, []Crossing{
				{Node: 1, Timestamp: 0.5, Lap: 1},
				{Node: 0, Timestamp: 0, Lap: 1},
				{Node: 2, Timestamp: 1, Lap: 0},
			})
		})
	})

	Convey("Given a ping-pong path", t, func() {
		got := crossings(model.PingPong, ts, 0.4, 1.8)

		Convey("Then the turning node fires once", func() {
			So(got, ShouldResemble, []Crossing{
				{Node: 1, Timestamp: 0.5, Lap: 0},
				{Node: 2, Timestamp: 1, Lap: 0},
				{Node: 1, Timestamp: 0.5, Lap: 1},
			})
		})
	})
}

func TestLookRotation(t *testing.T) {
	Convey("Given a direction along +X", t, func() {
		q, ok := lookRotation(model.Vec3{3, 0, 0})

		Convey("Then local forward maps onto it and up stays up", func() {
			So(ok, ShouldBeTrue)
			So(q.Rotate(forwardAxis).ApproxEqualThreshold(model.Vec3{1, 0, 0}, 1e-9), ShouldBeTrue)
			So(q.Rotate(worldUp).ApproxEqualThreshold(model.Vec3{0, 1, 0}, 1e-9), ShouldBeTrue)
		})
	})

	Convey("Given a vertical direction", t, func() {
		q, ok := lookRotation(model.Vec3{0, -2, 0})
		So(ok, ShouldBeTrue)
		So(q.Rotate(forwardAxis).ApproxEqualThreshold(model.Vec3{0, -1, 0}, 1e-9), ShouldBeTrue)
	})

	Convey("Given a zero direction", t, func() {
		_, ok := lookRotation(model.Vec3{})
		So(ok, ShouldBeFalse)
	})

	Convey("Given a tilted heading", t, func() {
		q, _ := lookRotation(model.Vec3{1, 0, 0})
		r := withTilt(q, 90)

		Convey("Then forward is kept and up rolls about it", func() {
			So(r.Rotate(forwardAxis).ApproxEqualThreshold(model.Vec3{1, 0, 0}, 1e-9), ShouldBeTrue)
			So(r.Rotate(worldUp).ApproxEqualThreshold(model.Vec3{0, 0, 1}, 1e-9), ShouldBeTrue)
		})
	})

	Convey("Given two opposite-signed quaternions", t, func() {
		a := mgl64.QuatIdent()
		b := mgl64.QuatRotate(math.Pi/2, worldUp).Scale(-1)
		mid := slerp(a, b, 0.5)

		Convey("Then slerp takes the short arc", func() {
			want := mgl64.QuatRotate(math.Pi/4, worldUp)
			So(math.Abs(mid.Dot(want)), ShouldAlmostEqual, 1, 1e-9)
		})
	})
}

func TestParseSmoothing(t *testing.T) {
	Convey("Given smoothing names", t, func() {
		s, err := ParseSmoothing("slerp")
		So(err, ShouldBeNil)
		So(s, ShouldEqual, Slerp)
		So(s.String(), ShouldEqual, "slerp")
		s, _ = ParseSmoothing("lookat")
		So(s, ShouldEqual, LookAt)
		_, err = ParseSmoothing("spin")
		So(err, ShouldNotBeNil)
	})
}
