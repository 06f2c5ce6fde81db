package timesync_test

import (
	"errors"
	"testing"

	"github.com/okian/animpath/internal/domain/curve"
	"github.com/okian/animpath/internal/domain/timesync"
	. "github.com/smartystreets/goconvey/convey"
)

func auxCurves() map[curve.Channel]*curve.Curve {
	ease, _ := curve.New(curve.Key{Time: 0, Value: 0.1}, curve.Key{Time: 1, Value: 0.5})
	tilt, _ := curve.New(curve.Key{Time: 0, Value: 0}, curve.Key{Time: 0.25, Value: 30}, curve.Key{Time: 1, Value: 0})
	return map[curve.Channel]*curve.Curve{curve.Ease: ease, curve.Tilt: tilt}
}

func TestSyncer(t *testing.T) {
	Convey("Given auxiliary curves keyed at 0 and 1", t, func() {
		curves := auxCurves()
		s := timesync.New(curves, timesync.WithMatchTolerance(0.00005))

		So(s.Channels(), ShouldResemble, []curve.Channel{curve.Ease, curve.Tilt})
		So(s.Verify([]float64{0, 1}), ShouldBeNil)

		Convey("When a node is added at 0.5", func() {
			before, _ := curves[curve.Ease].Evaluate(0.5)
			So(s.OnNodeAdded(0.5), ShouldBeNil)

			Convey("Then every curve is keyed there with its previous value", func() {
				So(s.Verify([]float64{0, 0.5, 1}), ShouldBeNil)
				i, ok := curves[curve.Ease].Find(0.5, timesync.Tolerance)
				So(ok, ShouldBeTrue)
				So(curves[curve.Ease].Key(i).Value, ShouldAlmostEqual, before, 1e-12)
				So(curves[curve.Ease].Key(i).InTangent, ShouldEqual, 0)
			})

			Convey("Then removing the node drops the key again", func() {
				So(s.OnNodeRemoved(0.5), ShouldBeNil)
				So(curves[curve.Ease].Times(), ShouldResemble, []float64{0, 1})
				So(curves[curve.Tilt].Times(), ShouldResemble, []float64{0, 0.25, 1})
			})

			Convey("Then a drifted removal still matches within the tolerance", func() {
				So(s.OnNodeRemoved(0.50004), ShouldBeNil)
				So(curves[curve.Ease].Len(), ShouldEqual, 2)
				So(errors.Is(s.OnNodeRemoved(0.5), timesync.ErrDesync), ShouldBeTrue)
			})
		})

		Convey("When a node is added next to a virtual key and removed again", func() {
			So(s.OnNodeAdded(0.25004), ShouldBeNil)
			So(curves[curve.Tilt].Times(), ShouldResemble, []float64{0, 0.25, 0.25004, 1})
			So(s.OnNodeRemoved(0.25004), ShouldBeNil)

			Convey("Then the virtual key is untouched", func() {
				So(curves[curve.Tilt].Times(), ShouldResemble, []float64{0, 0.25, 1})
				So(curves[curve.Tilt].Key(1).Value, ShouldEqual, 30)
				So(curves[curve.Ease].Times(), ShouldResemble, []float64{0, 1})
			})
		})

		Convey("When a node lands exactly on a virtual key", func() {
			err := s.OnNodeAdded(0.25)

			Convey("Then the add is refused before any curve changes", func() {
				So(errors.Is(err, timesync.ErrKeyTaken), ShouldBeTrue)
				So(curves[curve.Ease].Times(), ShouldResemble, []float64{0, 1})
				So(curves[curve.Tilt].Times(), ShouldResemble, []float64{0, 0.25, 1})
			})
		})

		Convey("When a node is retimed onto or next to a virtual key", func() {
			So(s.OnNodeAdded(0.5), ShouldBeNil)
			So(errors.Is(s.OnNodeRetimed(0.5, 0.25), timesync.ErrKeyTaken), ShouldBeTrue)

			other := auxCurves()
			s2 := timesync.New(other)
			So(s2.OnNodeAdded(0.5), ShouldBeNil)
			So(s2.OnNodeRetimed(0.5, 0.25005), ShouldBeNil)

			Convey("Then a nearby virtual key keeps its value", func() {
				So(s2.Verify([]float64{0, 0.25005, 1}), ShouldBeNil)
				So(other[curve.Tilt].Times(), ShouldResemble, []float64{0, 0.25, 0.25005, 1})
				So(other[curve.Tilt].Key(1).Value, ShouldEqual, 30)
			})
		})

		Convey("When a node is retimed", func() {
			So(s.OnNodeAdded(0.5), ShouldBeNil)
			i, _ := curves[curve.Ease].Find(0.5, timesync.Tolerance)
			key := curves[curve.Ease].Key(i)

			So(s.OnNodeRetimed(0.5, 0.1), ShouldBeNil)

			Convey("Then the key moves with its value, passing virtual keys", func() {
				So(s.Verify([]float64{0, 0.1, 1}), ShouldBeNil)
				j, ok := curves[curve.Ease].Find(0.1, timesync.Tolerance)
				So(ok, ShouldBeTrue)
				So(curves[curve.Ease].Key(j).Value, ShouldEqual, key.Value)
				So(curves[curve.Tilt].Times(), ShouldResemble, []float64{0, 0.1, 0.25, 1})
			})
		})

		Convey("When a curve misses a node timestamp", func() {
			err := s.Verify([]float64{0, 0.7, 1})

			Convey("Then it is a desync", func() {
				So(errors.Is(err, timesync.ErrDesync), ShouldBeTrue)
				So(errors.Is(s.OnNodeRemoved(0.7), timesync.ErrDesync), ShouldBeTrue)
				So(errors.Is(s.OnNodeRetimed(0.7, 0.8), timesync.ErrDesync), ShouldBeTrue)
			})
		})

		Convey("When resetting", func() {
			So(s.OnNodeAdded(0.6), ShouldBeNil)
			So(s.Reset(0, 1), ShouldBeNil)

			Convey("Then only the endpoint keys remain", func() {
				So(curves[curve.Ease].Times(), ShouldResemble, []float64{0, 1})
				So(curves[curve.Tilt].Times(), ShouldResemble, []float64{0, 1})
			})
		})
	})

	Convey("Given a shape-preserving syncer", t, func() {
		curves := auxCurves()
		s := timesync.New(curves, timesync.WithShapePreserving(true))
		samples := make([]float64, 11)
		for i := range samples {
			samples[i], _ = curves[curve.Tilt].Evaluate(float64(i) / 10)
		}

		So(s.OnNodeAdded(0.6), ShouldBeNil)

		Convey("Then the curve evaluates as before", func() {
			for i := range samples {
				v, _ := curves[curve.Tilt].Evaluate(float64(i) / 10)
				So(v, ShouldAlmostEqual, samples[i], 1e-9)
			}
		})
	})
}
