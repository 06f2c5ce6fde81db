package edit_test

import (
	"errors"
	"testing"

	"github.com/okian/animpath/internal/domain/curve"
	"github.com/okian/animpath/internal/domain/edit"
	"github.com/okian/animpath/internal/domain/model"
	"github.com/okian/animpath/internal/domain/path"
	. "github.com/smartystreets/goconvey/convey"
)

func TestApply(t *testing.T) {
	Convey("Given a default path", t, func() {
		m, err := path.New()
		So(err, ShouldBeNil)

		Convey("When a sequence of commands is applied", func() {
			add := edit.New(edit.AddNode)
			add.Position = model.Vec3{5, 1, 0}
			res := edit.Apply(m, add)
			So(res.Err, ShouldBeNil)
			So(res.Index, ShouldEqual, 1)
			So(res.ID, ShouldEqual, add.ID)
			So(res.Version, ShouldEqual, 1)

			timed := edit.New(edit.AddNode)
			timed.Position = model.Vec3{8, 0, 0}
			timed.Time, timed.HasTime = 0.8, true
			So(edit.Apply(m, timed).Index, ShouldEqual, 2)

			steps := []edit.Command{
				{Kind: edit.MoveNode, Index: 1, Position: model.Vec3{5, 2, 0}},
				{Kind: edit.RetimeNode, Index: 1, Time: 0.4},
				{Kind: edit.SetNodeTilt, Index: 1, Value: 30},
				{Kind: edit.SetNodeEase, Index: 1, Value: 0.3},
				{Kind: edit.SetRotationPoint, Index: 1, Position: model.Vec3{0, 9, 0}},
				{Kind: edit.AddKey, Channel: curve.Tilt, Time: 0.9, Value: 4},
				{Kind: edit.RemoveKey, Channel: curve.Tilt, Time: 0.9},
				{Kind: edit.SetWrapMode, WrapMode: model.Loop},
				{Kind: edit.SetTangentMode, TangentMode: model.Free},
				{Kind: edit.SetNodeTangents, Index: 1, In: model.Vec3{1, 0, 0}, Out: model.Vec3{1, 0, 0}},
			}
			for _, c := range steps {
				So(edit.Apply(m, c).Err, ShouldBeNil)
			}

			Convey("Then the model reflects every edit", func() {
				So(m.NodeTimestamps(), ShouldResemble, []float64{0, 0.4, 0.8, 1})
				So(m.WrapMode(), ShouldEqual, model.Loop)
				node, _ := m.Node(1)
				So(node.Position, ShouldResemble, model.Vec3{5, 2, 0})
				So(node.OutTangent, ShouldResemble, model.Vec3{1, 0, 0})
				tilt, _ := m.EvaluateChannel(curve.Tilt, 0.4)
				So(tilt, ShouldEqual, 30)
			})

			Convey("Then remove and reset work", func() {
				So(edit.Apply(m, edit.Command{Kind: edit.RemoveNode, Index: 2}).Err, ShouldBeNil)
				So(m.NodeCount(), ShouldEqual, 3)
				So(edit.Apply(m, edit.New(edit.Reset)).Err, ShouldBeNil)
				So(m.NodeCount(), ShouldEqual, 2)
			})
		})

		Convey("When replacing the path", func() {
			other, _ := path.New()
			_, _ = other.AddNode(model.Vec3{1, 1, 1}, 0.5)
			st := other.State()

			So(edit.Apply(m, edit.Command{Kind: edit.Replace, State: &st}).Err, ShouldBeNil)
			So(m.NodeCount(), ShouldEqual, 3)

			res := edit.Apply(m, edit.Command{Kind: edit.Replace})
			So(errors.Is(res.Err, path.ErrInvalidState), ShouldBeTrue)
		})

		Convey("When a command fails", func() {
			res := edit.Apply(m, edit.Command{Kind: edit.RemoveNode, Index: 0})
			So(errors.Is(res.Err, path.ErrBoundaryNode), ShouldBeTrue)
			So(res.Version, ShouldEqual, 0)

			res = edit.Apply(m, edit.Command{Kind: "explode"})
			So(errors.Is(res.Err, edit.ErrUnknownKind), ShouldBeTrue)
		})
	})
}

func TestReason(t *testing.T) {
	Convey("Given edit errors", t, func() {
		So(edit.Reason(nil), ShouldEqual, "ok")
		So(edit.Reason(path.ErrBoundaryNode), ShouldEqual, "boundary_node")
		So(edit.Reason(path.ErrInvalidTimestamp), ShouldEqual, "invalid_timestamp")
		So(edit.Reason(path.ErrDesync), ShouldEqual, "desync")
		So(edit.Reason(path.ErrReentrantMutation), ShouldEqual, "reentrant")
		So(edit.Reason(curve.ErrKeyNotFound), ShouldEqual, "key_not_found")
		So(edit.Reason(errors.New("boom")), ShouldEqual, "error")
	})
}
