package worker_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/animpath/internal/adapters/mq/queue"
	"github.com/okian/animpath/internal/adapters/mq/worker"
	"github.com/okian/animpath/internal/domain/edit"
	"github.com/okian/animpath/internal/domain/model"
	"github.com/okian/animpath/internal/domain/path"
	logging "github.com/okian/animpath/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

type mockQueue struct {
	commands chan queue.Command
}

func newMockQueue() *mockQueue {
	return &mockQueue{commands: make(chan queue.Command, 10)}
}

func (mq *mockQueue) Dequeue(ctx context.Context) <-chan queue.Command {
	return mq.commands
}

func (mq *mockQueue) send(c queue.Command) { //nolint:gocritic // hugeParam: Command is passed by value for channel semantics
	mq.commands <- c
}

func await(reply chan edit.Result) edit.Result {
	select {
	case r := <-reply:
		return r
	case <-time.After(2 * time.Second):
		return edit.Result{Err: errors.New("no reply")}
	}
}

func TestEditor(t *testing.T) {
	convey.Convey("Given a running editor", t, func() {
		_ = logging.Init()
		m, err := path.New()
		convey.So(err, convey.ShouldBeNil)
		mq := newMockQueue()
		e := worker.NewEditor(mq, m, worker.WithName("editor-test"))

		convey.So(e.Snapshot(), convey.ShouldNotBeNil)
		convey.So(e.Snapshot().Version(), convey.ShouldEqual, 0)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go e.Run(ctx)

		convey.Convey("When an edit succeeds", func() {
			reply := make(chan edit.Result, 1)
			c := edit.New(edit.AddNode)
			c.Position = model.Vec3{5, 2, 0}
			c.Reply = reply
			mq.send(c)
			res := await(reply)

			convey.Convey("Then a new snapshot is published", func() {
				convey.So(res.Err, convey.ShouldBeNil)
				convey.So(res.ID, convey.ShouldEqual, c.ID)
				convey.So(res.Index, convey.ShouldEqual, 1)
				snap := e.Snapshot()
				convey.So(snap.Version(), convey.ShouldEqual, 1)
				convey.So(snap.NodeCount(), convey.ShouldEqual, 3)
			})
		})

		convey.Convey("When an edit is rejected", func() {
			before := e.Snapshot()
			reply := make(chan edit.Result, 1)
			c := edit.New(edit.RemoveNode)
			c.Reply = reply
			mq.send(c)
			res := await(reply)

			convey.Convey("Then the snapshot is unchanged", func() {
				convey.So(errors.Is(res.Err, path.ErrBoundaryNode), convey.ShouldBeTrue)
				convey.So(e.Snapshot(), convey.ShouldEqual, before)
			})
		})

		convey.Convey("When nobody listens for the reply", func() {
			full := make(chan edit.Result)
			c := edit.New(edit.SetNodeTilt)
			c.Index = 1
			c.Reply = full
			mq.send(c)

			probe := make(chan edit.Result, 1)
			next := edit.New(edit.Reset)
			next.Reply = probe
			mq.send(next)

			convey.Convey("Then the editor keeps going", func() {
				convey.So(await(probe).Err, convey.ShouldBeNil)
			})
		})

		convey.Convey("When shutting down", func() {
			sctx, scancel := context.WithTimeout(context.Background(), time.Second)
			defer scancel()

			convey.Convey("Then it stops and a second shutdown is harmless", func() {
				convey.So(e.Shutdown(sctx), convey.ShouldBeNil)
				convey.So(e.Shutdown(sctx), convey.ShouldBeNil)
			})
		})
	})
}

func TestEditorStopsWithContext(t *testing.T) {
	convey.Convey("Given an editor on a cancelled context", t, func() {
		_ = logging.Init()
		m, _ := path.New()
		e := worker.NewEditor(newMockQueue(), m, worker.WithLogger(logging.Nop()))

		ctx, cancel := context.WithCancel(context.Background())
		stopped := make(chan struct{})
		go func() {
			e.Run(ctx)
			close(stopped)
		}()
		cancel()

		convey.Convey("Then Run returns", func() {
			select {
			case <-stopped:
			case <-time.After(2 * time.Second):
				t.Fatal("editor did not stop")
			}
		})
	})
}

func TestEditorWithQueue(t *testing.T) {
	convey.Convey("Given an editor fed by an in-memory queue", t, func() {
		_ = logging.Init()
		m, _ := path.New()
		q := queue.NewInMemoryQueue(queue.WithCapacity(64))
		e := worker.NewEditor(q, m)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go e.Run(ctx)

		reply := make(chan edit.Result, 8)
		for i := 0; i < 5; i++ {
			c := edit.New(edit.AddNode)
			c.Position = model.Vec3{float64(i) * 2, 1, 0}
			c.Reply = reply
			convey.So(q.Enqueue(ctx, c), convey.ShouldBeTrue)
		}
		for i := 0; i < 5; i++ {
			convey.So(await(reply).Err, convey.ShouldBeNil)
		}

		convey.So(e.Snapshot().NodeCount(), convey.ShouldEqual, 7)
		convey.So(e.Snapshot().Version(), convey.ShouldEqual, 5)
		_ = q.Close()
	})
}
