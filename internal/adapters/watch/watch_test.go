package watch_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/animpath/internal/adapters/watch"
	logging "github.com/okian/animpath/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func next(w *watch.Watcher) (string, bool) {
	select {
	case name, ok := <-w.Events():
		return name, ok
	case <-time.After(3 * time.Second):
		return "", false
	}
}

func TestWatcher(t *testing.T) {
	_ = logging.Init()

	Convey("Given a watcher on an asset directory", t, func() {
		dir := t.TempDir()
		w, err := watch.New([]string{dir}, watch.WithLogger(logging.Nop()), watch.WithDebounce(50*time.Millisecond))
		So(err, ShouldBeNil)
		defer func() { _ = w.Close() }()

		Convey("When a YAML asset is written", func() {
			file := filepath.Join(dir, "orbit.yaml")
			So(os.WriteFile(file, []byte("version: 1\n"), 0o600), ShouldBeNil)
			name, ok := next(w)

			Convey("Then its path is reported", func() {
				So(ok, ShouldBeTrue)
				So(name, ShouldEqual, file)
				So(watch.AssetName(name), ShouldEqual, "orbit")
			})
		})

		Convey("When an unrelated file changes first", func() {
			So(os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600), ShouldBeNil)
			file := filepath.Join(dir, "loop.yml")
			So(os.WriteFile(file, []byte("version: 1\n"), 0o600), ShouldBeNil)
			name, ok := next(w)

			Convey("Then only the asset is reported", func() {
				So(ok, ShouldBeTrue)
				So(name, ShouldEqual, file)
			})
		})

		Convey("When closed", func() {
			So(w.Close(), ShouldBeNil)
			So(w.Close(), ShouldBeNil)

			Convey("Then the channels are closed", func() {
				_, ok := <-w.Events()
				So(ok, ShouldBeFalse)
				_, ok = <-w.Errors()
				So(ok, ShouldBeFalse)
			})
		})
	})

	Convey("Given a missing directory", t, func() {
		_, err := watch.New([]string{filepath.Join(t.TempDir(), "missing")})
		So(err, ShouldNotBeNil)
	})

	Convey("Given file names", t, func() {
		So(watch.IsAsset("a/b/path.YAML"), ShouldBeTrue)
		So(watch.IsAsset("a/b/path.json"), ShouldBeFalse)
		So(watch.AssetName("/tmp/x/camera.yaml"), ShouldEqual, "camera")
	})
}
