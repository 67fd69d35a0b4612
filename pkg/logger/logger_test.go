package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLoggerInit(t *testing.T) {
	err := Init()
	if err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() {
		if err := Sync(); err != nil {
			t.Errorf("failed to sync logger: %v", err)
		}
	}()

	if Get() == nil {
		t.Fatal("logger is nil after initialization")
	}
}

func TestLoggerFormats(t *testing.T) {
	Convey("Given the logger formats", t, func() {
		ctx := context.Background()

		Convey("When using the json format", func() {
			var buf bytes.Buffer
			So(Init(WithFormat(FormatJSON), WithWriter(&buf)), ShouldBeNil)
			Get().Named("pipeline").Info(ctx, "run finished", Int("members", 3), String("run_id", "r1"))

			Convey("Then records are valid json with the component and fields", func() {
				var rec map[string]any
				So(json.Unmarshal(buf.Bytes(), &rec), ShouldBeNil)
				So(rec["msg"], ShouldEqual, "run finished")
				So(rec["component"], ShouldEqual, "pipeline")
				So(rec["members"], ShouldEqual, float64(3))
				So(rec["source"], ShouldContainSubstring, "logger_test.go")
			})
		})

		Convey("When using the console format", func() {
			var buf bytes.Buffer
			So(Init(WithFormat(FormatConsole), WithWriter(&buf)), ShouldBeNil)
			Get().Warn(ctx, "member skipped", String("handle", "alice"))

			Convey("Then the message is written", func() {
				So(buf.String(), ShouldContainSubstring, "member skipped")
				So(buf.String(), ShouldContainSubstring, "alice")
			})
		})

		Convey("When the format is unknown", func() {
			err := Init(WithFormat("xml"))

			Convey("Then init fails", func() {
				So(err, ShouldNotBeNil)
			})
		})

		Reset(func() {
			_ = Init()
		})
	})
}

func TestLoggerLevels(t *testing.T) {
	Convey("Given a text logger at warn level", t, func() {
		var buf bytes.Buffer
		So(Init(WithWriter(&buf)), ShouldBeNil)
		So(SetLevelString("WARN"), ShouldBeNil)
		ctx := context.Background()

		Get().Info(ctx, "hidden")
		Get().Error(ctx, "visible")

		Convey("Then only records at or above warn are written", func() {
			out := buf.String()
			So(strings.Contains(out, "hidden"), ShouldBeFalse)
			So(out, ShouldContainSubstring, "visible")
		})

		Convey("And unknown levels are rejected", func() {
			So(SetLevelString("loud"), ShouldNotBeNil)
		})

		Reset(func() {
			_ = SetLevelString("info")
		})
	})
}

func TestLoggerWith(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(WithWriter(&buf)); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	Named("test").With(String("run_id", "abc")).Info(context.Background(), "test message")
	if !strings.Contains(buf.String(), "run_id=abc") {
		t.Fatalf("expected bound field in output, got %q", buf.String())
	}
	Nop().Info(context.Background(), "discarded")
}
