package queue

import (
	"context"
	"testing"
	"time"

	"github.com/okian/solvedboard/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func request(id, trigger string) model.RefreshRequest {
	return model.RefreshRequest{ID: id, Trigger: trigger, RequestedAt: time.Now()}
}

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue()
	ctx := context.Background()

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}

	if !q.Enqueue(ctx, request("r1", model.TriggerManual)) {
		t.Error("expected enqueue to succeed")
	}
	if l := q.Len(ctx); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	r := <-q.Dequeue(ctx)
	if r.ID != "r1" {
		t.Errorf("expected r1, got %v", r.ID)
	}
	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
}

func TestInMemoryQueue_Backpressure(t *testing.T) {
	Convey("Given a queue with the default capacity", t, func() {
		q := NewInMemoryQueue()
		ctx := context.Background()

		Convey("When a request is already pending", func() {
			So(q.Enqueue(ctx, request("r1", model.TriggerSchedule)), ShouldBeTrue)

			Convey("Then further requests are rejected", func() {
				So(q.Enqueue(ctx, request("r2", model.TriggerManual)), ShouldBeFalse)
				So(q.Len(ctx), ShouldEqual, 1)
			})
		})

		Convey("When the capacity is raised", func() {
			q := NewInMemoryQueue(WithCapacity(2))
			So(q.Enqueue(ctx, request("r1", model.TriggerSchedule)), ShouldBeTrue)
			So(q.Enqueue(ctx, request("r2", model.TriggerManual)), ShouldBeTrue)

			Convey("Then requests come out in order", func() {
				ch := q.Dequeue(ctx)
				So((<-ch).ID, ShouldEqual, "r1")
				So((<-ch).ID, ShouldEqual, "r2")
			})
		})

		Convey("When the context is already cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()

			Convey("Then nothing is enqueued", func() {
				So(q.Enqueue(cctx, request("r1", model.TriggerManual)), ShouldBeFalse)
				So(q.Len(ctx), ShouldEqual, 0)
			})
		})
	})
}

func TestInMemoryQueue_Close(t *testing.T) {
	Convey("Given a closed queue", t, func() {
		q := NewInMemoryQueue()
		ctx := context.Background()
		So(q.Close(), ShouldBeNil)
		So(q.Close(), ShouldBeNil)

		Convey("Then it rejects requests and its channel is closed", func() {
			So(q.IsClosed(), ShouldBeTrue)
			So(q.Enqueue(ctx, request("r1", model.TriggerManual)), ShouldBeFalse)
			_, ok := <-q.Dequeue(ctx)
			So(ok, ShouldBeFalse)
		})
	})
}
