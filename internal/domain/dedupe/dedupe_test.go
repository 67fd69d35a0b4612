package dedupe_test

import (
	"fmt"
	"sync"
	"testing"

	dedupe "github.com/okian/solvedboard/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestDeduper(t *testing.T) {
	Convey("Given a new int set", t, func() {
		d := dedupe.New[int](dedupe.WithCapacity(8))

		Convey("Then it starts empty", func() {
			So(d.Size(), ShouldEqual, 0)
			So(d.Sorted(), ShouldBeEmpty)
		})

		Convey("When recording ids", func() {
			first := d.SeenAndRecord(3)
			again := d.SeenAndRecord(3)
			d.SeenAndRecord(1)
			d.SeenAndRecord(2)

			Convey("Then duplicates are reported and counted once", func() {
				So(first, ShouldBeFalse)
				So(again, ShouldBeTrue)
				So(d.Size(), ShouldEqual, 3)
				So(d.Sorted(), ShouldResemble, []int{1, 2, 3})
			})
		})
	})

	Convey("Given a string set shared by many goroutines", t, func() {
		d := dedupe.New[string]()
		var wg sync.WaitGroup
		var mu sync.Mutex
		fresh := 0

		for g := 0; g < 8; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < 100; i++ {
					if !d.SeenAndRecord(fmt.Sprintf("handle-%d", i)) {
						mu.Lock()
						fresh++
						mu.Unlock()
					}
				}
			}()
		}
		wg.Wait()

		Convey("Then each id is newly recorded exactly once", func() {
			So(fresh, ShouldEqual, 100)
			So(d.Size(), ShouldEqual, 100)
		})
	})
}
