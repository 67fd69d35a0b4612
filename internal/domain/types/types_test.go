package types_test

import (
	"testing"

	"github.com/okian/solvedboard/internal/domain/model"
	types "github.com/okian/solvedboard/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestCompare(t *testing.T) {
	Convey("Given two organizations", t, func() {
		us := model.Organization{Name: "us", Rating: 2000, Rank: 5, UserCount: 40, SolvedCount: 900}
		opponent := model.Organization{Name: "them", Rating: 1800, Rank: 10, UserCount: 55, SolvedCount: 900}

		Convey("When comparing us against the opponent", func() {
			c := types.Compare(us, opponent)

			Convey("Then we outrate them by 200 and outrank them by 5", func() {
				So(c.Diff.Rating, ShouldEqual, "+200")
				So(c.Diff.Rank, ShouldEqual, "+5")
			})

			Convey("Then smaller counts produce negative deltas and equal ones +0", func() {
				So(c.Diff.UserCount, ShouldEqual, "-15")
				So(c.Diff.SolvedCount, ShouldEqual, "+0")
			})

			Convey("Then both records are carried unchanged", func() {
				So(c.Us, ShouldResemble, us)
				So(c.Opponent, ShouldResemble, opponent)
			})
		})

		Convey("When the opponent is ranked higher", func() {
			c := types.Compare(opponent, us)

			Convey("Then the rank delta is negative", func() {
				So(c.Diff.Rank, ShouldEqual, "-5")
				So(c.Diff.Rating, ShouldEqual, "-200")
			})
		})
	})
}
