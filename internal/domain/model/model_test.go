package model_test

import (
	"testing"
	"time"

	model "github.com/okian/solvedboard/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestMemberConstructors(t *testing.T) {
	convey.Convey("Given a fetched profile", t, func() {
		p := model.Profile{
			Handle:          "alice",
			Tier:            model.Ptr(15),
			Rating:          model.Ptr(1800),
			ClassDecoration: model.Ptr("gold"),
			Rank:            model.Ptr(42),
		}
		m := model.MemberFromProfile(p)

		convey.Convey("Then the reported fields are populated", func() {
			convey.So(m.Handle, convey.ShouldEqual, "alice")
			convey.So(*m.Tier, convey.ShouldEqual, 15)
			convey.So(*m.Rating, convey.ShouldEqual, 1800)
			convey.So(*m.ClassDecoration, convey.ShouldEqual, "gold")
			convey.So(*m.GlobalRank, convey.ShouldEqual, 42)
		})

		convey.Convey("Then fields the profile omitted stay null", func() {
			convey.So(m.Coins, convey.ShouldBeNil)
			convey.So(m.Stardusts, convey.ShouldBeNil)
			convey.So(m.SolvedCount, convey.ShouldBeNil)
		})
	})

	convey.Convey("Given a handle whose profile failed", t, func() {
		m := model.NullMember("bob")

		convey.Convey("Then only the handle is set", func() {
			convey.So(m.Handle, convey.ShouldEqual, "bob")
			convey.So(m.Rating, convey.ShouldBeNil)
			convey.So(m.Tier, convey.ShouldBeNil)
			convey.So(m.SolvedCount, convey.ShouldBeNil)
		})
	})
}

func TestSnapshotLookups(t *testing.T) {
	convey.Convey("Given a snapshot", t, func() {
		s := &model.Snapshot{
			Levels:    []model.LevelBucket{{Level: 0}, {Level: 1, SolvedCount: 2}},
			Tags:      []model.Tag{{ID: 7, Key: "dp"}},
			Problems:  []model.ProblemSolvers{{ProblemID: 1000}, {ProblemID: 1001}, {ProblemID: 2557}},
			Peers:     []model.Organization{{Name: "Alpha High"}},
			UpdatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		}

		convey.Convey("Then rows are found by id", func() {
			b, ok := s.Level(1)
			convey.So(ok, convey.ShouldBeTrue)
			convey.So(b.SolvedCount, convey.ShouldEqual, 2)

			tag, ok := s.Tag(7)
			convey.So(ok, convey.ShouldBeTrue)
			convey.So(tag.Key, convey.ShouldEqual, "dp")

			p, ok := s.Problem(1001)
			convey.So(ok, convey.ShouldBeTrue)
			convey.So(p.ProblemID, convey.ShouldEqual, 1001)

			_, ok = s.Peer("Alpha High")
			convey.So(ok, convey.ShouldBeTrue)
		})

		convey.Convey("Then missing ids report absence", func() {
			_, ok := s.Level(31)
			convey.So(ok, convey.ShouldBeFalse)
			_, ok = s.Problem(1500)
			convey.So(ok, convey.ShouldBeFalse)
			_, ok = s.Problem(9999)
			convey.So(ok, convey.ShouldBeFalse)
			_, ok = s.Peer("Beta High")
			convey.So(ok, convey.ShouldBeFalse)
		})

		convey.Convey("Then our own row comes from the peer table", func() {
			s.Organization = model.Organization{ID: 9, Name: "Us High", Rank: 412, CategoryRank: model.Ptr(5)}
			s.Peers = append(s.Peers, model.Organization{ID: 9, Name: "Us High", Rank: 5})
			convey.So(s.Self().Rank, convey.ShouldEqual, 5)
		})

		convey.Convey("Then our own row falls back to the category rank", func() {
			s.Organization = model.Organization{ID: 9, Name: "Us High", Rank: 412, CategoryRank: model.Ptr(7)}
			self := s.Self()
			convey.So(self.Rank, convey.ShouldEqual, 7)
			convey.So(self.Name, convey.ShouldEqual, "Us High")
		})

		convey.Convey("Then age is measured from the update time", func() {
			convey.So(s.Age(s.UpdatedAt.Add(time.Hour)), convey.ShouldEqual, time.Hour)
		})
	})
}
