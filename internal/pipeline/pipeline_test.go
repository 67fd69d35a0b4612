package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/solvedboard/internal/adapters/roster"
	"github.com/okian/solvedboard/internal/adapters/source"
	"github.com/okian/solvedboard/internal/domain/model"
	"github.com/okian/solvedboard/internal/domain/types"
	"github.com/okian/solvedboard/internal/fakeupstream"
	"github.com/okian/solvedboard/internal/pipeline"
)

type memoryStore struct {
	mu    sync.Mutex
	saved []*model.Snapshot
	err   error
}

func (s *memoryStore) Save(_ context.Context, snap *model.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.saved = append(s.saved, snap)
	return nil
}

func (s *memoryStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.saved)
}

type harness struct {
	fixture *fakeupstream.Fixture
	store   *memoryStore
	clock   *clockwork.FakeClock
	p       *pipeline.Pipeline
}

func newHarness(t *testing.T, orgName string, fopts ...fakeupstream.Option) *harness {
	t.Helper()
	f := fakeupstream.Generate(fopts...)
	srv := httptest.NewServer(fakeupstream.NewServer(f, fakeupstream.WithPageSize(4)))
	t.Cleanup(srv.Close)

	client := source.New(srv.URL+fakeupstream.APIPrefix, source.WithRetry(2, time.Millisecond, time.Millisecond))
	h := &harness{
		fixture: f,
		store:   &memoryStore{},
		clock:   clockwork.NewFakeClockAt(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)),
	}
	h.p = pipeline.New(client, roster.New(client, client), h.store,
		pipeline.WithOrganization(orgName, "high_school"),
		pipeline.WithWorkers(4),
		pipeline.WithClock(h.clock))
	return h
}

func TestPipelineBuildUnratedProfiles(t *testing.T) {
	convey.Convey("Given members whose profiles carry no rating", t, func() {
		h := newHarness(t, "하나고등학교", fakeupstream.WithUnratedProfiles(3))
		want := h.fixture.Expected()

		convey.Convey("When building a snapshot", func() {
			snap, rep, err := h.p.Build(context.Background(), "run-1")
			convey.So(err, convey.ShouldBeNil)
			convey.So(rep.Partial(), convey.ShouldBeFalse)

			convey.Convey("Then their rating stays null and they rank after every rated member", func() {
				unrated := 0
				for _, m := range snap.Members {
					convey.So(m.RatingRank, convey.ShouldEqual, want.RatingRanks[m.Handle])
					if m.Rating == nil {
						unrated++
						convey.So(m.Coins, convey.ShouldBeNil)
						convey.So(m.Stardusts, convey.ShouldBeNil)
						convey.So(m.SolvedCount, convey.ShouldNotBeNil)
						continue
					}
					convey.So(unrated, convey.ShouldEqual, 0)
				}
				convey.So(unrated, convey.ShouldEqual, countUnrated(h.fixture))
				convey.So(unrated, convey.ShouldBeGreaterThan, 0)
			})
		})
	})
}

func countUnrated(f *fakeupstream.Fixture) int {
	n := 0
	for _, m := range f.Members {
		if m.Profile.Rating == nil {
			n++
		}
	}
	return n
}

func TestPipelineBuild(t *testing.T) {
	convey.Convey("Given a fake ranking service", t, func() {
		h := newHarness(t, "하나고등학교")
		want := h.fixture.Expected()

		convey.Convey("When building a snapshot", func() {
			snap, rep, err := h.p.Build(context.Background(), "run-1")
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then the organization record is resolved and enriched", func() {
				convey.So(snap.Organization.ID, convey.ShouldEqual, h.fixture.Organization.ID)
				convey.So(snap.Organization.OrganizationCount, convey.ShouldEqual, len(h.fixture.Peers))
				convey.So(snap.Organization.CategoryRank, convey.ShouldNotBeNil)
				convey.So(*snap.Organization.CategoryRank, convey.ShouldEqual, h.fixture.Organization.Rank)
				convey.So(snap.Peers, convey.ShouldResemble, h.fixture.Peers)
			})

			convey.Convey("Then comparisons use category ranks on both sides", func() {
				// Resolution reads the unfiltered ranking, where ranks span every category.
				convey.So(snap.Organization.Rank, convey.ShouldEqual, h.fixture.Organization.GlobalRank)
				convey.So(snap.Self().Rank, convey.ShouldEqual, h.fixture.Organization.Rank)
				for _, opp := range h.fixture.Peers {
					cmp := types.Compare(snap.Self(), opp)
					convey.So(cmp.Diff.Rank, convey.ShouldEqual, fmt.Sprintf("%+d", opp.Rank-h.fixture.Organization.Rank))
				}
			})

			convey.Convey("Then members carry positional and rating ranks", func() {
				convey.So(len(snap.Members), convey.ShouldEqual, len(h.fixture.Members))
				positions := map[string]int{}
				for i, handle := range h.fixture.Handles() {
					positions[handle] = i + 1
				}
				for i, m := range snap.Members {
					convey.So(m.Position, convey.ShouldEqual, positions[m.Handle])
					convey.So(m.RatingRank, convey.ShouldEqual, want.RatingRanks[m.Handle])
					if i > 0 {
						convey.So(*m.Rating, convey.ShouldBeLessThanOrEqualTo, *snap.Members[i-1].Rating)
					}
				}
			})

			convey.Convey("Then every level bucket holds the distinct solved ids", func() {
				convey.So(len(snap.Levels), convey.ShouldEqual, model.MaxLevel+1)
				for _, l := range snap.Levels {
					convey.So(len(l.ProblemIDs), convey.ShouldEqual, len(want.Levels[l.Level]))
					convey.So(l.SolvedCount, convey.ShouldEqual, len(want.Levels[l.Level]))
				}
			})

			convey.Convey("Then every catalog tag is present with its solved count", func() {
				convey.So(len(snap.Tags), convey.ShouldEqual, len(h.fixture.Tags))
				for _, tag := range snap.Tags {
					convey.So(tag.SolvedCount, convey.ShouldEqual, want.Tags[tag.ID])
				}
			})

			convey.Convey("Then the solver table lists solvers in roster order", func() {
				convey.So(len(snap.Problems), convey.ShouldEqual, len(want.Solvers))
				for i, p := range snap.Problems {
					convey.So(p.Handles, convey.ShouldResemble, want.Solvers[p.ProblemID])
					convey.So(p.UserCount, convey.ShouldEqual, len(p.Handles))
					if i > 0 {
						convey.So(p.ProblemID, convey.ShouldBeGreaterThan, snap.Problems[i-1].ProblemID)
					}
				}
			})

			convey.Convey("Then the report is clean and the snapshot is stamped by the clock", func() {
				convey.So(rep.Partial(), convey.ShouldBeFalse)
				convey.So(rep.Members, convey.ShouldEqual, len(h.fixture.Members))
				convey.So(snap.UpdatedAt, convey.ShouldEqual, h.clock.Now())
				convey.So(snap.RunID, convey.ShouldEqual, "run-1")
			})
		})

		convey.Convey("When building twice against unchanged data", func() {
			first, _, err := h.p.Build(context.Background(), "a")
			convey.So(err, convey.ShouldBeNil)
			second, _, err := h.p.Build(context.Background(), "a")
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then both snapshots are identical", func() {
				convey.So(second, convey.ShouldResemble, first)
			})
		})
	})
}

func TestPipelineRun(t *testing.T) {
	convey.Convey("Given a pipeline over a fake ranking service", t, func() {
		ctx := context.Background()
		req := model.RefreshRequest{ID: "r1", Trigger: model.TriggerManual}

		convey.Convey("When the run succeeds", func() {
			h := newHarness(t, "하나고등학교")
			err := h.p.Run(ctx, req)

			convey.Convey("Then the snapshot is saved and the report recorded", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(h.store.count(), convey.ShouldEqual, 1)
				rep, ok := h.p.LastReport()
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(rep.Outcome, convey.ShouldEqual, pipeline.OutcomeSuccess)
				convey.So(rep.Trigger, convey.ShouldEqual, model.TriggerManual)
			})
		})

		convey.Convey("When some profiles are missing", func() {
			h := newHarness(t, "하나고등학교", fakeupstream.WithMissingProfiles(3))
			err := h.p.Run(ctx, req)

			convey.Convey("Then the run is partial but still published with null members", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(h.store.count(), convey.ShouldEqual, 1)
				rep, _ := h.p.LastReport()
				convey.So(rep.Outcome, convey.ShouldEqual, pipeline.OutcomePartial)
				convey.So(len(rep.ProfileFailures), convey.ShouldEqual, 4)
				convey.So(errors.Is(rep.Err(), model.ErrPartialData), convey.ShouldBeTrue)

				snap := h.store.saved[0]
				nulls := 0
				for _, m := range snap.Members {
					if m.Rating == nil {
						nulls++
						convey.So(m.SolvedCount, convey.ShouldBeNil)
					}
				}
				convey.So(nulls, convey.ShouldEqual, 4)
				last := snap.Members[len(snap.Members)-1]
				convey.So(last.Rating, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the organization does not exist", func() {
			h := newHarness(t, "없는고등학교")
			err := h.p.Run(ctx, req)

			convey.Convey("Then the run fails and nothing is saved", func() {
				convey.So(errors.Is(err, pipeline.ErrResolve), convey.ShouldBeTrue)
				convey.So(errors.Is(err, model.ErrNotFound), convey.ShouldBeTrue)
				convey.So(h.store.count(), convey.ShouldEqual, 0)
				rep, _ := h.p.LastReport()
				convey.So(rep.Outcome, convey.ShouldEqual, pipeline.OutcomeFailed)
			})
		})

		convey.Convey("When the store rejects the snapshot", func() {
			h := newHarness(t, "하나고등학교")
			h.store.err = errors.New("disk full")
			err := h.p.Run(ctx, req)

			convey.Convey("Then the failure is reported as a persist error", func() {
				convey.So(errors.Is(err, pipeline.ErrPersist), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the run is cancelled", func() {
			h := newHarness(t, "하나고등학교")
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			err := h.p.Run(cctx, req)

			convey.Convey("Then it fails without saving", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errors.Is(err, context.Canceled), convey.ShouldBeTrue)
				convey.So(h.store.count(), convey.ShouldEqual, 0)
			})
		})
	})
}
