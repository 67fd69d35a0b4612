// Package pipeline is the crawl and aggregation pipeline: it resolves the
// organization, fans out over its members, folds their solved problems into
// the level, tag and per-problem views, and persists the snapshot.
package pipeline

import (
	"context"
	"fmt"
	"iter"
	"runtime"
	"sync/atomic"

	"github.com/alitto/pond/v2"
	"github.com/jonboulle/clockwork"

	"github.com/okian/solvedboard/internal/adapters/source"
	"github.com/okian/solvedboard/internal/domain/aggregate"
	"github.com/okian/solvedboard/internal/domain/model"
	"github.com/okian/solvedboard/internal/domain/ranking"
	"github.com/okian/solvedboard/pkg/logger"
	"github.com/okian/solvedboard/pkg/metrics"
)

// Source is the ranking service as seen by the pipeline.
type Source interface {
	Profile(ctx context.Context, handle string) (model.Profile, error)
	SolvedProblems(ctx context.Context, handle string) iter.Seq2[model.SolvedProblem, error]
	Tags(ctx context.Context) iter.Seq2[model.TagInfo, error]
	LevelCounts(ctx context.Context) ([]model.LevelCount, error)
	Organizations(ctx context.Context, category string) iter.Seq2[model.Organization, error]
}

// Roster resolves the organization and its members.
type Roster interface {
	ResolveOrganization(ctx context.Context, name string) (model.Organization, error)
	ResolveHandles(ctx context.Context, organizationID int) ([]string, error)
}

// Store persists a finished snapshot.
type Store interface {
	Save(ctx context.Context, s *model.Snapshot) error
}

// Pipeline runs the crawl. Run is not safe for concurrent use; callers
// serialise runs through the refresh worker.
type Pipeline struct {
	src      Source
	roster   Roster
	store    Store
	orgName  string
	category string
	workers  int
	clock    clockwork.Clock
	log      logger.Logger

	last atomic.Pointer[Report]
}

// New creates a Pipeline.
func New(src Source, roster Roster, store Store, opts ...Option) *Pipeline {
	p := &Pipeline{
		src:      src,
		roster:   roster,
		store:    store,
		orgName:  "하나고등학교",
		category: "high_school",
		workers:  runtime.NumCPU() * 2,
		clock:    clockwork.NewRealClock(),
		log:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// LastReport returns the report of the most recent run, if any.
func (p *Pipeline) LastReport() (Report, bool) {
	r := p.last.Load()
	if r == nil {
		return Report{}, false
	}
	return *r, true
}

// Run builds a snapshot and saves it. A partial run is still saved and is
// not an error; its report carries the failures. Any other failure leaves
// the persisted snapshot untouched.
func (p *Pipeline) Run(ctx context.Context, req model.RefreshRequest) error {
	snap, rep, err := p.Build(ctx, req.ID)
	rep.Trigger = req.Trigger
	if err == nil {
		if saveErr := p.store.Save(ctx, snap); saveErr != nil {
			err = fmt.Errorf("%w: %w", ErrPersist, saveErr)
		}
	}
	rep.FinishedAt = p.clock.Now()

	switch {
	case err != nil:
		rep.Outcome = OutcomeFailed
		rep.Error = err.Error()
		metrics.RecordErrorByComponent("pipeline", "run_failed")
	case rep.Partial():
		rep.Outcome = OutcomePartial
		metrics.RecordErrorByComponent("pipeline", "partial_data")
	default:
		rep.Outcome = OutcomeSuccess
	}
	metrics.RecordPipelineRun(rep.Outcome, rep.Duration())
	p.last.Store(&rep)

	if err != nil {
		p.log.Error(ctx, "pipeline run failed",
			logger.String("run_id", rep.RunID),
			logger.Duration("duration", rep.Duration()),
			logger.Error(err))
		return err
	}

	metrics.UpdatePipelineLastSuccess(snap.UpdatedAt)
	metrics.UpdatePipelineMembers(len(snap.Members))
	fields := []logger.Field{
		logger.String("run_id", rep.RunID),
		logger.String("outcome", rep.Outcome),
		logger.Int("members", rep.Members),
		logger.Int("profile_failures", len(rep.ProfileFailures)),
		logger.Int("problem_failures", len(rep.ProblemFailures)),
		logger.Int("problems", len(snap.Problems)),
		logger.Duration("duration", rep.Duration()),
	}
	if perr := rep.Err(); perr != nil {
		p.log.Warn(ctx, "pipeline run finished with partial data", append(fields, logger.Error(perr))...)
		return nil
	}
	p.log.Info(ctx, "pipeline run finished", fields...)
	return nil
}

// Build crawls the ranking service and returns the snapshot without saving
// it. Organization, roster, tag catalog or level count failures are fatal.
// Single member failures are recorded in the report.
func (p *Pipeline) Build(ctx context.Context, runID string) (*model.Snapshot, Report, error) {
	rep := Report{RunID: runID, Organization: p.orgName, StartedAt: p.clock.Now()}
	log := p.log.With(logger.String("run_id", runID))

	org, err := p.roster.ResolveOrganization(ctx, p.orgName)
	if err != nil {
		return nil, rep, fmt.Errorf("%w: %w", ErrResolve, err)
	}
	handles, err := p.roster.ResolveHandles(ctx, org.ID)
	if err != nil {
		return nil, rep, fmt.Errorf("%w: %w", ErrRoster, err)
	}
	rep.Members = len(handles)
	log.Info(ctx, "roster resolved",
		logger.Int("organization_id", org.ID),
		logger.Int("members", len(handles)))

	ref, err := p.fetchReference(ctx)
	if err != nil {
		return nil, rep, err
	}
	if ref.peersErr != nil {
		rep.PeersError = ref.peersErr.Error()
		log.Warn(ctx, "peer table incomplete", logger.Int("peers", len(ref.peers)), logger.Error(ref.peersErr))
	}
	for _, peer := range ref.peers {
		if peer.ID == org.ID {
			rank := peer.Rank
			org.CategoryRank = &rank
			break
		}
	}

	acc := aggregate.NewAccumulator(aggregate.MaxTagID(ref.tags))
	results, err := p.fetchMembers(ctx, log, handles, acc)
	if err != nil {
		return nil, rep, err
	}

	members := make([]model.Member, len(results))
	contributions := make([]aggregate.Solved, 0, len(results))
	for i, r := range results {
		members[i] = r.member
		if r.profileErr != nil {
			rep.ProfileFailures = append(rep.ProfileFailures, r.member.Handle)
		}
		if r.problemsErr != nil {
			rep.ProblemFailures = append(rep.ProblemFailures, r.member.Handle)
			continue
		}
		contributions = append(contributions, aggregate.Solved{
			Handle:   r.member.Handle,
			Tier:     r.member.Tier,
			Problems: r.problems,
		})
	}
	ranking.AssignPositions(members)
	rep.DroppedProblems = acc.Dropped()

	snap := &model.Snapshot{
		RunID:        runID,
		Organization: org,
		Members:      ranking.ByRating(members),
		Levels:       acc.Levels(ref.levels),
		Tags:         acc.Tags(ref.tags),
		Problems:     aggregate.Solvers(contributions),
		Peers:        ref.peers,
		UpdatedAt:    p.clock.Now(),
	}
	rep.FinishedAt = snap.UpdatedAt
	return snap, rep, nil
}

type reference struct {
	tags     []model.TagInfo
	levels   []model.LevelCount
	peers    []model.Organization
	peersErr error
}

// fetchReference loads the tag catalog, level counts and peer table
// concurrently. The peer table is best effort.
func (p *Pipeline) fetchReference(ctx context.Context) (reference, error) {
	var ref reference
	pool := pond.NewPool(3)
	defer pool.StopAndWait()

	group := pool.NewGroupContext(ctx)
	group.SubmitErr(
		func() error {
			tags, err := source.Collect(p.src.Tags(ctx))
			if err != nil {
				return fmt.Errorf("%w: tag catalog: %w", ErrReferenceData, err)
			}
			ref.tags = tags
			return nil
		},
		func() error {
			levels, err := p.src.LevelCounts(ctx)
			if err != nil {
				return fmt.Errorf("%w: level counts: %w", ErrReferenceData, err)
			}
			ref.levels = levels
			return nil
		},
		func() error {
			if p.category == "" {
				return nil
			}
			ref.peers, ref.peersErr = source.Collect(p.src.Organizations(ctx, p.category))
			return nil
		},
	)
	if err := group.Wait(); err != nil {
		return reference{}, err
	}
	return ref, nil
}

type memberResult struct {
	member      model.Member
	problems    []model.SolvedProblem
	profileErr  error
	problemsErr error
}

// fetchMembers fetches every member's profile and solved problems on a
// bounded pool. Results come back in roster order regardless of completion
// order. Cancellation is checked before each member starts.
func (p *Pipeline) fetchMembers(ctx context.Context, log logger.Logger, handles []string, acc *aggregate.Accumulator) ([]memberResult, error) {
	pool := pond.NewResultPool[memberResult](p.workers)
	defer pool.StopAndWait()

	group := pool.NewGroupContext(ctx)
	for _, handle := range handles {
		group.SubmitErr(func() (memberResult, error) {
			if err := ctx.Err(); err != nil {
				return memberResult{}, err
			}
			res := p.fetchMember(ctx, log, handle)
			if err := ctx.Err(); err != nil {
				return memberResult{}, err
			}
			if res.problemsErr == nil {
				acc.Add(res.problems)
			}
			return res, nil
		})
	}
	results, err := group.Wait()
	if err != nil {
		return nil, fmt.Errorf("member fan-out: %w", err)
	}
	return results, nil
}

func (p *Pipeline) fetchMember(ctx context.Context, log logger.Logger, handle string) memberResult {
	res := memberResult{member: model.NullMember(handle)}

	profile, err := p.src.Profile(ctx, handle)
	if err != nil {
		res.profileErr = err
		metrics.RecordMemberFetchFailure()
		log.Warn(ctx, "member profile unavailable, keeping null record",
			logger.String("handle", handle), logger.Error(err))
	} else {
		profile.Handle = handle
		res.member = model.MemberFromProfile(profile)
	}

	res.problems, res.problemsErr = source.Collect(p.src.SolvedProblems(ctx, handle))
	if res.problemsErr != nil {
		res.problems = nil
		metrics.RecordMemberFetchFailure()
		log.Warn(ctx, "member solved problems unavailable, skipping contribution",
			logger.String("handle", handle), logger.Error(res.problemsErr))
	}
	return res
}
