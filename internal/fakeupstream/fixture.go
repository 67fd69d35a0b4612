// Package fakeupstream is a deterministic stand-in for the ranking service.
// It generates an organization with members, solved problems and a tag
// catalog, serves them with the service's wire shapes, and computes the
// aggregates the crawler is expected to publish for them.
package fakeupstream

import (
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/google/uuid"

	"github.com/okian/solvedboard/internal/domain/model"
)

// Member is one generated organization member.
type Member struct {
	Handle  string
	Profile model.Profile
	// Missing members answer 404 on the profile endpoint but still list
	// their solved problems.
	Missing  bool
	Problems []model.SolvedProblem
}

// Fixture is a generated ranking service dataset. Organization ranks are
// positions within the category; GlobalRank is the position in the
// unfiltered ranking.
type Fixture struct {
	Organization model.Organization
	Peers        []model.Organization
	Members      []Member
	Tags         []model.TagInfo
	Levels       []model.LevelCount
	Problems     []model.SolvedProblem
}

// Generate builds a fixture. The same options always produce the same
// fixture.
func Generate(opts ...Option) *Fixture {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	rng := rand.New(rand.NewPCG(o.seed, o.seed^0x9e3779b97f4a7c15))

	f := &Fixture{}
	f.Tags = generateTags(o.tags)
	f.Problems = generateProblems(rng, o.problems, o.tags)
	f.Levels = levelCounts(f.Problems)
	f.Members = generateMembers(rng, o, f.Problems)
	f.Peers, f.Organization = generatePeers(rng, o, f.Members)
	return f
}

// Member looks a member up by handle.
func (f *Fixture) Member(handle string) (Member, bool) {
	for _, m := range f.Members {
		if m.Handle == handle {
			return m, true
		}
	}
	return Member{}, false
}

// Handles returns member handles in roster order.
func (f *Fixture) Handles() []string {
	out := make([]string, len(f.Members))
	for i, m := range f.Members {
		out[i] = m.Handle
	}
	return out
}

// handle derives a stable handle from the seed and member index.
func handle(seed uint64, i int) string {
	id := uuid.NewSHA1(uuid.NameSpaceOID, fmt.Appendf(nil, "solvedboard/%d/%d", seed, i))
	return "u" + id.String()[:8]
}

func generateTags(n int) []model.TagInfo {
	tags := make([]model.TagInfo, 0, n)
	for i := range n {
		// Sparse ids, as in the real catalog.
		id := i*3 + 1
		tags = append(tags, model.TagInfo{
			ID:           id,
			Key:          fmt.Sprintf("tag%d", id),
			Ko:           fmt.Sprintf("태그 %d", id),
			En:           fmt.Sprintf("Tag %d", id),
			ProblemCount: 100 + id,
		})
	}
	return tags
}

func generateProblems(rng *rand.Rand, n, tags int) []model.SolvedProblem {
	out := make([]model.SolvedProblem, 0, n)
	for i := range n {
		p := model.SolvedProblem{ID: 1000 + i, Level: rng.IntN(model.MaxLevel + 1)}
		for range rng.IntN(3) {
			id := rng.IntN(tags)*3 + 1
			if !slices.Contains(p.TagIDs, id) {
				p.TagIDs = append(p.TagIDs, id)
			}
		}
		out = append(out, p)
	}
	return out
}

// levelCounts reports a service-wide count per level that is always at
// least the number of generated problems at that level.
func levelCounts(problems []model.SolvedProblem) []model.LevelCount {
	counts := make([]model.LevelCount, model.MaxLevel+1)
	for l := range counts {
		counts[l] = model.LevelCount{Level: l, Count: 50}
	}
	for _, p := range problems {
		counts[p.Level].Count++
	}
	return counts
}

func generateMembers(rng *rand.Rand, o *options, problems []model.SolvedProblem) []Member {
	members := make([]Member, 0, o.members)
	for i := range o.members {
		h := handle(o.seed, i)
		solved := make([]model.SolvedProblem, 0)
		for _, p := range problems {
			if rng.IntN(100) < o.solveRate {
				solved = append(solved, p)
			}
		}
		tier := rng.IntN(model.MaxLevel + 1)
		m := Member{
			Handle:   h,
			Problems: solved,
			Missing:  o.missingEvery > 0 && (i+1)%o.missingEvery == 0,
			Profile: model.Profile{
				Handle:          h,
				SolvedCount:     model.Ptr(len(solved)),
				VoteCount:       model.Ptr(rng.IntN(20)),
				Class:           model.Ptr(rng.IntN(11)),
				ClassDecoration: model.Ptr([]string{"none", "silver", "gold"}[rng.IntN(3)]),
				Tier:            model.Ptr(tier),
				// Coarse ratings so that ties occur.
				Rating:    model.Ptr(tier * 100),
				Coins:     model.Ptr(rng.IntN(1000)),
				Stardusts: model.Ptr(rng.IntN(10000)),
				Rank:      model.Ptr(1 + rng.IntN(100000)),
			},
		}
		if o.unratedEvery > 0 && (i+1)%o.unratedEvery == 0 {
			m.Profile.Rating, m.Profile.Coins, m.Profile.Stardusts = nil, nil, nil
		}
		members = append(members, m)
	}
	return members
}

func generatePeers(rng *rand.Rand, o *options, members []Member) ([]model.Organization, model.Organization) {
	solved := make(map[int]struct{})
	for _, m := range members {
		for _, p := range m.Problems {
			solved[p.ID] = struct{}{}
		}
	}

	peers := make([]model.Organization, 0, o.peers)
	ours := rng.IntN(o.peers)
	var mine model.Organization
	for i := range o.peers {
		org := model.Organization{
			ID:          500 + i*7,
			Name:        fmt.Sprintf("피어고등학교 %d", i+1),
			Category:    o.category,
			Rating:      3000 - i*10,
			UserCount:   10 + rng.IntN(200),
			VoteCount:   rng.IntN(500),
			SolvedCount: rng.IntN(5000),
			Color:       "#" + fmt.Sprintf("%06x", rng.IntN(1<<24)),
			Rank:        i + 1,
			GlobalRank:  (i + 1) * 3,
		}
		if i == ours {
			org.Name = o.organization
			org.UserCount = len(members)
			org.SolvedCount = len(solved)
			mine = org
		}
		peers = append(peers, org)
	}
	return peers, mine
}
