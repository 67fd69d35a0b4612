// Package aggregate folds members' solved-problem lists into per-level,
// per-tag and per-problem views.
package aggregate

import (
	"slices"
	"sync"

	"github.com/okian/solvedboard/internal/domain/dedupe"
	"github.com/okian/solvedboard/internal/domain/model"
	"github.com/okian/solvedboard/internal/domain/ranking"
)

// Accumulator collects distinct solved problem ids per level and per tag.
// Add is safe for concurrent use by member tasks.
type Accumulator struct {
	levels [model.MaxLevel + 1]dedupe.Deduper[int]

	mu   sync.Mutex
	tags map[int]dedupe.Deduper[int]

	dropped int
}

// NewAccumulator pre-initialises every level and every tag id in [0, maxTagID].
func NewAccumulator(maxTagID int) *Accumulator {
	a := &Accumulator{tags: make(map[int]dedupe.Deduper[int], maxTagID+1)}
	for i := range a.levels {
		a.levels[i] = dedupe.New[int]()
	}
	for id := 0; id <= maxTagID; id++ {
		a.tags[id] = dedupe.New[int]()
	}
	return a
}

// Add records one member's solved problems.
func (a *Accumulator) Add(problems []model.SolvedProblem) {
	for _, p := range problems {
		if !inRange(p.Level) {
			a.mu.Lock()
			a.dropped++
			a.mu.Unlock()
			continue
		}
		a.levels[p.Level].SeenAndRecord(p.ID)
		for _, tagID := range p.TagIDs {
			a.tag(tagID).SeenAndRecord(p.ID)
		}
	}
}

func inRange(level int) bool {
	return level >= model.MinLevel && level <= model.MaxLevel
}

// Dropped reports problems ignored because their level was out of range.
func (a *Accumulator) Dropped() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.dropped
}

func (a *Accumulator) tag(id int) dedupe.Deduper[int] {
	a.mu.Lock()
	defer a.mu.Unlock()
	s, ok := a.tags[id]
	if !ok {
		s = dedupe.New[int]()
		a.tags[id] = s
	}
	return s
}

// Levels returns one bucket per level, ascending, joined with the service-wide
// counts. Levels missing from counts report a count of zero.
func (a *Accumulator) Levels(counts []model.LevelCount) []model.LevelBucket {
	total := make(map[int]int, len(counts))
	for _, c := range counts {
		total[c.Level] = c.Count
	}
	out := make([]model.LevelBucket, 0, len(a.levels))
	for level, set := range a.levels {
		ids := set.Sorted()
		out = append(out, model.LevelBucket{
			Level:       level,
			Count:       total[level],
			SolvedCount: len(ids),
			ProblemIDs:  ids,
		})
	}
	return out
}

// Tags returns one row per catalog tag, in catalog order. A catalog tag that
// no member solved has SolvedCount zero.
func (a *Accumulator) Tags(catalog []model.TagInfo) []model.Tag {
	out := make([]model.Tag, 0, len(catalog))
	for _, t := range catalog {
		solved := 0
		a.mu.Lock()
		if s, ok := a.tags[t.ID]; ok {
			solved = int(s.Size())
		}
		a.mu.Unlock()
		out = append(out, model.Tag{
			ID:          t.ID,
			Key:         t.Key,
			Ko:          t.Ko,
			En:          t.En,
			Count:       t.ProblemCount,
			SolvedCount: solved,
		})
	}
	return out
}

// MaxTagID returns the largest id in catalog, or -1 when it is empty.
func MaxTagID(catalog []model.TagInfo) int {
	maxID := -1
	for _, t := range catalog {
		maxID = max(maxID, t.ID)
	}
	return maxID
}

// Solved is one member's contribution to the per-problem table.
type Solved struct {
	Handle   string
	Tier     *int
	Problems []model.SolvedProblem
}

// Solvers builds the per-problem table. Contributions must be passed in
// roster order; handles and tiers of each record keep that order. The result
// is ascending by problem id. Problems with an out-of-range level are left
// out, as in Accumulator.Add.
func Solvers(contributions []Solved) []model.ProblemSolvers {
	byID := make(map[int]*model.ProblemSolvers)
	for _, c := range contributions {
		for _, p := range c.Problems {
			if !inRange(p.Level) {
				continue
			}
			rec, ok := byID[p.ID]
			if !ok {
				rec = &model.ProblemSolvers{ProblemID: p.ID}
				byID[p.ID] = rec
			}
			rec.Handles = append(rec.Handles, c.Handle)
			rec.Tiers = append(rec.Tiers, c.Tier)
			rec.UserCount++
		}
	}

	out := make([]model.ProblemSolvers, 0, len(byID))
	for _, rec := range byID {
		rec.TierAvg = ranking.TruncatedMean(rec.Tiers)
		out = append(out, *rec)
	}
	slices.SortFunc(out, func(a, b model.ProblemSolvers) int { return a.ProblemID - b.ProblemID })
	return out
}
