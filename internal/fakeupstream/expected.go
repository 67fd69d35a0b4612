package fakeupstream

import (
	"slices"

	"github.com/okian/solvedboard/internal/domain/model"
)

// Expected holds the aggregates a crawl of the fixture must publish,
// computed without the crawler's own code.
type Expected struct {
	// Levels maps every level to its distinct solved problem ids, ascending.
	Levels map[int][]int
	// Tags maps every catalog tag id to its distinct solved problem count.
	Tags map[int]int
	// Solvers maps each solved problem id to its solvers in roster order.
	Solvers map[int][]string
	// RatingRanks maps each handle to its rating rank.
	RatingRanks map[string]int
}

// Expected computes the aggregates for f.
func (f *Fixture) Expected() Expected {
	e := Expected{
		Levels:      make(map[int][]int),
		Tags:        make(map[int]int),
		Solvers:     make(map[int][]string),
		RatingRanks: make(map[string]int),
	}

	byLevel := make(map[int]map[int]bool)
	byTag := make(map[int]map[int]bool)
	for _, t := range f.Tags {
		byTag[t.ID] = map[int]bool{}
	}
	for _, m := range f.Members {
		for _, p := range m.Problems {
			if byLevel[p.Level] == nil {
				byLevel[p.Level] = map[int]bool{}
			}
			byLevel[p.Level][p.ID] = true
			for _, id := range p.TagIDs {
				byTag[id][p.ID] = true
			}
			e.Solvers[p.ID] = append(e.Solvers[p.ID], m.Handle)
		}
	}
	for l := model.MinLevel; l <= model.MaxLevel; l++ {
		ids := make([]int, 0, len(byLevel[l]))
		for id := range byLevel[l] {
			ids = append(ids, id)
		}
		slices.Sort(ids)
		e.Levels[l] = ids
	}
	for id, set := range byTag {
		e.Tags[id] = len(set)
	}

	// Competition ranking: one more than the number of strictly better
	// ratings. Missing profiles and profiles without a rating rank below
	// everyone.
	for _, m := range f.Members {
		rank := 1
		for _, o := range f.Members {
			if better(o, m) {
				rank++
			}
		}
		e.RatingRanks[m.Handle] = rank
	}
	return e
}

func better(a, b Member) bool {
	ra, rb := a.rating(), b.rating()
	switch {
	case ra == nil:
		return false
	case rb == nil:
		return true
	default:
		return *ra > *rb
	}
}

func (m Member) rating() *int {
	if m.Missing {
		return nil
	}
	return m.Profile.Rating
}
