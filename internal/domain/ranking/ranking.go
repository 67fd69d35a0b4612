// Package ranking assigns positional and rating ranks to member tables.
package ranking

import (
	"slices"

	"github.com/okian/solvedboard/internal/domain/model"
)

// AssignPositions sets Position to the 1-based index of each member in the
// given order. Callers pass the table in roster order.
func AssignPositions(members []model.Member) {
	for i := range members {
		members[i].Position = i + 1
	}
}

// ByRating returns a copy of members sorted by rating descending, nil ratings
// last, with RatingRank set to the dense rank with tie sharing: a member whose
// rating equals its predecessor's inherits that rank, otherwise the rank is
// its 1-based position (1,2,2,4). Members with equal ratings keep their
// relative input order. The input slice is not modified.
func ByRating(members []model.Member) []model.Member {
	out := slices.Clone(members)
	slices.SortStableFunc(out, func(a, b model.Member) int {
		return compareDesc(a.Rating, b.Rating)
	})
	for i := range out {
		if i > 0 && equalRating(out[i].Rating, out[i-1].Rating) {
			out[i].RatingRank = out[i-1].RatingRank
			continue
		}
		out[i].RatingRank = i + 1
	}
	return out
}

// TruncatedMean returns the integer-truncated mean of the non-nil values, or
// nil when there are none.
func TruncatedMean(values []*int) *int {
	sum, n := 0, 0
	for _, v := range values {
		if v == nil {
			continue
		}
		sum += *v
		n++
	}
	if n == 0 {
		return nil
	}
	mean := sum / n
	return &mean
}

// compareDesc orders higher ratings first; nil sorts after any value.
func compareDesc(a, b *int) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	case *a > *b:
		return -1
	case *a < *b:
		return 1
	default:
		return 0
	}
}

func equalRating(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
