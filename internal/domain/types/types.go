// Package types contains common types used across the application
package types

import (
	"fmt"

	"github.com/okian/solvedboard/internal/domain/model"
)

// Diff holds signed deltas formatted with an explicit sign, e.g. "+200".
// Rating, UserCount and SolvedCount are us minus opponent. Rank is opponent
// minus us, so a positive value means we are ranked higher.
type Diff struct {
	Rating      string `json:"rating"`
	UserCount   string `json:"user_count"`
	SolvedCount string `json:"solved_count"`
	Rank        string `json:"rank"`
}

// Comparison is the response of the organization comparison endpoint.
type Comparison struct {
	Opponent model.Organization `json:"opponent"`
	Us       model.Organization `json:"us"`
	Diff     Diff               `json:"diff"`
}

// Compare builds the comparison of us against opponent.
func Compare(us, opponent model.Organization) Comparison {
	return Comparison{
		Opponent: opponent,
		Us:       us,
		Diff: Diff{
			Rating:      signed(us.Rating - opponent.Rating),
			UserCount:   signed(us.UserCount - opponent.UserCount),
			SolvedCount: signed(us.SolvedCount - opponent.SolvedCount),
			Rank:        signed(opponent.Rank - us.Rank),
		},
	}
}

func signed(v int) string {
	return fmt.Sprintf("%+d", v)
}
