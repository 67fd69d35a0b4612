// Package model contains domain models passed between layers.
package model

import (
	"sort"
	"time"
)

// Level bounds. Every snapshot carries one bucket per level in [MinLevel, MaxLevel].
const (
	MinLevel = 0
	MaxLevel = 30
)

// Organization is a row of the organization ranking listing. Our own record
// and every peer share this schema so they can be compared field by field.
type Organization struct {
	ID          int    `json:"organization_id"`
	Name        string `json:"name"`
	Category    string `json:"type"`
	Rating      int    `json:"rating"`
	UserCount   int    `json:"user_count"`
	VoteCount   int    `json:"vote_count"`
	SolvedCount int    `json:"solved_count"`
	Color       string `json:"color"`
	Rank        int    `json:"rank"`
	GlobalRank  int    `json:"global_rank"`

	// Set only on the configured organization.
	CategoryRank      *int `json:"category_rank,omitempty"`
	OrganizationCount int  `json:"count,omitempty"`
}

// Profile is the per-user payload of the profile source. A field the source
// omitted stays nil.
type Profile struct {
	Handle          string
	SolvedCount     *int
	VoteCount       *int
	Class           *int
	ClassDecoration *string
	Tier            *int
	Rating          *int
	Coins           *int
	Stardusts       *int
	Rank            *int
}

// Member is one row of the member table. Statistical fields are nil when the
// profile could not be fetched.
type Member struct {
	Handle          string  `json:"handle"`
	SolvedCount     *int    `json:"solved_count"`
	VoteCount       *int    `json:"vote_count"`
	Class           *int    `json:"class"`
	ClassDecoration *string `json:"class_decoration"`
	Tier            *int    `json:"tier"`
	Rating          *int    `json:"rating"`
	Coins           *int    `json:"coins"`
	Stardusts       *int    `json:"stardusts"`

	// RatingRank is the dense rating rank with tie sharing.
	RatingRank int `json:"solved_rank"`
	// Position is the 1-based index in roster order.
	Position int `json:"boj_rank"`
	// GlobalRank is the service-wide solved rank.
	GlobalRank *int `json:"solved_rank_all"`
}

// MemberFromProfile converts a fetched profile into a member row.
func MemberFromProfile(p Profile) Member {
	return Member{
		Handle:          p.Handle,
		SolvedCount:     p.SolvedCount,
		VoteCount:       p.VoteCount,
		Class:           p.Class,
		ClassDecoration: p.ClassDecoration,
		Tier:            p.Tier,
		Rating:          p.Rating,
		Coins:           p.Coins,
		Stardusts:       p.Stardusts,
		GlobalRank:      p.Rank,
	}
}

// NullMember is the row emitted for a handle whose profile fetch failed.
func NullMember(handle string) Member {
	return Member{Handle: handle}
}

// SolvedProblem is one item of a user's solved-problem listing.
type SolvedProblem struct {
	ID     int
	Level  int
	TagIDs []int
}

// TagInfo is one entry of the tag catalog.
type TagInfo struct {
	ID           int
	Key          string
	Ko           string
	En           string
	ProblemCount int
}

// LevelCount is the service-wide problem count of one level.
type LevelCount struct {
	Level int
	Count int
}

// LevelBucket is the organization's solved set for one level.
type LevelBucket struct {
	Level       int   `json:"level"`
	Count       int   `json:"count"`
	SolvedCount int   `json:"solved_count"`
	ProblemIDs  []int `json:"problem_ids"`
}

// Tag is the organization's solved count for one catalog tag.
type Tag struct {
	ID          int    `json:"tag_id"`
	Key         string `json:"key"`
	Ko          string `json:"ko"`
	En          string `json:"en"`
	Count       int    `json:"count"`
	SolvedCount int    `json:"solved_count"`
}

// ProblemSolvers lists every member who solved a problem, with their tiers in
// the same order. TierAvg is the truncated mean of the non-nil tiers.
type ProblemSolvers struct {
	ProblemID int      `json:"problem_id"`
	Handles   []string `json:"handle"`
	Tiers     []*int   `json:"tier"`
	UserCount int      `json:"user_count"`
	TierAvg   *int     `json:"tier_avg"`
}

// Snapshot is the complete output of one pipeline run. It is never mutated
// after publication.
type Snapshot struct {
	RunID        string
	Organization Organization
	Members      []Member
	Levels       []LevelBucket
	Tags         []Tag
	Problems     []ProblemSolvers // ascending by ProblemID
	Peers        []Organization
	UpdatedAt    time.Time
}

// Level returns the bucket for level id.
func (s *Snapshot) Level(id int) (LevelBucket, bool) {
	for _, b := range s.Levels {
		if b.Level == id {
			return b, true
		}
	}
	return LevelBucket{}, false
}

// Tag returns the tag row for id.
func (s *Snapshot) Tag(id int) (Tag, bool) {
	for _, t := range s.Tags {
		if t.ID == id {
			return t, true
		}
	}
	return Tag{}, false
}

// Problem returns the solver record for id.
func (s *Snapshot) Problem(id int) (ProblemSolvers, bool) {
	i := sort.Search(len(s.Problems), func(i int) bool { return s.Problems[i].ProblemID >= id })
	if i < len(s.Problems) && s.Problems[i].ProblemID == id {
		return s.Problems[i], true
	}
	return ProblemSolvers{}, false
}

// Peer returns the peer organization named name.
func (s *Snapshot) Peer(name string) (Organization, bool) {
	for _, p := range s.Peers {
		if p.Name == name {
			return p, true
		}
	}
	return Organization{}, false
}

// Self returns our organization as a row of the peer table, so that it shares
// the rank scale of every peer. When the peer listing lacks us, our own record
// is used with the category rank in place of the overall rank.
func (s *Snapshot) Self() Organization {
	for _, p := range s.Peers {
		if p.ID == s.Organization.ID {
			return p
		}
	}
	self := s.Organization
	if self.CategoryRank != nil {
		self.Rank = *self.CategoryRank
	}
	return self
}

// Age reports how old the snapshot is relative to now.
func (s *Snapshot) Age(now time.Time) time.Duration {
	return now.Sub(s.UpdatedAt)
}

// Refresh triggers.
const (
	TriggerSchedule  = "schedule"
	TriggerManual    = "manual"
	TriggerBootstrap = "bootstrap"
)

// RefreshRequest asks the refresh worker to run the pipeline once.
type RefreshRequest struct {
	ID          string
	Trigger     string
	RequestedAt time.Time
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T { return &v }
