package source

import "github.com/okian/solvedboard/internal/domain/model"

// Wire shapes of the ranking service responses.

type orgPage struct {
	Count int       `json:"count"`
	Items []orgItem `json:"items"`
}

type orgItem struct {
	OrganizationID int    `json:"organizationId"`
	Name           string `json:"name"`
	Type           string `json:"type"`
	Rating         int    `json:"rating"`
	UserCount      int    `json:"userCount"`
	VoteCount      int    `json:"voteCount"`
	SolvedCount    int    `json:"solvedCount"`
	Color          string `json:"color"`
	Rank           int    `json:"rank"`
	GlobalRank     int    `json:"globalRank"`
}

func (it orgItem) toModel() model.Organization {
	return model.Organization{
		ID:          it.OrganizationID,
		Name:        it.Name,
		Category:    it.Type,
		Rating:      it.Rating,
		UserCount:   it.UserCount,
		VoteCount:   it.VoteCount,
		SolvedCount: it.SolvedCount,
		Color:       it.Color,
		Rank:        it.Rank,
		GlobalRank:  it.GlobalRank,
	}
}

type memberPage struct {
	Count int `json:"count"`
	Items []struct {
		Handle string `json:"handle"`
	} `json:"items"`
}

// profile fields are pointers so that a field the service omits stays null
// instead of decoding as zero.
type profile struct {
	Handle          string  `json:"handle"`
	SolvedCount     *int    `json:"solvedCount"`
	VoteCount       *int    `json:"voteCount"`
	Class           *int    `json:"class"`
	ClassDecoration *string `json:"classDecoration"`
	Tier            *int    `json:"tier"`
	Rating          *int    `json:"rating"`
	Coins           *int    `json:"coins"`
	Stardusts       *int    `json:"stardusts"`
	Rank            *int    `json:"rank"`
}

func (p profile) toModel() model.Profile {
	return model.Profile(p)
}

type problemPage struct {
	Count int           `json:"count"`
	Items []problemItem `json:"items"`
}

type problemItem struct {
	ProblemID int `json:"problemId"`
	Level     int `json:"level"`
	Tags      []struct {
		BojTagID int `json:"bojTagId"`
	} `json:"tags"`
}

func (it problemItem) toModel() model.SolvedProblem {
	tags := make([]int, 0, len(it.Tags))
	for _, t := range it.Tags {
		tags = append(tags, t.BojTagID)
	}
	return model.SolvedProblem{ID: it.ProblemID, Level: it.Level, TagIDs: tags}
}

type tagPage struct {
	Count int       `json:"count"`
	Items []tagItem `json:"items"`
}

type tagItem struct {
	BojTagID     int    `json:"bojTagId"`
	Key          string `json:"key"`
	ProblemCount int    `json:"problemCount"`
	DisplayNames []struct {
		Language string `json:"language"`
		Name     string `json:"name"`
		Short    string `json:"short"`
	} `json:"displayNames"`
}

// toModel picks the ko and en display names by language, falling back to the
// first and second entries when the language field is missing.
func (it tagItem) toModel() model.TagInfo {
	out := model.TagInfo{ID: it.BojTagID, Key: it.Key, ProblemCount: it.ProblemCount}
	for _, d := range it.DisplayNames {
		switch d.Language {
		case "ko":
			out.Ko = d.Name
		case "en":
			out.En = d.Name
		}
	}
	if out.Ko == "" && len(it.DisplayNames) > 0 {
		out.Ko = it.DisplayNames[0].Name
	}
	if out.En == "" && len(it.DisplayNames) > 1 {
		out.En = it.DisplayNames[1].Name
	}
	return out
}

type levelItem struct {
	Level int `json:"level"`
	Count int `json:"count"`
}
