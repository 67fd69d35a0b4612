package repository

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/okian/solvedboard/internal/domain/model"
)

// Artifact file names inside the data directory.
const (
	FileMembers      = "user_data.csv"
	FileOrganization = "organization_data.csv"
	FileLevels       = "problem_count_by_level.csv"
	FileTags         = "problem_count_by_tag.csv"
	FileProblems     = "problem_info.json"
	FilePeers        = "high_school_data.csv"
	FileMarker       = "updated_at.txt"

	markerLayout = "2006-01-02 15:04:05"
)

type artifact struct {
	name   string
	encode func(io.Writer, *model.Snapshot) error
	decode func(io.Reader, *model.Snapshot) error
}

// artifacts lists the data files in write order. The marker is handled
// separately and always goes last.
var artifacts = []artifact{
	{FileMembers, encodeMembers, decodeMembers},
	{FileOrganization, encodeOrganization, decodeOrganization},
	{FileLevels, encodeLevels, decodeLevels},
	{FileTags, encodeTags, decodeTags},
	{FileProblems, encodeProblems, decodeProblems},
	{FilePeers, encodePeers, decodePeers},
}

var (
	memberHeader = []string{
		"handle", "solved_count", "vote_count", "class", "class_decoration", "tier",
		"rating", "coins", "stardusts", "solved_rank", "boj_rank", "solved_rank_all",
	}
	orgHeader = []string{
		"organization_id", "name", "type", "rating", "user_count", "vote_count",
		"solved_count", "color", "rank", "global_rank", "category_rank", "count",
	}
	peerHeader  = orgHeader[:10]
	levelHeader = []string{"level", "count", "solved_count", "problem_ids"}
	tagHeader   = []string{"tag_id", "key", "ko", "en", "count", "solved_count"}
)

func encodeMembers(w io.Writer, s *model.Snapshot) error {
	rows := make([][]string, 0, len(s.Members))
	for _, m := range s.Members {
		rows = append(rows, []string{
			m.Handle, fmtInt(m.SolvedCount), fmtInt(m.VoteCount), fmtInt(m.Class),
			fmtStr(m.ClassDecoration), fmtInt(m.Tier), fmtInt(m.Rating), fmtInt(m.Coins),
			fmtInt(m.Stardusts), strconv.Itoa(m.RatingRank), strconv.Itoa(m.Position),
			fmtInt(m.GlobalRank),
		})
	}
	return writeCSV(w, memberHeader, rows)
}

func decodeMembers(r io.Reader, s *model.Snapshot) error {
	rows, err := readCSV(r, memberHeader)
	if err != nil {
		return err
	}
	s.Members = make([]model.Member, 0, len(rows))
	for _, row := range rows {
		var p parser
		m := model.Member{
			Handle:          row[0],
			SolvedCount:     p.optInt(row[1]),
			VoteCount:       p.optInt(row[2]),
			Class:           p.optInt(row[3]),
			ClassDecoration: optStr(row[4]),
			Tier:            p.optInt(row[5]),
			Rating:          p.optInt(row[6]),
			Coins:           p.optInt(row[7]),
			Stardusts:       p.optInt(row[8]),
			RatingRank:      p.int(row[9]),
			Position:        p.int(row[10]),
			GlobalRank:      p.optInt(row[11]),
		}
		if p.err != nil {
			return p.err
		}
		s.Members = append(s.Members, m)
	}
	return nil
}

func orgRow(o model.Organization) []string {
	return []string{
		strconv.Itoa(o.ID), o.Name, o.Category, strconv.Itoa(o.Rating), strconv.Itoa(o.UserCount),
		strconv.Itoa(o.VoteCount), strconv.Itoa(o.SolvedCount), o.Color, strconv.Itoa(o.Rank),
		strconv.Itoa(o.GlobalRank), fmtInt(o.CategoryRank), strconv.Itoa(o.OrganizationCount),
	}
}

func parseOrg(row []string) (model.Organization, error) {
	var p parser
	o := model.Organization{
		ID:          p.int(row[0]),
		Name:        row[1],
		Category:    row[2],
		Rating:      p.int(row[3]),
		UserCount:   p.int(row[4]),
		VoteCount:   p.int(row[5]),
		SolvedCount: p.int(row[6]),
		Color:       row[7],
		Rank:        p.int(row[8]),
		GlobalRank:  p.int(row[9]),
	}
	if len(row) > 10 {
		o.CategoryRank = p.optInt(row[10])
		o.OrganizationCount = p.int(row[11])
	}
	return o, p.err
}

func encodeOrganization(w io.Writer, s *model.Snapshot) error {
	return writeCSV(w, orgHeader, [][]string{orgRow(s.Organization)})
}

func decodeOrganization(r io.Reader, s *model.Snapshot) error {
	rows, err := readCSV(r, orgHeader)
	if err != nil {
		return err
	}
	if len(rows) != 1 {
		return fmt.Errorf("%s: want 1 row, got %d", FileOrganization, len(rows))
	}
	s.Organization, err = parseOrg(rows[0])
	return err
}

func encodePeers(w io.Writer, s *model.Snapshot) error {
	rows := make([][]string, 0, len(s.Peers))
	for _, p := range s.Peers {
		rows = append(rows, orgRow(p)[:len(peerHeader)])
	}
	return writeCSV(w, peerHeader, rows)
}

func decodePeers(r io.Reader, s *model.Snapshot) error {
	rows, err := readCSV(r, peerHeader)
	if err != nil {
		return err
	}
	s.Peers = make([]model.Organization, 0, len(rows))
	for _, row := range rows {
		o, err := parseOrg(row)
		if err != nil {
			return err
		}
		s.Peers = append(s.Peers, o)
	}
	return nil
}

func encodeLevels(w io.Writer, s *model.Snapshot) error {
	rows := make([][]string, 0, len(s.Levels))
	for _, b := range s.Levels {
		ids := make([]string, len(b.ProblemIDs))
		for i, id := range b.ProblemIDs {
			ids[i] = strconv.Itoa(id)
		}
		rows = append(rows, []string{
			strconv.Itoa(b.Level), strconv.Itoa(b.Count), strconv.Itoa(b.SolvedCount), strings.Join(ids, " "),
		})
	}
	return writeCSV(w, levelHeader, rows)
}

func decodeLevels(r io.Reader, s *model.Snapshot) error {
	rows, err := readCSV(r, levelHeader)
	if err != nil {
		return err
	}
	s.Levels = make([]model.LevelBucket, 0, len(rows))
	for _, row := range rows {
		var p parser
		b := model.LevelBucket{
			Level:       p.int(row[0]),
			Count:       p.int(row[1]),
			SolvedCount: p.int(row[2]),
			ProblemIDs:  []int{},
		}
		for _, f := range strings.Fields(row[3]) {
			b.ProblemIDs = append(b.ProblemIDs, p.int(f))
		}
		if p.err != nil {
			return p.err
		}
		s.Levels = append(s.Levels, b)
	}
	return nil
}

func encodeTags(w io.Writer, s *model.Snapshot) error {
	rows := make([][]string, 0, len(s.Tags))
	for _, t := range s.Tags {
		rows = append(rows, []string{
			strconv.Itoa(t.ID), t.Key, t.Ko, t.En, strconv.Itoa(t.Count), strconv.Itoa(t.SolvedCount),
		})
	}
	return writeCSV(w, tagHeader, rows)
}

func decodeTags(r io.Reader, s *model.Snapshot) error {
	rows, err := readCSV(r, tagHeader)
	if err != nil {
		return err
	}
	s.Tags = make([]model.Tag, 0, len(rows))
	for _, row := range rows {
		var p parser
		t := model.Tag{
			ID:          p.int(row[0]),
			Key:         row[1],
			Ko:          row[2],
			En:          row[3],
			Count:       p.int(row[4]),
			SolvedCount: p.int(row[5]),
		}
		if p.err != nil {
			return p.err
		}
		s.Tags = append(s.Tags, t)
	}
	return nil
}

// problemRecord is the value of problem_info.json, keyed by problem id.
type problemRecord struct {
	Handles   []string `json:"handle"`
	Tiers     []*int   `json:"tier"`
	UserCount int      `json:"user_count"`
	TierAvg   *int     `json:"tier_avg"`
}

func encodeProblems(w io.Writer, s *model.Snapshot) error {
	out := make(map[string]problemRecord, len(s.Problems))
	for _, p := range s.Problems {
		out[strconv.Itoa(p.ProblemID)] = problemRecord{
			Handles:   p.Handles,
			Tiers:     p.Tiers,
			UserCount: p.UserCount,
			TierAvg:   p.TierAvg,
		}
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	return enc.Encode(out)
}

func decodeProblems(r io.Reader, s *model.Snapshot) error {
	var in map[string]problemRecord
	if err := json.NewDecoder(r).Decode(&in); err != nil {
		return fmt.Errorf("%s: %w", FileProblems, err)
	}
	s.Problems = make([]model.ProblemSolvers, 0, len(in))
	for key, rec := range in {
		id, err := strconv.Atoi(key)
		if err != nil {
			return fmt.Errorf("%s: problem id %q: %w", FileProblems, key, err)
		}
		s.Problems = append(s.Problems, model.ProblemSolvers{
			ProblemID: id,
			Handles:   rec.Handles,
			Tiers:     rec.Tiers,
			UserCount: rec.UserCount,
			TierAvg:   rec.TierAvg,
		})
	}
	slices.SortFunc(s.Problems, func(a, b model.ProblemSolvers) int { return a.ProblemID - b.ProblemID })
	return nil
}

func writeCSV(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return cw.Error()
}

func readCSV(r io.Reader, header []string) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(header)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 || !slices.Equal(records[0], header) {
		return nil, fmt.Errorf("unexpected header, want %v", header)
	}
	return records[1:], nil
}

// parser accumulates the first conversion error.
type parser struct {
	err error
}

func (p *parser) int(s string) int {
	v, err := strconv.Atoi(s)
	if err != nil && p.err == nil {
		p.err = err
	}
	return v
}

func (p *parser) optInt(s string) *int {
	if s == "" {
		return nil
	}
	v := p.int(s)
	return &v
}

func optStr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func fmtInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func fmtStr(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
