package fakeupstream

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"

	"golang.org/x/net/html"

	"github.com/okian/solvedboard/internal/domain/model"
)

// APIPrefix is the path the API endpoints are mounted under.
const APIPrefix = "/api/v3"

// Server serves a Fixture with the ranking service's wire shapes.
type Server struct {
	fixture   *Fixture
	pageSize  int
	failEvery int64
	requests  atomic.Int64
	mux       *http.ServeMux
}

// NewServer creates a Server for f.
func NewServer(f *Fixture, opts ...ServerOption) *Server {
	s := &Server{fixture: f, pageSize: defaultPageSize, mux: http.NewServeMux()}
	for _, opt := range opts {
		opt(s)
	}
	s.mux.HandleFunc("GET "+APIPrefix+"/ranking/organization", s.api(s.organizations))
	s.mux.HandleFunc("GET "+APIPrefix+"/ranking/in_organization", s.api(s.members))
	s.mux.HandleFunc("GET "+APIPrefix+"/user/show", s.api(s.profile))
	s.mux.HandleFunc("GET "+APIPrefix+"/search/problem", s.api(s.solved))
	s.mux.HandleFunc("GET "+APIPrefix+"/tag/list", s.api(s.tags))
	s.mux.HandleFunc("GET "+APIPrefix+"/problem/level", s.api(s.levels))
	s.mux.HandleFunc("GET /school/ranklist/{id}/{page}", s.ranklist)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Requests is the number of API requests served so far, failures included.
func (s *Server) Requests() int64 {
	return s.requests.Load()
}

func (s *Server) api(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n := s.requests.Add(1)
		if s.failEvery > 0 && n%s.failEvery == 0 {
			http.Error(w, "temporarily unavailable", http.StatusServiceUnavailable)
			return
		}
		h(w, r)
	}
}

func (s *Server) organizations(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("type")
	orgs := make([]orgItem, 0, len(s.fixture.Peers))
	for _, o := range s.fixture.Peers {
		if category != "" && o.Category != category {
			continue
		}
		item := toOrgItem(o)
		if category == "" {
			// The unfiltered ranking spans every category.
			item.Rank = o.GlobalRank
		}
		orgs = append(orgs, item)
	}
	writeJSON(w, listing[orgItem]{Count: len(orgs), Items: page(orgs, r, s.pageSize)})
}

func (s *Server) members(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(r.URL.Query().Get("organizationId"))
	handles := []handleItem{}
	if id == s.fixture.Organization.ID {
		for _, h := range s.fixture.Handles() {
			handles = append(handles, handleItem{Handle: h})
		}
	}
	writeJSON(w, listing[handleItem]{Count: len(handles), Items: page(handles, r, s.pageSize)})
}

func (s *Server) profile(w http.ResponseWriter, r *http.Request) {
	m, ok := s.fixture.Member(r.URL.Query().Get("handle"))
	if !ok || m.Missing {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	writeJSON(w, profileItem(m.Profile))
}

func (s *Server) solved(w http.ResponseWriter, r *http.Request) {
	items := []problemItem{}
	if h, ok := strings.CutPrefix(r.URL.Query().Get("query"), "s@"); ok {
		if m, found := s.fixture.Member(h); found {
			for _, p := range m.Problems {
				items = append(items, toProblemItem(p))
			}
		}
	}
	writeJSON(w, listing[problemItem]{Count: len(items), Items: page(items, r, s.pageSize)})
}

func (s *Server) tags(w http.ResponseWriter, r *http.Request) {
	items := make([]tagItem, 0, len(s.fixture.Tags))
	for _, t := range s.fixture.Tags {
		items = append(items, toTagItem(t))
	}
	writeJSON(w, listing[tagItem]{Count: len(items), Items: page(items, r, s.pageSize)})
}

func (s *Server) levels(w http.ResponseWriter, _ *http.Request) {
	items := make([]levelItem, 0, len(s.fixture.Levels))
	for _, l := range s.fixture.Levels {
		items = append(items, levelItem{Level: l.Level, Count: l.Count})
	}
	writeJSON(w, items)
}

// ranklist renders the website's member table. Pages past the end answer
// 404 like the real site.
func (s *Server) ranklist(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(r.PathValue("id"))
	if id != s.fixture.Organization.ID {
		http.NotFound(w, r)
		return
	}
	handles := page(s.fixture.Handles(), r, s.pageSize)
	if len(handles) == 0 {
		http.NotFound(w, r)
		return
	}
	p, _ := strconv.Atoi(r.PathValue("page"))

	var b strings.Builder
	b.WriteString("<html><body><table id=\"ranklist\"><thead><tr><th>순위</th><th>아이디</th><th>맞은 문제</th></tr></thead><tbody>")
	for i, h := range handles {
		m, _ := s.fixture.Member(h)
		fmt.Fprintf(&b, "<tr><td>%d</td><td><a href=\"/user/%s\">%s</a></td><td>%d</td></tr>",
			(p-1)*s.pageSize+i+1, html.EscapeString(h), html.EscapeString(h), len(m.Problems))
	}
	b.WriteString("</tbody></table></body></html>")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(b.String()))
}

// page returns the 1-based page named by the request, or nothing past the
// end. The page number comes from the query or the path.
func page[T any](items []T, r *http.Request, size int) []T {
	raw := r.URL.Query().Get("page")
	if raw == "" {
		raw = r.PathValue("page")
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		n = 1
	}
	start := (n - 1) * size
	if start >= len(items) {
		return []T{}
	}
	return items[start:min(start+size, len(items))]
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

type listing[T any] struct {
	Count int `json:"count"`
	Items []T `json:"items"`
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

func toOrgItem(o model.Organization) orgItem {
	return orgItem{
		OrganizationID: o.ID,
		Name:           o.Name,
		Type:           o.Category,
		Rating:         o.Rating,
		UserCount:      o.UserCount,
		VoteCount:      o.VoteCount,
		SolvedCount:    o.SolvedCount,
		Color:          o.Color,
		Rank:           o.Rank,
		GlobalRank:     o.GlobalRank,
	}
}

type handleItem struct {
	Handle string `json:"handle"`
}

// profileItem leaves out the fields a profile does not carry.
type profileItem struct {
	Handle          string  `json:"handle"`
	SolvedCount     *int    `json:"solvedCount,omitempty"`
	VoteCount       *int    `json:"voteCount,omitempty"`
	Class           *int    `json:"class,omitempty"`
	ClassDecoration *string `json:"classDecoration,omitempty"`
	Tier            *int    `json:"tier,omitempty"`
	Rating          *int    `json:"rating,omitempty"`
	Coins           *int    `json:"coins,omitempty"`
	Stardusts       *int    `json:"stardusts,omitempty"`
	Rank            *int    `json:"rank,omitempty"`
}

type tagRef struct {
	BojTagID int `json:"bojTagId"`
}

type problemItem struct {
	ProblemID int      `json:"problemId"`
	Level     int      `json:"level"`
	Tags      []tagRef `json:"tags"`
}

func toProblemItem(p model.SolvedProblem) problemItem {
	tags := make([]tagRef, 0, len(p.TagIDs))
	for _, id := range p.TagIDs {
		tags = append(tags, tagRef{BojTagID: id})
	}
	return problemItem{ProblemID: p.ID, Level: p.Level, Tags: tags}
}

type displayName struct {
	Language string `json:"language"`
	Name     string `json:"name"`
	Short    string `json:"short"`
}

type tagItem struct {
	BojTagID     int           `json:"bojTagId"`
	Key          string        `json:"key"`
	ProblemCount int           `json:"problemCount"`
	DisplayNames []displayName `json:"displayNames"`
}

func toTagItem(t model.TagInfo) tagItem {
	return tagItem{
		BojTagID:     t.ID,
		Key:          t.Key,
		ProblemCount: t.ProblemCount,
		DisplayNames: []displayName{
			{Language: "ko", Name: t.Ko, Short: t.Key},
			{Language: "en", Name: t.En, Short: t.Key},
		},
	}
}

type levelItem struct {
	Level int `json:"level"`
	Count int `json:"count"`
}
