// Package scrape reads organization rosters from the ranking website's HTML
// tables. It is a lower-reliability fallback for the API roster.
package scrape

import (
	"context"
	"fmt"
	"io"
	"iter"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/okian/solvedboard/internal/adapters/source"
	"github.com/okian/solvedboard/internal/domain/model"
	"github.com/okian/solvedboard/pkg/logger"
	"github.com/okian/solvedboard/pkg/metrics"
)

const endpointRanklist = "scrape_ranklist"

// Roster scrapes member handles from the organization ranking table.
type Roster struct {
	baseURL   string
	http      *http.Client
	userAgent string
	maxPages  int
	columns   []string
	log       logger.Logger
}

// New creates a Roster rooted at baseURL, e.g. https://www.acmicpc.net.
func New(baseURL string, opts ...Option) *Roster {
	r := &Roster{
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      &http.Client{Timeout: 10 * time.Second},
		userAgent: "Mozilla/5.0",
		maxPages:  200,
		columns:   []string{"id", "아이디"},
		log:       logger.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// MemberHandles yields handles in document order, page after page, until a
// page answers with a non-success status or has no rows. A failure on the
// first page is an error; later failures end the listing.
func (r *Roster) MemberHandles(ctx context.Context, organizationID int) iter.Seq2[string, error] {
	return source.Paginate(ctx, func(ctx context.Context, page int) ([]string, error) {
		handles, err := r.page(ctx, organizationID, page)
		if err != nil && page > 1 {
			r.log.Debug(ctx, "ranking pages exhausted", logger.Int("page", page), logger.Error(err))
			return nil, nil
		}
		return handles, err
	}, r.maxPages)
}

func (r *Roster) page(ctx context.Context, organizationID, page int) ([]string, error) {
	u := fmt.Sprintf("%s/school/ranklist/%d/%d", r.baseURL, organizationID, page)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", r.userAgent)

	start := time.Now()
	resp, err := r.http.Do(req)
	if err != nil {
		metrics.RecordSourceRequest(endpointRanklist, "error", time.Since(start))
		return nil, fmt.Errorf("%w: %s: %v", model.ErrSourceUnavailable, endpointRanklist, err)
	}
	defer func() { _ = resp.Body.Close() }()
	metrics.RecordSourceRequest(endpointRanklist, strconv.Itoa(resp.StatusCode), time.Since(start))

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %w: %d", model.ErrSourceUnavailable, ErrBadStatus, resp.StatusCode)
	}
	return ParseTable(resp.Body, r.columns...)
}

// ParseTable extracts the cells of the column whose header matches one of
// columns (case-insensitive) from the first table in the document.
func ParseTable(body io.Reader, columns ...string) ([]string, error) {
	doc, err := html.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	table := find(doc, atom.Table)
	if table == nil {
		return nil, ErrNoTable
	}

	var rows [][]*html.Node
	walk(table, func(n *html.Node) bool {
		if n.DataAtom == atom.Table && n != table {
			return false
		}
		if n.DataAtom == atom.Tr {
			rows = append(rows, cells(n))
			return false
		}
		return true
	})
	if len(rows) == 0 {
		return nil, ErrNoColumn
	}

	col := -1
	for i, c := range rows[0] {
		if matches(text(c), columns) {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, ErrNoColumn
	}

	handles := make([]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if col >= len(row) {
			continue
		}
		if h := text(row[col]); h != "" {
			handles = append(handles, h)
		}
	}
	return handles, nil
}

func matches(header string, columns []string) bool {
	for _, c := range columns {
		if strings.EqualFold(header, c) {
			return true
		}
	}
	return false
}

func find(n *html.Node, a atom.Atom) *html.Node {
	var found *html.Node
	walk(n, func(c *html.Node) bool {
		if found != nil {
			return false
		}
		if c.Type == html.ElementNode && c.DataAtom == a {
			found = c
			return false
		}
		return true
	})
	return found
}

// walk visits n's descendants depth first; visit returns false to skip a
// node's children.
func walk(n *html.Node, visit func(*html.Node) bool) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if visit(c) {
			walk(c, visit)
		}
	}
}

func cells(tr *html.Node) []*html.Node {
	var out []*html.Node
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (c.DataAtom == atom.Td || c.DataAtom == atom.Th) {
			out = append(out, c)
		}
	}
	return out
}

func text(n *html.Node) string {
	var b strings.Builder
	walk(n, func(c *html.Node) bool {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
		return true
	})
	return strings.TrimSpace(b.String())
}
