package scrape_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/okian/solvedboard/internal/adapters/scrape"
	"github.com/okian/solvedboard/internal/adapters/source"
	"github.com/okian/solvedboard/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

const rankPage = `<html><body>
<table class="table">
<thead><tr><th>등수</th><th>아이디</th><th>상태 메시지</th><th>맞은 문제</th></tr></thead>
<tbody>
<tr><td>1</td><td><a href="/user/%[1]s">%[1]s</a></td><td>hi</td><td>900</td></tr>
<tr><td>2</td><td><a href="/user/%[2]s">%[2]s</a></td><td></td><td>800</td></tr>
</tbody>
</table>
<table><tr><th>id</th></tr><tr><td>decoy</td></tr></table>
</body></html>`

func TestParseTable(t *testing.T) {
	Convey("Given a ranking page", t, func() {
		body := fmt.Sprintf(rankPage, "alice", "bob")

		Convey("When the handle column is present", func() {
			handles, err := scrape.ParseTable(strings.NewReader(body), "id", "아이디")

			Convey("Then handles come from the first table in document order", func() {
				So(err, ShouldBeNil)
				So(handles, ShouldResemble, []string{"alice", "bob"})
			})
		})

		Convey("When the column name does not match", func() {
			_, err := scrape.ParseTable(strings.NewReader(body), "handle")

			Convey("Then a format error is returned", func() {
				So(errors.Is(err, scrape.ErrNoColumn), ShouldBeTrue)
			})
		})

		Convey("When the page has no table", func() {
			_, err := scrape.ParseTable(strings.NewReader("<p>maintenance</p>"), "id")

			Convey("Then a missing table error is returned", func() {
				So(errors.Is(err, scrape.ErrNoTable), ShouldBeTrue)
			})
		})
	})
}

func TestRosterMemberHandles(t *testing.T) {
	Convey("Given a ranking site with two pages", t, func() {
		var agents []string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			agents = append(agents, r.Header.Get("User-Agent"))
			switch r.URL.Path {
			case "/school/ranklist/804/1":
				_, _ = fmt.Fprintf(w, rankPage, "alice", "bob")
			case "/school/ranklist/804/2":
				_, _ = fmt.Fprintf(w, rankPage, "carol", "dave")
			default:
				w.WriteHeader(http.StatusNotFound)
			}
		}))
		defer srv.Close()

		roster := scrape.New(srv.URL)

		Convey("When reading the roster", func() {
			handles, err := source.Collect(roster.MemberHandles(context.Background(), 804))

			Convey("Then pages are concatenated until the first non-success status", func() {
				So(err, ShouldBeNil)
				So(handles, ShouldResemble, []string{"alice", "bob", "carol", "dave"})
				So(agents, ShouldHaveLength, 3)
				So(agents[0], ShouldEqual, "Mozilla/5.0")
			})
		})

		Convey("When the organization has no ranking page", func() {
			_, err := source.Collect(roster.MemberHandles(context.Background(), 1))

			Convey("Then the source is reported unavailable", func() {
				So(errors.Is(err, model.ErrSourceUnavailable), ShouldBeTrue)
				So(errors.Is(err, scrape.ErrBadStatus), ShouldBeTrue)
			})
		})
	})
}
