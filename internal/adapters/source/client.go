// Package source is the ranking service API client. Every request is retried
// with bounded exponential backoff; listings are exposed as lazy sequences.
package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/okian/solvedboard/internal/domain/model"
	"github.com/okian/solvedboard/pkg/logger"
	"github.com/okian/solvedboard/pkg/metrics"
)

// Endpoint labels used for metrics and logs.
const (
	EndpointOrganizations = "ranking_organization"
	EndpointMembers       = "ranking_in_organization"
	EndpointProfile       = "user_show"
	EndpointSolved        = "search_problem"
	EndpointTags          = "tag_list"
	EndpointLevels        = "problem_level"
)

const (
	defaultTimeout     = 10 * time.Second
	defaultMaxTries    = 5
	defaultInitial     = 500 * time.Millisecond
	defaultMaxInterval = 15 * time.Second
	defaultMaxPages    = 2000
	maxBodyBytes       = 16 << 20
)

// Client talks to the ranking service API.
type Client struct {
	baseURL         string
	http            *http.Client
	maxTries        uint
	initialInterval time.Duration
	maxInterval     time.Duration
	maxPages        int
	log             logger.Logger
}

// New creates a Client rooted at baseURL, e.g. https://solved.ac/api/v3.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:         strings.TrimRight(baseURL, "/"),
		http:            &http.Client{Timeout: defaultTimeout},
		maxTries:        defaultMaxTries,
		initialInterval: defaultInitial,
		maxInterval:     defaultMaxInterval,
		maxPages:        defaultMaxPages,
		log:             logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OrganizationPage is one page of the organization ranking. Raw is the
// undecoded body.
type OrganizationPage struct {
	Count int
	Items []model.Organization
	Raw   []byte
}

// OrganizationPage fetches one page of the organization ranking, filtered to
// category when it is non-empty.
func (c *Client) OrganizationPage(ctx context.Context, page int, category string) (OrganizationPage, error) {
	q := url.Values{"page": {strconv.Itoa(page)}}
	if category != "" {
		q.Set("type", category)
	}
	body, err := c.get(ctx, EndpointOrganizations, "/ranking/organization", q)
	if err != nil {
		return OrganizationPage{}, err
	}
	var wire orgPage
	if err := decode(EndpointOrganizations, body, &wire); err != nil {
		return OrganizationPage{}, err
	}
	out := OrganizationPage{Count: wire.Count, Raw: body, Items: make([]model.Organization, 0, len(wire.Items))}
	for _, it := range wire.Items {
		out.Items = append(out.Items, it.toModel())
	}
	return out, nil
}

// Organizations lists every organization of category ("" for all).
func (c *Client) Organizations(ctx context.Context, category string) iter.Seq2[model.Organization, error] {
	return Paginate(ctx, func(ctx context.Context, page int) ([]model.Organization, error) {
		p, err := c.OrganizationPage(ctx, page, category)
		return p.Items, err
	}, c.maxPages)
}

// MemberHandles lists the handles of an organization in ranking order.
func (c *Client) MemberHandles(ctx context.Context, organizationID int) iter.Seq2[string, error] {
	return Paginate(ctx, func(ctx context.Context, page int) ([]string, error) {
		q := url.Values{
			"organizationId": {strconv.Itoa(organizationID)},
			"page":           {strconv.Itoa(page)},
		}
		body, err := c.get(ctx, EndpointMembers, "/ranking/in_organization", q)
		if err != nil {
			return nil, err
		}
		var wire memberPage
		if err := decode(EndpointMembers, body, &wire); err != nil {
			return nil, err
		}
		handles := make([]string, 0, len(wire.Items))
		for _, it := range wire.Items {
			handles = append(handles, it.Handle)
		}
		return handles, nil
	}, c.maxPages)
}

// Profile fetches a user's profile. An unknown handle yields an error
// wrapping model.ErrNotFound.
func (c *Client) Profile(ctx context.Context, handle string) (model.Profile, error) {
	body, err := c.get(ctx, EndpointProfile, "/user/show", url.Values{"handle": {handle}})
	if err != nil {
		return model.Profile{}, err
	}
	var wire profile
	if err := decode(EndpointProfile, body, &wire); err != nil {
		return model.Profile{}, err
	}
	return wire.toModel(), nil
}

// SolvedProblems lists every problem handle has solved, ascending by id.
func (c *Client) SolvedProblems(ctx context.Context, handle string) iter.Seq2[model.SolvedProblem, error] {
	return Paginate(ctx, func(ctx context.Context, page int) ([]model.SolvedProblem, error) {
		q := url.Values{
			"query": {"s@" + handle},
			"sort":  {"id"},
			"page":  {strconv.Itoa(page)},
		}
		body, err := c.get(ctx, EndpointSolved, "/search/problem", q)
		if err != nil {
			return nil, err
		}
		var wire problemPage
		if err := decode(EndpointSolved, body, &wire); err != nil {
			return nil, err
		}
		out := make([]model.SolvedProblem, 0, len(wire.Items))
		for _, it := range wire.Items {
			out = append(out, it.toModel())
		}
		return out, nil
	}, c.maxPages)
}

// Tags lists the tag catalog.
func (c *Client) Tags(ctx context.Context) iter.Seq2[model.TagInfo, error] {
	return Paginate(ctx, func(ctx context.Context, page int) ([]model.TagInfo, error) {
		q := url.Values{"sort": {"problemCount"}, "page": {strconv.Itoa(page)}}
		body, err := c.get(ctx, EndpointTags, "/tag/list", q)
		if err != nil {
			return nil, err
		}
		var wire tagPage
		if err := decode(EndpointTags, body, &wire); err != nil {
			return nil, err
		}
		out := make([]model.TagInfo, 0, len(wire.Items))
		for _, it := range wire.Items {
			out = append(out, it.toModel())
		}
		return out, nil
	}, c.maxPages)
}

// LevelCounts returns the service-wide problem count of every level.
func (c *Client) LevelCounts(ctx context.Context) ([]model.LevelCount, error) {
	body, err := c.get(ctx, EndpointLevels, "/problem/level", nil)
	if err != nil {
		return nil, err
	}
	var wire []levelItem
	if err := decode(EndpointLevels, body, &wire); err != nil {
		return nil, err
	}
	out := make([]model.LevelCount, 0, len(wire))
	for _, it := range wire {
		out = append(out, model.LevelCount{Level: it.Level, Count: it.Count})
	}
	return out, nil
}

// get performs a GET with retries. 429, 5xx and transport errors are retried
// up to maxTries; other statuses fail immediately.
func (c *Client) get(ctx context.Context, endpoint, path string, q url.Values) ([]byte, error) {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.initialInterval
	bo.MaxInterval = c.maxInterval

	attempt := 0
	return backoff.Retry(ctx, func() ([]byte, error) {
		attempt++
		body, err := c.do(ctx, endpoint, u)
		if err == nil {
			return body, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, backoff.Permanent(ctxErr)
		}
		var se *StatusError
		if errors.As(err, &se) && !se.Retryable() {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	},
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(c.maxTries),
		backoff.WithNotify(func(err error, wait time.Duration) {
			metrics.RecordSourceRetry(endpoint)
			c.log.Debug(ctx, "source request failed, retrying",
				logger.String("endpoint", endpoint),
				logger.Int("attempt", attempt),
				logger.Duration("wait", wait),
				logger.Error(err))
		}),
	)
}

func (c *Client) do(ctx context.Context, endpoint, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("%s: build request: %w", endpoint, err))
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.RecordSourceRequest(endpoint, "error", time.Since(start))
		return nil, fmt.Errorf("%w: %s: %v", model.ErrSourceUnavailable, endpoint, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	metrics.RecordSourceRequest(endpoint, strconv.Itoa(resp.StatusCode), time.Since(start))
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Endpoint: endpoint, Code: resp.StatusCode}
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: read body: %v", model.ErrSourceUnavailable, endpoint, err)
	}
	return body, nil
}

func decode(endpoint string, body []byte, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrDecode, endpoint, err)
	}
	return nil
}
