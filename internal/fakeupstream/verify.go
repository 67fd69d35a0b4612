package fakeupstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/okian/solvedboard/internal/domain/model"
	"github.com/okian/solvedboard/pkg/logger"
)

// ErrMismatch is returned when a published view disagrees with the fixture.
var ErrMismatch = errors.New("published data does not match fixture")

// Verify waits for the service at baseURL to publish a snapshot and checks
// its member, level, tag and per-problem views against f.
func Verify(ctx context.Context, baseURL string, f *Fixture, log logger.Logger) error {
	baseURL = strings.TrimRight(baseURL, "/")
	hc := &http.Client{Timeout: 10 * time.Second}
	want := f.Expected()

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		resp, err := hc.Get(baseURL + "/updated")
		if err != nil {
			return struct{}{}, err
		}
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return struct{}{}, fmt.Errorf("snapshot not ready: status %d", resp.StatusCode)
		}
		return struct{}{}, nil
	}, backoff.WithBackOff(backoff.NewConstantBackOff(500*time.Millisecond)), backoff.WithMaxElapsedTime(2*time.Minute))
	if err != nil {
		return fmt.Errorf("waiting for snapshot: %w", err)
	}

	var members []model.Member
	if err := getJSON(ctx, hc, baseURL+"/user", &members); err != nil {
		return err
	}
	if len(members) != len(f.Members) {
		return fmt.Errorf("%w: %d members, want %d", ErrMismatch, len(members), len(f.Members))
	}
	for _, m := range members {
		if rank, ok := want.RatingRanks[m.Handle]; !ok || rank != m.RatingRank {
			return fmt.Errorf("%w: %s rating rank %d, want %d", ErrMismatch, m.Handle, m.RatingRank, rank)
		}
	}
	log.Info(ctx, "member table verified", logger.Int("members", len(members)))

	var levels []model.LevelBucket
	if err := getJSON(ctx, hc, baseURL+"/problem/level", &levels); err != nil {
		return err
	}
	for _, l := range levels {
		if !slices.Equal(l.ProblemIDs, want.Levels[l.Level]) {
			return fmt.Errorf("%w: level %d solved %v, want %v", ErrMismatch, l.Level, l.ProblemIDs, want.Levels[l.Level])
		}
	}
	log.Info(ctx, "level table verified", logger.Int("levels", len(levels)))

	var tags []model.Tag
	if err := getJSON(ctx, hc, baseURL+"/problem/tag", &tags); err != nil {
		return err
	}
	for _, t := range tags {
		if t.SolvedCount != want.Tags[t.ID] {
			return fmt.Errorf("%w: tag %d solved %d, want %d", ErrMismatch, t.ID, t.SolvedCount, want.Tags[t.ID])
		}
	}
	log.Info(ctx, "tag table verified", logger.Int("tags", len(tags)))

	var problems []model.ProblemSolvers
	if err := getJSON(ctx, hc, baseURL+"/problem", &problems); err != nil {
		return err
	}
	if len(problems) != len(want.Solvers) {
		return fmt.Errorf("%w: %d solved problems, want %d", ErrMismatch, len(problems), len(want.Solvers))
	}
	for _, p := range problems {
		if !slices.Equal(p.Handles, want.Solvers[p.ProblemID]) {
			return fmt.Errorf("%w: problem %d solvers %v, want %v", ErrMismatch, p.ProblemID, p.Handles, want.Solvers[p.ProblemID])
		}
	}
	log.Info(ctx, "problem table verified", logger.Int("problems", len(problems)))
	return nil
}

func getJSON(ctx context.Context, hc *http.Client, u string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("get %s: %w", u, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("get %s: status %d", u, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", u, err)
	}
	return nil
}
