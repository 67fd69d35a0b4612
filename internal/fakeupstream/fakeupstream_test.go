package fakeupstream_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okian/solvedboard/internal/adapters/scrape"
	"github.com/okian/solvedboard/internal/adapters/source"
	"github.com/okian/solvedboard/internal/domain/model"
	"github.com/okian/solvedboard/internal/fakeupstream"
)

func TestGenerateIsDeterministic(t *testing.T) {
	a := fakeupstream.Generate(fakeupstream.WithSeed(7))
	b := fakeupstream.Generate(fakeupstream.WithSeed(7))
	c := fakeupstream.Generate(fakeupstream.WithSeed(8))

	require.Equal(t, a, b)
	require.NotEqual(t, a.Handles(), c.Handles())
	require.Len(t, a.Members, 12)
	require.Len(t, a.Levels, model.MaxLevel+1)
	assert.Equal(t, "하나고등학교", a.Organization.Name)

	seen := map[string]bool{}
	for _, h := range a.Handles() {
		require.False(t, seen[h], "duplicate handle %s", h)
		seen[h] = true
	}
}

func TestServerSpeaksTheAPIWireShape(t *testing.T) {
	f := fakeupstream.Generate(fakeupstream.WithMissingProfiles(4))
	srv := httptest.NewServer(fakeupstream.NewServer(f, fakeupstream.WithPageSize(3)))
	t.Cleanup(srv.Close)

	ctx := context.Background()
	client := source.New(srv.URL + fakeupstream.APIPrefix)

	peers, err := source.Collect(client.Organizations(ctx, "high_school"))
	require.NoError(t, err)
	require.Equal(t, f.Peers, peers)

	// Without a category filter ranks are positions in the whole ranking.
	all, err := source.Collect(client.Organizations(ctx, ""))
	require.NoError(t, err)
	require.Len(t, all, len(f.Peers))
	for i, o := range all {
		assert.Equal(t, f.Peers[i].GlobalRank, o.Rank)
		assert.NotEqual(t, f.Peers[i].Rank, o.Rank)
	}

	handles, err := source.Collect(client.MemberHandles(ctx, f.Organization.ID))
	require.NoError(t, err)
	require.Equal(t, f.Handles(), handles)

	first := f.Members[0]
	p, err := client.Profile(ctx, first.Handle)
	require.NoError(t, err)
	assert.Equal(t, first.Profile, p)

	missing := f.Members[3]
	require.True(t, missing.Missing)
	_, err = client.Profile(ctx, missing.Handle)
	require.ErrorIs(t, err, model.ErrNotFound)

	solved, err := source.Collect(client.SolvedProblems(ctx, missing.Handle))
	require.NoError(t, err)
	require.Equal(t, len(missing.Problems), len(solved))

	tags, err := source.Collect(client.Tags(ctx))
	require.NoError(t, err)
	require.Equal(t, f.Tags, tags)

	levels, err := client.LevelCounts(ctx)
	require.NoError(t, err)
	require.Equal(t, f.Levels, levels)
}

func TestServerOmitsUnratedFields(t *testing.T) {
	f := fakeupstream.Generate(fakeupstream.WithUnratedProfiles(2))
	srv := httptest.NewServer(fakeupstream.NewServer(f))
	t.Cleanup(srv.Close)

	unrated := f.Members[1]
	require.Nil(t, unrated.Profile.Rating)

	p, err := source.New(srv.URL+fakeupstream.APIPrefix).Profile(context.Background(), unrated.Handle)
	require.NoError(t, err)
	assert.Equal(t, unrated.Profile, p)
	assert.Nil(t, p.Rating)
	assert.Nil(t, p.Coins)
	assert.Nil(t, p.Stardusts)
	require.NotNil(t, p.Tier)
}

func TestServerRanklistFeedsTheScraper(t *testing.T) {
	f := fakeupstream.Generate(fakeupstream.WithMembers(7))
	srv := httptest.NewServer(fakeupstream.NewServer(f, fakeupstream.WithPageSize(3)))
	t.Cleanup(srv.Close)

	handles, err := source.Collect(scrape.New(srv.URL).MemberHandles(context.Background(), f.Organization.ID))
	require.NoError(t, err)
	require.Equal(t, f.Handles(), handles)
}

func TestServerInjectsFailures(t *testing.T) {
	f := fakeupstream.Generate()
	s := fakeupstream.NewServer(f, fakeupstream.WithFailEvery(2))
	srv := httptest.NewServer(s)
	t.Cleanup(srv.Close)

	ctx := context.Background()
	client := source.New(srv.URL+fakeupstream.APIPrefix, source.WithRetry(3, time.Millisecond, time.Millisecond))
	_, err := client.OrganizationPage(ctx, 1, "")
	require.NoError(t, err)

	// The second request fails and is retried.
	levels, err := client.LevelCounts(ctx)
	require.NoError(t, err)
	require.Len(t, levels, model.MaxLevel+1)
	require.Equal(t, int64(3), s.Requests())
}

func TestExpected(t *testing.T) {
	f := fakeupstream.Generate(fakeupstream.WithMissingProfiles(5))
	want := f.Expected()

	require.Len(t, want.Levels, model.MaxLevel+1)
	require.Len(t, want.Tags, len(f.Tags))

	total := 0
	for _, ids := range want.Levels {
		total += len(ids)
	}
	require.Equal(t, len(want.Solvers), total)

	for _, m := range f.Members {
		rank := want.RatingRanks[m.Handle]
		require.GreaterOrEqual(t, rank, 1)
		if m.Missing {
			for _, o := range f.Members {
				if !o.Missing {
					require.Less(t, want.RatingRanks[o.Handle], rank)
				}
			}
		}
	}
}
