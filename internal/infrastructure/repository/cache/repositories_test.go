package cache

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/riskibarqy/peg-league/internal/domain/competitor"
	"github.com/riskibarqy/peg-league/internal/domain/leaderboard"
	"github.com/riskibarqy/peg-league/internal/infrastructure/repository/memory"
	basecache "github.com/riskibarqy/peg-league/internal/platform/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingEntries struct {
	leaderboard.Repository
	lists atomic.Int32
}

func (c *countingEntries) ListByCompetition(ctx context.Context, competitionID string) ([]leaderboard.Entry, error) {
	c.lists.Add(1)
	return c.Repository.ListByCompetition(ctx, competitionID)
}

func TestLeaderboardRepository_AddInvalidatesList(t *testing.T) {
	t.Parallel()

	store := memory.NewStore(memory.SeedCompetitions(), nil)
	next := &countingEntries{Repository: store.Leaderboard()}
	repo := NewLeaderboardRepository(next, basecache.NewStore(time.Minute))
	ctx := t.Context()

	require.NoError(t, repo.Add(ctx, leaderboard.Entry{ID: "e1", CompetitionID: "c1", CompetitorID: "a", WeightGrams: 100}))

	items, err := repo.ListByCompetition(ctx, "c1")
	require.NoError(t, err)
	assert.Len(t, items, 1)
	_, err = repo.ListByCompetition(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, int32(1), next.lists.Load(), "second read is a hit")

	require.NoError(t, repo.Add(ctx, leaderboard.Entry{ID: "e2", CompetitionID: "c1", CompetitorID: "b", WeightGrams: 200}))
	items, err = repo.ListByCompetition(ctx, "c1")
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, int32(2), next.lists.Load())

	items[0].WeightGrams = 0
	again, err := repo.ListByCompetition(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, int64(100), again[0].WeightGrams, "callers get a copy")
}

type countingCompetitors struct {
	competitor.Repository
	batches atomic.Int32
	asked   []string
}

func (c *countingCompetitors) GetByIDs(ctx context.Context, ids []string) (map[string]competitor.Competitor, error) {
	c.batches.Add(1)
	c.asked = append(c.asked, ids...)
	return c.Repository.GetByIDs(ctx, ids)
}

func TestCompetitorRepository_LoadsOnlyMisses(t *testing.T) {
	t.Parallel()

	store := memory.NewStore(nil, memory.SeedCompetitors())
	next := &countingCompetitors{Repository: store.Competitors()}
	repo := NewCompetitorRepository(next, basecache.NewStore(time.Minute))
	ctx := t.Context()

	item, exists, err := repo.GetByID(ctx, "angler-001")
	require.NoError(t, err)
	require.True(t, exists)
	assert.Equal(t, "Dan Hollis", item.Name)

	got, err := repo.GetByIDs(ctx, []string{"angler-001", "angler-002", "ghost"})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.ElementsMatch(t, []string{"angler-002", "ghost"}, next.asked)

	_, err = repo.GetByIDs(ctx, []string{"angler-002", "ghost"})
	require.NoError(t, err)
	assert.Equal(t, int32(1), next.batches.Load(), "absent ids are cached too")

	require.NoError(t, repo.Upsert(ctx, competitor.Competitor{ID: "angler-001", Name: "Daniel Hollis"}))
	item, _, err = repo.GetByID(ctx, "angler-001")
	require.NoError(t, err)
	assert.Equal(t, "Daniel Hollis", item.Name)
}
