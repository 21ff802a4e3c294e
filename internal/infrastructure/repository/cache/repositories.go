package cache

import (
	"context"

	"github.com/riskibarqy/peg-league/internal/domain/competitor"
	"github.com/riskibarqy/peg-league/internal/domain/leaderboard"
	basecache "github.com/riskibarqy/peg-league/internal/platform/cache"
)

// LeaderboardRepository caches entry lists per competition. Every Add
// drops the list for its competition so a recompute sees the new catch.
type LeaderboardRepository struct {
	next  leaderboard.Repository
	cache *basecache.Store
}

func NewLeaderboardRepository(next leaderboard.Repository, cache *basecache.Store) *LeaderboardRepository {
	return &LeaderboardRepository{next: next, cache: cache}
}

func (r *LeaderboardRepository) Add(ctx context.Context, entry leaderboard.Entry) error {
	if err := r.next.Add(ctx, entry); err != nil {
		return err
	}
	r.cache.Delete(ctx, entriesKey(entry.CompetitionID))
	return nil
}

func (r *LeaderboardRepository) ListByCompetition(ctx context.Context, competitionID string) ([]leaderboard.Entry, error) {
	items, err := basecache.Load(ctx, r.cache, entriesKey(competitionID), func(ctx context.Context) ([]leaderboard.Entry, error) {
		items, err := r.next.ListByCompetition(ctx, competitionID)
		if err != nil {
			return nil, err
		}
		return append([]leaderboard.Entry(nil), items...), nil
	})
	if err != nil {
		return nil, err
	}
	return append([]leaderboard.Entry(nil), items...), nil
}

func entriesKey(competitionID string) string {
	return "leaderboard:entries:" + competitionID
}

type CompetitorRepository struct {
	next  competitor.Repository
	cache *basecache.Store
}

func NewCompetitorRepository(next competitor.Repository, cache *basecache.Store) *CompetitorRepository {
	return &CompetitorRepository{next: next, cache: cache}
}

func (r *CompetitorRepository) GetByID(ctx context.Context, competitorID string) (competitor.Competitor, bool, error) {
	cached, err := basecache.Load(ctx, r.cache, competitorKey(competitorID), func(ctx context.Context) (cachedCompetitor, error) {
		item, exists, err := r.next.GetByID(ctx, competitorID)
		if err != nil {
			return cachedCompetitor{}, err
		}
		return cachedCompetitor{value: item, exists: exists}, nil
	})
	if err != nil {
		return competitor.Competitor{}, false, err
	}
	return cached.value, cached.exists, nil
}

// GetByIDs serves hits from the cache and loads the misses in one call.
func (r *CompetitorRepository) GetByIDs(ctx context.Context, competitorIDs []string) (map[string]competitor.Competitor, error) {
	out := make(map[string]competitor.Competitor, len(competitorIDs))
	misses := make([]string, 0, len(competitorIDs))
	for _, id := range competitorIDs {
		v, ok := r.cache.Get(ctx, competitorKey(id))
		if !ok {
			misses = append(misses, id)
			continue
		}
		cached, ok := v.(cachedCompetitor)
		if !ok {
			misses = append(misses, id)
			continue
		}
		if cached.exists {
			out[id] = cached.value
		}
	}
	if len(misses) == 0 {
		return out, nil
	}

	loaded, err := r.next.GetByIDs(ctx, misses)
	if err != nil {
		return nil, err
	}
	for _, id := range misses {
		item, exists := loaded[id]
		r.cache.Set(ctx, competitorKey(id), cachedCompetitor{value: item, exists: exists})
		if exists {
			out[id] = item
		}
	}
	return out, nil
}

func (r *CompetitorRepository) Upsert(ctx context.Context, item competitor.Competitor) error {
	if err := r.next.Upsert(ctx, item); err != nil {
		return err
	}
	r.cache.Delete(ctx, competitorKey(item.ID))
	return nil
}

type cachedCompetitor struct {
	value  competitor.Competitor
	exists bool
}

func competitorKey(competitorID string) string {
	return "competitor:id:" + competitorID
}
