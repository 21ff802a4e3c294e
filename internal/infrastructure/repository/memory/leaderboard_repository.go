package memory

import (
	"context"

	"github.com/riskibarqy/peg-league/internal/domain/leaderboard"
)

type LeaderboardRepository struct {
	s *Store
}

func (r *LeaderboardRepository) Add(_ context.Context, entry leaderboard.Entry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.entries[entry.CompetitionID] = append(r.s.entries[entry.CompetitionID], entry)
	return nil
}

func (r *LeaderboardRepository) ListByCompetition(_ context.Context, competitionID string) ([]leaderboard.Entry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	items := r.s.entries[competitionID]
	out := make([]leaderboard.Entry, 0, len(items))
	out = append(out, items...)
	return out, nil
}
