package memory

import (
	"context"

	"github.com/riskibarqy/peg-league/internal/domain/competitor"
)

type CompetitorRepository struct {
	s *Store
}

func (r *CompetitorRepository) GetByID(_ context.Context, competitorID string) (competitor.Competitor, bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	item, ok := r.s.competitors[competitorID]
	return item, ok, nil
}

func (r *CompetitorRepository) GetByIDs(_ context.Context, competitorIDs []string) (map[string]competitor.Competitor, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make(map[string]competitor.Competitor, len(competitorIDs))
	for _, id := range competitorIDs {
		if item, ok := r.s.competitors[id]; ok {
			out[id] = item
		}
	}
	return out, nil
}

func (r *CompetitorRepository) Upsert(_ context.Context, item competitor.Competitor) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.competitors[item.ID] = item
	return nil
}
