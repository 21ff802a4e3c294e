package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/riskibarqy/peg-league/internal/domain/competition"
)

type CompetitionRepository struct {
	s *Store
}

func (r *CompetitionRepository) List(_ context.Context) ([]competition.Competition, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]competition.Competition, 0, len(r.s.competitions))
	for _, item := range r.s.competitions {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartsAt.Equal(out[j].StartsAt) {
			return out[i].StartsAt.Before(out[j].StartsAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *CompetitionRepository) GetByID(_ context.Context, competitionID string) (competition.Competition, bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	item, ok := r.s.competitions[competitionID]
	return item, ok, nil
}

func (r *CompetitionRepository) Create(_ context.Context, item competition.Competition) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.competitions[item.ID]; exists {
		return fmt.Errorf("competition %s already exists", item.ID)
	}
	r.s.competitions[item.ID] = item
	return nil
}

func (r *CompetitionRepository) ReconcileBooked(_ context.Context, competitionID string) (competition.Competition, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	item, ok := r.s.competitions[competitionID]
	if !ok {
		return competition.Competition{}, fmt.Errorf("competition %s not found", competitionID)
	}
	item.BookedSlots = len(r.s.reservations[competitionID])
	r.s.competitions[competitionID] = item
	return item, nil
}
