package memory

import (
	"context"
	"sort"

	"github.com/riskibarqy/peg-league/internal/domain/participant"
)

type ParticipantRepository struct {
	s *Store
}

func (r *ParticipantRepository) Get(_ context.Context, competitionID, competitorID string) (participant.Participant, bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	item, ok := r.s.participants[pairKey(competitionID, competitorID)]
	return item, ok, nil
}

func (r *ParticipantRepository) ListByCompetition(_ context.Context, competitionID string) ([]participant.Participant, error) {
	return r.list(func(p participant.Participant) bool { return p.CompetitionID == competitionID }), nil
}

func (r *ParticipantRepository) ListByTeam(_ context.Context, teamID string) ([]participant.Participant, error) {
	return r.list(func(p participant.Participant) bool { return p.TeamID == teamID }), nil
}

func (r *ParticipantRepository) list(keep func(participant.Participant) bool) []participant.Participant {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]participant.Participant, 0)
	for _, item := range r.s.participants {
		if keep(item) {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SlotNumber != out[j].SlotNumber {
			return out[i].SlotNumber < out[j].SlotNumber
		}
		return out[i].CompetitorID < out[j].CompetitorID
	})
	return out
}
