package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/riskibarqy/peg-league/internal/domain/team"
)

type TeamRepository struct {
	s *Store
}

func (r *TeamRepository) Create(_ context.Context, item team.Team, captain team.Member) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.inviteCodes[item.InviteCode]; exists {
		return team.ErrInviteCodeTaken
	}
	if _, exists := r.s.members[pairKey(captain.CompetitionID, captain.CompetitorID)]; exists {
		return team.ErrAlreadyMember
	}
	if _, exists := r.s.teams[item.ID]; exists {
		return fmt.Errorf("team %s already exists", item.ID)
	}

	r.s.teams[item.ID] = item
	r.s.inviteCodes[item.InviteCode] = item.ID
	r.s.members[pairKey(captain.CompetitionID, captain.CompetitorID)] = captain
	return nil
}

func (r *TeamRepository) GetByID(_ context.Context, teamID string) (team.Team, bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	item, ok := r.s.teams[teamID]
	return item, ok, nil
}

func (r *TeamRepository) GetByInviteCode(_ context.Context, code string) (team.Team, bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	teamID, ok := r.s.inviteCodes[code]
	if !ok {
		return team.Team{}, false, nil
	}
	item, ok := r.s.teams[teamID]
	return item, ok, nil
}

func (r *TeamRepository) GetMembership(_ context.Context, competitionID, competitorID string) (team.Member, bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	item, ok := r.s.members[pairKey(competitionID, competitorID)]
	return item, ok, nil
}

func (r *TeamRepository) ListMembers(_ context.Context, teamID string) ([]team.Member, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return r.membersLocked(teamID), nil
}

func (r *TeamRepository) AddMember(_ context.Context, member team.Member, maxAccepted int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.teams[member.TeamID]; !exists {
		return fmt.Errorf("team %s not found", member.TeamID)
	}
	if _, exists := r.s.members[pairKey(member.CompetitionID, member.CompetitorID)]; exists {
		return team.ErrAlreadyMember
	}
	if team.AcceptedCount(r.membersLocked(member.TeamID)) >= maxAccepted {
		return team.ErrTeamFull
	}

	r.s.members[pairKey(member.CompetitionID, member.CompetitorID)] = member
	return nil
}

func (r *TeamRepository) RemoveMember(_ context.Context, teamID, competitorID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	item, ok := r.s.teams[teamID]
	if !ok {
		return nil
	}
	key := pairKey(item.CompetitionID, competitorID)
	if m, exists := r.s.members[key]; exists && m.TeamID == teamID {
		delete(r.s.members, key)
	}
	return nil
}

func (r *TeamRepository) Delete(_ context.Context, teamID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	item, ok := r.s.teams[teamID]
	if !ok {
		return nil
	}
	for key, m := range r.s.members {
		if m.TeamID == teamID {
			delete(r.s.members, key)
		}
	}
	delete(r.s.inviteCodes, item.InviteCode)
	delete(r.s.teams, teamID)
	return nil
}

func (r *TeamRepository) MarkPaid(_ context.Context, teamID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	item, ok := r.s.teams[teamID]
	if !ok {
		return false, fmt.Errorf("team %s not found", teamID)
	}
	if item.IsPaid() {
		return false, nil
	}
	item.PaymentStatus = team.PaymentSucceeded
	r.s.teams[teamID] = item
	return true, nil
}

func (r *TeamRepository) membersLocked(teamID string) []team.Member {
	out := make([]team.Member, 0)
	for _, m := range r.s.members {
		if m.TeamID == teamID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].JoinedAt.Before(out[j].JoinedAt)
		}
		return out[i].CompetitorID < out[j].CompetitorID
	})
	return out
}
