package memory

import (
	"context"
	"fmt"

	"github.com/riskibarqy/peg-league/internal/domain/participant"
	"github.com/riskibarqy/peg-league/internal/domain/slot"
)

// Ledger is the in-memory slot ledger. Checks run in the same order as
// the postgres inserts so both report the same sentinel for a conflict.
type Ledger struct {
	s *Store
}

func (l *Ledger) OccupiedSlots(_ context.Context, competitionID string) ([]int, error) {
	l.s.mu.RLock()
	defer l.s.mu.RUnlock()

	return sortedSlots(l.s.reservations[competitionID]), nil
}

func (l *Ledger) Commit(_ context.Context, admission slot.Admission) error {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()

	comp, ok := l.s.competitions[admission.CompetitionID]
	if !ok {
		return fmt.Errorf("competition %s not found", admission.CompetitionID)
	}

	taken := l.s.reservations[admission.CompetitionID]
	claimed := make(map[int]struct{}, len(admission.Claims))
	owners := make(map[string]struct{}, len(admission.Claims))
	for _, claim := range admission.Claims {
		if _, exists := taken[claim.SlotNumber]; exists {
			return slot.ErrSlotTaken
		}
		if _, dup := claimed[claim.SlotNumber]; dup {
			return slot.ErrSlotTaken
		}
		claimed[claim.SlotNumber] = struct{}{}

		key := ownerKey(admission.CompetitionID, claim.OwnerKind, claim.OwnerID)
		if _, exists := l.s.owners[key]; exists {
			return slot.ErrOwnerSeated
		}
		if _, dup := owners[key]; dup {
			return slot.ErrOwnerSeated
		}
		owners[key] = struct{}{}
	}

	seated := make(map[string]struct{}, len(admission.Seats))
	for _, seat := range admission.Seats {
		key := pairKey(admission.CompetitionID, seat.CompetitorID)
		if _, exists := l.s.participants[key]; exists {
			return slot.ErrOwnerSeated
		}
		if _, dup := seated[key]; dup {
			return slot.ErrOwnerSeated
		}
		seated[key] = struct{}{}
	}

	if admission.TeamID != "" {
		if _, exists := l.s.teams[admission.TeamID]; !exists {
			return fmt.Errorf("team %s not found", admission.TeamID)
		}
	}

	if comp.BookedSlots+admission.Delta > comp.TotalSlots {
		return slot.ErrCapacityExceeded
	}

	if taken == nil {
		taken = make(map[int]slot.Claim, len(admission.Claims))
		l.s.reservations[admission.CompetitionID] = taken
	}
	for _, claim := range admission.Claims {
		taken[claim.SlotNumber] = claim
		l.s.owners[ownerKey(admission.CompetitionID, claim.OwnerKind, claim.OwnerID)] = claim.SlotNumber
	}
	for _, seat := range admission.Seats {
		l.s.participants[pairKey(admission.CompetitionID, seat.CompetitorID)] = participant.Participant{
			ID:            seat.ParticipantID,
			CompetitionID: admission.CompetitionID,
			CompetitorID:  seat.CompetitorID,
			TeamID:        seat.TeamID,
			SlotNumber:    seat.SlotNumber,
			JoinedAt:      admission.JoinedAt,
		}
	}
	if admission.TeamID != "" {
		item := l.s.teams[admission.TeamID]
		item.SlotNumber = admission.TeamSlot
		l.s.teams[admission.TeamID] = item
	}

	comp.BookedSlots += admission.Delta
	comp.UpdatedAt = admission.JoinedAt
	l.s.competitions[admission.CompetitionID] = comp
	return nil
}

func (l *Ledger) Release(_ context.Context, release slot.Release) (slot.Released, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()

	comp, ok := l.s.competitions[release.CompetitionID]
	if !ok {
		return slot.Released{}, fmt.Errorf("competition %s not found", release.CompetitionID)
	}

	var released slot.Released
	taken := l.s.reservations[release.CompetitionID]
	for _, owner := range release.Owners {
		key := ownerKey(release.CompetitionID, owner.OwnerKind, owner.OwnerID)
		n, exists := l.s.owners[key]
		if !exists {
			continue
		}
		delete(l.s.owners, key)
		if _, held := taken[n]; held {
			delete(taken, n)
			released.Slots++
		}
	}
	for _, competitorID := range release.CompetitorIDs {
		key := pairKey(release.CompetitionID, competitorID)
		if _, exists := l.s.participants[key]; exists {
			delete(l.s.participants, key)
			released.Seats++
		}
	}
	if release.ClearTeamID != "" {
		if item, exists := l.s.teams[release.ClearTeamID]; exists {
			item.SlotNumber = 0
			l.s.teams[release.ClearTeamID] = item
		}
	}

	comp.BookedSlots = max(comp.BookedSlots-released.Slots, 0)
	l.s.competitions[release.CompetitionID] = comp
	return released, nil
}
