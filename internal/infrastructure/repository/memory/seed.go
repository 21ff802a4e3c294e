package memory

import (
	"time"

	"github.com/riskibarqy/peg-league/internal/domain/competition"
	"github.com/riskibarqy/peg-league/internal/domain/competitor"
)

const (
	CompetitionIDAutumnOpen  = "autumn-open-2026"
	CompetitionIDClubPairs   = "club-pairs-2026"
	CompetitionIDWinterTeams = "winter-teams-2026"
)

func SeedCompetitions() []competition.Competition {
	return []competition.Competition{
		{
			ID:            CompetitionIDAutumnOpen,
			Name:          "Autumn Open",
			Venue:         "Linear Fisheries, Manor Farm",
			StartsAt:      time.Date(2026, 10, 24, 8, 0, 0, 0, time.UTC),
			TotalSlots:    40,
			EntryFeeMinor: 2500,
			Currency:      "GBP",
			Mode:          competition.ModeIndividual,
		},
		{
			ID:             CompetitionIDClubPairs,
			Name:           "Club Pairs Friendly",
			Venue:          "Tunnel Barn Farm",
			StartsAt:       time.Date(2026, 11, 7, 8, 30, 0, 0, time.UTC),
			TotalSlots:     24,
			Mode:           competition.ModeTeam,
			TeamSlotPolicy: competition.PolicyOneSlotPerTeam,
			MaxTeamMembers: 2,
		},
		{
			ID:             CompetitionIDWinterTeams,
			Name:           "Winter Team League Round 1",
			Venue:          "Barston Lakes",
			StartsAt:       time.Date(2026, 12, 5, 8, 0, 0, 0, time.UTC),
			TotalSlots:     30,
			EntryFeeMinor:  1500,
			Currency:       "GBP",
			Mode:           competition.ModeTeam,
			TeamSlotPolicy: competition.PolicyOneSlotPerMember,
			MaxTeamMembers: 3,
		},
	}
}

func SeedCompetitors() []competitor.Competitor {
	return []competitor.Competitor{
		{ID: "angler-001", Name: "Dan Hollis", Club: "Trentside AC"},
		{ID: "angler-002", Name: "Jo Pearce", Club: "Severn Valley Anglers"},
		{ID: "angler-003", Name: "Sam Whitlow", Club: "Lakeside Match Group"},
	}
}
