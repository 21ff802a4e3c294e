package participant

import (
	"context"
	"time"
)

// Participant is a competitor admitted to a competition. SlotNumber is
// zero until a peg is assigned; members of a one-slot-per-team team all
// carry the team peg.
type Participant struct {
	ID            string
	CompetitionID string
	CompetitorID  string
	TeamID        string
	SlotNumber    int
	JoinedAt      time.Time
}

func (p Participant) HasSlot() bool {
	return p.SlotNumber > 0
}

type Repository interface {
	Get(ctx context.Context, competitionID, competitorID string) (Participant, bool, error)
	ListByCompetition(ctx context.Context, competitionID string) ([]Participant, error)
	ListByTeam(ctx context.Context, teamID string) ([]Participant, error)
}
