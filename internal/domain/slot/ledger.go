package slot

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrSlotTaken reports a (competition, slot) uniqueness violation.
	ErrSlotTaken = errors.New("slot already reserved")
	// ErrOwnerSeated reports that the owner or one of the participants
	// already holds a seat in the competition.
	ErrOwnerSeated = errors.New("owner already seated")
	// ErrCapacityExceeded reports that booked + delta would pass total.
	ErrCapacityExceeded = errors.New("competition capacity exceeded")
)

type OwnerKind string

const (
	OwnerIndividual OwnerKind = "individual"
	OwnerTeam       OwnerKind = "team"
	OwnerMember     OwnerKind = "member"
)

// Claim reserves one slot for one owner.
type Claim struct {
	SlotNumber int
	OwnerKind  OwnerKind
	OwnerID    string
}

// Seat is a participant row written with the admission.
type Seat struct {
	ParticipantID string
	CompetitorID  string
	TeamID        string
	SlotNumber    int
}

// Admission is everything one atomic commit writes. Delta is the amount
// the booked counter moves and is normally len(Claims); seating a late
// joiner on an existing team slot commits with no claims and zero delta.
type Admission struct {
	CompetitionID string
	Claims        []Claim
	Seats         []Seat
	// TeamID, when set, receives TeamSlot as its slot number.
	TeamID   string
	TeamSlot int
	Delta    int
	JoinedAt time.Time
}

// Release is the inverse of Admission. Owners pick reservations by kind
// and id; their SlotNumber is not used.
type Release struct {
	CompetitionID string
	Owners        []Claim
	CompetitorIDs []string
	ClearTeamID   string
}

// Released reports what a Release actually removed. The booked counter
// moves by Slots, so releasing the same seat twice frees it once.
type Released struct {
	Slots int
	Seats int
}

func (r Released) Empty() bool {
	return r.Slots == 0 && r.Seats == 0
}

// Ledger owns slot reservations and the booked counter of a competition.
type Ledger interface {
	OccupiedSlots(ctx context.Context, competitionID string) ([]int, error)
	Commit(ctx context.Context, admission Admission) error
	Release(ctx context.Context, release Release) (Released, error)
}
