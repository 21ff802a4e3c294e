package competition

import (
	"fmt"
	"strings"
	"time"
)

type Mode string

const (
	ModeIndividual Mode = "individual"
	ModeTeam       Mode = "team"
)

type TeamSlotPolicy string

const (
	PolicyOneSlotPerTeam   TeamSlotPolicy = "one_slot_per_team"
	PolicyOneSlotPerMember TeamSlotPolicy = "one_slot_per_member"
)

// Competition is a fishing match with a fixed number of numbered pegs.
type Competition struct {
	ID             string
	Name           string
	Venue          string
	StartsAt       time.Time
	TotalSlots     int
	BookedSlots    int
	EntryFeeMinor  int64
	Currency       string
	Mode           Mode
	TeamSlotPolicy TeamSlotPolicy
	MaxTeamMembers int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (c Competition) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return fmt.Errorf("competition id is required")
	}
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("competition name is required")
	}
	if c.TotalSlots < 1 {
		return fmt.Errorf("competition total slots must be >= 1")
	}
	if c.BookedSlots < 0 || c.BookedSlots > c.TotalSlots {
		return fmt.Errorf("competition booked slots must be within [0, %d]", c.TotalSlots)
	}
	if c.EntryFeeMinor < 0 {
		return fmt.Errorf("competition entry fee cannot be negative")
	}
	if c.EntryFeeMinor > 0 && len(strings.TrimSpace(c.Currency)) != 3 {
		return fmt.Errorf("competition currency must be a 3-letter code")
	}

	switch c.Mode {
	case ModeIndividual:
	case ModeTeam:
		switch c.TeamSlotPolicy {
		case PolicyOneSlotPerTeam, PolicyOneSlotPerMember:
		default:
			return fmt.Errorf("unknown team slot policy %q", c.TeamSlotPolicy)
		}
		if c.MaxTeamMembers < 1 {
			return fmt.Errorf("team competitions need max team members >= 1")
		}
	default:
		return fmt.Errorf("unknown competition mode %q", c.Mode)
	}

	return nil
}

func (c Competition) IsFree() bool {
	return c.EntryFeeMinor == 0
}

func (c Competition) IsTeamMode() bool {
	return c.Mode == ModeTeam
}

func (c Competition) FreeSlots() int {
	if c.BookedSlots >= c.TotalSlots {
		return 0
	}
	return c.TotalSlots - c.BookedSlots
}

// SlotsForTeam is the number of pegs a team with the given accepted member
// count consumes under the competition's policy.
func (c Competition) SlotsForTeam(acceptedMembers int) int {
	if c.TeamSlotPolicy == PolicyOneSlotPerMember {
		return acceptedMembers
	}
	return 1
}
