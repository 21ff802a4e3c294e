package memory

import (
	"sort"
	"sync"

	"github.com/riskibarqy/peg-league/internal/domain/competition"
	"github.com/riskibarqy/peg-league/internal/domain/competitor"
	"github.com/riskibarqy/peg-league/internal/domain/leaderboard"
	"github.com/riskibarqy/peg-league/internal/domain/participant"
	"github.com/riskibarqy/peg-league/internal/domain/payment"
	"github.com/riskibarqy/peg-league/internal/domain/slot"
	"github.com/riskibarqy/peg-league/internal/domain/team"
)

// Store keeps every aggregate behind one mutex so a ledger commit can
// touch reservations, participants, teams and counters together the way
// a database transaction does.
type Store struct {
	mu sync.RWMutex

	competitions map[string]competition.Competition
	// reservations: competition -> slot -> owner.
	reservations map[string]map[int]slot.Claim
	owners       map[string]int
	participants map[string]participant.Participant
	teams        map[string]team.Team
	inviteCodes  map[string]string
	members      map[string]team.Member
	payments     map[string]payment.Payment
	entries      map[string][]leaderboard.Entry
	competitors  map[string]competitor.Competitor
}

func NewStore(competitions []competition.Competition, competitors []competitor.Competitor) *Store {
	s := &Store{
		competitions: make(map[string]competition.Competition, len(competitions)),
		reservations: make(map[string]map[int]slot.Claim),
		owners:       make(map[string]int),
		participants: make(map[string]participant.Participant),
		teams:        make(map[string]team.Team),
		inviteCodes:  make(map[string]string),
		members:      make(map[string]team.Member),
		payments:     make(map[string]payment.Payment),
		entries:      make(map[string][]leaderboard.Entry),
		competitors:  make(map[string]competitor.Competitor, len(competitors)),
	}
	for _, item := range competitions {
		s.competitions[item.ID] = item
	}
	for _, item := range competitors {
		s.competitors[item.ID] = item
	}
	return s
}

func (s *Store) Competitions() *CompetitionRepository {
	return &CompetitionRepository{s: s}
}

func (s *Store) Ledger() *Ledger {
	return &Ledger{s: s}
}

func (s *Store) Participants() *ParticipantRepository {
	return &ParticipantRepository{s: s}
}

func (s *Store) Teams() *TeamRepository {
	return &TeamRepository{s: s}
}

func (s *Store) Payments() *PaymentRepository {
	return &PaymentRepository{s: s}
}

func (s *Store) Leaderboard() *LeaderboardRepository {
	return &LeaderboardRepository{s: s}
}

func (s *Store) Competitors() *CompetitorRepository {
	return &CompetitorRepository{s: s}
}

func pairKey(a, b string) string {
	return a + "::" + b
}

func ownerKey(competitionID string, kind slot.OwnerKind, ownerID string) string {
	return competitionID + "::" + string(kind) + "::" + ownerID
}

func sortedSlots(m map[int]slot.Claim) []int {
	out := make([]int, 0, len(m))
	for n := range m {
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}
