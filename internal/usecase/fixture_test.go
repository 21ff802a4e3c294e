package usecase

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/riskibarqy/peg-league/internal/domain/competition"
	"github.com/riskibarqy/peg-league/internal/domain/competitor"
	"github.com/riskibarqy/peg-league/internal/domain/notification"
	"github.com/riskibarqy/peg-league/internal/infrastructure/repository/memory"
	paymentmock "github.com/riskibarqy/peg-league/internal/mocks/domain/payment"
	idgen "github.com/riskibarqy/peg-league/internal/platform/id"
	"github.com/riskibarqy/peg-league/internal/platform/logging"
)

type seqIDGenerator struct {
	prefix string
	n      atomic.Int64
}

func (g *seqIDGenerator) NewID() (string, error) {
	return fmt.Sprintf("%s-%03d", g.prefix, g.n.Add(1)), nil
}

// scriptedCodes hands out codes in order, then falls back to random ones.
type scriptedCodes struct {
	mu    sync.Mutex
	codes []string
	next  idgen.RandomGenerator
}

func (g *scriptedCodes) NewCode(length int) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(g.codes) == 0 {
		return g.next.NewCode(length)
	}
	code := g.codes[0]
	g.codes = g.codes[1:]
	return code, nil
}

var testNow = time.Date(2026, 10, 3, 7, 30, 0, 0, time.UTC)

type testEnv struct {
	store       *memory.Store
	gateway     *paymentmock.Gateway
	admission   *AdmissionService
	payments    *PaymentService
	teams       *TeamService
	leaderboard *LeaderboardService
	codes       *scriptedCodes
}

func newTestEnv(t *testing.T, notifier notification.Notifier, comps ...competition.Competition) *testEnv {
	t.Helper()

	store := memory.NewStore(comps, []competitor.Competitor{
		{ID: "angler-x", Name: "Xavier Platt", Club: "Trentside AC"},
		{ID: "angler-y", Name: "Yasmin Cole", Club: "Severn Valley Anglers"},
	})
	ids := &seqIDGenerator{prefix: "id"}
	codes := &scriptedCodes{}
	logger := logging.NewNop()
	gateway := paymentmock.NewGateway(t)

	admission := NewAdmissionService(store.Competitions(), store.Ledger(), store.Participants(), store.Teams(), ids, logger)
	admission.now = func() time.Time { return testNow }

	payments := NewPaymentService(
		store.Competitions(),
		store.Teams(),
		store.Participants(),
		store.Payments(),
		store.Competitors(),
		gateway,
		admission,
		notifier,
		ids,
		logger,
	)
	payments.now = func() time.Time { return testNow }

	teams := NewTeamService(store.Competitions(), store.Teams(), admission, ids, codes, logger)
	teams.now = func() time.Time { return testNow }

	board := NewLeaderboardService(store.Competitions(), store.Leaderboard(), store.Participants(), store.Teams(), store.Competitors(), ids, logger)
	board.now = func() time.Time { return testNow }

	return &testEnv{
		store:       store,
		gateway:     gateway,
		admission:   admission,
		payments:    payments,
		teams:       teams,
		leaderboard: board,
		codes:       codes,
	}
}

func individualCompetition(id string, total int, fee int64) competition.Competition {
	return competition.Competition{
		ID:            id,
		Name:          "Open " + id,
		TotalSlots:    total,
		EntryFeeMinor: fee,
		Currency:      "GBP",
		Mode:          competition.ModeIndividual,
	}
}

func teamCompetition(id string, total int, fee int64, policy competition.TeamSlotPolicy, maxMembers int) competition.Competition {
	return competition.Competition{
		ID:             id,
		Name:           "Teams " + id,
		TotalSlots:     total,
		EntryFeeMinor:  fee,
		Currency:       "GBP",
		Mode:           competition.ModeTeam,
		TeamSlotPolicy: policy,
		MaxTeamMembers: maxMembers,
	}
}

// assertConserved checks booked == |occupied| for a competition.
func assertConserved(t *testing.T, env *testEnv, competitionID string) int {
	t.Helper()

	comp, _, err := env.store.Competitions().GetByID(t.Context(), competitionID)
	if err != nil {
		t.Fatalf("get competition: %v", err)
	}
	occupied, err := env.store.Ledger().OccupiedSlots(t.Context(), competitionID)
	if err != nil {
		t.Fatalf("occupied slots: %v", err)
	}
	if comp.BookedSlots != len(occupied) {
		t.Fatalf("booked=%d occupied=%d", comp.BookedSlots, len(occupied))
	}
	return comp.BookedSlots
}
