package memory

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/riskibarqy/peg-league/internal/domain/competition"
	"github.com/riskibarqy/peg-league/internal/domain/slot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(total int) *Store {
	return NewStore([]competition.Competition{{
		ID:         "comp-1",
		Name:       "Test Match",
		TotalSlots: total,
		Mode:       competition.ModeIndividual,
	}}, nil)
}

func individualAdmission(competitorID string, slotNumber int) slot.Admission {
	return slot.Admission{
		CompetitionID: "comp-1",
		Claims:        []slot.Claim{{SlotNumber: slotNumber, OwnerKind: slot.OwnerIndividual, OwnerID: competitorID}},
		Seats:         []slot.Seat{{ParticipantID: "p-" + competitorID, CompetitorID: competitorID, SlotNumber: slotNumber}},
		Delta:         1,
		JoinedAt:      time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestLedger_CommitRejectsTakenSlotAndSeatedOwner(t *testing.T) {
	t.Parallel()

	store := newTestStore(3)
	ledger := store.Ledger()

	require.NoError(t, ledger.Commit(t.Context(), individualAdmission("a", 2)))
	assert.ErrorIs(t, ledger.Commit(t.Context(), individualAdmission("b", 2)), slot.ErrSlotTaken)
	assert.ErrorIs(t, ledger.Commit(t.Context(), individualAdmission("a", 3)), slot.ErrOwnerSeated)

	occupied, err := ledger.OccupiedSlots(t.Context(), "comp-1")
	require.NoError(t, err)
	assert.Equal(t, []int{2}, occupied)

	comp, _, _ := store.Competitions().GetByID(t.Context(), "comp-1")
	assert.Equal(t, 1, comp.BookedSlots)
}

func TestLedger_CommitCapacityGuard(t *testing.T) {
	t.Parallel()

	store := newTestStore(1)
	ledger := store.Ledger()

	admission := individualAdmission("a", 1)
	admission.Delta = 2
	assert.ErrorIs(t, ledger.Commit(t.Context(), admission), slot.ErrCapacityExceeded)

	occupied, err := ledger.OccupiedSlots(t.Context(), "comp-1")
	require.NoError(t, err)
	assert.Empty(t, occupied)
}

func TestLedger_ConcurrentCommitsSameSlotOnlyOneWins(t *testing.T) {
	t.Parallel()

	store := newTestStore(5)
	ledger := store.Ledger()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := ledger.Commit(t.Context(), individualAdmission(fmt.Sprintf("u%d", i), 4)); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	comp, _, _ := store.Competitions().GetByID(t.Context(), "comp-1")
	assert.Equal(t, 1, comp.BookedSlots)
}

func TestLedger_ReleaseRestoresCounter(t *testing.T) {
	t.Parallel()

	store := newTestStore(3)
	ledger := store.Ledger()

	require.NoError(t, ledger.Commit(t.Context(), individualAdmission("a", 1)))
	require.NoError(t, ledger.Commit(t.Context(), individualAdmission("b", 2)))

	released, err := ledger.Release(t.Context(), slot.Release{
		CompetitionID: "comp-1",
		Owners:        []slot.Claim{{OwnerKind: slot.OwnerIndividual, OwnerID: "a"}},
		CompetitorIDs: []string{"a"},
	})
	require.NoError(t, err)
	assert.Equal(t, slot.Released{Slots: 1, Seats: 1}, released)

	occupied, err := ledger.OccupiedSlots(t.Context(), "comp-1")
	require.NoError(t, err)
	assert.Equal(t, []int{2}, occupied)

	_, seated, err := store.Participants().Get(t.Context(), "comp-1", "a")
	require.NoError(t, err)
	assert.False(t, seated)

	comp, _, _ := store.Competitions().GetByID(t.Context(), "comp-1")
	assert.Equal(t, len(occupied), comp.BookedSlots)

	// the freed slot can be claimed again
	require.NoError(t, ledger.Commit(t.Context(), individualAdmission("c", 1)))
}

func TestLedger_ReleasingTheSameSeatTwiceFreesItOnce(t *testing.T) {
	t.Parallel()

	store := newTestStore(5)
	ledger := store.Ledger()
	for i, id := range []string{"a0", "a1", "a2"} {
		require.NoError(t, ledger.Commit(t.Context(), individualAdmission(id, i+1)))
	}

	// two withdraws for a0 that both saw the seat before either released it
	withdraw := slot.Release{
		CompetitionID: "comp-1",
		Owners:        []slot.Claim{{OwnerKind: slot.OwnerIndividual, OwnerID: "a0"}},
		CompetitorIDs: []string{"a0"},
	}
	first, err := ledger.Release(t.Context(), withdraw)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Slots)

	second, err := ledger.Release(t.Context(), withdraw)
	require.NoError(t, err)
	assert.True(t, second.Empty())

	occupied, err := ledger.OccupiedSlots(t.Context(), "comp-1")
	require.NoError(t, err)
	comp, _, _ := store.Competitions().GetByID(t.Context(), "comp-1")
	assert.Equal(t, []int{2, 3}, occupied)
	assert.Equal(t, len(occupied), comp.BookedSlots)
}
