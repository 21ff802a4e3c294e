package competition

import "context"

// Repository is the competition registry store. Booked slot counts are
// not written here; they move only with slot reservations in slot.Ledger.
type Repository interface {
	List(ctx context.Context) ([]Competition, error)
	GetByID(ctx context.Context, competitionID string) (Competition, bool, error)
	Create(ctx context.Context, item Competition) error
	// ReconcileBooked sets the booked count to the number of reserved
	// slots and returns the corrected competition.
	ReconcileBooked(ctx context.Context, competitionID string) (Competition, error)
}
