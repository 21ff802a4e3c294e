package notification

import (
	"context"
	"time"
)

// Confirmation is the booking summary sent to one seated competitor.
type Confirmation struct {
	CompetitionID   string
	CompetitionName string
	Venue           string
	StartsAt        time.Time
	CompetitorID    string
	CompetitorName  string
	Email           string
	TeamID          string
	TeamName        string
	SlotNumber      int
	// FeeMinor is the per-seat entry fee, or the whole amount paid for a
	// team entry. Zero for free entries.
	FeeMinor int64
	Currency string
}

type Notifier interface {
	SendBookingConfirmation(ctx context.Context, msg Confirmation) error
}
