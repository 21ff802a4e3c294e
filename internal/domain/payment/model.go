package payment

import (
	"context"
	"errors"
	"time"
)

// FreeIntentRef confirms a free admission without a gateway round trip.
const FreeIntentRef = "free"

var ErrIntentRefTaken = errors.New("payment intent ref already recorded")

type Status string

const (
	StatusPending   Status = "pending"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

type Payment struct {
	ID            string
	CompetitionID string
	CompetitorID  string
	TeamID        string
	AmountMinor   int64
	Currency      string
	IntentRef     string
	Status        Status
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (p Payment) IsTeamPayment() bool {
	return p.TeamID != ""
}

type IntentRequest struct {
	AmountMinor   int64
	Currency      string
	Description   string
	CompetitionID string
	CompetitorID  string
	TeamID        string
}

type Intent struct {
	Ref          string
	ClientSecret string
	Status       Status
}

// Gateway is the external payment processor.
type Gateway interface {
	CreatePaymentIntent(ctx context.Context, req IntentRequest) (Intent, error)
	IntentStatus(ctx context.Context, ref string) (Status, error)
}

type Repository interface {
	Create(ctx context.Context, item Payment) error
	GetByIntentRef(ctx context.Context, ref string) (Payment, bool, error)
	HasSucceededForTeam(ctx context.Context, teamID string) (bool, error)
	// MarkSucceeded moves a payment from pending to succeeded and reports
	// whether this call made the transition.
	MarkSucceeded(ctx context.Context, ref string, at time.Time) (bool, error)
	MarkFailed(ctx context.Context, ref string, at time.Time) error
}
