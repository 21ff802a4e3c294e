package stub

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/riskibarqy/peg-league/internal/domain/payment"
	idgen "github.com/riskibarqy/peg-league/internal/platform/id"
)

const refPrefix = "pi_stub_"

// Gateway issues local intents for development. Every new intent reports
// the configured default status until SetStatus overrides it.
type Gateway struct {
	mu            sync.RWMutex
	idGen         idgen.Generator
	defaultStatus payment.Status
	statuses      map[string]payment.Status
}

func NewGateway(idGen idgen.Generator, defaultStatus payment.Status) *Gateway {
	if idGen == nil {
		idGen = idgen.NewRandomGenerator()
	}
	switch defaultStatus {
	case payment.StatusPending, payment.StatusSucceeded, payment.StatusFailed:
	default:
		defaultStatus = payment.StatusSucceeded
	}

	return &Gateway{
		idGen:         idGen,
		defaultStatus: defaultStatus,
		statuses:      make(map[string]payment.Status),
	}
}

func (g *Gateway) CreatePaymentIntent(_ context.Context, req payment.IntentRequest) (payment.Intent, error) {
	if req.AmountMinor <= 0 {
		return payment.Intent{}, fmt.Errorf("intent amount must be positive")
	}

	id, err := g.idGen.NewID()
	if err != nil {
		return payment.Intent{}, fmt.Errorf("generate intent id: %w", err)
	}
	ref := refPrefix + id

	g.mu.Lock()
	g.statuses[ref] = g.defaultStatus
	g.mu.Unlock()

	return payment.Intent{
		Ref:          ref,
		ClientSecret: ref + "_secret",
		Status:       payment.StatusPending,
	}, nil
}

func (g *Gateway) IntentStatus(_ context.Context, ref string) (payment.Status, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	status, ok := g.statuses[strings.TrimSpace(ref)]
	if !ok {
		return "", fmt.Errorf("unknown payment intent %q", ref)
	}
	return status, nil
}

// SetStatus moves a known intent to the given status.
func (g *Gateway) SetStatus(ref string, status payment.Status) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.statuses[ref]; !ok {
		return fmt.Errorf("unknown payment intent %q", ref)
	}
	g.statuses[ref] = status
	return nil
}
