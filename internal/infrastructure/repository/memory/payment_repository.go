package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/riskibarqy/peg-league/internal/domain/payment"
)

type PaymentRepository struct {
	s *Store
}

func (r *PaymentRepository) Create(_ context.Context, item payment.Payment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.payments[item.IntentRef]; exists {
		return payment.ErrIntentRefTaken
	}
	r.s.payments[item.IntentRef] = item
	return nil
}

func (r *PaymentRepository) GetByIntentRef(_ context.Context, ref string) (payment.Payment, bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	item, ok := r.s.payments[ref]
	return item, ok, nil
}

func (r *PaymentRepository) HasSucceededForTeam(_ context.Context, teamID string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, item := range r.s.payments {
		if item.TeamID == teamID && item.Status == payment.StatusSucceeded {
			return true, nil
		}
	}
	return false, nil
}

func (r *PaymentRepository) MarkSucceeded(_ context.Context, ref string, at time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	item, ok := r.s.payments[ref]
	if !ok {
		return false, fmt.Errorf("payment %s not found", ref)
	}
	if item.Status == payment.StatusSucceeded {
		return false, nil
	}
	item.Status = payment.StatusSucceeded
	item.UpdatedAt = at
	r.s.payments[ref] = item
	return true, nil
}

func (r *PaymentRepository) MarkFailed(_ context.Context, ref string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	item, ok := r.s.payments[ref]
	if !ok {
		return fmt.Errorf("payment %s not found", ref)
	}
	if item.Status == payment.StatusSucceeded {
		return nil
	}
	item.Status = payment.StatusFailed
	item.UpdatedAt = at
	r.s.payments[ref] = item
	return nil
}
