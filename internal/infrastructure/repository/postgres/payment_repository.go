package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/peg-league/internal/domain/payment"
	qb "github.com/riskibarqy/peg-league/internal/platform/querybuilder"
)

type PaymentRepository struct {
	db *sqlx.DB
}

func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(ctx context.Context, item payment.Payment) error {
	query, args, err := qb.InsertModel("payments", paymentTableModel{
		ID:            item.ID,
		CompetitionID: item.CompetitionID,
		CompetitorID:  item.CompetitorID,
		TeamID:        item.TeamID,
		AmountMinor:   item.AmountMinor,
		Currency:      item.Currency,
		IntentRef:     item.IntentRef,
		Status:        string(item.Status),
		CreatedAt:     item.CreatedAt,
		UpdatedAt:     item.UpdatedAt,
	}).ToSQL()
	if err != nil {
		return fmt.Errorf("build insert payment query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		if constraint, unique := violatedConstraint(err); unique && constraint == constraintIntentRef {
			return payment.ErrIntentRefTaken
		}
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

func (r *PaymentRepository) GetByIntentRef(ctx context.Context, ref string) (payment.Payment, bool, error) {
	query, args, err := qb.Select("*").
		From("payments").
		Where(qb.Eq("intent_ref", ref)).
		ToSQL()
	if err != nil {
		return payment.Payment{}, false, fmt.Errorf("build get payment query: %w", err)
	}

	var row paymentTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return payment.Payment{}, false, nil
		}
		return payment.Payment{}, false, fmt.Errorf("get payment: %w", err)
	}
	return row.toDomain(), true, nil
}

func (r *PaymentRepository) HasSucceededForTeam(ctx context.Context, teamID string) (bool, error) {
	const query = `
SELECT EXISTS (
    SELECT 1 FROM payments
    WHERE team_id = $1
      AND status = $2
)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, teamID, string(payment.StatusSucceeded)); err != nil {
		return false, fmt.Errorf("check team payment: %w", err)
	}
	return exists, nil
}

// MarkSucceeded is a compare-and-set on status; only the call that moves
// the row reports true.
func (r *PaymentRepository) MarkSucceeded(ctx context.Context, ref string, at time.Time) (bool, error) {
	return r.transition(ctx, ref, payment.StatusSucceeded, at)
}

func (r *PaymentRepository) MarkFailed(ctx context.Context, ref string, at time.Time) error {
	_, err := r.transition(ctx, ref, payment.StatusFailed, at)
	return err
}

func (r *PaymentRepository) transition(ctx context.Context, ref string, to payment.Status, at time.Time) (bool, error) {
	query, args, err := qb.Update("payments").
		Set("status", string(to)).
		Set("updated_at", at).
		Where(
			qb.Eq("intent_ref", ref),
			qb.Expr("status <> ?", string(payment.StatusSucceeded)),
		).
		ToSQL()
	if err != nil {
		return false, fmt.Errorf("build payment transition query: %w", err)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("mark payment %s: %w", to, err)
	}
	n, err := affected(res, "payment transition")
	if err != nil {
		return false, err
	}
	if n > 0 {
		return true, nil
	}

	if _, exists, err := r.GetByIntentRef(ctx, ref); err != nil {
		return false, err
	} else if !exists {
		return false, fmt.Errorf("payment %s not found", ref)
	}
	return false, nil
}
