package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

const (
	constraintSlotTaken      = "slot_reservations_pkey"
	constraintSlotOwner      = "slot_reservations_owner_key"
	constraintParticipant    = "participants_competition_competitor_key"
	constraintInviteCode     = "teams_invite_code_key"
	constraintTeamMembership = "team_members_competition_competitor_key"
	constraintIntentRef      = "payments_intent_ref_key"
)

func isNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// violatedConstraint returns the constraint name of a unique violation.
func violatedConstraint(err error) (string, bool) {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return "", false
	}
	if pqErr.Code != uniqueViolation {
		return "", false
	}
	return pqErr.Constraint, true
}

func withTx(ctx context.Context, db *sqlx.DB, name string, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx for %s: %w", name, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s tx: %w", name, err)
	}
	return nil
}

func affected(res sql.Result, what string) (int64, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected by %s: %w", what, err)
	}
	return n, nil
}

func toAnySlice[T any](items []T) []any {
	out := make([]any, 0, len(items))
	for _, item := range items {
		out = append(out, item)
	}
	return out
}
