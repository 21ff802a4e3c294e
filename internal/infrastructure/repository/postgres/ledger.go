package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/peg-league/internal/domain/slot"
	qb "github.com/riskibarqy/peg-league/internal/platform/querybuilder"
)

// Ledger writes reservations, participants and the booked counter in one
// transaction. Uniqueness is enforced by the table constraints; the
// counter moves only when booked + delta stays within total.
type Ledger struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewLedger(db *sqlx.DB) *Ledger {
	return &Ledger{db: db, now: time.Now}
}

func (l *Ledger) OccupiedSlots(ctx context.Context, competitionID string) ([]int, error) {
	query, args, err := qb.Select("slot_number").
		From("slot_reservations").
		Where(qb.Eq("competition_id", competitionID)).
		OrderBy("slot_number").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build occupied slots query: %w", err)
	}

	var slots []int
	if err := l.db.SelectContext(ctx, &slots, query, args...); err != nil {
		return nil, fmt.Errorf("list occupied slots: %w", err)
	}
	return slots, nil
}

func (l *Ledger) Commit(ctx context.Context, admission slot.Admission) error {
	return withTx(ctx, l.db, "slot commit", func(tx *sqlx.Tx) error {
		if len(admission.Claims) > 0 {
			insert := qb.InsertInto("slot_reservations").
				Columns("competition_id", "slot_number", "owner_kind", "owner_id", "created_at")
			for _, claim := range admission.Claims {
				insert.Values(admission.CompetitionID, claim.SlotNumber, string(claim.OwnerKind), claim.OwnerID, admission.JoinedAt)
			}
			query, args, err := insert.ToSQL()
			if err != nil {
				return fmt.Errorf("build insert reservations query: %w", err)
			}
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return ledgerConflict(err, "insert reservations")
			}
		}

		if len(admission.Seats) > 0 {
			insert := qb.InsertInto("participants").
				Columns("id", "competition_id", "competitor_id", "team_id", "slot_number", "joined_at")
			for _, seat := range admission.Seats {
				insert.Values(seat.ParticipantID, admission.CompetitionID, seat.CompetitorID, seat.TeamID, seat.SlotNumber, admission.JoinedAt)
			}
			query, args, err := insert.ToSQL()
			if err != nil {
				return fmt.Errorf("build insert participants query: %w", err)
			}
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return ledgerConflict(err, "insert participants")
			}
		}

		if admission.TeamID != "" {
			query, args, err := qb.Update("teams").
				Set("slot_number", admission.TeamSlot).
				Where(qb.Eq("id", admission.TeamID)).
				ToSQL()
			if err != nil {
				return fmt.Errorf("build assign team slot query: %w", err)
			}
			res, err := tx.ExecContext(ctx, query, args...)
			if err != nil {
				return fmt.Errorf("assign team slot: %w", err)
			}
			n, err := affected(res, "assign team slot")
			if err != nil {
				return err
			}
			if n == 0 {
				return fmt.Errorf("team %s not found", admission.TeamID)
			}
		}

		query, args, err := qb.Update("competitions").
			SetExpr("booked_slots", "booked_slots + ?", admission.Delta).
			Set("updated_at", admission.JoinedAt).
			Where(
				qb.Eq("id", admission.CompetitionID),
				qb.Expr("booked_slots + ? <= total_slots", admission.Delta),
			).
			ToSQL()
		if err != nil {
			return fmt.Errorf("build increment booked query: %w", err)
		}
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("increment booked slots: %w", err)
		}
		n, err := affected(res, "increment booked slots")
		if err != nil {
			return err
		}
		if n == 0 {
			return l.missingOrFull(ctx, tx, admission.CompetitionID)
		}
		return nil
	})
}

// Release deletes the named reservations and seats and lowers the booked
// counter by the reservation rows actually deleted. A concurrent release
// of the same seat blocks on the row lock and then deletes nothing.
func (l *Ledger) Release(ctx context.Context, release slot.Release) (slot.Released, error) {
	var released slot.Released
	err := withTx(ctx, l.db, "slot release", func(tx *sqlx.Tx) error {
		released = slot.Released{}
		for _, owner := range release.Owners {
			query, args, err := qb.DeleteFrom("slot_reservations").
				Where(
					qb.Eq("competition_id", release.CompetitionID),
					qb.Eq("owner_kind", string(owner.OwnerKind)),
					qb.Eq("owner_id", owner.OwnerID),
				).
				ToSQL()
			if err != nil {
				return fmt.Errorf("build delete reservation query: %w", err)
			}
			res, err := tx.ExecContext(ctx, query, args...)
			if err != nil {
				return fmt.Errorf("delete reservation: %w", err)
			}
			n, err := affected(res, "delete reservation")
			if err != nil {
				return err
			}
			released.Slots += int(n)
		}

		if len(release.CompetitorIDs) > 0 {
			query, args, err := qb.DeleteFrom("participants").
				Where(
					qb.Eq("competition_id", release.CompetitionID),
					qb.In("competitor_id", toAnySlice(release.CompetitorIDs)),
				).
				ToSQL()
			if err != nil {
				return fmt.Errorf("build delete participants query: %w", err)
			}
			res, err := tx.ExecContext(ctx, query, args...)
			if err != nil {
				return fmt.Errorf("delete participants: %w", err)
			}
			n, err := affected(res, "delete participants")
			if err != nil {
				return err
			}
			released.Seats = int(n)
		}

		if release.ClearTeamID != "" {
			query, args, err := qb.Update("teams").
				Set("slot_number", 0).
				Where(qb.Eq("id", release.ClearTeamID)).
				ToSQL()
			if err != nil {
				return fmt.Errorf("build clear team slot query: %w", err)
			}
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return fmt.Errorf("clear team slot: %w", err)
			}
		}

		query, args, err := qb.Update("competitions").
			SetExpr("booked_slots", "GREATEST(booked_slots - ?, 0)", released.Slots).
			Set("updated_at", l.now().UTC()).
			Where(qb.Eq("id", release.CompetitionID)).
			ToSQL()
		if err != nil {
			return fmt.Errorf("build decrement booked query: %w", err)
		}
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("decrement booked slots: %w", err)
		}
		n, err := affected(res, "decrement booked slots")
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("competition %s not found", release.CompetitionID)
		}
		return nil
	})
	if err != nil {
		return slot.Released{}, err
	}
	return released, nil
}

func (l *Ledger) missingOrFull(ctx context.Context, tx *sqlx.Tx, competitionID string) error {
	var exists bool
	if err := tx.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM competitions WHERE id = $1)`, competitionID); err != nil {
		return fmt.Errorf("check competition exists: %w", err)
	}
	if !exists {
		return fmt.Errorf("competition %s not found", competitionID)
	}
	return slot.ErrCapacityExceeded
}

// ledgerConflict maps unique violations onto the ledger sentinels.
func ledgerConflict(err error, what string) error {
	constraint, unique := violatedConstraint(err)
	if !unique {
		return fmt.Errorf("%s: %w", what, err)
	}
	switch constraint {
	case constraintSlotTaken:
		return slot.ErrSlotTaken
	case constraintSlotOwner, constraintParticipant:
		return slot.ErrOwnerSeated
	default:
		return fmt.Errorf("%s: %w", what, err)
	}
}
