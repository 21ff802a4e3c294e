package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/peg-league/internal/infrastructure/repository/memory"
)

// BootstrapSeed loads the demo competitions into an empty database.
func BootstrapSeed(ctx context.Context, db *sqlx.DB) error {
	var count int
	if err := db.GetContext(ctx, &count, `SELECT COUNT(1) FROM competitions`); err != nil {
		return fmt.Errorf("count competitions for bootstrap seed: %w", err)
	}
	if count > 0 {
		return nil
	}

	now := time.Now().UTC()
	return withTx(ctx, db, "bootstrap seed", func(tx *sqlx.Tx) error {
		for _, c := range memory.SeedCompetitions() {
			c.CreatedAt, c.UpdatedAt = now, now
			sqlQuery, args, err := sqlx.Named(`
INSERT INTO competitions (id, name, venue, starts_at, total_slots, booked_slots, entry_fee_minor, currency, mode, team_slot_policy, max_team_members, created_at, updated_at)
VALUES (:id, :name, :venue, :starts_at, :total_slots, :booked_slots, :entry_fee_minor, :currency, :mode, :team_slot_policy, :max_team_members, :created_at, :updated_at)
ON CONFLICT (id) DO NOTHING`, competitionRowFrom(c))
			if err != nil {
				return fmt.Errorf("bind seed competition %s query: %w", c.ID, err)
			}
			if _, err := tx.ExecContext(ctx, tx.Rebind(sqlQuery), args...); err != nil {
				return fmt.Errorf("seed competition %s: %w", c.ID, err)
			}
		}

		for _, p := range memory.SeedCompetitors() {
			sqlQuery, args, err := sqlx.Named(`
INSERT INTO competitors (id, name, email, club, updated_at)
VALUES (:id, :name, :email, :club, :updated_at)
ON CONFLICT (id) DO NOTHING`, competitorTableModel{
				ID:        p.ID,
				Name:      p.Name,
				Email:     p.Email,
				Club:      p.Club,
				UpdatedAt: now,
			})
			if err != nil {
				return fmt.Errorf("bind seed competitor %s query: %w", p.ID, err)
			}
			if _, err := tx.ExecContext(ctx, tx.Rebind(sqlQuery), args...); err != nil {
				return fmt.Errorf("seed competitor %s: %w", p.ID, err)
			}
		}
		return nil
	})
}
