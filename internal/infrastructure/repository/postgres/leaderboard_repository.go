package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/peg-league/internal/domain/leaderboard"
	qb "github.com/riskibarqy/peg-league/internal/platform/querybuilder"
)

type LeaderboardRepository struct {
	db *sqlx.DB
}

func NewLeaderboardRepository(db *sqlx.DB) *LeaderboardRepository {
	return &LeaderboardRepository{db: db}
}

func (r *LeaderboardRepository) Add(ctx context.Context, entry leaderboard.Entry) error {
	query, args, err := qb.InsertModel("leaderboard_entries", entryTableModel{
		ID:            entry.ID,
		CompetitionID: entry.CompetitionID,
		CompetitorID:  entry.CompetitorID,
		TeamID:        entry.TeamID,
		SlotNumber:    entry.SlotNumber,
		WeightGrams:   entry.WeightGrams,
		CreatedAt:     entry.CreatedAt,
		UpdatedAt:     entry.UpdatedAt,
	}).ToSQL()
	if err != nil {
		return fmt.Errorf("build insert leaderboard entry query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert leaderboard entry: %w", err)
	}
	return nil
}

func (r *LeaderboardRepository) ListByCompetition(ctx context.Context, competitionID string) ([]leaderboard.Entry, error) {
	query, args, err := qb.Select("*").
		From("leaderboard_entries").
		Where(qb.Eq("competition_id", competitionID)).
		OrderBy("created_at", "id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list leaderboard entries query: %w", err)
	}

	var rows []entryTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list leaderboard entries: %w", err)
	}

	out := make([]leaderboard.Entry, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}
