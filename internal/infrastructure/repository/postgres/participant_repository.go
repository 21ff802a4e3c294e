package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/peg-league/internal/domain/participant"
	qb "github.com/riskibarqy/peg-league/internal/platform/querybuilder"
)

// ParticipantRepository reads the rows the ledger writes.
type ParticipantRepository struct {
	db *sqlx.DB
}

func NewParticipantRepository(db *sqlx.DB) *ParticipantRepository {
	return &ParticipantRepository{db: db}
}

func (r *ParticipantRepository) Get(ctx context.Context, competitionID, competitorID string) (participant.Participant, bool, error) {
	query, args, err := qb.Select("*").
		From("participants").
		Where(
			qb.Eq("competition_id", competitionID),
			qb.Eq("competitor_id", competitorID),
		).
		ToSQL()
	if err != nil {
		return participant.Participant{}, false, fmt.Errorf("build get participant query: %w", err)
	}

	var row participantTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return participant.Participant{}, false, nil
		}
		return participant.Participant{}, false, fmt.Errorf("get participant: %w", err)
	}
	return row.toDomain(), true, nil
}

func (r *ParticipantRepository) ListByCompetition(ctx context.Context, competitionID string) ([]participant.Participant, error) {
	return r.list(ctx, qb.Eq("competition_id", competitionID))
}

func (r *ParticipantRepository) ListByTeam(ctx context.Context, teamID string) ([]participant.Participant, error) {
	return r.list(ctx, qb.Eq("team_id", teamID))
}

func (r *ParticipantRepository) list(ctx context.Context, where qb.Condition) ([]participant.Participant, error) {
	query, args, err := qb.Select("*").
		From("participants").
		Where(where).
		OrderBy("slot_number", "competitor_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list participants query: %w", err)
	}

	var rows []participantTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}

	out := make([]participant.Participant, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}
