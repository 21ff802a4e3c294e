package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/peg-league/internal/domain/competition"
	qb "github.com/riskibarqy/peg-league/internal/platform/querybuilder"
)

type CompetitionRepository struct {
	db *sqlx.DB
}

func NewCompetitionRepository(db *sqlx.DB) *CompetitionRepository {
	return &CompetitionRepository{db: db}
}

func (r *CompetitionRepository) List(ctx context.Context) ([]competition.Competition, error) {
	query, args, err := qb.Select("*").
		From("competitions").
		OrderBy("starts_at", "id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list competitions query: %w", err)
	}

	var rows []competitionTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list competitions: %w", err)
	}

	out := make([]competition.Competition, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *CompetitionRepository) GetByID(ctx context.Context, competitionID string) (competition.Competition, bool, error) {
	query, args, err := qb.Select("*").
		From("competitions").
		Where(qb.Eq("id", competitionID)).
		ToSQL()
	if err != nil {
		return competition.Competition{}, false, fmt.Errorf("build get competition query: %w", err)
	}

	var row competitionTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return competition.Competition{}, false, nil
		}
		return competition.Competition{}, false, fmt.Errorf("get competition: %w", err)
	}
	return row.toDomain(), true, nil
}

func (r *CompetitionRepository) Create(ctx context.Context, item competition.Competition) error {
	query, args, err := qb.InsertModel("competitions", competitionRowFrom(item)).ToSQL()
	if err != nil {
		return fmt.Errorf("build insert competition query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		if _, unique := violatedConstraint(err); unique {
			return fmt.Errorf("competition %s already exists", item.ID)
		}
		return fmt.Errorf("insert competition: %w", err)
	}
	return nil
}

// ReconcileBooked resets the booked counter to the number of reservation rows.
func (r *CompetitionRepository) ReconcileBooked(ctx context.Context, competitionID string) (competition.Competition, error) {
	const query = `
UPDATE competitions c
SET booked_slots = (
    SELECT COUNT(1) FROM slot_reservations s WHERE s.competition_id = c.id
)
WHERE c.id = $1
RETURNING c.*`

	var row competitionTableModel
	if err := r.db.GetContext(ctx, &row, query, competitionID); err != nil {
		if isNotFound(err) {
			return competition.Competition{}, fmt.Errorf("competition %s not found", competitionID)
		}
		return competition.Competition{}, fmt.Errorf("reconcile booked slots: %w", err)
	}
	return row.toDomain(), nil
}
