package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/peg-league/internal/domain/competitor"
	qb "github.com/riskibarqy/peg-league/internal/platform/querybuilder"
)

type CompetitorRepository struct {
	db *sqlx.DB
}

func NewCompetitorRepository(db *sqlx.DB) *CompetitorRepository {
	return &CompetitorRepository{db: db}
}

func (r *CompetitorRepository) GetByID(ctx context.Context, competitorID string) (competitor.Competitor, bool, error) {
	query, args, err := qb.Select("*").
		From("competitors").
		Where(qb.Eq("id", competitorID)).
		ToSQL()
	if err != nil {
		return competitor.Competitor{}, false, fmt.Errorf("build get competitor query: %w", err)
	}

	var row competitorTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return competitor.Competitor{}, false, nil
		}
		return competitor.Competitor{}, false, fmt.Errorf("get competitor: %w", err)
	}
	return row.toDomain(), true, nil
}

func (r *CompetitorRepository) GetByIDs(ctx context.Context, competitorIDs []string) (map[string]competitor.Competitor, error) {
	out := make(map[string]competitor.Competitor, len(competitorIDs))
	if len(competitorIDs) == 0 {
		return out, nil
	}

	query, args, err := qb.Select("*").
		From("competitors").
		Where(qb.In("id", toAnySlice(competitorIDs))).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build get competitors query: %w", err)
	}

	var rows []competitorTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("get competitors: %w", err)
	}
	for _, row := range rows {
		out[row.ID] = row.toDomain()
	}
	return out, nil
}

func (r *CompetitorRepository) Upsert(ctx context.Context, item competitor.Competitor) error {
	query, args, err := qb.InsertModel("competitors", competitorTableModel{
		ID:        item.ID,
		Name:      item.Name,
		Email:     item.Email,
		Club:      item.Club,
		UpdatedAt: item.UpdatedAt,
	}).
		OnConflictUpdate([]string{"id"}, "name", "email", "club", "updated_at").
		ToSQL()
	if err != nil {
		return fmt.Errorf("build upsert competitor query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert competitor: %w", err)
	}
	return nil
}
