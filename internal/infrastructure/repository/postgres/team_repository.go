package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/peg-league/internal/domain/team"
	qb "github.com/riskibarqy/peg-league/internal/platform/querybuilder"
)

type TeamRepository struct {
	db *sqlx.DB
}

func NewTeamRepository(db *sqlx.DB) *TeamRepository {
	return &TeamRepository{db: db}
}

func (r *TeamRepository) Create(ctx context.Context, item team.Team, captain team.Member) error {
	return withTx(ctx, r.db, "team create", func(tx *sqlx.Tx) error {
		sqlQuery, args, err := sqlx.Named(`
INSERT INTO teams (id, competition_id, name, invite_code, captain_id, payment_status, slot_number, created_at)
VALUES (:id, :competition_id, :name, :invite_code, :captain_id, :payment_status, :slot_number, :created_at)`, teamTableModel{
			ID:            item.ID,
			CompetitionID: item.CompetitionID,
			Name:          item.Name,
			InviteCode:    item.InviteCode,
			CaptainID:     item.CaptainID,
			PaymentStatus: string(item.PaymentStatus),
			SlotNumber:    item.SlotNumber,
			CreatedAt:     item.CreatedAt,
		})
		if err != nil {
			return fmt.Errorf("bind insert team query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(sqlQuery), args...); err != nil {
			if constraint, unique := violatedConstraint(err); unique && constraint == constraintInviteCode {
				return team.ErrInviteCodeTaken
			}
			return fmt.Errorf("insert team: %w", err)
		}

		return insertMember(ctx, tx, captain)
	})
}

func (r *TeamRepository) GetByID(ctx context.Context, teamID string) (team.Team, bool, error) {
	return r.getOne(ctx, qb.Eq("id", teamID))
}

func (r *TeamRepository) GetByInviteCode(ctx context.Context, code string) (team.Team, bool, error) {
	return r.getOne(ctx, qb.Eq("invite_code", code))
}

func (r *TeamRepository) getOne(ctx context.Context, where qb.Condition) (team.Team, bool, error) {
	query, args, err := qb.Select("*").
		From("teams").
		Where(where).
		ToSQL()
	if err != nil {
		return team.Team{}, false, fmt.Errorf("build get team query: %w", err)
	}

	var row teamTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return team.Team{}, false, nil
		}
		return team.Team{}, false, fmt.Errorf("get team: %w", err)
	}
	return row.toDomain(), true, nil
}

func (r *TeamRepository) GetMembership(ctx context.Context, competitionID, competitorID string) (team.Member, bool, error) {
	query, args, err := qb.Select("*").
		From("team_members").
		Where(
			qb.Eq("competition_id", competitionID),
			qb.Eq("competitor_id", competitorID),
		).
		ToSQL()
	if err != nil {
		return team.Member{}, false, fmt.Errorf("build get membership query: %w", err)
	}

	var row teamMemberTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return team.Member{}, false, nil
		}
		return team.Member{}, false, fmt.Errorf("get membership: %w", err)
	}
	return row.toDomain(), true, nil
}

func (r *TeamRepository) ListMembers(ctx context.Context, teamID string) ([]team.Member, error) {
	return listMembers(ctx, r.db, teamID)
}

// AddMember locks the team row so concurrent joins see each other's
// accepted count before the cap is checked.
func (r *TeamRepository) AddMember(ctx context.Context, member team.Member, maxAccepted int) error {
	return withTx(ctx, r.db, "team add member", func(tx *sqlx.Tx) error {
		lockQuery, lockArgs, err := qb.Select("id").
			From("teams").
			Where(qb.Eq("id", member.TeamID)).
			ForUpdate().
			ToSQL()
		if err != nil {
			return fmt.Errorf("build lock team query: %w", err)
		}
		var lockedID string
		if err := tx.GetContext(ctx, &lockedID, lockQuery, lockArgs...); err != nil {
			if isNotFound(err) {
				return fmt.Errorf("team %s not found", member.TeamID)
			}
			return fmt.Errorf("lock team: %w", err)
		}

		var existing int
		if err := tx.GetContext(ctx, &existing, `
SELECT COUNT(1) FROM team_members
WHERE competition_id = $1
  AND competitor_id = $2`, member.CompetitionID, member.CompetitorID); err != nil {
			return fmt.Errorf("check existing membership: %w", err)
		}
		if existing > 0 {
			return team.ErrAlreadyMember
		}

		members, err := listMembers(ctx, tx, member.TeamID)
		if err != nil {
			return err
		}
		if team.AcceptedCount(members) >= maxAccepted {
			return team.ErrTeamFull
		}

		return insertMember(ctx, tx, member)
	})
}

func (r *TeamRepository) RemoveMember(ctx context.Context, teamID, competitorID string) error {
	query, args, err := qb.DeleteFrom("team_members").
		Where(
			qb.Eq("team_id", teamID),
			qb.Eq("competitor_id", competitorID),
		).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build remove member query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("remove member: %w", err)
	}
	return nil
}

// Delete removes the team; member rows go with it by cascade.
func (r *TeamRepository) Delete(ctx context.Context, teamID string) error {
	query, args, err := qb.DeleteFrom("teams").
		Where(qb.Eq("id", teamID)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build delete team query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete team: %w", err)
	}
	return nil
}

func (r *TeamRepository) MarkPaid(ctx context.Context, teamID string) (bool, error) {
	query, args, err := qb.Update("teams").
		Set("payment_status", string(team.PaymentSucceeded)).
		Where(
			qb.Eq("id", teamID),
			qb.Expr("payment_status <> ?", string(team.PaymentSucceeded)),
		).
		ToSQL()
	if err != nil {
		return false, fmt.Errorf("build mark team paid query: %w", err)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("mark team paid: %w", err)
	}
	n, err := affected(res, "mark team paid")
	if err != nil {
		return false, err
	}
	if n > 0 {
		return true, nil
	}

	if _, exists, err := r.GetByID(ctx, teamID); err != nil {
		return false, err
	} else if !exists {
		return false, fmt.Errorf("team %s not found", teamID)
	}
	return false, nil
}

func insertMember(ctx context.Context, tx *sqlx.Tx, member team.Member) error {
	sqlQuery, args, err := sqlx.Named(`
INSERT INTO team_members (team_id, competition_id, competitor_id, role, status, joined_at)
VALUES (:team_id, :competition_id, :competitor_id, :role, :status, :joined_at)`, teamMemberRowFrom(member))
	if err != nil {
		return fmt.Errorf("bind insert member query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(sqlQuery), args...); err != nil {
		if _, unique := violatedConstraint(err); unique {
			return team.ErrAlreadyMember
		}
		return fmt.Errorf("insert member: %w", err)
	}
	return nil
}

func listMembers(ctx context.Context, q sqlx.QueryerContext, teamID string) ([]team.Member, error) {
	query, args, err := qb.Select("*").
		From("team_members").
		Where(qb.Eq("team_id", teamID)).
		OrderBy("joined_at", "competitor_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list members query: %w", err)
	}

	var rows []teamMemberTableModel
	if err := sqlx.SelectContext(ctx, q, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}

	out := make([]team.Member, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}
