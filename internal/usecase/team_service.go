package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/riskibarqy/peg-league/internal/domain/competition"
	"github.com/riskibarqy/peg-league/internal/domain/team"
	idgen "github.com/riskibarqy/peg-league/internal/platform/id"
	"github.com/riskibarqy/peg-league/internal/platform/logging"
)

const (
	inviteCodeLength   = 8
	inviteCodeAttempts = 5
)

type CreateTeamInput struct {
	CompetitionID string
	CaptainID     string
	Name          string
}

type JoinTeamInput struct {
	Code         string
	CompetitorID string
}

type LeaveTeamInput struct {
	TeamID       string
	CompetitorID string
}

type TeamDetail struct {
	Team    team.Team
	Members []team.Member
}

type TeamService struct {
	competitionRepo competition.Repository
	teamRepo        team.Repository
	admission       *AdmissionService
	idGen           idgen.Generator
	codeGen         idgen.CodeGenerator
	logger          *logging.Logger
	now             func() time.Time
}

func NewTeamService(
	competitionRepo competition.Repository,
	teamRepo team.Repository,
	admission *AdmissionService,
	idGen idgen.Generator,
	codeGen idgen.CodeGenerator,
	logger *logging.Logger,
) *TeamService {
	if logger == nil {
		logger = logging.Default()
	}

	return &TeamService{
		competitionRepo: competitionRepo,
		teamRepo:        teamRepo,
		admission:       admission,
		idGen:           idGen,
		codeGen:         codeGen,
		logger:          logger.Named("team"),
		now:             time.Now,
	}
}

func (s *TeamService) CreateTeam(ctx context.Context, input CreateTeamInput) (team.Team, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.TeamService.CreateTeam", competitionAttr(input.CompetitionID))
	defer span.End()

	input.CaptainID = strings.TrimSpace(input.CaptainID)
	input.Name = strings.TrimSpace(input.Name)
	if input.CaptainID == "" {
		return team.Team{}, fmt.Errorf("%w: captain id is required", ErrInvalidInput)
	}
	if input.Name == "" {
		return team.Team{}, fmt.Errorf("%w: team name is required", ErrInvalidInput)
	}
	if utf8.RuneCountInString(input.Name) > team.MaxNameLength {
		return team.Team{}, fmt.Errorf("%w: team name must be at most %d characters", ErrInvalidInput, team.MaxNameLength)
	}

	comp, err := loadCompetition(ctx, s.competitionRepo, input.CompetitionID)
	if err != nil {
		return team.Team{}, err
	}
	if !comp.IsTeamMode() {
		return team.Team{}, ErrNotTeamCompetition
	}

	if _, exists, err := s.teamRepo.GetMembership(ctx, comp.ID, input.CaptainID); err != nil {
		return team.Team{}, fmt.Errorf("get membership: %w", err)
	} else if exists {
		return team.Team{}, ErrAlreadyInTeam
	}

	id, err := s.idGen.NewID()
	if err != nil {
		return team.Team{}, fmt.Errorf("generate team id: %w", err)
	}

	now := s.now().UTC()
	captain := team.Member{
		TeamID:        id,
		CompetitionID: comp.ID,
		CompetitorID:  input.CaptainID,
		Role:          team.RoleCaptain,
		Status:        team.MemberAccepted,
		JoinedAt:      now,
	}

	for attempt := 1; attempt <= inviteCodeAttempts; attempt++ {
		code, err := s.codeGen.NewCode(inviteCodeLength)
		if err != nil {
			return team.Team{}, fmt.Errorf("generate invite code: %w", err)
		}

		item := team.Team{
			ID:            id,
			CompetitionID: comp.ID,
			Name:          input.Name,
			InviteCode:    code,
			CaptainID:     input.CaptainID,
			PaymentStatus: team.PaymentPending,
			CreatedAt:     now,
		}
		if err := item.Validate(); err != nil {
			return team.Team{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}

		err = s.teamRepo.Create(ctx, item, captain)
		switch {
		case err == nil:
			s.logger.InfoContext(ctx, "team created",
				"competition_id", comp.ID,
				"team_id", item.ID,
				"captain_id", item.CaptainID,
			)
			return item, nil
		case errors.Is(err, team.ErrInviteCodeTaken):
			s.logger.DebugContext(ctx, "invite code collision, regenerating", "attempt", attempt)
			continue
		case errors.Is(err, team.ErrAlreadyMember):
			return team.Team{}, ErrAlreadyInTeam
		default:
			return team.Team{}, fmt.Errorf("create team: %w", err)
		}
	}

	return team.Team{}, fmt.Errorf("%w: could not allocate a unique invite code", ErrContention)
}

func (s *TeamService) JoinByInviteCode(ctx context.Context, input JoinTeamInput) (TeamDetail, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.TeamService.JoinByInviteCode")
	defer span.End()

	input.Code = strings.ToUpper(strings.TrimSpace(input.Code))
	input.CompetitorID = strings.TrimSpace(input.CompetitorID)
	if input.CompetitorID == "" {
		return TeamDetail{}, fmt.Errorf("%w: competitor id is required", ErrInvalidInput)
	}
	if !idgen.IsCode(input.Code) {
		return TeamDetail{}, fmt.Errorf("%w: invite code is malformed", ErrInvalidInput)
	}

	item, exists, err := s.teamRepo.GetByInviteCode(ctx, input.Code)
	if err != nil {
		return TeamDetail{}, fmt.Errorf("get team by invite code: %w", err)
	}
	if !exists {
		return TeamDetail{}, fmt.Errorf("%w: invite code=%s", ErrNotFound, input.Code)
	}

	comp, err := loadCompetition(ctx, s.competitionRepo, item.CompetitionID)
	if err != nil {
		return TeamDetail{}, err
	}
	if item.IsPaid() && comp.TeamSlotPolicy == competition.PolicyOneSlotPerMember {
		return TeamDetail{}, ErrTeamAlreadyPaid
	}

	member := team.Member{
		TeamID:        item.ID,
		CompetitionID: item.CompetitionID,
		CompetitorID:  input.CompetitorID,
		Role:          team.RoleMember,
		Status:        team.MemberAccepted,
		JoinedAt:      s.now().UTC(),
	}
	if err := s.teamRepo.AddMember(ctx, member, comp.MaxTeamMembers); err != nil {
		switch {
		case errors.Is(err, team.ErrAlreadyMember):
			return TeamDetail{}, ErrAlreadyInTeam
		case errors.Is(err, team.ErrTeamFull):
			return TeamDetail{}, ErrTeamFull
		default:
			return TeamDetail{}, fmt.Errorf("add team member: %w", err)
		}
	}

	// Re-read after the write: a team admitted meanwhile already holds its
	// peg, and its own roster recheck may have seated this member first.
	current, err := loadTeam(ctx, s.teamRepo, item.ID)
	if err != nil {
		return TeamDetail{}, err
	}
	if current.SlotNumber > 0 {
		if _, err := s.admission.SeatTeamMember(ctx, item.ID, input.CompetitorID); err != nil && !errors.Is(err, ErrAlreadyJoined) {
			if rollbackErr := s.teamRepo.RemoveMember(ctx, item.ID, input.CompetitorID); rollbackErr != nil {
				s.logger.ErrorContext(ctx, "roll back membership after failed seating",
					"team_id", item.ID,
					"competitor_id", input.CompetitorID,
					"error", rollbackErr,
				)
			}
			return TeamDetail{}, err
		}
	}

	s.logger.InfoContext(ctx, "team member joined",
		"competition_id", item.CompetitionID,
		"team_id", item.ID,
		"competitor_id", input.CompetitorID,
	)
	return s.GetTeam(ctx, item.ID)
}

// Leave removes a member. The captain may only leave last, which
// dissolves the team and frees its pegs.
func (s *TeamService) Leave(ctx context.Context, input LeaveTeamInput) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.TeamService.Leave")
	defer span.End()

	input.CompetitorID = strings.TrimSpace(input.CompetitorID)
	if input.CompetitorID == "" {
		return fmt.Errorf("%w: competitor id is required", ErrInvalidInput)
	}

	item, err := loadTeam(ctx, s.teamRepo, input.TeamID)
	if err != nil {
		return err
	}
	membership, exists, err := s.teamRepo.GetMembership(ctx, item.CompetitionID, input.CompetitorID)
	if err != nil {
		return fmt.Errorf("get membership: %w", err)
	}
	if !exists || membership.TeamID != item.ID {
		return fmt.Errorf("%w: competitor %s is not in team %s", ErrNotFound, input.CompetitorID, item.ID)
	}

	members, err := s.teamRepo.ListMembers(ctx, item.ID)
	if err != nil {
		return fmt.Errorf("list team members: %w", err)
	}
	others := 0
	for _, m := range members {
		if m.CompetitorID != input.CompetitorID && m.IsAccepted() {
			others++
		}
	}

	if membership.IsCaptain() && others > 0 {
		return ErrCaptainHasMembers
	}

	if others == 0 {
		if err := s.admission.ReleaseTeam(ctx, item.ID); err != nil {
			return err
		}
		if err := s.teamRepo.Delete(ctx, item.ID); err != nil {
			return fmt.Errorf("delete team: %w", err)
		}
		s.logger.InfoContext(ctx, "team dissolved", "competition_id", item.CompetitionID, "team_id", item.ID)
		return nil
	}

	if err := s.admission.UnseatMember(ctx, item.CompetitionID, input.CompetitorID); err != nil {
		return err
	}
	if err := s.teamRepo.RemoveMember(ctx, item.ID, input.CompetitorID); err != nil {
		return fmt.Errorf("remove team member: %w", err)
	}

	s.logger.InfoContext(ctx, "team member left",
		"competition_id", item.CompetitionID,
		"team_id", item.ID,
		"competitor_id", input.CompetitorID,
	)
	return nil
}

func (s *TeamService) GetTeam(ctx context.Context, teamID string) (TeamDetail, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.TeamService.GetTeam")
	defer span.End()

	item, err := loadTeam(ctx, s.teamRepo, teamID)
	if err != nil {
		return TeamDetail{}, err
	}
	members, err := s.ListMembers(ctx, item.ID)
	if err != nil {
		return TeamDetail{}, err
	}

	return TeamDetail{Team: item, Members: members}, nil
}

func (s *TeamService) ListMembers(ctx context.Context, teamID string) ([]team.Member, error) {
	members, err := s.teamRepo.ListMembers(ctx, strings.TrimSpace(teamID))
	if err != nil {
		return nil, fmt.Errorf("list team members: %w", err)
	}

	return members, nil
}
