package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/riskibarqy/peg-league/internal/domain/competition"
	idgen "github.com/riskibarqy/peg-league/internal/platform/id"
)

type CreateCompetitionInput struct {
	Name           string
	Venue          string
	StartsAt       time.Time
	TotalSlots     int
	EntryFeeMinor  int64
	Currency       string
	Mode           competition.Mode
	TeamSlotPolicy competition.TeamSlotPolicy
	MaxTeamMembers int
}

type CompetitionService struct {
	competitionRepo competition.Repository
	idGen           idgen.Generator
	now             func() time.Time
}

func NewCompetitionService(competitionRepo competition.Repository, idGen idgen.Generator) *CompetitionService {
	return &CompetitionService{
		competitionRepo: competitionRepo,
		idGen:           idGen,
		now:             time.Now,
	}
}

func (s *CompetitionService) ListCompetitions(ctx context.Context) ([]competition.Competition, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.CompetitionService.ListCompetitions")
	defer span.End()

	items, err := s.competitionRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list competitions: %w", err)
	}

	return items, nil
}

func (s *CompetitionService) GetCompetition(ctx context.Context, competitionID string) (competition.Competition, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.CompetitionService.GetCompetition")
	defer span.End()

	return loadCompetition(ctx, s.competitionRepo, competitionID)
}

func (s *CompetitionService) CreateCompetition(ctx context.Context, input CreateCompetitionInput) (competition.Competition, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.CompetitionService.CreateCompetition")
	defer span.End()

	input.Name = strings.TrimSpace(input.Name)
	input.Venue = strings.TrimSpace(input.Venue)
	input.Currency = strings.ToUpper(strings.TrimSpace(input.Currency))
	if input.Mode == "" {
		input.Mode = competition.ModeIndividual
	}
	if input.Mode == competition.ModeIndividual {
		input.TeamSlotPolicy = ""
		input.MaxTeamMembers = 0
	}

	id, err := s.idGen.NewID()
	if err != nil {
		return competition.Competition{}, fmt.Errorf("generate competition id: %w", err)
	}

	now := s.now().UTC()
	item := competition.Competition{
		ID:             id,
		Name:           input.Name,
		Venue:          input.Venue,
		StartsAt:       input.StartsAt.UTC(),
		TotalSlots:     input.TotalSlots,
		EntryFeeMinor:  input.EntryFeeMinor,
		Currency:       input.Currency,
		Mode:           input.Mode,
		TeamSlotPolicy: input.TeamSlotPolicy,
		MaxTeamMembers: input.MaxTeamMembers,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := item.Validate(); err != nil {
		return competition.Competition{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	if err := s.competitionRepo.Create(ctx, item); err != nil {
		return competition.Competition{}, fmt.Errorf("create competition: %w", err)
	}

	return item, nil
}

func loadCompetition(ctx context.Context, repo competition.Repository, competitionID string) (competition.Competition, error) {
	competitionID = strings.TrimSpace(competitionID)
	if competitionID == "" {
		return competition.Competition{}, fmt.Errorf("%w: competition id is required", ErrInvalidInput)
	}

	item, exists, err := repo.GetByID(ctx, competitionID)
	if err != nil {
		return competition.Competition{}, fmt.Errorf("get competition: %w", err)
	}
	if !exists {
		return competition.Competition{}, fmt.Errorf("%w: competition=%s", ErrNotFound, competitionID)
	}

	return item, nil
}
