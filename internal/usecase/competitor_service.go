package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/riskibarqy/peg-league/internal/domain/competitor"
)

type UpsertProfileInput struct {
	CompetitorID string
	Name         string
	Email        string
	Club         string
}

type CompetitorService struct {
	competitorRepo competitor.Repository
	now            func() time.Time
}

func NewCompetitorService(competitorRepo competitor.Repository) *CompetitorService {
	return &CompetitorService{competitorRepo: competitorRepo, now: time.Now}
}

func (s *CompetitorService) UpsertProfile(ctx context.Context, input UpsertProfileInput) (competitor.Competitor, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.CompetitorService.UpsertProfile")
	defer span.End()

	item := competitor.Competitor{
		ID:        strings.TrimSpace(input.CompetitorID),
		Name:      strings.TrimSpace(input.Name),
		Email:     strings.TrimSpace(input.Email),
		Club:      strings.TrimSpace(input.Club),
		UpdatedAt: s.now().UTC(),
	}
	if err := item.Validate(); err != nil {
		return competitor.Competitor{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	if err := s.competitorRepo.Upsert(ctx, item); err != nil {
		return competitor.Competitor{}, fmt.Errorf("upsert competitor: %w", err)
	}

	return item, nil
}

func (s *CompetitorService) GetProfile(ctx context.Context, competitorID string) (competitor.Competitor, error) {
	competitorID = strings.TrimSpace(competitorID)
	if competitorID == "" {
		return competitor.Competitor{}, fmt.Errorf("%w: competitor id is required", ErrInvalidInput)
	}

	item, exists, err := s.competitorRepo.GetByID(ctx, competitorID)
	if err != nil {
		return competitor.Competitor{}, fmt.Errorf("get competitor: %w", err)
	}
	if !exists {
		return competitor.Competitor{}, fmt.Errorf("%w: competitor=%s", ErrNotFound, competitorID)
	}

	return item, nil
}
