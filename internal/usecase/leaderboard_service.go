package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/riskibarqy/peg-league/internal/domain/competition"
	"github.com/riskibarqy/peg-league/internal/domain/competitor"
	"github.com/riskibarqy/peg-league/internal/domain/leaderboard"
	"github.com/riskibarqy/peg-league/internal/domain/participant"
	"github.com/riskibarqy/peg-league/internal/domain/team"
	idgen "github.com/riskibarqy/peg-league/internal/platform/id"
	"github.com/riskibarqy/peg-league/internal/platform/logging"
	"github.com/sourcegraph/conc/pool"
)

type SubmitEntryInput struct {
	CompetitionID string
	CompetitorID  string
	WeightGrams   int64
}

type LeaderboardService struct {
	competitionRepo competition.Repository
	entryRepo       leaderboard.Repository
	participantRepo participant.Repository
	teamRepo        team.Repository
	competitorRepo  competitor.Repository
	idGen           idgen.Generator
	logger          *logging.Logger
	now             func() time.Time
}

func NewLeaderboardService(
	competitionRepo competition.Repository,
	entryRepo leaderboard.Repository,
	participantRepo participant.Repository,
	teamRepo team.Repository,
	competitorRepo competitor.Repository,
	idGen idgen.Generator,
	logger *logging.Logger,
) *LeaderboardService {
	if logger == nil {
		logger = logging.Default()
	}

	return &LeaderboardService{
		competitionRepo: competitionRepo,
		entryRepo:       entryRepo,
		participantRepo: participantRepo,
		teamRepo:        teamRepo,
		competitorRepo:  competitorRepo,
		idGen:           idGen,
		logger:          logger.Named("leaderboard"),
		now:             time.Now,
	}
}

// SubmitEntry records one weighed catch for a seated competitor.
func (s *LeaderboardService) SubmitEntry(ctx context.Context, input SubmitEntryInput) (leaderboard.Entry, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LeaderboardService.SubmitEntry", competitionAttr(input.CompetitionID))
	defer span.End()

	input.CompetitorID = strings.TrimSpace(input.CompetitorID)
	if input.CompetitorID == "" {
		return leaderboard.Entry{}, fmt.Errorf("%w: competitor id is required", ErrInvalidInput)
	}
	if input.WeightGrams < 0 {
		return leaderboard.Entry{}, fmt.Errorf("%w: weight cannot be negative", ErrInvalidInput)
	}

	comp, err := loadCompetition(ctx, s.competitionRepo, input.CompetitionID)
	if err != nil {
		return leaderboard.Entry{}, err
	}
	seat, seated, err := s.participantRepo.Get(ctx, comp.ID, input.CompetitorID)
	if err != nil {
		return leaderboard.Entry{}, fmt.Errorf("get participant: %w", err)
	}
	if !seated || !seat.HasSlot() {
		return leaderboard.Entry{}, ErrNotParticipant
	}

	id, err := s.idGen.NewID()
	if err != nil {
		return leaderboard.Entry{}, fmt.Errorf("generate entry id: %w", err)
	}

	now := s.now().UTC()
	entry := leaderboard.Entry{
		ID:            id,
		CompetitionID: comp.ID,
		CompetitorID:  seat.CompetitorID,
		TeamID:        seat.TeamID,
		SlotNumber:    seat.SlotNumber,
		WeightGrams:   input.WeightGrams,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.entryRepo.Add(ctx, entry); err != nil {
		return leaderboard.Entry{}, fmt.Errorf("add leaderboard entry: %w", err)
	}

	s.logger.InfoContext(ctx, "weight entry recorded",
		"competition_id", comp.ID,
		"competitor_id", entry.CompetitorID,
		"weight_grams", entry.WeightGrams,
	)
	return entry, nil
}

type standing struct {
	key          string
	teamID       string
	competitorID string
	totalGrams   int64
	fishCount    int
	lastRecorded time.Time
	slotNumber   int
	displayName  string
	club         string
}

// ComputeLeaderboard ranks entries by total weight. Team competitions
// rank teams; individual competitions rank competitors.
func (s *LeaderboardService) ComputeLeaderboard(ctx context.Context, competitionID string) ([]leaderboard.Row, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LeaderboardService.ComputeLeaderboard", competitionAttr(competitionID))
	defer span.End()

	competitionID = strings.TrimSpace(competitionID)
	if competitionID == "" {
		return nil, fmt.Errorf("%w: competition id is required", ErrInvalidInput)
	}

	var (
		comp    competition.Competition
		entries []leaderboard.Entry
	)
	loaders := pool.New().WithContext(ctx).WithCancelOnError().WithFirstError()
	loaders.Go(func(ctx context.Context) error {
		var err error
		comp, err = loadCompetition(ctx, s.competitionRepo, competitionID)
		return err
	})
	loaders.Go(func(ctx context.Context) error {
		var err error
		if entries, err = s.entryRepo.ListByCompetition(ctx, competitionID); err != nil {
			return fmt.Errorf("list leaderboard entries: %w", err)
		}
		return nil
	})
	if err := loaders.Wait(); err != nil {
		return nil, err
	}

	var groups map[string]*standing
	var err error
	if comp.IsTeamMode() {
		groups, err = s.groupByTeam(ctx, comp, entries)
	} else {
		groups, err = s.groupByCompetitor(ctx, entries)
	}
	if err != nil {
		return nil, err
	}

	ordered := make([]*standing, 0, len(groups))
	for _, g := range groups {
		ordered = append(ordered, g)
	}
	sort.Slice(ordered, func(i, j int) bool { return ranksAhead(ordered[i], ordered[j]) })

	rows := make([]leaderboard.Row, 0, len(ordered))
	for i, g := range ordered {
		rows = append(rows, leaderboard.Row{
			Position:    i + 1,
			Key:         g.key,
			DisplayName: g.displayName,
			SlotNumber:  g.slotNumber,
			TotalGrams:  g.totalGrams,
			FishCount:   g.fishCount,
			Club:        g.club,
		})
	}

	return rows, nil
}

// ranksAhead orders by total weight, then by who reached it first, then
// by fewer fish, then by name and key so positions never tie.
func ranksAhead(a, b *standing) bool {
	if a.totalGrams != b.totalGrams {
		return a.totalGrams > b.totalGrams
	}
	if !a.lastRecorded.Equal(b.lastRecorded) {
		return a.lastRecorded.Before(b.lastRecorded)
	}
	if a.fishCount != b.fishCount {
		return a.fishCount < b.fishCount
	}
	if a.displayName != b.displayName {
		return a.displayName < b.displayName
	}
	return a.key < b.key
}

func accumulate(g *standing, e leaderboard.Entry) {
	g.totalGrams += e.WeightGrams
	g.fishCount++
	if g.fishCount == 1 || !e.UpdatedAt.Before(g.lastRecorded) {
		g.lastRecorded = e.UpdatedAt
		g.slotNumber = e.SlotNumber
	}
}

func (s *LeaderboardService) groupByCompetitor(ctx context.Context, entries []leaderboard.Entry) (map[string]*standing, error) {
	groups := make(map[string]*standing)
	ids := make([]string, 0)
	for _, e := range entries {
		g, ok := groups[e.CompetitorID]
		if !ok {
			g = &standing{key: e.CompetitorID, competitorID: e.CompetitorID}
			groups[e.CompetitorID] = g
			ids = append(ids, e.CompetitorID)
		}
		accumulate(g, e)
	}
	if len(groups) == 0 {
		return groups, nil
	}

	profiles, err := s.competitorRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get competitors: %w", err)
	}
	for id, g := range groups {
		profile, ok := profiles[id]
		if !ok {
			g.displayName = id
			continue
		}
		g.displayName = profile.DisplayName()
		g.club = profile.Club
	}

	return groups, nil
}

func (s *LeaderboardService) groupByTeam(ctx context.Context, comp competition.Competition, entries []leaderboard.Entry) (map[string]*standing, error) {
	resolved := make(map[string]string)
	groups := make(map[string]*standing)
	var soloIDs []string

	for _, e := range entries {
		teamID := e.TeamID
		if teamID == "" {
			var ok bool
			if teamID, ok = resolved[e.CompetitorID]; !ok {
				membership, exists, err := s.teamRepo.GetMembership(ctx, comp.ID, e.CompetitorID)
				if err != nil {
					return nil, fmt.Errorf("get membership: %w", err)
				}
				if exists {
					teamID = membership.TeamID
				}
				resolved[e.CompetitorID] = teamID
			}
		}

		key := teamID
		if key == "" {
			key = e.CompetitorID
		}
		g, ok := groups[key]
		if !ok {
			g = &standing{key: key, teamID: teamID}
			if teamID == "" {
				g.competitorID = e.CompetitorID
				soloIDs = append(soloIDs, e.CompetitorID)
			}
			groups[key] = g
		}
		accumulate(g, e)
	}

	var profiles map[string]competitor.Competitor
	if len(soloIDs) > 0 {
		var err error
		if profiles, err = s.competitorRepo.GetByIDs(ctx, soloIDs); err != nil {
			return nil, fmt.Errorf("get competitors: %w", err)
		}
	}

	for _, g := range groups {
		g.displayName = g.key
		if g.teamID == "" {
			if profile, ok := profiles[g.competitorID]; ok {
				g.displayName = profile.DisplayName()
			}
			continue
		}
		item, exists, err := s.teamRepo.GetByID(ctx, g.teamID)
		if err != nil {
			return nil, fmt.Errorf("get team: %w", err)
		}
		if exists && strings.TrimSpace(item.Name) != "" {
			g.displayName = item.Name
		}
	}

	return groups, nil
}
