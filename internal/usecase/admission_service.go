package usecase

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"
	"time"

	"github.com/riskibarqy/peg-league/internal/domain/competition"
	"github.com/riskibarqy/peg-league/internal/domain/participant"
	"github.com/riskibarqy/peg-league/internal/domain/slot"
	"github.com/riskibarqy/peg-league/internal/domain/team"
	idgen "github.com/riskibarqy/peg-league/internal/platform/id"
	"github.com/riskibarqy/peg-league/internal/platform/logging"
	"go.opentelemetry.io/otel/attribute"
)

type AdmitIndividualInput struct {
	CompetitionID string
	CompetitorID  string
	// SlotNumber requests a specific peg. Zero means any free peg.
	SlotNumber int
}

type AdmitTeamInput struct {
	CompetitionID string
	TeamID        string
	SlotNumber    int
}

// AdmissionResult lists the participants seated by one admission.
type AdmissionResult struct {
	CompetitionID string
	TeamID        string
	Participants  []participant.Participant
	Replayed      bool
}

// SlotNumbers returns the distinct pegs held by the result, ascending.
func (r AdmissionResult) SlotNumbers() []int {
	seen := make(map[int]struct{}, len(r.Participants))
	out := make([]int, 0, len(r.Participants))
	for _, p := range r.Participants {
		if _, ok := seen[p.SlotNumber]; ok || p.SlotNumber == 0 {
			continue
		}
		seen[p.SlotNumber] = struct{}{}
		out = append(out, p.SlotNumber)
	}
	sort.Ints(out)
	return out
}

// AdmissionService is the only writer of slot reservations, participant
// slots and the booked counter.
type AdmissionService struct {
	competitionRepo competition.Repository
	ledger          slot.Ledger
	participantRepo participant.Repository
	teamRepo        team.Repository
	idGen           idgen.Generator
	logger          *logging.Logger
	now             func() time.Time
	intN            func(n int) int
}

func NewAdmissionService(
	competitionRepo competition.Repository,
	ledger slot.Ledger,
	participantRepo participant.Repository,
	teamRepo team.Repository,
	idGen idgen.Generator,
	logger *logging.Logger,
) *AdmissionService {
	if logger == nil {
		logger = logging.Default()
	}

	return &AdmissionService{
		competitionRepo: competitionRepo,
		ledger:          ledger,
		participantRepo: participantRepo,
		teamRepo:        teamRepo,
		idGen:           idGen,
		logger:          logger.Named("admission"),
		now:             time.Now,
		intN:            rand.IntN,
	}
}

func (s *AdmissionService) AdmitIndividual(ctx context.Context, input AdmitIndividualInput) (AdmissionResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.AdmissionService.AdmitIndividual", competitionAttr(input.CompetitionID))
	defer span.End()

	input.CompetitorID = strings.TrimSpace(input.CompetitorID)
	if input.CompetitorID == "" {
		return AdmissionResult{}, fmt.Errorf("%w: competitor id is required", ErrInvalidInput)
	}

	comp, err := loadCompetition(ctx, s.competitionRepo, input.CompetitionID)
	if err != nil {
		return AdmissionResult{}, err
	}
	if comp.IsTeamMode() {
		return AdmissionResult{}, fmt.Errorf("%w: team competitions are entered by team", ErrInvalidInput)
	}
	if _, seated, err := s.participantRepo.Get(ctx, comp.ID, input.CompetitorID); err != nil {
		return AdmissionResult{}, fmt.Errorf("get participant: %w", err)
	} else if seated {
		return AdmissionResult{}, ErrAlreadyJoined
	}

	participantID, err := s.idGen.NewID()
	if err != nil {
		return AdmissionResult{}, fmt.Errorf("generate participant id: %w", err)
	}

	build := func(slots []int) slot.Admission {
		return slot.Admission{
			CompetitionID: comp.ID,
			Claims:        []slot.Claim{{SlotNumber: slots[0], OwnerKind: slot.OwnerIndividual, OwnerID: input.CompetitorID}},
			Seats:         []slot.Seat{{ParticipantID: participantID, CompetitorID: input.CompetitorID, SlotNumber: slots[0]}},
			Delta:         1,
			JoinedAt:      s.now().UTC(),
		}
	}

	admission, err := s.claim(ctx, comp, input.SlotNumber, 1, build)
	if err != nil {
		return AdmissionResult{}, err
	}

	s.logger.InfoContext(ctx, "competitor admitted",
		"competition_id", comp.ID,
		"competitor_id", input.CompetitorID,
		"slot", admission.Claims[0].SlotNumber,
	)
	return resultFrom(admission), nil
}

func (s *AdmissionService) AdmitTeam(ctx context.Context, input AdmitTeamInput) (AdmissionResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.AdmissionService.AdmitTeam", competitionAttr(input.CompetitionID))
	defer span.End()

	comp, err := loadCompetition(ctx, s.competitionRepo, input.CompetitionID)
	if err != nil {
		return AdmissionResult{}, err
	}
	if !comp.IsTeamMode() {
		return AdmissionResult{}, ErrNotTeamCompetition
	}

	item, err := loadTeam(ctx, s.teamRepo, input.TeamID)
	if err != nil {
		return AdmissionResult{}, err
	}
	if item.CompetitionID != comp.ID {
		return AdmissionResult{}, fmt.Errorf("%w: team %s is not entered in competition %s", ErrInvalidInput, item.ID, comp.ID)
	}
	if item.SlotNumber > 0 {
		return AdmissionResult{}, ErrAlreadyJoined
	}
	if seated, err := s.participantRepo.ListByTeam(ctx, item.ID); err != nil {
		return AdmissionResult{}, fmt.Errorf("list team participants: %w", err)
	} else if len(seated) > 0 {
		return AdmissionResult{}, ErrAlreadyJoined
	}

	members, err := s.teamRepo.ListMembers(ctx, item.ID)
	if err != nil {
		return AdmissionResult{}, fmt.Errorf("list team members: %w", err)
	}
	accepted := make([]team.Member, 0, len(members))
	for _, m := range members {
		if m.IsAccepted() {
			accepted = append(accepted, m)
		}
	}
	if len(accepted) == 0 {
		return AdmissionResult{}, fmt.Errorf("%w: team has no accepted members", ErrInvalidInput)
	}

	participantIDs := make([]string, len(accepted))
	for i := range accepted {
		if participantIDs[i], err = s.idGen.NewID(); err != nil {
			return AdmissionResult{}, fmt.Errorf("generate participant id: %w", err)
		}
	}

	var build func(slots []int) slot.Admission
	need := comp.SlotsForTeam(len(accepted))
	if comp.TeamSlotPolicy == competition.PolicyOneSlotPerMember {
		if input.SlotNumber != 0 {
			return AdmissionResult{}, fmt.Errorf("%w: pegs are drawn per member for this competition", ErrInvalidInput)
		}
		build = func(slots []int) slot.Admission {
			admission := slot.Admission{CompetitionID: comp.ID, Delta: len(slots), JoinedAt: s.now().UTC()}
			for i, m := range accepted {
				admission.Claims = append(admission.Claims, slot.Claim{SlotNumber: slots[i], OwnerKind: slot.OwnerMember, OwnerID: m.CompetitorID})
				admission.Seats = append(admission.Seats, slot.Seat{ParticipantID: participantIDs[i], CompetitorID: m.CompetitorID, TeamID: item.ID, SlotNumber: slots[i]})
			}
			return admission
		}
	} else {
		build = func(slots []int) slot.Admission {
			admission := slot.Admission{
				CompetitionID: comp.ID,
				Claims:        []slot.Claim{{SlotNumber: slots[0], OwnerKind: slot.OwnerTeam, OwnerID: item.ID}},
				TeamID:        item.ID,
				TeamSlot:      slots[0],
				Delta:         1,
				JoinedAt:      s.now().UTC(),
			}
			for i, m := range accepted {
				admission.Seats = append(admission.Seats, slot.Seat{ParticipantID: participantIDs[i], CompetitorID: m.CompetitorID, TeamID: item.ID, SlotNumber: slots[0]})
			}
			return admission
		}
	}

	admission, err := s.claim(ctx, comp, input.SlotNumber, need, build)
	if err != nil {
		return AdmissionResult{}, err
	}

	s.logger.InfoContext(ctx, "team admitted",
		"competition_id", comp.ID,
		"team_id", item.ID,
		"members", len(accepted),
		"slots", len(admission.Claims),
	)
	result := resultFrom(admission)
	result.TeamID = item.ID
	if comp.TeamSlotPolicy != competition.PolicyOneSlotPerMember {
		result.Participants = append(result.Participants, s.seatLateMembers(ctx, comp, item.ID, admission)...)
	}
	return result, nil
}

// seatLateMembers seats members accepted after the roster was read but
// before the team peg was committed. The joiner checks the team slot after
// its own write too, so whichever side runs second seats them; a seat the
// joiner already took is skipped.
func (s *AdmissionService) seatLateMembers(ctx context.Context, comp competition.Competition, teamID string, admission slot.Admission) []participant.Participant {
	members, err := s.teamRepo.ListMembers(ctx, teamID)
	if err != nil {
		s.logger.WarnContext(ctx, "recheck team roster after admission", "team_id", teamID, "error", err)
		return nil
	}

	admitted := make(map[string]struct{}, len(admission.Seats))
	for _, seat := range admission.Seats {
		admitted[seat.CompetitorID] = struct{}{}
	}

	var late []participant.Participant
	for _, m := range members {
		if _, ok := admitted[m.CompetitorID]; ok || !m.IsAccepted() {
			continue
		}
		seated, err := s.SeatTeamMember(ctx, teamID, m.CompetitorID)
		switch {
		case errors.Is(err, ErrAlreadyJoined):
		case err != nil:
			s.logger.WarnContext(ctx, "seat late team member",
				"competition_id", comp.ID,
				"team_id", teamID,
				"competitor_id", m.CompetitorID,
				"error", err,
			)
		default:
			late = append(late, seated.Participants...)
		}
	}
	return late
}

// SeatTeamMember seats a member who joined after the team was admitted
// onto the team's existing peg. The booked counter does not move.
func (s *AdmissionService) SeatTeamMember(ctx context.Context, teamID, competitorID string) (AdmissionResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.AdmissionService.SeatTeamMember", attribute.String("team.id", teamID))
	defer span.End()

	item, err := loadTeam(ctx, s.teamRepo, teamID)
	if err != nil {
		return AdmissionResult{}, err
	}
	if item.SlotNumber == 0 {
		return AdmissionResult{}, fmt.Errorf("%w: team %s has no peg yet", ErrInvalidInput, item.ID)
	}

	participantID, err := s.idGen.NewID()
	if err != nil {
		return AdmissionResult{}, fmt.Errorf("generate participant id: %w", err)
	}

	admission := slot.Admission{
		CompetitionID: item.CompetitionID,
		Seats:         []slot.Seat{{ParticipantID: participantID, CompetitorID: competitorID, TeamID: item.ID, SlotNumber: item.SlotNumber}},
		JoinedAt:      s.now().UTC(),
	}
	if err := s.ledger.Commit(ctx, admission); err != nil {
		if errors.Is(err, slot.ErrOwnerSeated) {
			return AdmissionResult{}, ErrAlreadyJoined
		}
		return AdmissionResult{}, fmt.Errorf("seat team member: %w", err)
	}

	result := resultFrom(admission)
	result.TeamID = item.ID
	return result, nil
}

// UnseatMember removes one team member's seat. Under one-slot-per-member
// their own peg goes back to the pool. Unseating someone who holds no
// seat is a no-op.
func (s *AdmissionService) UnseatMember(ctx context.Context, competitionID, competitorID string) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.AdmissionService.UnseatMember", competitionAttr(competitionID))
	defer span.End()

	comp, err := loadCompetition(ctx, s.competitionRepo, competitionID)
	if err != nil {
		return err
	}

	release := slot.Release{CompetitionID: comp.ID, CompetitorIDs: []string{competitorID}}
	if comp.TeamSlotPolicy == competition.PolicyOneSlotPerMember {
		release.Owners = []slot.Claim{{OwnerKind: slot.OwnerMember, OwnerID: competitorID}}
	}
	released, err := s.ledger.Release(ctx, release)
	if err != nil {
		return fmt.Errorf("release member seat: %w", err)
	}
	if released.Empty() {
		return nil
	}

	s.logger.InfoContext(ctx, "team member unseated",
		"competition_id", comp.ID,
		"competitor_id", competitorID,
		"released_slots", released.Slots,
	)
	return nil
}

// ReleaseTeam frees every peg held by the team and its members.
func (s *AdmissionService) ReleaseTeam(ctx context.Context, teamID string) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.AdmissionService.ReleaseTeam", attribute.String("team.id", teamID))
	defer span.End()

	item, err := loadTeam(ctx, s.teamRepo, teamID)
	if err != nil {
		return err
	}
	comp, err := loadCompetition(ctx, s.competitionRepo, item.CompetitionID)
	if err != nil {
		return err
	}
	seats, err := s.participantRepo.ListByTeam(ctx, item.ID)
	if err != nil {
		return fmt.Errorf("list team participants: %w", err)
	}

	release := slot.Release{CompetitionID: comp.ID, ClearTeamID: item.ID}
	for _, p := range seats {
		release.CompetitorIDs = append(release.CompetitorIDs, p.CompetitorID)
		if comp.TeamSlotPolicy == competition.PolicyOneSlotPerMember {
			release.Owners = append(release.Owners, slot.Claim{OwnerKind: slot.OwnerMember, OwnerID: p.CompetitorID})
		}
	}
	if comp.TeamSlotPolicy != competition.PolicyOneSlotPerMember {
		release.Owners = []slot.Claim{{OwnerKind: slot.OwnerTeam, OwnerID: item.ID}}
	}

	released, err := s.ledger.Release(ctx, release)
	if err != nil {
		return fmt.Errorf("release team seats: %w", err)
	}
	if released.Empty() {
		return nil
	}

	s.logger.InfoContext(ctx, "team seats released",
		"competition_id", comp.ID,
		"team_id", item.ID,
		"slots", released.Slots,
	)
	return nil
}

// Withdraw frees an individual competitor's peg. The ledger decides
// whether a seat was held, so a repeated withdraw reports not found.
func (s *AdmissionService) Withdraw(ctx context.Context, competitionID, competitorID string) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.AdmissionService.Withdraw", competitionAttr(competitionID))
	defer span.End()

	competitorID = strings.TrimSpace(competitorID)
	if competitorID == "" {
		return fmt.Errorf("%w: competitor id is required", ErrInvalidInput)
	}
	comp, err := loadCompetition(ctx, s.competitionRepo, competitionID)
	if err != nil {
		return err
	}
	if comp.IsTeamMode() {
		return fmt.Errorf("%w: leave the team to withdraw from a team competition", ErrInvalidInput)
	}

	released, err := s.ledger.Release(ctx, slot.Release{
		CompetitionID: comp.ID,
		Owners:        []slot.Claim{{OwnerKind: slot.OwnerIndividual, OwnerID: competitorID}},
		CompetitorIDs: []string{competitorID},
	})
	if err != nil {
		return fmt.Errorf("release individual seat: %w", err)
	}
	if released.Empty() {
		return fmt.Errorf("%w: competitor %s is not entered", ErrNotFound, competitorID)
	}

	s.logger.InfoContext(ctx, "competitor withdrew", "competition_id", comp.ID, "competitor_id", competitorID)
	return nil
}

// claim commits an admission for need pegs. A requested peg gets exactly
// one attempt. Otherwise free pegs are drawn at random and the draw is
// repeated when another request wins one of them, at most TotalSlots
// times.
func (s *AdmissionService) claim(
	ctx context.Context,
	comp competition.Competition,
	requested int,
	need int,
	build func(slots []int) slot.Admission,
) (slot.Admission, error) {
	if requested != 0 {
		if requested < 1 || requested > comp.TotalSlots {
			return slot.Admission{}, fmt.Errorf("%w: slot must be between 1 and %d", ErrInvalidInput, comp.TotalSlots)
		}
		admission := build([]int{requested})
		if err := s.ledger.Commit(ctx, admission); err != nil {
			return slot.Admission{}, s.commitError(err, need)
		}
		return admission, nil
	}

	for attempt := 1; attempt <= comp.TotalSlots; attempt++ {
		occupied, err := s.ledger.OccupiedSlots(ctx, comp.ID)
		if err != nil {
			return slot.Admission{}, fmt.Errorf("list occupied slots: %w", err)
		}
		if len(occupied) >= comp.TotalSlots {
			return slot.Admission{}, ErrCompetitionFull
		}
		free := slot.FreeSlots(comp.TotalSlots, occupied)
		if len(free) == 0 {
			return slot.Admission{}, ErrCompetitionFull
		}
		if len(free) < need {
			return slot.Admission{}, ErrInsufficientSlots
		}

		admission := build(s.pick(free, need))
		err = s.ledger.Commit(ctx, admission)
		if err == nil {
			return admission, nil
		}
		if !errors.Is(err, slot.ErrSlotTaken) {
			return slot.Admission{}, s.commitError(err, need)
		}

		s.logger.DebugContext(ctx, "slot taken by concurrent admission, redrawing",
			"competition_id", comp.ID,
			"attempt", attempt,
		)
		if err := ctx.Err(); err != nil {
			return slot.Admission{}, fmt.Errorf("claim slot: %w", err)
		}
	}

	s.logger.WarnContext(ctx, "slot assignment exhausted",
		"competition_id", comp.ID,
		"attempts", comp.TotalSlots,
	)
	return slot.Admission{}, ErrAssignmentExhausted
}

func (s *AdmissionService) commitError(err error, need int) error {
	switch {
	case errors.Is(err, slot.ErrSlotTaken):
		return ErrSlotTaken
	case errors.Is(err, slot.ErrOwnerSeated):
		return ErrAlreadyJoined
	case errors.Is(err, slot.ErrCapacityExceeded):
		if need > 1 {
			return ErrInsufficientSlots
		}
		return ErrCompetitionFull
	default:
		return fmt.Errorf("commit admission: %w", err)
	}
}

// pick draws need distinct values from free with a partial shuffle.
func (s *AdmissionService) pick(free []int, need int) []int {
	pool := append([]int(nil), free...)
	for i := 0; i < need; i++ {
		j := i + s.intN(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:need]
}

func resultFrom(admission slot.Admission) AdmissionResult {
	result := AdmissionResult{CompetitionID: admission.CompetitionID, TeamID: admission.TeamID}
	for _, seat := range admission.Seats {
		result.Participants = append(result.Participants, participant.Participant{
			ID:            seat.ParticipantID,
			CompetitionID: admission.CompetitionID,
			CompetitorID:  seat.CompetitorID,
			TeamID:        seat.TeamID,
			SlotNumber:    seat.SlotNumber,
			JoinedAt:      admission.JoinedAt,
		})
	}
	return result
}

func loadTeam(ctx context.Context, repo team.Repository, teamID string) (team.Team, error) {
	teamID = strings.TrimSpace(teamID)
	if teamID == "" {
		return team.Team{}, fmt.Errorf("%w: team id is required", ErrInvalidInput)
	}

	item, exists, err := repo.GetByID(ctx, teamID)
	if err != nil {
		return team.Team{}, fmt.Errorf("get team: %w", err)
	}
	if !exists {
		return team.Team{}, fmt.Errorf("%w: team=%s", ErrNotFound, teamID)
	}

	return item, nil
}
