package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/peg-league/internal/domain/competition"
	"github.com/riskibarqy/peg-league/internal/domain/competitor"
	"github.com/riskibarqy/peg-league/internal/domain/notification"
	"github.com/riskibarqy/peg-league/internal/domain/participant"
	"github.com/riskibarqy/peg-league/internal/domain/payment"
	"github.com/riskibarqy/peg-league/internal/domain/team"
	idgen "github.com/riskibarqy/peg-league/internal/platform/id"
	"github.com/riskibarqy/peg-league/internal/platform/logging"
)

type CreateIntentInput struct {
	ActorID       string
	CompetitionID string
	TeamID        string
}

type CreateIntentResult struct {
	Payment      payment.Payment
	ClientSecret string
}

type ConfirmInput struct {
	ActorID       string
	IntentRef     string
	CompetitionID string
	TeamID        string
	SlotNumber    int
}

type JoinInput struct {
	ActorID       string
	CompetitionID string
	SlotNumber    int
}

// PaymentService turns a settled payment, or a free entry, into exactly
// one admission.
type PaymentService struct {
	competitionRepo competition.Repository
	teamRepo        team.Repository
	participantRepo participant.Repository
	paymentRepo     payment.Repository
	competitorRepo  competitor.Repository
	gateway         payment.Gateway
	admission       *AdmissionService
	notifier        notification.Notifier
	idGen           idgen.Generator
	logger          *logging.Logger
	now             func() time.Time
}

func NewPaymentService(
	competitionRepo competition.Repository,
	teamRepo team.Repository,
	participantRepo participant.Repository,
	paymentRepo payment.Repository,
	competitorRepo competitor.Repository,
	gateway payment.Gateway,
	admission *AdmissionService,
	notifier notification.Notifier,
	idGen idgen.Generator,
	logger *logging.Logger,
) *PaymentService {
	if logger == nil {
		logger = logging.Default()
	}

	return &PaymentService{
		competitionRepo: competitionRepo,
		teamRepo:        teamRepo,
		participantRepo: participantRepo,
		paymentRepo:     paymentRepo,
		competitorRepo:  competitorRepo,
		gateway:         gateway,
		admission:       admission,
		notifier:        notifier,
		idGen:           idGen,
		logger:          logger.Named("payment"),
		now:             time.Now,
	}
}

func (s *PaymentService) CreateIntent(ctx context.Context, input CreateIntentInput) (CreateIntentResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PaymentService.CreateIntent", competitionAttr(input.CompetitionID))
	defer span.End()

	input.ActorID = strings.TrimSpace(input.ActorID)
	input.TeamID = strings.TrimSpace(input.TeamID)
	if input.ActorID == "" {
		return CreateIntentResult{}, fmt.Errorf("%w: actor id is required", ErrInvalidInput)
	}

	comp, err := loadCompetition(ctx, s.competitionRepo, input.CompetitionID)
	if err != nil {
		return CreateIntentResult{}, err
	}
	if comp.IsFree() {
		return CreateIntentResult{}, ErrFreeCompetition
	}
	if comp.FreeSlots() == 0 {
		return CreateIntentResult{}, ErrCompetitionFull
	}

	amount, err := s.chargeAmount(ctx, comp, input)
	if err != nil {
		return CreateIntentResult{}, err
	}

	intent, err := s.gateway.CreatePaymentIntent(ctx, payment.IntentRequest{
		AmountMinor:   amount,
		Currency:      comp.Currency,
		Description:   "Entry: " + comp.Name,
		CompetitionID: comp.ID,
		CompetitorID:  input.ActorID,
		TeamID:        input.TeamID,
	})
	if err != nil {
		return CreateIntentResult{}, crerr.Mark(crerr.Wrap(err, "create payment intent"), ErrDependencyUnavailable)
	}
	if strings.TrimSpace(intent.Ref) == "" || intent.Ref == payment.FreeIntentRef {
		return CreateIntentResult{}, crerr.Mark(crerr.Newf("gateway returned unusable intent ref %q", intent.Ref), ErrDependencyUnavailable)
	}

	id, err := s.idGen.NewID()
	if err != nil {
		return CreateIntentResult{}, fmt.Errorf("generate payment id: %w", err)
	}

	now := s.now().UTC()
	item := payment.Payment{
		ID:            id,
		CompetitionID: comp.ID,
		CompetitorID:  input.ActorID,
		TeamID:        input.TeamID,
		AmountMinor:   amount,
		Currency:      comp.Currency,
		IntentRef:     intent.Ref,
		Status:        payment.StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.paymentRepo.Create(ctx, item); err != nil {
		if errors.Is(err, payment.ErrIntentRefTaken) {
			return CreateIntentResult{}, fmt.Errorf("%w: intent %s already recorded", ErrConflict, intent.Ref)
		}
		return CreateIntentResult{}, fmt.Errorf("store payment: %w", err)
	}

	s.logger.InfoContext(ctx, "payment intent created",
		"competition_id", comp.ID,
		"competitor_id", input.ActorID,
		"team_id", input.TeamID,
		"intent_ref", intent.Ref,
		"amount_minor", amount,
	)
	return CreateIntentResult{Payment: item, ClientSecret: intent.ClientSecret}, nil
}

// chargeAmount computes the charge server side. Team entries under
// one-slot-per-member pay the fee once per accepted member.
func (s *PaymentService) chargeAmount(ctx context.Context, comp competition.Competition, input CreateIntentInput) (int64, error) {
	if input.TeamID == "" {
		if comp.IsTeamMode() {
			return 0, fmt.Errorf("%w: team id is required for a team competition", ErrInvalidInput)
		}
		_, seated, err := s.participantRepo.Get(ctx, comp.ID, input.ActorID)
		if err != nil {
			return 0, fmt.Errorf("get participant: %w", err)
		}
		if seated {
			return 0, ErrAlreadyJoined
		}
		return comp.EntryFeeMinor, nil
	}

	if !comp.IsTeamMode() {
		return 0, ErrNotTeamCompetition
	}
	item, err := loadTeam(ctx, s.teamRepo, input.TeamID)
	if err != nil {
		return 0, err
	}
	if item.CompetitionID != comp.ID {
		return 0, fmt.Errorf("%w: team %s is not entered in competition %s", ErrInvalidInput, item.ID, comp.ID)
	}
	if item.CaptainID != input.ActorID {
		return 0, ErrNotCaptain
	}
	if item.IsPaid() {
		return 0, ErrTeamAlreadyPaid
	}
	paid, err := s.paymentRepo.HasSucceededForTeam(ctx, item.ID)
	if err != nil {
		return 0, fmt.Errorf("check team payments: %w", err)
	}
	if paid {
		return 0, ErrTeamAlreadyPaid
	}

	members, err := s.teamRepo.ListMembers(ctx, item.ID)
	if err != nil {
		return 0, fmt.Errorf("list team members: %w", err)
	}
	slots := comp.SlotsForTeam(team.AcceptedCount(members))
	if slots > comp.FreeSlots() {
		return 0, ErrInsufficientSlots
	}

	return comp.EntryFeeMinor * int64(slots), nil
}

// Join enters a free competition.
func (s *PaymentService) Join(ctx context.Context, input JoinInput) (AdmissionResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PaymentService.Join", competitionAttr(input.CompetitionID))
	defer span.End()

	return s.ConfirmAndAdmit(ctx, ConfirmInput{
		ActorID:       input.ActorID,
		IntentRef:     payment.FreeIntentRef,
		CompetitionID: input.CompetitionID,
		SlotNumber:    input.SlotNumber,
	})
}

// ConfirmAndAdmit is safe to repeat: once a payment has produced an
// admission, later calls with the same ref return that admission with
// Replayed set.
func (s *PaymentService) ConfirmAndAdmit(ctx context.Context, input ConfirmInput) (AdmissionResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PaymentService.ConfirmAndAdmit", competitionAttr(input.CompetitionID))
	defer span.End()

	input.ActorID = strings.TrimSpace(input.ActorID)
	input.IntentRef = strings.TrimSpace(input.IntentRef)
	input.TeamID = strings.TrimSpace(input.TeamID)
	if input.ActorID == "" {
		return AdmissionResult{}, fmt.Errorf("%w: actor id is required", ErrInvalidInput)
	}
	if input.IntentRef == "" {
		return AdmissionResult{}, fmt.Errorf("%w: intent ref is required", ErrInvalidInput)
	}

	comp, err := loadCompetition(ctx, s.competitionRepo, input.CompetitionID)
	if err != nil {
		return AdmissionResult{}, err
	}

	if input.IntentRef == payment.FreeIntentRef {
		return s.admitFree(ctx, comp, input)
	}

	pay, exists, err := s.paymentRepo.GetByIntentRef(ctx, input.IntentRef)
	if err != nil {
		return AdmissionResult{}, fmt.Errorf("get payment: %w", err)
	}
	if !exists {
		return AdmissionResult{}, fmt.Errorf("%w: payment intent=%s", ErrNotFound, input.IntentRef)
	}
	if pay.CompetitionID != comp.ID {
		return AdmissionResult{}, fmt.Errorf("%w: payment %s belongs to another competition", ErrInvalidInput, pay.IntentRef)
	}
	if input.TeamID != "" && input.TeamID != pay.TeamID {
		return AdmissionResult{}, fmt.Errorf("%w: payment %s is not for team %s", ErrInvalidInput, pay.IntentRef, input.TeamID)
	}
	if pay.CompetitorID != input.ActorID {
		return AdmissionResult{}, fmt.Errorf("%w: payment belongs to another competitor", ErrForbidden)
	}

	var item team.Team
	if pay.IsTeamPayment() {
		if item, err = loadTeam(ctx, s.teamRepo, pay.TeamID); err != nil {
			return AdmissionResult{}, err
		}
		if item.CaptainID != input.ActorID {
			return AdmissionResult{}, ErrNotCaptain
		}
		if pay.Status != payment.StatusSucceeded {
			if err := s.checkRosterCovered(ctx, comp, item, pay); err != nil {
				return AdmissionResult{}, err
			}
		}
	}

	if pay.Status == payment.StatusSucceeded {
		if result, ok, err := s.existingAdmission(ctx, comp, pay); err != nil {
			return AdmissionResult{}, err
		} else if ok {
			return s.replay(ctx, comp, result)
		}
		s.logger.WarnContext(ctx, "settled payment has no admission, admitting now",
			"competition_id", comp.ID,
			"intent_ref", pay.IntentRef,
		)
	} else {
		if err := s.settle(ctx, pay); err != nil {
			return AdmissionResult{}, err
		}
	}

	if pay.IsTeamPayment() && !item.IsPaid() {
		if _, err := s.teamRepo.MarkPaid(ctx, item.ID); err != nil {
			return AdmissionResult{}, fmt.Errorf("mark team paid: %w", err)
		}
	}

	result, err := s.admit(ctx, comp, pay.CompetitorID, pay.TeamID, input.SlotNumber)
	if err != nil {
		if errors.Is(err, ErrAlreadyJoined) {
			if existing, ok, lookupErr := s.existingAdmission(ctx, comp, pay); lookupErr == nil && ok {
				return s.replay(ctx, comp, existing)
			}
		}
		s.logger.WarnContext(ctx, "payment settled but admission failed",
			"competition_id", comp.ID,
			"intent_ref", pay.IntentRef,
			"error", err,
		)
		return AdmissionResult{}, err
	}

	s.notify(ctx, comp, result, feeFor(comp, pay))
	return result, nil
}

// feeFor is what a confirmation quotes: the amount charged for a team
// entry, the per-seat fee otherwise.
func feeFor(comp competition.Competition, pay payment.Payment) entryFee {
	if pay.IsTeamPayment() && pay.AmountMinor > 0 {
		return entryFee{minor: pay.AmountMinor, currency: pay.Currency}
	}
	return entryFee{minor: comp.EntryFeeMinor, currency: comp.Currency}
}

// settle verifies the intent with the gateway and records the outcome.
func (s *PaymentService) settle(ctx context.Context, pay payment.Payment) error {
	status, err := s.gateway.IntentStatus(ctx, pay.IntentRef)
	if err != nil {
		return crerr.Mark(crerr.Wrap(err, "verify payment intent"), ErrDependencyUnavailable)
	}

	switch status {
	case payment.StatusSucceeded:
	case payment.StatusFailed:
		if err := s.paymentRepo.MarkFailed(ctx, pay.IntentRef, s.now().UTC()); err != nil {
			return fmt.Errorf("mark payment failed: %w", err)
		}
		return fmt.Errorf("%w: payment %s failed", ErrPaymentNotSettled, pay.IntentRef)
	default:
		return fmt.Errorf("%w: payment %s is still pending", ErrPaymentNotSettled, pay.IntentRef)
	}

	moved, err := s.paymentRepo.MarkSucceeded(ctx, pay.IntentRef, s.now().UTC())
	if err != nil {
		return fmt.Errorf("mark payment succeeded: %w", err)
	}
	if !moved {
		s.logger.DebugContext(ctx, "payment already marked succeeded by a concurrent confirm", "intent_ref", pay.IntentRef)
	}
	return nil
}

func (s *PaymentService) admitFree(ctx context.Context, comp competition.Competition, input ConfirmInput) (AdmissionResult, error) {
	if !comp.IsFree() {
		return AdmissionResult{}, fmt.Errorf("%w: competition %s has an entry fee", ErrPaymentRequired, comp.ID)
	}

	if input.TeamID == "" {
		result, err := s.admit(ctx, comp, input.ActorID, "", input.SlotNumber)
		if err != nil {
			return AdmissionResult{}, err
		}
		s.notify(ctx, comp, result, entryFee{})
		return result, nil
	}

	item, err := loadTeam(ctx, s.teamRepo, input.TeamID)
	if err != nil {
		return AdmissionResult{}, err
	}
	if item.CaptainID != input.ActorID {
		return AdmissionResult{}, ErrNotCaptain
	}

	// A seated free team is a replay. Marking it entered again repairs a
	// confirm that seated the team but failed before MarkPaid.
	entry := payment.Payment{CompetitionID: comp.ID, CompetitorID: item.CaptainID, TeamID: item.ID}
	if existing, ok, err := s.existingAdmission(ctx, comp, entry); err != nil {
		return AdmissionResult{}, err
	} else if ok {
		return s.replayFreeTeam(ctx, comp, item, existing)
	}

	result, err := s.admit(ctx, comp, input.ActorID, item.ID, input.SlotNumber)
	if err != nil {
		if errors.Is(err, ErrAlreadyJoined) {
			if existing, ok, lookupErr := s.existingAdmission(ctx, comp, entry); lookupErr == nil && ok {
				return s.replayFreeTeam(ctx, comp, item, existing)
			}
		}
		return AdmissionResult{}, err
	}
	if err := s.markTeamEntered(ctx, item); err != nil {
		return AdmissionResult{}, err
	}
	s.notify(ctx, comp, result, entryFee{})
	return result, nil
}

func (s *PaymentService) replayFreeTeam(ctx context.Context, comp competition.Competition, item team.Team, existing AdmissionResult) (AdmissionResult, error) {
	if err := s.markTeamEntered(ctx, item); err != nil {
		return AdmissionResult{}, err
	}
	return s.replay(ctx, comp, existing)
}

func (s *PaymentService) markTeamEntered(ctx context.Context, item team.Team) error {
	if item.IsPaid() {
		return nil
	}
	if _, err := s.teamRepo.MarkPaid(ctx, item.ID); err != nil {
		return fmt.Errorf("mark team entered: %w", err)
	}
	return nil
}

// checkRosterCovered rejects a per-member team payment that no longer
// covers every accepted member.
func (s *PaymentService) checkRosterCovered(ctx context.Context, comp competition.Competition, item team.Team, pay payment.Payment) error {
	if comp.TeamSlotPolicy != competition.PolicyOneSlotPerMember {
		return nil
	}
	members, err := s.teamRepo.ListMembers(ctx, item.ID)
	if err != nil {
		return fmt.Errorf("list team members: %w", err)
	}
	due := comp.EntryFeeMinor * int64(comp.SlotsForTeam(team.AcceptedCount(members)))
	if due > pay.AmountMinor {
		return fmt.Errorf("%w: team roster grew after the payment was created", ErrPaymentRequired)
	}
	return nil
}

func (s *PaymentService) admit(ctx context.Context, comp competition.Competition, competitorID, teamID string, slotNumber int) (AdmissionResult, error) {
	if teamID != "" {
		return s.admission.AdmitTeam(ctx, AdmitTeamInput{CompetitionID: comp.ID, TeamID: teamID, SlotNumber: slotNumber})
	}
	return s.admission.AdmitIndividual(ctx, AdmitIndividualInput{CompetitionID: comp.ID, CompetitorID: competitorID, SlotNumber: slotNumber})
}

// existingAdmission finds the seats a settled payment already produced.
func (s *PaymentService) existingAdmission(ctx context.Context, comp competition.Competition, pay payment.Payment) (AdmissionResult, bool, error) {
	result := AdmissionResult{CompetitionID: comp.ID, TeamID: pay.TeamID, Replayed: true}

	if !pay.IsTeamPayment() {
		seat, ok, err := s.participantRepo.Get(ctx, comp.ID, pay.CompetitorID)
		if err != nil {
			return AdmissionResult{}, false, fmt.Errorf("get participant: %w", err)
		}
		if !ok || !seat.HasSlot() {
			return AdmissionResult{}, false, nil
		}
		result.Participants = []participant.Participant{seat}
		return result, true, nil
	}

	seats, err := s.participantRepo.ListByTeam(ctx, pay.TeamID)
	if err != nil {
		return AdmissionResult{}, false, fmt.Errorf("list team participants: %w", err)
	}
	if len(seats) == 0 {
		return AdmissionResult{}, false, nil
	}
	result.Participants = seats
	return result, true, nil
}

// replay returns an earlier admission and repairs the booked counter if
// it drifted from the reserved slots.
func (s *PaymentService) replay(ctx context.Context, comp competition.Competition, result AdmissionResult) (AdmissionResult, error) {
	healed, err := s.competitionRepo.ReconcileBooked(ctx, comp.ID)
	if err != nil {
		return AdmissionResult{}, fmt.Errorf("reconcile booked slots: %w", err)
	}
	if healed.BookedSlots != comp.BookedSlots {
		s.logger.WarnContext(ctx, "booked slot count reconciled on replay",
			"competition_id", comp.ID,
			"was", comp.BookedSlots,
			"now", healed.BookedSlots,
		)
	}

	result.Replayed = true
	return result, nil
}

// HandleGatewayNotification applies a gateway webhook. A succeeded
// notification admits on behalf of the payer.
func (s *PaymentService) HandleGatewayNotification(ctx context.Context, ref string, status payment.Status) (AdmissionResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PaymentService.HandleGatewayNotification")
	defer span.End()

	ref = strings.TrimSpace(ref)
	if ref == "" || ref == payment.FreeIntentRef {
		return AdmissionResult{}, fmt.Errorf("%w: intent ref is required", ErrInvalidInput)
	}

	pay, exists, err := s.paymentRepo.GetByIntentRef(ctx, ref)
	if err != nil {
		return AdmissionResult{}, fmt.Errorf("get payment: %w", err)
	}
	if !exists {
		return AdmissionResult{}, fmt.Errorf("%w: payment intent=%s", ErrNotFound, ref)
	}

	switch status {
	case payment.StatusSucceeded:
		return s.ConfirmAndAdmit(ctx, ConfirmInput{
			ActorID:       pay.CompetitorID,
			IntentRef:     pay.IntentRef,
			CompetitionID: pay.CompetitionID,
			TeamID:        pay.TeamID,
		})
	case payment.StatusFailed:
		if err := s.paymentRepo.MarkFailed(ctx, pay.IntentRef, s.now().UTC()); err != nil {
			return AdmissionResult{}, fmt.Errorf("mark payment failed: %w", err)
		}
		s.logger.InfoContext(ctx, "payment failed by gateway notification", "intent_ref", ref)
		return AdmissionResult{}, nil
	default:
		return AdmissionResult{}, nil
	}
}

type entryFee struct {
	minor    int64
	currency string
}

func (s *PaymentService) notify(ctx context.Context, comp competition.Competition, result AdmissionResult, fee entryFee) {
	if s.notifier == nil || len(result.Participants) == 0 {
		return
	}

	ids := make([]string, 0, len(result.Participants))
	for _, p := range result.Participants {
		ids = append(ids, p.CompetitorID)
	}
	profiles, err := s.competitorRepo.GetByIDs(ctx, ids)
	if err != nil {
		s.logger.WarnContext(ctx, "load competitors for confirmation failed", "competition_id", comp.ID, "error", err)
		profiles = map[string]competitor.Competitor{}
	}

	var teamName string
	if result.TeamID != "" {
		if item, ok, err := s.teamRepo.GetByID(ctx, result.TeamID); err == nil && ok {
			teamName = item.Name
		}
	}

	for _, p := range result.Participants {
		profile := profiles[p.CompetitorID]
		msg := notification.Confirmation{
			CompetitionID:   comp.ID,
			CompetitionName: comp.Name,
			Venue:           comp.Venue,
			StartsAt:        comp.StartsAt,
			CompetitorID:    p.CompetitorID,
			CompetitorName:  profile.DisplayName(),
			Email:           profile.Email,
			TeamID:          result.TeamID,
			TeamName:        teamName,
			SlotNumber:      p.SlotNumber,
			FeeMinor:        fee.minor,
			Currency:        fee.currency,
		}
		if profile.ID == "" {
			msg.CompetitorName = p.CompetitorID
		}
		if err := s.notifier.SendBookingConfirmation(ctx, msg); err != nil {
			s.logger.WarnContext(ctx, "booking confirmation not dispatched",
				"competition_id", comp.ID,
				"competitor_id", p.CompetitorID,
				"error", err,
			)
		}
	}
}
