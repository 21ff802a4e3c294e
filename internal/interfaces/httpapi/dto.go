package httpapi

import (
	"time"

	"github.com/riskibarqy/peg-league/internal/domain/competition"
	"github.com/riskibarqy/peg-league/internal/domain/team"
	"github.com/riskibarqy/peg-league/internal/usecase"
)

type createCompetitionRequest struct {
	Name           string    `json:"name" validate:"required,max=120"`
	Venue          string    `json:"venue" validate:"omitempty,max=200"`
	StartsAt       time.Time `json:"starts_at" validate:"required"`
	TotalSlots     int       `json:"total_slots" validate:"required,min=1,max=1000"`
	EntryFeeMinor  int64     `json:"entry_fee_minor" validate:"min=0"`
	Currency       string    `json:"currency" validate:"omitempty,len=3,alpha"`
	Mode           string    `json:"mode" validate:"required,oneof=individual team"`
	TeamSlotPolicy string    `json:"team_slot_policy" validate:"omitempty,oneof=one_slot_per_team one_slot_per_member"`
	MaxTeamMembers int       `json:"max_team_members" validate:"omitempty,min=1"`
}

type joinCompetitionRequest struct {
	SlotNumber int `json:"slot_number" validate:"omitempty,min=1"`
}

type createPaymentIntentRequest struct {
	TeamID string `json:"team_id" validate:"omitempty,max=64"`
}

type confirmPaymentRequest struct {
	IntentRef  string `json:"intent_ref" validate:"required,max=255"`
	TeamID     string `json:"team_id" validate:"omitempty,max=64"`
	SlotNumber int    `json:"slot_number" validate:"omitempty,min=1"`
}

type paymentWebhookRequest struct {
	IntentRef string `json:"intent_ref" validate:"required,max=255"`
	Status    string `json:"status" validate:"required"`
}

type createTeamRequest struct {
	Name string `json:"name" validate:"required"`
}

type joinTeamRequest struct {
	InviteCode string `json:"invite_code" validate:"required"`
}

type upsertProfileRequest struct {
	Name  string `json:"name" validate:"required,max=120"`
	Email string `json:"email" validate:"omitempty,email"`
	Club  string `json:"club" validate:"omitempty,max=120"`
}

type submitEntryRequest struct {
	CompetitorID string `json:"competitor_id" validate:"required"`
	WeightGrams  *int64 `json:"weight_grams" validate:"required,min=0"`
}

type competitionDTO struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Venue          string    `json:"venue,omitempty"`
	StartsAt       time.Time `json:"starts_at"`
	TotalSlots     int       `json:"total_slots"`
	BookedSlots    int       `json:"booked_slots"`
	FreeSlots      int       `json:"free_slots"`
	EntryFeeMinor  int64     `json:"entry_fee_minor"`
	Currency       string    `json:"currency,omitempty"`
	Mode           string    `json:"mode"`
	TeamSlotPolicy string    `json:"team_slot_policy,omitempty"`
	MaxTeamMembers int       `json:"max_team_members,omitempty"`
}

type participantDTO struct {
	CompetitorID string    `json:"competitor_id"`
	TeamID       string    `json:"team_id,omitempty"`
	SlotNumber   int       `json:"slot_number"`
	JoinedAt     time.Time `json:"joined_at"`
}

type admissionDTO struct {
	CompetitionID string           `json:"competition_id"`
	TeamID        string           `json:"team_id,omitempty"`
	SlotNumbers   []int            `json:"slot_numbers"`
	Participants  []participantDTO `json:"participants"`
	Replayed      bool             `json:"replayed"`
}

type paymentIntentDTO struct {
	IntentRef    string `json:"intent_ref"`
	ClientSecret string `json:"client_secret,omitempty"`
	AmountMinor  int64  `json:"amount_minor"`
	Currency     string `json:"currency"`
	Status       string `json:"status"`
	TeamID       string `json:"team_id,omitempty"`
}

type webhookAckDTO struct {
	Received  bool          `json:"received"`
	Admission *admissionDTO `json:"admission,omitempty"`
}

type teamMemberDTO struct {
	CompetitorID string    `json:"competitor_id"`
	Role         string    `json:"role"`
	Status       string    `json:"status"`
	JoinedAt     time.Time `json:"joined_at"`
}

type teamDTO struct {
	ID            string          `json:"id"`
	CompetitionID string          `json:"competition_id"`
	Name          string          `json:"name"`
	InviteCode    string          `json:"invite_code,omitempty"`
	CaptainID     string          `json:"captain_id"`
	PaymentStatus string          `json:"payment_status"`
	SlotNumber    int             `json:"slot_number,omitempty"`
	Members       []teamMemberDTO `json:"members,omitempty"`
}

type competitorDTO struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Club  string `json:"club,omitempty"`
}

type entryDTO struct {
	ID           string    `json:"id"`
	CompetitorID string    `json:"competitor_id"`
	TeamID       string    `json:"team_id,omitempty"`
	SlotNumber   int       `json:"slot_number"`
	WeightGrams  int64     `json:"weight_grams"`
	CreatedAt    time.Time `json:"created_at"`
}

type leaderboardRowDTO struct {
	Position    int    `json:"position"`
	Key         string `json:"key"`
	DisplayName string `json:"display_name"`
	SlotNumber  int    `json:"slot_number,omitempty"`
	TotalGrams  int64  `json:"total_grams"`
	FishCount   int    `json:"fish_count"`
	Club        string `json:"club,omitempty"`
}

func competitionToDTO(c competition.Competition) competitionDTO {
	return competitionDTO{
		ID:             c.ID,
		Name:           c.Name,
		Venue:          c.Venue,
		StartsAt:       c.StartsAt,
		TotalSlots:     c.TotalSlots,
		BookedSlots:    c.BookedSlots,
		FreeSlots:      c.FreeSlots(),
		EntryFeeMinor:  c.EntryFeeMinor,
		Currency:       c.Currency,
		Mode:           string(c.Mode),
		TeamSlotPolicy: string(c.TeamSlotPolicy),
		MaxTeamMembers: c.MaxTeamMembers,
	}
}

func admissionToDTO(result usecase.AdmissionResult) admissionDTO {
	participants := make([]participantDTO, 0, len(result.Participants))
	for _, p := range result.Participants {
		participants = append(participants, participantDTO{
			CompetitorID: p.CompetitorID,
			TeamID:       p.TeamID,
			SlotNumber:   p.SlotNumber,
			JoinedAt:     p.JoinedAt,
		})
	}

	slots := result.SlotNumbers()
	if slots == nil {
		slots = []int{}
	}

	return admissionDTO{
		CompetitionID: result.CompetitionID,
		TeamID:        result.TeamID,
		SlotNumbers:   slots,
		Participants:  participants,
		Replayed:      result.Replayed,
	}
}

// teamToDTO only includes the invite code for the captain's own view.
func teamToDTO(t team.Team, withInviteCode bool) teamDTO {
	dto := teamDTO{
		ID:            t.ID,
		CompetitionID: t.CompetitionID,
		Name:          t.Name,
		CaptainID:     t.CaptainID,
		PaymentStatus: string(t.PaymentStatus),
		SlotNumber:    t.SlotNumber,
	}
	if withInviteCode {
		dto.InviteCode = t.InviteCode
	}
	return dto
}

func teamDetailToDTO(detail usecase.TeamDetail, withInviteCode bool) teamDTO {
	dto := teamToDTO(detail.Team, withInviteCode)
	dto.Members = make([]teamMemberDTO, 0, len(detail.Members))
	for _, m := range detail.Members {
		dto.Members = append(dto.Members, teamMemberDTO{
			CompetitorID: m.CompetitorID,
			Role:         string(m.Role),
			Status:       string(m.Status),
			JoinedAt:     m.JoinedAt,
		})
	}
	return dto
}
