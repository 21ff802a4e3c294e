package postgres

import (
	"time"

	"github.com/riskibarqy/peg-league/internal/domain/competition"
	"github.com/riskibarqy/peg-league/internal/domain/competitor"
	"github.com/riskibarqy/peg-league/internal/domain/leaderboard"
	"github.com/riskibarqy/peg-league/internal/domain/participant"
	"github.com/riskibarqy/peg-league/internal/domain/payment"
	"github.com/riskibarqy/peg-league/internal/domain/team"
)

type competitionTableModel struct {
	ID             string    `db:"id"`
	Name           string    `db:"name"`
	Venue          string    `db:"venue"`
	StartsAt       time.Time `db:"starts_at"`
	TotalSlots     int       `db:"total_slots"`
	BookedSlots    int       `db:"booked_slots"`
	EntryFeeMinor  int64     `db:"entry_fee_minor"`
	Currency       string    `db:"currency"`
	Mode           string    `db:"mode"`
	TeamSlotPolicy string    `db:"team_slot_policy"`
	MaxTeamMembers int       `db:"max_team_members"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

func (m competitionTableModel) toDomain() competition.Competition {
	return competition.Competition{
		ID:             m.ID,
		Name:           m.Name,
		Venue:          m.Venue,
		StartsAt:       m.StartsAt,
		TotalSlots:     m.TotalSlots,
		BookedSlots:    m.BookedSlots,
		EntryFeeMinor:  m.EntryFeeMinor,
		Currency:       m.Currency,
		Mode:           competition.Mode(m.Mode),
		TeamSlotPolicy: competition.TeamSlotPolicy(m.TeamSlotPolicy),
		MaxTeamMembers: m.MaxTeamMembers,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

func competitionRowFrom(item competition.Competition) competitionTableModel {
	return competitionTableModel{
		ID:             item.ID,
		Name:           item.Name,
		Venue:          item.Venue,
		StartsAt:       item.StartsAt,
		TotalSlots:     item.TotalSlots,
		BookedSlots:    item.BookedSlots,
		EntryFeeMinor:  item.EntryFeeMinor,
		Currency:       item.Currency,
		Mode:           string(item.Mode),
		TeamSlotPolicy: string(item.TeamSlotPolicy),
		MaxTeamMembers: item.MaxTeamMembers,
		CreatedAt:      item.CreatedAt,
		UpdatedAt:      item.UpdatedAt,
	}
}

type participantTableModel struct {
	ID            string    `db:"id"`
	CompetitionID string    `db:"competition_id"`
	CompetitorID  string    `db:"competitor_id"`
	TeamID        string    `db:"team_id"`
	SlotNumber    int       `db:"slot_number"`
	JoinedAt      time.Time `db:"joined_at"`
}

func (m participantTableModel) toDomain() participant.Participant {
	return participant.Participant{
		ID:            m.ID,
		CompetitionID: m.CompetitionID,
		CompetitorID:  m.CompetitorID,
		TeamID:        m.TeamID,
		SlotNumber:    m.SlotNumber,
		JoinedAt:      m.JoinedAt,
	}
}

type teamTableModel struct {
	ID            string    `db:"id"`
	CompetitionID string    `db:"competition_id"`
	Name          string    `db:"name"`
	InviteCode    string    `db:"invite_code"`
	CaptainID     string    `db:"captain_id"`
	PaymentStatus string    `db:"payment_status"`
	SlotNumber    int       `db:"slot_number"`
	CreatedAt     time.Time `db:"created_at"`
}

func (m teamTableModel) toDomain() team.Team {
	return team.Team{
		ID:            m.ID,
		CompetitionID: m.CompetitionID,
		Name:          m.Name,
		InviteCode:    m.InviteCode,
		CaptainID:     m.CaptainID,
		PaymentStatus: team.PaymentStatus(m.PaymentStatus),
		SlotNumber:    m.SlotNumber,
		CreatedAt:     m.CreatedAt,
	}
}

type teamMemberTableModel struct {
	TeamID        string    `db:"team_id"`
	CompetitionID string    `db:"competition_id"`
	CompetitorID  string    `db:"competitor_id"`
	Role          string    `db:"role"`
	Status        string    `db:"status"`
	JoinedAt      time.Time `db:"joined_at"`
}

func (m teamMemberTableModel) toDomain() team.Member {
	return team.Member{
		TeamID:        m.TeamID,
		CompetitionID: m.CompetitionID,
		CompetitorID:  m.CompetitorID,
		Role:          team.Role(m.Role),
		Status:        team.MemberStatus(m.Status),
		JoinedAt:      m.JoinedAt,
	}
}

func teamMemberRowFrom(member team.Member) teamMemberTableModel {
	return teamMemberTableModel{
		TeamID:        member.TeamID,
		CompetitionID: member.CompetitionID,
		CompetitorID:  member.CompetitorID,
		Role:          string(member.Role),
		Status:        string(member.Status),
		JoinedAt:      member.JoinedAt,
	}
}

type paymentTableModel struct {
	ID            string    `db:"id"`
	CompetitionID string    `db:"competition_id"`
	CompetitorID  string    `db:"competitor_id"`
	TeamID        string    `db:"team_id"`
	AmountMinor   int64     `db:"amount_minor"`
	Currency      string    `db:"currency"`
	IntentRef     string    `db:"intent_ref"`
	Status        string    `db:"status"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

func (m paymentTableModel) toDomain() payment.Payment {
	return payment.Payment{
		ID:            m.ID,
		CompetitionID: m.CompetitionID,
		CompetitorID:  m.CompetitorID,
		TeamID:        m.TeamID,
		AmountMinor:   m.AmountMinor,
		Currency:      m.Currency,
		IntentRef:     m.IntentRef,
		Status:        payment.Status(m.Status),
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

type entryTableModel struct {
	ID            string    `db:"id"`
	CompetitionID string    `db:"competition_id"`
	CompetitorID  string    `db:"competitor_id"`
	TeamID        string    `db:"team_id"`
	SlotNumber    int       `db:"slot_number"`
	WeightGrams   int64     `db:"weight_grams"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

func (m entryTableModel) toDomain() leaderboard.Entry {
	return leaderboard.Entry{
		ID:            m.ID,
		CompetitionID: m.CompetitionID,
		CompetitorID:  m.CompetitorID,
		TeamID:        m.TeamID,
		SlotNumber:    m.SlotNumber,
		WeightGrams:   m.WeightGrams,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

type competitorTableModel struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	Email     string    `db:"email"`
	Club      string    `db:"club"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (m competitorTableModel) toDomain() competitor.Competitor {
	return competitor.Competitor{
		ID:        m.ID,
		Name:      m.Name,
		Email:     m.Email,
		Club:      m.Club,
		UpdatedAt: m.UpdatedAt,
	}
}
