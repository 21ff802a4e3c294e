package team

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const MaxNameLength = 80

var (
	ErrInviteCodeTaken = errors.New("invite code already in use")
	ErrAlreadyMember   = errors.New("competitor already belongs to a team in this competition")
	ErrTeamFull        = errors.New("team is full")
)

type Role string

const (
	RoleCaptain Role = "captain"
	RoleMember  Role = "member"
)

type MemberStatus string

const (
	MemberPending  MemberStatus = "pending"
	MemberAccepted MemberStatus = "accepted"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentSucceeded PaymentStatus = "succeeded"
)

// Team is a group of anglers entering a team competition together.
type Team struct {
	ID            string
	CompetitionID string
	Name          string
	InviteCode    string
	CaptainID     string
	PaymentStatus PaymentStatus
	SlotNumber    int
	CreatedAt     time.Time
}

func (t Team) IsPaid() bool {
	return t.PaymentStatus == PaymentSucceeded
}

func (t Team) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return fmt.Errorf("team id is required")
	}
	if strings.TrimSpace(t.CompetitionID) == "" {
		return fmt.Errorf("team competition id is required")
	}
	name := strings.TrimSpace(t.Name)
	if name == "" {
		return fmt.Errorf("team name is required")
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return fmt.Errorf("team name must be at most %d characters", MaxNameLength)
	}
	if strings.TrimSpace(t.CaptainID) == "" {
		return fmt.Errorf("team captain is required")
	}

	return nil
}

type Member struct {
	TeamID        string
	CompetitionID string
	CompetitorID  string
	Role          Role
	Status        MemberStatus
	JoinedAt      time.Time
}

func (m Member) IsAccepted() bool {
	return m.Status == MemberAccepted
}

func (m Member) IsCaptain() bool {
	return m.Role == RoleCaptain
}

// AcceptedCount counts accepted members.
func AcceptedCount(members []Member) int {
	count := 0
	for _, m := range members {
		if m.IsAccepted() {
			count++
		}
	}
	return count
}
