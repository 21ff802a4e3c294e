package usecase

import (
	crerr "github.com/cockroachdb/errors"
)

// Error classes. Every specific error below carries one class mark, so
// crerr.Is(err, ErrConflict) holds for any conflict. Marks compare by
// class: match a specific error with the standard errors.Is.
var (
	ErrInvalidInput          = crerr.New("invalid input")
	ErrNotFound              = crerr.New("resource not found")
	ErrUnauthorized          = crerr.New("unauthorized")
	ErrForbidden             = crerr.New("forbidden")
	ErrConflict              = crerr.New("conflict")
	ErrCapacity              = crerr.New("capacity reached")
	ErrContention            = crerr.New("contention")
	ErrPaymentRequired       = crerr.New("payment required")
	ErrDependencyUnavailable = crerr.New("dependency unavailable")
)

var (
	ErrSlotTaken           = classified(ErrConflict, "slot already taken")
	ErrAlreadyJoined       = classified(ErrConflict, "already joined this competition")
	ErrAlreadyInTeam       = classified(ErrConflict, "already in a team for this competition")
	ErrTeamAlreadyPaid     = classified(ErrConflict, "team entry already paid")
	ErrCaptainHasMembers   = classified(ErrConflict, "captain cannot leave while other members remain")
	ErrCompetitionFull     = classified(ErrCapacity, "competition is sold out")
	ErrInsufficientSlots   = classified(ErrCapacity, "not enough free slots for the whole team")
	ErrTeamFull            = classified(ErrCapacity, "team is full")
	ErrAssignmentExhausted = classified(ErrContention, "could not assign a slot, try again")
	ErrNotCaptain          = classified(ErrForbidden, "only the team captain can do this")
	ErrFreeCompetition     = classified(ErrInvalidInput, "competition has no entry fee")
	ErrNotTeamCompetition  = classified(ErrInvalidInput, "competition is not a team competition")
	ErrNotParticipant      = classified(ErrInvalidInput, "competitor is not seated in this competition")
	ErrPaymentNotSettled   = classified(ErrPaymentRequired, "payment has not succeeded")
)

func classified(class error, msg string) error {
	return crerr.Mark(crerr.New(msg), class)
}

// IsClass reports whether err carries the given class mark.
func IsClass(err, class error) bool {
	return crerr.Is(err, class)
}
