package team

import "context"

// Repository describes team persistence needs from use cases.
type Repository interface {
	// Create stores the team and its captain membership together.
	Create(ctx context.Context, item Team, captain Member) error
	GetByID(ctx context.Context, teamID string) (Team, bool, error)
	GetByInviteCode(ctx context.Context, code string) (Team, bool, error)
	GetMembership(ctx context.Context, competitionID, competitorID string) (Member, bool, error)
	ListMembers(ctx context.Context, teamID string) ([]Member, error)
	// AddMember inserts an accepted member unless the team already has
	// maxAccepted accepted members. The check and the insert are atomic.
	AddMember(ctx context.Context, member Member, maxAccepted int) error
	RemoveMember(ctx context.Context, teamID, competitorID string) error
	Delete(ctx context.Context, teamID string) error
	// MarkPaid moves the team payment status from pending to succeeded and
	// reports whether this call made the transition.
	MarkPaid(ctx context.Context, teamID string) (bool, error)
}
