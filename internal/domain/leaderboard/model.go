package leaderboard

import (
	"context"
	"time"
)

// Entry is one weighed catch. Entries are summed, never overwritten.
type Entry struct {
	ID            string
	CompetitionID string
	CompetitorID  string
	TeamID        string
	SlotNumber    int
	WeightGrams   int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Row is one ranked leaderboard line.
type Row struct {
	Position    int
	Key         string
	DisplayName string
	SlotNumber  int
	TotalGrams  int64
	FishCount   int
	Club        string
}

type Repository interface {
	Add(ctx context.Context, entry Entry) error
	ListByCompetition(ctx context.Context, competitionID string) ([]Entry, error)
}
