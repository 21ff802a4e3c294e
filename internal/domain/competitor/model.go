package competitor

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Competitor is an angler's profile. ID is the identity-service user id.
type Competitor struct {
	ID        string
	Name      string
	Email     string
	Club      string
	UpdatedAt time.Time
}

func (c Competitor) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return fmt.Errorf("competitor id is required")
	}
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("competitor name is required")
	}
	return nil
}

// DisplayName falls back to the id when no name is on file.
func (c Competitor) DisplayName() string {
	if name := strings.TrimSpace(c.Name); name != "" {
		return name
	}
	return c.ID
}

type Repository interface {
	GetByID(ctx context.Context, competitorID string) (Competitor, bool, error)
	GetByIDs(ctx context.Context, competitorIDs []string) (map[string]Competitor, error)
	Upsert(ctx context.Context, item Competitor) error
}
