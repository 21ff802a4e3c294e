package notification

import (
	"context"

	"github.com/riskibarqy/peg-league/internal/domain/notification"
	"github.com/riskibarqy/peg-league/internal/platform/logging"
)

// LogNotifier writes confirmations to the log. It is the default when no
// mail endpoint is configured.
type LogNotifier struct {
	logger *logging.Logger
}

func NewLogNotifier(logger *logging.Logger) *LogNotifier {
	if logger == nil {
		logger = logging.Default()
	}
	return &LogNotifier{logger: logger.Named("notification")}
}

func (n *LogNotifier) SendBookingConfirmation(ctx context.Context, msg notification.Confirmation) error {
	n.logger.InfoContext(ctx, "booking confirmation",
		"competition_id", msg.CompetitionID,
		"competitor_id", msg.CompetitorID,
		"team_id", msg.TeamID,
		"slot_number", msg.SlotNumber,
		"fee_minor", msg.FeeMinor,
		"has_email", msg.Email != "",
	)
	return nil
}
