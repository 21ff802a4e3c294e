package httpapi

import (
	"net/http"

	"github.com/riskibarqy/peg-league/internal/usecase"
)

func (h *Handler) UpsertMyProfile(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.UpsertMyProfile")
	defer span.End()

	principal, err := requirePrincipal(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	var req upsertProfileRequest
	if err := h.decodeRequest(ctx, r, &req, false); err != nil {
		writeError(ctx, w, err)
		return
	}

	email := req.Email
	if email == "" {
		email = principal.Email
	}

	profile, err := h.competitorService.UpsertProfile(ctx, usecase.UpsertProfileInput{
		CompetitorID: principal.UserID,
		Name:         req.Name,
		Email:        email,
		Club:         req.Club,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "upsert profile failed", "user_id", principal.UserID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, competitorDTO{
		ID:    profile.ID,
		Name:  profile.Name,
		Email: profile.Email,
		Club:  profile.Club,
	})
}

func (h *Handler) SubmitEntry(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.SubmitEntry")
	defer span.End()

	var req submitEntryRequest
	if err := h.decodeRequest(ctx, r, &req, false); err != nil {
		writeError(ctx, w, err)
		return
	}

	competitionID := r.PathValue("competitionID")
	entry, err := h.leaderboardService.SubmitEntry(ctx, usecase.SubmitEntryInput{
		CompetitionID: competitionID,
		CompetitorID:  req.CompetitorID,
		WeightGrams:   *req.WeightGrams,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "submit entry failed",
			"competition_id", competitionID,
			"competitor_id", req.CompetitorID,
			"error", err,
		)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusCreated, entryDTO{
		ID:           entry.ID,
		CompetitorID: entry.CompetitorID,
		TeamID:       entry.TeamID,
		SlotNumber:   entry.SlotNumber,
		WeightGrams:  entry.WeightGrams,
		CreatedAt:    entry.CreatedAt,
	})
}

func (h *Handler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetLeaderboard")
	defer span.End()

	competitionID := r.PathValue("competitionID")
	rows, err := h.leaderboardService.ComputeLeaderboard(ctx, competitionID)
	if err != nil {
		h.logger.WarnContext(ctx, "compute leaderboard failed", "competition_id", competitionID, "error", err)
		writeError(ctx, w, err)
		return
	}

	out := make([]leaderboardRowDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, leaderboardRowDTO{
			Position:    row.Position,
			Key:         row.Key,
			DisplayName: row.DisplayName,
			SlotNumber:  row.SlotNumber,
			TotalGrams:  row.TotalGrams,
			FishCount:   row.FishCount,
			Club:        row.Club,
		})
	}
	writeSuccess(ctx, w, http.StatusOK, out)
}
