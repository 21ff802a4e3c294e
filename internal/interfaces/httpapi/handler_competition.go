package httpapi

import (
	"net/http"

	"github.com/riskibarqy/peg-league/internal/domain/competition"
	"github.com/riskibarqy/peg-league/internal/usecase"
)

func (h *Handler) ListCompetitions(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListCompetitions")
	defer span.End()

	items, err := h.competitionService.ListCompetitions(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "list competitions failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	out := make([]competitionDTO, 0, len(items))
	for _, item := range items {
		out = append(out, competitionToDTO(item))
	}
	writeSuccess(ctx, w, http.StatusOK, out)
}

func (h *Handler) GetCompetition(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetCompetition")
	defer span.End()

	competitionID := r.PathValue("competitionID")
	item, err := h.competitionService.GetCompetition(ctx, competitionID)
	if err != nil {
		h.logger.WarnContext(ctx, "get competition failed", "competition_id", competitionID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, competitionToDTO(item))
}

func (h *Handler) CreateCompetition(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.CreateCompetition")
	defer span.End()

	var req createCompetitionRequest
	if err := h.decodeRequest(ctx, r, &req, false); err != nil {
		writeError(ctx, w, err)
		return
	}

	item, err := h.competitionService.CreateCompetition(ctx, usecase.CreateCompetitionInput{
		Name:           req.Name,
		Venue:          req.Venue,
		StartsAt:       req.StartsAt,
		TotalSlots:     req.TotalSlots,
		EntryFeeMinor:  req.EntryFeeMinor,
		Currency:       req.Currency,
		Mode:           competition.Mode(req.Mode),
		TeamSlotPolicy: competition.TeamSlotPolicy(req.TeamSlotPolicy),
		MaxTeamMembers: req.MaxTeamMembers,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "create competition failed", "name", req.Name, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusCreated, competitionToDTO(item))
}

// JoinCompetition enters a free competition for the caller.
func (h *Handler) JoinCompetition(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.JoinCompetition")
	defer span.End()

	principal, err := requirePrincipal(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	var req joinCompetitionRequest
	if err := h.decodeRequest(ctx, r, &req, true); err != nil {
		writeError(ctx, w, err)
		return
	}

	competitionID := r.PathValue("competitionID")
	result, err := h.paymentService.Join(ctx, usecase.JoinInput{
		ActorID:       principal.UserID,
		CompetitionID: competitionID,
		SlotNumber:    req.SlotNumber,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "join competition failed",
			"competition_id", competitionID,
			"user_id", principal.UserID,
			"error", err,
		)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, admissionStatus(result), admissionToDTO(result))
}

func (h *Handler) WithdrawFromCompetition(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.WithdrawFromCompetition")
	defer span.End()

	principal, err := requirePrincipal(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	competitionID := r.PathValue("competitionID")
	if err := h.admissionService.Withdraw(ctx, competitionID, principal.UserID); err != nil {
		h.logger.WarnContext(ctx, "withdraw failed",
			"competition_id", competitionID,
			"user_id", principal.UserID,
			"error", err,
		)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "withdrawn"})
}

func admissionStatus(result usecase.AdmissionResult) int {
	if result.Replayed {
		return http.StatusOK
	}
	return http.StatusCreated
}
