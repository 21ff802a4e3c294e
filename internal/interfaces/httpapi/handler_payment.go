package httpapi

import (
	"net/http"

	"github.com/riskibarqy/peg-league/internal/domain/payment"
	"github.com/riskibarqy/peg-league/internal/usecase"
)

func (h *Handler) CreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.CreatePaymentIntent")
	defer span.End()

	principal, err := requirePrincipal(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	var req createPaymentIntentRequest
	if err := h.decodeRequest(ctx, r, &req, true); err != nil {
		writeError(ctx, w, err)
		return
	}

	competitionID := r.PathValue("competitionID")
	result, err := h.paymentService.CreateIntent(ctx, usecase.CreateIntentInput{
		ActorID:       principal.UserID,
		CompetitionID: competitionID,
		TeamID:        req.TeamID,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "create payment intent failed",
			"competition_id", competitionID,
			"user_id", principal.UserID,
			"error", err,
		)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusCreated, paymentIntentDTO{
		IntentRef:    result.Payment.IntentRef,
		ClientSecret: result.ClientSecret,
		AmountMinor:  result.Payment.AmountMinor,
		Currency:     result.Payment.Currency,
		Status:       string(result.Payment.Status),
		TeamID:       result.Payment.TeamID,
	})
}

func (h *Handler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ConfirmPayment")
	defer span.End()

	principal, err := requirePrincipal(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	var req confirmPaymentRequest
	if err := h.decodeRequest(ctx, r, &req, false); err != nil {
		writeError(ctx, w, err)
		return
	}

	competitionID := r.PathValue("competitionID")
	result, err := h.paymentService.ConfirmAndAdmit(ctx, usecase.ConfirmInput{
		ActorID:       principal.UserID,
		IntentRef:     req.IntentRef,
		CompetitionID: competitionID,
		TeamID:        req.TeamID,
		SlotNumber:    req.SlotNumber,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "confirm payment failed",
			"competition_id", competitionID,
			"user_id", principal.UserID,
			"intent_ref", req.IntentRef,
			"error", err,
		)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, admissionStatus(result), admissionToDTO(result))
}

// PaymentWebhook applies a signed gateway notification. Unknown statuses
// are acknowledged and ignored.
func (h *Handler) PaymentWebhook(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.PaymentWebhook")
	defer span.End()

	var req paymentWebhookRequest
	if err := h.decodeRequest(ctx, r, &req, false); err != nil {
		writeError(ctx, w, err)
		return
	}

	result, err := h.paymentService.HandleGatewayNotification(ctx, req.IntentRef, payment.Status(req.Status))
	if err != nil {
		h.logger.WarnContext(ctx, "payment webhook failed",
			"intent_ref", req.IntentRef,
			"status", req.Status,
			"error", err,
		)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, webhookAckDTO{
		Received:  true,
		Admission: optionalAdmission(result),
	})
}

func optionalAdmission(result usecase.AdmissionResult) *admissionDTO {
	if len(result.Participants) == 0 {
		return nil
	}
	dto := admissionToDTO(result)
	return &dto
}
