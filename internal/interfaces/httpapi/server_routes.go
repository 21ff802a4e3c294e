package httpapi

import "net/http"

func registerSystemRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
}

func registerPublicRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /v1/competitions", handler.ListCompetitions)
	mux.HandleFunc("GET /v1/competitions/{competitionID}", handler.GetCompetition)
	mux.HandleFunc("GET /v1/competitions/{competitionID}/leaderboard", handler.GetLeaderboard)
	mux.HandleFunc("GET /v1/teams/{teamID}", handler.GetTeam)
}

func registerAuthorizedRoutes(mux *http.ServeMux, handler *Handler, verifier TokenVerifier) {
	registerAuthorizedAdmissionRoutes(mux, handler, verifier)
	registerAuthorizedTeamRoutes(mux, handler, verifier)
	mux.Handle("PUT /v1/competitors/me", RequireAuth(verifier, http.HandlerFunc(handler.UpsertMyProfile)))
}

func registerAuthorizedAdmissionRoutes(mux *http.ServeMux, handler *Handler, verifier TokenVerifier) {
	mux.Handle("POST /v1/competitions/{competitionID}/join", RequireAuth(verifier, http.HandlerFunc(handler.JoinCompetition)))
	mux.Handle("DELETE /v1/competitions/{competitionID}/participants/me", RequireAuth(verifier, http.HandlerFunc(handler.WithdrawFromCompetition)))
	mux.Handle("POST /v1/competitions/{competitionID}/payment-intents", RequireAuth(verifier, http.HandlerFunc(handler.CreatePaymentIntent)))
	mux.Handle("POST /v1/competitions/{competitionID}/payments/confirm", RequireAuth(verifier, http.HandlerFunc(handler.ConfirmPayment)))
}

func registerAuthorizedTeamRoutes(mux *http.ServeMux, handler *Handler, verifier TokenVerifier) {
	mux.Handle("POST /v1/competitions/{competitionID}/teams", RequireAuth(verifier, http.HandlerFunc(handler.CreateTeam)))
	mux.Handle("POST /v1/teams/join", RequireAuth(verifier, http.HandlerFunc(handler.JoinTeam)))
	mux.Handle("DELETE /v1/teams/{teamID}/members/me", RequireAuth(verifier, http.HandlerFunc(handler.LeaveTeam)))
}

func registerStaffRoutes(mux *http.ServeMux, handler *Handler, staffToken string) {
	mux.Handle("POST /v1/competitions", RequireStaffToken(staffToken, http.HandlerFunc(handler.CreateCompetition)))
	mux.Handle("POST /v1/competitions/{competitionID}/entries", RequireStaffToken(staffToken, http.HandlerFunc(handler.SubmitEntry)))
}

func registerWebhookRoutes(mux *http.ServeMux, handler *Handler, webhookSecret string) {
	mux.Handle("POST /v1/payments/webhook", RequireWebhookSignature(webhookSecret, http.HandlerFunc(handler.PaymentWebhook)))
}
