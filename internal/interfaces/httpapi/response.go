package httpapi

import (
	"context"
	"errors"
	"net/http"

	sonic "github.com/bytedance/sonic"
	"github.com/riskibarqy/peg-league/internal/platform/logging"
	"github.com/riskibarqy/peg-league/internal/usecase"
)

const (
	googleAPIVersion = "2.0"
	errorDomain      = "peg-league"
	retryAfterSecs   = "1"
)

// Responses follow the Google JSON style guide envelope.
type envelope struct {
	APIVersion string     `json:"apiVersion"`
	Data       any        `json:"data,omitempty"`
	Error      *errorBody `json:"error,omitempty"`
}

type errorBody struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Status  string      `json:"status"`
	Errors  []errorItem `json:"errors,omitempty"`
}

type errorItem struct {
	Domain  string `json:"domain"`
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

type mappedError struct {
	HTTPStatus int
	Reason     string
	Status     string
	Message    string
	RetryAfter bool
}

// errorRule maps matching errors to a response. Rules are checked in
// order, so specific sentinels sit above the class they are marked with.
type errorRule struct {
	match  func(error) bool
	mapped mappedError
}

func is(target error) func(error) bool {
	return func(err error) bool { return errors.Is(err, target) }
}

func class(target error) func(error) bool {
	return func(err error) bool { return usecase.IsClass(err, target) }
}

var errorRules = []errorRule{
	{is(usecase.ErrCompetitionFull), mappedError{HTTPStatus: http.StatusConflict, Reason: "soldOut", Status: "RESOURCE_EXHAUSTED", Message: "sold out"}},
	{is(usecase.ErrAssignmentExhausted), mappedError{HTTPStatus: http.StatusServiceUnavailable, Reason: "slotContention", Status: "UNAVAILABLE", RetryAfter: true}},
	{class(usecase.ErrInvalidInput), mappedError{HTTPStatus: http.StatusBadRequest, Reason: "invalidInput", Status: "INVALID_ARGUMENT"}},
	{class(usecase.ErrUnauthorized), mappedError{HTTPStatus: http.StatusUnauthorized, Reason: "unauthorized", Status: "UNAUTHENTICATED"}},
	{class(usecase.ErrForbidden), mappedError{HTTPStatus: http.StatusForbidden, Reason: "forbidden", Status: "PERMISSION_DENIED"}},
	{class(usecase.ErrNotFound), mappedError{HTTPStatus: http.StatusNotFound, Reason: "notFound", Status: "NOT_FOUND"}},
	{class(usecase.ErrConflict), mappedError{HTTPStatus: http.StatusConflict, Reason: "conflict", Status: "ALREADY_EXISTS"}},
	{class(usecase.ErrCapacity), mappedError{HTTPStatus: http.StatusConflict, Reason: "capacityReached", Status: "RESOURCE_EXHAUSTED"}},
	{class(usecase.ErrPaymentRequired), mappedError{HTTPStatus: http.StatusPaymentRequired, Reason: "paymentRequired", Status: "FAILED_PRECONDITION"}},
	{class(usecase.ErrContention), mappedError{HTTPStatus: http.StatusServiceUnavailable, Reason: "contention", Status: "UNAVAILABLE", RetryAfter: true}},
	{class(usecase.ErrDependencyUnavailable), mappedError{HTTPStatus: http.StatusServiceUnavailable, Reason: "dependencyUnavailable", Status: "UNAVAILABLE"}},
}

var internalError = mappedError{
	HTTPStatus: http.StatusInternalServerError,
	Reason:     "internalError",
	Status:     "INTERNAL",
	Message:    "internal server error",
}

func mapError(ctx context.Context, err error) mappedError {
	_, span := startSpan(ctx, "httpapi.mapError")
	defer span.End()

	for _, rule := range errorRules {
		if rule.match(err) {
			return rule.mapped
		}
	}
	return internalError
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	_, span := startSpan(ctx, "httpapi.writeJSON")
	defer span.End()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = sonic.ConfigDefault.NewEncoder(w).Encode(payload)
}

func writeSuccess(ctx context.Context, w http.ResponseWriter, status int, data any) {
	writeJSON(ctx, w, status, envelope{APIVersion: googleAPIVersion, Data: data})
}

// writeError renders err through mapError. Unmapped errors are logged and
// answered with a generic 500 so internals never leak.
func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	mapped := mapError(ctx, err)
	if mapped.HTTPStatus == http.StatusInternalServerError {
		logging.Default().ErrorContext(ctx, "unhandled request error", "error", err)
		writeInternalError(ctx, w)
		return
	}

	if mapped.RetryAfter {
		w.Header().Set("Retry-After", retryAfterSecs)
	}
	message := mapped.Message
	if message == "" {
		message = err.Error()
	}
	writeMapped(ctx, w, mapped, message, err.Error())
}

func writeInternalError(ctx context.Context, w http.ResponseWriter) {
	writeMapped(ctx, w, internalError, internalError.Message, internalError.Message)
}

func writeMapped(ctx context.Context, w http.ResponseWriter, mapped mappedError, message, detail string) {
	writeJSON(ctx, w, mapped.HTTPStatus, envelope{
		APIVersion: googleAPIVersion,
		Error: &errorBody{
			Code:    mapped.HTTPStatus,
			Message: message,
			Status:  mapped.Status,
			Errors:  []errorItem{{Domain: errorDomain, Reason: mapped.Reason, Message: detail}},
		},
	})
}
