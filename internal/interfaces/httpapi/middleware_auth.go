package httpapi

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"io"
	"net/http"
	"strings"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/peg-league/internal/domain/user"
	"github.com/riskibarqy/peg-league/internal/usecase"
)

const (
	staffTokenHeader = "X-Staff-Token"
	signatureHeader  = "X-Signature"
	maxWebhookBody   = 64 << 10
)

// TokenVerifier verifies bearer tokens against the account service.
type TokenVerifier interface {
	VerifyAccessToken(ctx context.Context, token string) (user.Principal, error)
}

func unauthorized(msg string) error {
	return crerr.Mark(crerr.New(msg), usecase.ErrUnauthorized)
}

func notConfigured(what string) error {
	return crerr.Mark(crerr.Newf("%s is not configured", what), usecase.ErrDependencyUnavailable)
}

// bearerToken extracts the token from an "Authorization: Bearer <token>"
// header. The scheme is case-insensitive.
func bearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", unauthorized("missing Authorization header")
	}
	scheme, token, ok := strings.Cut(header, " ")
	token = strings.TrimSpace(token)
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", unauthorized("invalid Authorization header format")
	}
	return token, nil
}

func RequireAuth(verifier TokenVerifier, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := startSpan(r.Context(), "httpapi.RequireAuth")
		defer span.End()

		token, err := bearerToken(r.Header.Get("Authorization"))
		if err != nil {
			writeError(ctx, w, err)
			return
		}
		principal, err := verifier.VerifyAccessToken(ctx, token)
		if err != nil {
			writeError(ctx, w, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(withPrincipal(ctx, principal)))
	})
}

// RequireStaffToken guards weigh-in and competition setup routes with a
// shared token. An empty token rejects every request.
func RequireStaffToken(token string, next http.Handler) http.Handler {
	expected := []byte(strings.TrimSpace(token))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := startSpan(r.Context(), "httpapi.RequireStaffToken")
		defer span.End()

		if len(expected) == 0 {
			writeError(ctx, w, notConfigured("staff token"))
			return
		}
		provided := []byte(strings.TrimSpace(r.Header.Get(staffTokenHeader)))
		if subtle.ConstantTimeCompare(provided, expected) != 1 {
			writeError(ctx, w, unauthorized("invalid staff token"))
			return
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireWebhookSignature checks X-Signature, the hex HMAC-SHA256 of the raw
// body under the shared webhook secret, and hands the body on unchanged.
func RequireWebhookSignature(secret string, next http.Handler) http.Handler {
	key := []byte(strings.TrimSpace(secret))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := startSpan(r.Context(), "httpapi.RequireWebhookSignature")
		defer span.End()

		if len(key) == 0 {
			writeError(ctx, w, notConfigured("webhook secret"))
			return
		}

		raw, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			writeError(ctx, w, crerr.Mark(crerr.Wrap(err, "read webhook body"), usecase.ErrInvalidInput))
			return
		}
		if !validSignature(key, raw, r.Header.Get(signatureHeader)) {
			writeError(ctx, w, unauthorized("invalid webhook signature"))
			return
		}

		r.Body = io.NopCloser(bytes.NewReader(raw))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func validSignature(key, body []byte, header string) bool {
	provided, err := hex.DecodeString(strings.TrimSpace(header))
	if err != nil || len(provided) == 0 {
		return false
	}
	return hmac.Equal(provided, signBody(key, body))
}

func signBody(key, body []byte) []byte {
	mac := hmac.New(sha256.New, key)
	_, _ = mac.Write(body)
	return mac.Sum(nil)
}
