package httpapi

import (
	"bytes"
	"context"
	"io"
	"net/http"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/riskibarqy/peg-league/internal/domain/user"
	"github.com/riskibarqy/peg-league/internal/platform/logging"
	"github.com/riskibarqy/peg-league/internal/usecase"
)

const maxRequestBody = 1 << 20

var strictJSON = sonic.Config{DisallowUnknownFields: true}.Froze()

type Handler struct {
	competitionService *usecase.CompetitionService
	admissionService   *usecase.AdmissionService
	paymentService     *usecase.PaymentService
	teamService        *usecase.TeamService
	competitorService  *usecase.CompetitorService
	leaderboardService *usecase.LeaderboardService
	logger             *logging.Logger
	validator          *validator.Validate
}

func NewHandler(
	competitionService *usecase.CompetitionService,
	admissionService *usecase.AdmissionService,
	paymentService *usecase.PaymentService,
	teamService *usecase.TeamService,
	competitorService *usecase.CompetitorService,
	leaderboardService *usecase.LeaderboardService,
	logger *logging.Logger,
) *Handler {
	if logger == nil {
		logger = logging.Default()
	}

	return &Handler{
		competitionService: competitionService,
		admissionService:   admissionService,
		paymentService:     paymentService,
		teamService:        teamService,
		competitorService:  competitorService,
		leaderboardService: leaderboardService,
		logger:             logger.Named("httpapi"),
		validator:          validator.New(),
	}
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	ctx, span := startSpan(ctx, "httpapi.Handler.validateRequest")
	defer span.End()

	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return crerr.Mark(crerr.Wrap(err, "validation failed"), usecase.ErrInvalidInput)
	}

	return nil
}

// decodeRequest reads a JSON body into dst and validates it. An empty body
// is accepted when allowEmpty is set and leaves dst at its zero value.
func (h *Handler) decodeRequest(ctx context.Context, r *http.Request, dst any, allowEmpty bool) error {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		return crerr.Mark(crerr.Wrap(err, "read request body"), usecase.ErrInvalidInput)
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		if !allowEmpty {
			return crerr.Mark(crerr.New("request body is required"), usecase.ErrInvalidInput)
		}
	} else if err := strictJSON.Unmarshal(raw, dst); err != nil {
		return crerr.Mark(crerr.Wrap(err, "invalid JSON payload"), usecase.ErrInvalidInput)
	}

	return h.validateRequest(ctx, dst)
}

func requirePrincipal(ctx context.Context) (user.Principal, error) {
	principal, ok := principalFromContext(ctx)
	if !ok {
		return user.Principal{}, unauthorized("principal is missing from request context")
	}
	return principal, nil
}
