package stripe

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/peg-league/internal/domain/payment"
	"github.com/riskibarqy/peg-league/internal/platform/logging"
	"github.com/riskibarqy/peg-league/internal/platform/resilience"
	"github.com/valyala/fasthttp"
)

const (
	defaultBaseURL = "https://api.stripe.com"
	defaultTimeout = 10 * time.Second
	maxBodySize    = 1 << 20
)

var errGatewayTransient = crerr.New("payment gateway transient failure")

type ClientConfig struct {
	BaseURL        string
	SecretKey      string
	Timeout        time.Duration
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
	// HTTPClient overrides the pooled fasthttp client, mainly for tests.
	HTTPClient *fasthttp.Client
}

// Client talks to the payment intents API.
type Client struct {
	http      *fasthttp.Client
	baseURL   string
	secretKey string
	timeout   time.Duration
	logger    *logging.Logger
	breaker   *resilience.CircuitBreaker
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &fasthttp.Client{
			Name:                "peg-league",
			ReadTimeout:         timeout,
			WriteTimeout:        timeout,
			MaxIdleConnDuration: time.Minute,
			MaxResponseBodySize: maxBodySize,
		}
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	named := logger.Named("payment_gateway")

	return &Client{
		http:      httpClient,
		baseURL:   baseURL,
		secretKey: strings.TrimSpace(cfg.SecretKey),
		timeout:   timeout,
		logger:    named,
		breaker: resilience.NewCircuitBreaker("payment_gateway", cfg.CircuitBreaker, func(name string, from, to resilience.CircuitState) {
			named.Warn("circuit breaker state changed", "breaker", name, "from", string(from), "to", string(to))
		}),
	}
}

func (c *Client) CreatePaymentIntent(ctx context.Context, req payment.IntentRequest) (payment.Intent, error) {
	if req.AmountMinor <= 0 {
		return payment.Intent{}, fmt.Errorf("intent amount must be positive")
	}

	form := url.Values{}
	form.Set("amount", strconv.FormatInt(req.AmountMinor, 10))
	form.Set("currency", strings.ToLower(req.Currency))
	form.Set("description", req.Description)
	form.Set("metadata[competition_id]", req.CompetitionID)
	form.Set("metadata[competitor_id]", req.CompetitorID)
	if req.TeamID != "" {
		form.Set("metadata[team_id]", req.TeamID)
	}
	form.Set("automatic_payment_methods[enabled]", "true")

	var decoded intentResponse
	if err := c.call(ctx, fasthttp.MethodPost, "/v1/payment_intents", form, &decoded); err != nil {
		return payment.Intent{}, fmt.Errorf("create payment intent: %w", err)
	}

	return payment.Intent{
		Ref:          decoded.ID,
		ClientSecret: decoded.ClientSecret,
		Status:       mapStatus(decoded.Status),
	}, nil
}

func (c *Client) IntentStatus(ctx context.Context, ref string) (payment.Status, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", fmt.Errorf("intent ref is required")
	}

	var decoded intentResponse
	if err := c.call(ctx, fasthttp.MethodGet, "/v1/payment_intents/"+url.PathEscape(ref), nil, &decoded); err != nil {
		return "", fmt.Errorf("get payment intent: %w", err)
	}
	return mapStatus(decoded.Status), nil
}

func (c *Client) call(ctx context.Context, method, path string, form url.Values, target any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := c.breaker.Execute(func() error {
		return c.do(ctx, method, path, form, target)
	}, isTransient)
	if stderrors.Is(err, resilience.ErrCircuitOpen) {
		c.logger.WarnContext(ctx, "payment gateway circuit breaker rejected request", "state", string(c.breaker.State()))
	}
	return err
}

func (c *Client) do(ctx context.Context, method, path string, form url.Values, target any) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.baseURL + path)
	req.Header.SetMethod(method)
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Accept", "application/json")
	if form != nil {
		req.Header.SetContentType("application/x-www-form-urlencoded")
		req.SetBodyString(form.Encode())
	}

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.http.DoDeadline(req, resp, deadline); err != nil {
		return crerr.Mark(crerr.Wrapf(err, "send %s %s", method, path), errGatewayTransient)
	}

	status := resp.StatusCode()
	body := resp.Body()
	if status < 200 || status >= 300 {
		var apiErr errorResponse
		_ = sonic.Unmarshal(body, &apiErr)
		err := crerr.Newf("gateway status=%d type=%s message=%s", status, apiErr.Error.Type, apiErr.Error.Message)
		if isRetryableStatus(status) {
			return crerr.Mark(err, errGatewayTransient)
		}
		return err
	}

	if err := sonic.Unmarshal(body, target); err != nil {
		return fmt.Errorf("decode gateway response: %w", err)
	}
	return nil
}

// mapStatus folds the provider's intent lifecycle onto ours. Anything not
// final is still pending from the booking side.
func mapStatus(raw string) payment.Status {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "succeeded":
		return payment.StatusSucceeded
	case "canceled":
		return payment.StatusFailed
	default:
		return payment.StatusPending
	}
}

func isTransient(err error) bool {
	return crerr.Is(err, errGatewayTransient)
}

func isRetryableStatus(status int) bool {
	return status == fasthttp.StatusTooManyRequests || status >= 500
}

type intentResponse struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Status       string `json:"status"`
}

type errorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}
