package anubis

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"net/http"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/peg-league/internal/domain/user"
	"github.com/riskibarqy/peg-league/internal/platform/logging"
	"github.com/riskibarqy/peg-league/internal/platform/resilience"
	"github.com/riskibarqy/peg-league/internal/usecase"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	defaultTimeout       = 5 * time.Second
	defaultCacheTTL      = 30 * time.Second
	defaultCacheEntries  = 10000
	maxIntrospectionBody = 1 << 20
)

var errAnubisTransient = crerr.New("anubis transient failure")

type ClientConfig struct {
	BaseURL        string
	IntrospectPath string
	AdminKey       string
	Timeout        time.Duration
	CacheTTL       time.Duration
	CacheEntries   int
	CircuitBreaker resilience.CircuitBreakerConfig
	Logger         *logging.Logger
	// HTTPClient overrides the instrumented default, mainly for tests.
	HTTPClient *http.Client
}

// Client verifies bearer tokens against the account service introspection
// endpoint. Active principals are cached by token hash.
type Client struct {
	httpClient    *http.Client
	introspectURL string
	adminKey      string
	cache         *principalCache
	inflight      resilience.SingleFlight[verifiedToken]
	breaker       *resilience.CircuitBreaker
	logger        *logging.Logger
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}

	ttl := cfg.CacheTTL
	if ttl == 0 {
		ttl = defaultCacheTTL
	}
	entries := cfg.CacheEntries
	if entries <= 0 {
		entries = defaultCacheEntries
	}
	named := logger.Named("anubis")

	return &Client{
		httpClient:    httpClient,
		introspectURL: buildURL(cfg.BaseURL, cfg.IntrospectPath),
		adminKey:      strings.TrimSpace(cfg.AdminKey),
		cache:         newPrincipalCache(ttl, entries),
		breaker:       resilience.NewCircuitBreaker("anubis", cfg.CircuitBreaker, logBreakerChange(named)),
		logger:        named,
	}
}

func (c *Client) VerifyAccessToken(ctx context.Context, token string) (user.Principal, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return user.Principal{}, crerr.Mark(crerr.New("token is required"), usecase.ErrUnauthorized)
	}

	key := hashToken(token)
	if principal, ok := c.cache.Get(key); ok {
		return principal, nil
	}

	verified, err, _ := c.inflight.Do(key, func() (verifiedToken, error) {
		return c.introspect(ctx, token)
	})
	if err != nil {
		return user.Principal{}, err
	}

	c.cache.Set(key, verified.principal, verified.expiresAt)
	return verified.principal, nil
}

// verifiedToken is an active introspection result. expiresAt is zero when
// the provider did not report an expiry.
type verifiedToken struct {
	principal user.Principal
	expiresAt time.Time
}

func (c *Client) introspect(ctx context.Context, token string) (verifiedToken, error) {
	var verified verifiedToken
	run := func() error {
		var err error
		verified, err = c.doIntrospect(ctx, token)
		return err
	}

	err := c.breaker.Execute(run, isCircuitFailure)
	switch {
	case err == nil:
		return verified, nil
	case stderrors.Is(err, resilience.ErrCircuitOpen):
		c.logger.WarnContext(ctx, "anubis circuit breaker rejected request", "state", string(c.breaker.State()))
		return verifiedToken{}, crerr.Mark(crerr.Wrap(err, "introspect token"), usecase.ErrDependencyUnavailable)
	case crerr.Is(err, errAnubisTransient):
		return verifiedToken{}, crerr.Mark(crerr.Wrap(err, "introspect token"), usecase.ErrDependencyUnavailable)
	default:
		return verifiedToken{}, err
	}
}

func (c *Client) doIntrospect(ctx context.Context, token string) (verifiedToken, error) {
	encoded, err := sonic.Marshal(introspectRequest{Token: token})
	if err != nil {
		return verifiedToken{}, crerr.Wrap(err, "marshal introspect request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.introspectURL, bytes.NewReader(encoded))
	if err != nil {
		return verifiedToken{}, crerr.Wrap(err, "create introspect request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.adminKey != "" {
		req.Header.Set("x-admin-key", c.adminKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return verifiedToken{}, crerr.Mark(crerr.Wrap(err, "request introspection to anubis"), errAnubisTransient)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxIntrospectionBody))
	if err != nil {
		return verifiedToken{}, crerr.Mark(crerr.Wrap(err, "read introspect response"), errAnubisTransient)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return verifiedToken{}, crerr.Mark(crerr.New("introspection denied"), usecase.ErrUnauthorized)
	case resp.StatusCode == http.StatusForbidden:
		// The admin key was refused; callers cannot fix that.
		c.logger.ErrorContext(ctx, "anubis rejected admin key", "status_code", resp.StatusCode)
		return verifiedToken{}, crerr.Mark(crerr.New("anubis refused introspection credentials"), usecase.ErrDependencyUnavailable)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		c.logger.WarnContext(ctx, "anubis introspection unavailable", "status_code", resp.StatusCode)
		return verifiedToken{}, crerr.Mark(crerr.Newf("anubis introspection status=%d", resp.StatusCode), errAnubisTransient)
	case resp.StatusCode != http.StatusOK:
		c.logger.WarnContext(ctx, "anubis introspection non-200", "status_code", resp.StatusCode)
		return verifiedToken{}, crerr.Mark(crerr.Newf("anubis introspection status=%d", resp.StatusCode), usecase.ErrDependencyUnavailable)
	}

	var decoded introspectResponse
	if err := sonic.Unmarshal(body, &decoded); err != nil {
		return verifiedToken{}, crerr.Mark(crerr.Wrap(err, "unmarshal introspect response"), usecase.ErrDependencyUnavailable)
	}
	if !decoded.Active {
		return verifiedToken{}, crerr.Mark(crerr.New("inactive token"), usecase.ErrUnauthorized)
	}
	if strings.TrimSpace(decoded.UserID) == "" {
		return verifiedToken{}, crerr.Mark(crerr.New("invalid introspect response: user_id is empty"), usecase.ErrDependencyUnavailable)
	}

	verified := verifiedToken{
		principal: user.Principal{UserID: decoded.UserID, Email: decoded.Email},
	}
	if decoded.ExpiresAt > 0 {
		verified.expiresAt = time.Unix(decoded.ExpiresAt, 0)
	}
	return verified, nil
}

type introspectRequest struct {
	Token string `json:"token"`
}

type introspectResponse struct {
	Active bool   `json:"active"`
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	// ExpiresAt is the token expiry in unix seconds.
	ExpiresAt int64 `json:"exp"`
}
