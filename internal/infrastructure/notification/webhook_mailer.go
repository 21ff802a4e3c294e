package notification

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/peg-league/internal/domain/notification"
	"github.com/riskibarqy/peg-league/internal/platform/logging"
	"github.com/valyala/bytebufferpool"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var ErrNoRecipient = crerr.New("competitor has no email on file")

type WebhookMailerConfig struct {
	Endpoint string
	Token    string
	From     string
	Timeout  time.Duration
}

// WebhookMailer posts a rendered confirmation to a transactional mail
// relay as JSON.
type WebhookMailer struct {
	client   *http.Client
	endpoint string
	token    string
	from     string
	logger   *logging.Logger
}

func NewWebhookMailer(cfg WebhookMailerConfig, logger *logging.Logger) *WebhookMailer {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = logging.Default()
	}

	from := strings.TrimSpace(cfg.From)
	if from == "" {
		from = "bookings@peg-league.local"
	}

	return &WebhookMailer{
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		endpoint: strings.TrimSpace(cfg.Endpoint),
		token:    strings.TrimSpace(cfg.Token),
		from:     from,
		logger:   logger.Named("mailer"),
	}
}

func (m *WebhookMailer) SendBookingConfirmation(ctx context.Context, msg notification.Confirmation) error {
	if strings.TrimSpace(msg.Email) == "" {
		return ErrNoRecipient
	}
	if m.endpoint == "" {
		return crerr.New("mail endpoint is not configured")
	}

	body, err := sonic.Marshal(mailRequest{
		From:    m.from,
		To:      msg.Email,
		Subject: "Booking confirmed: " + msg.CompetitionName,
		Text:    renderConfirmation(msg),
		Tags: map[string]string{
			"competition_id": msg.CompetitionID,
			"competitor_id":  msg.CompetitorID,
		},
	})
	if err != nil {
		return crerr.Wrap(err, "marshal mail request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(body))
	if err != nil {
		return crerr.Wrap(err, "create mail request")
	}
	req.Header.Set("Content-Type", "application/json")
	if m.token != "" {
		req.Header.Set("Authorization", "Bearer "+m.token)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return crerr.Wrap(err, "send mail request")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return crerr.Newf("mail relay status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	m.logger.DebugContext(ctx, "booking confirmation mailed",
		"competition_id", msg.CompetitionID,
		"competitor_id", msg.CompetitorID,
	)
	return nil
}

// renderConfirmation builds the plain-text mail body.
func renderConfirmation(msg notification.Confirmation) string {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	line := func(parts ...string) {
		for _, p := range parts {
			_, _ = buf.WriteString(p)
		}
		_ = buf.WriteByte('\n')
	}

	name := strings.TrimSpace(msg.CompetitorName)
	if name == "" {
		name = "angler"
	}
	line("Hi ", name, ",")
	line()
	line("You are booked into ", msg.CompetitionName, ".")
	if msg.Venue != "" {
		line("Venue: ", msg.Venue)
	}
	if !msg.StartsAt.IsZero() {
		line("Draw: ", msg.StartsAt.UTC().Format("Mon 2 Jan 2006 15:04 MST"))
	}
	if msg.SlotNumber > 0 {
		line("Peg: ", strconv.Itoa(msg.SlotNumber))
	}
	if msg.TeamName != "" {
		line("Team: ", msg.TeamName)
	}
	if msg.FeeMinor > 0 {
		line("Fee: ", formatMinor(msg.FeeMinor), " ", strings.ToUpper(msg.Currency))
	}
	line()
	line("Tight lines.")

	return buf.String()
}

// formatMinor renders minor units as major with two decimals.
func formatMinor(v int64) string {
	frac := strconv.FormatInt(v%100, 10)
	if len(frac) == 1 {
		frac = "0" + frac
	}
	return strconv.FormatInt(v/100, 10) + "." + frac
}

type mailRequest struct {
	From    string            `json:"from"`
	To      string            `json:"to"`
	Subject string            `json:"subject"`
	Text    string            `json:"text"`
	Tags    map[string]string `json:"tags,omitempty"`
}
