// Package buy holds the trading-gateway boundary. The core emits buy
// triggers through the Gateway interface and never signs or submits
// transactions itself.
package buy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"mintsniper/internal/domain"
)

// Gateway delivers one buy trigger to the external trading service. A
// returned error means delivery was not confirmed; the caller reports it to
// the task owner and does not retry.
type Gateway interface {
	Buy(ctx context.Context, trigger domain.BuyTrigger) error
}

// buyRequest is the gateway wire format.
type buyRequest struct {
	Token           string  `json:"token"`
	AmountSOL       float64 `json:"amountSol"`
	SlippagePercent int     `json:"slippagePercent"`
	PriorityFeeSOL  float64 `json:"priorityFeeSol"`
	Wallet          string  `json:"wallet"`
	TaskID          string  `json:"taskId"`
	TriggeredAt     int64   `json:"triggeredAt"`
}

// HTTPGateway posts buy triggers to an HTTP trading endpoint.
type HTTPGateway struct {
	endpoint  string
	authToken string
	client    *http.Client
}

// HTTPGatewayConfig configures an HTTPGateway.
type HTTPGatewayConfig struct {
	Endpoint  string
	AuthToken string
	// Timeout bounds one delivery attempt. Defaults to 5s.
	Timeout time.Duration
}

// NewHTTPGateway creates an HTTP trading gateway client.
func NewHTTPGateway(cfg HTTPGatewayConfig) *HTTPGateway {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPGateway{
		endpoint:  cfg.Endpoint,
		authToken: cfg.AuthToken,
		client:    &http.Client{Timeout: timeout},
	}
}

// Compile-time interface check.
var _ Gateway = (*HTTPGateway)(nil)

// Buy posts one trigger. Any non-2xx response is a delivery failure.
func (g *HTTPGateway) Buy(ctx context.Context, trigger domain.BuyTrigger) error {
	body, err := json.Marshal(buyRequest{
		Token:           trigger.Token,
		AmountSOL:       trigger.BuyAmountSOL,
		SlippagePercent: trigger.SlippagePercent,
		PriorityFeeSOL:  trigger.PriorityFeeSOL,
		Wallet:          trigger.WalletAddress,
		TaskID:          trigger.TaskID,
		TriggeredAt:     trigger.TriggeredAt,
	})
	if err != nil {
		return fmt.Errorf("marshal buy request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build buy request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.authToken != "" {
		req.Header.Set("Authorization", g.authToken)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver buy trigger: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("buy gateway status %d: %s", resp.StatusCode, bytes.TrimSpace(detail))
	}
	return nil
}

// LogGateway records triggers without delivering them. Used when no trading
// endpoint is configured (dry-run mode).
type LogGateway struct {
	logger zerolog.Logger
}

// NewLogGateway creates a dry-run gateway.
func NewLogGateway(logger zerolog.Logger) *LogGateway {
	return &LogGateway{logger: logger.With().Str("component", "buy").Logger()}
}

// Compile-time interface check.
var _ Gateway = (*LogGateway)(nil)

// Buy logs the trigger and reports success.
func (g *LogGateway) Buy(_ context.Context, trigger domain.BuyTrigger) error {
	g.logger.Info().
		Str("token", trigger.Token).
		Str("task_id", trigger.TaskID).
		Float64("amount_sol", trigger.BuyAmountSOL).
		Int("slippage_percent", trigger.SlippagePercent).
		Float64("priority_fee_sol", trigger.PriorityFeeSOL).
		Str("wallet", trigger.WalletLabel).
		Msg("dry-run buy trigger")
	return nil
}
