package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"mintsniper/internal/domain"
	"mintsniper/internal/observability"
)

// VenueRaydium identifies the Raydium new-pool feed.
const VenueRaydium = "raydium"

// wsolMint is the wrapped SOL mint; new pools pair it against the token of
// interest, so it is never the candidate.
const wsolMint = "So11111111111111111111111111111111111111112"

// RaydiumSource subscribes to a Raydium new-pool stream. The stream requires
// an Authorization header.
type RaydiumSource struct {
	endpoint  string
	authToken string
	backoff   BackoffConfig
	logger    zerolog.Logger
	metrics   *observability.Metrics
}

// NewRaydiumSource creates a Raydium new-pool source.
func NewRaydiumSource(endpoint, authToken string, backoff BackoffConfig, logger zerolog.Logger, metrics *observability.Metrics) *RaydiumSource {
	return &RaydiumSource{
		endpoint:  endpoint,
		authToken: authToken,
		backoff:   backoff,
		logger:    logger.With().Str("component", "feed").Str("venue", VenueRaydium).Logger(),
		metrics:   metrics,
	}
}

// Compile-time interface check.
var _ TokenSource = (*RaydiumSource)(nil)

// Venue returns the venue identifier.
func (s *RaydiumSource) Venue() string {
	return VenueRaydium
}

type raydiumEvent struct {
	Pool *raydiumPool `json:"pool"`
}

type raydiumPool struct {
	Token1MintAddress string `json:"token1MintAddress"`
	Token2MintAddress string `json:"token2MintAddress"`
}

// candidateMint returns the non-WSOL side of the pool, or "".
func (p *raydiumPool) candidateMint() string {
	if p == nil {
		return ""
	}
	switch {
	case p.Token1MintAddress != "" && p.Token1MintAddress != wsolMint:
		return p.Token1MintAddress
	case p.Token2MintAddress != "" && p.Token2MintAddress != wsolMint:
		return p.Token2MintAddress
	}
	return ""
}

// Run connects, subscribes and streams new-pool events until ctx is done.
func (s *RaydiumSource) Run(ctx context.Context, out chan<- domain.TokenSeen) error {
	delay := time.Duration(0)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := s.connectAndStream(ctx, out); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.Warn().Err(err).Msg("stream failed, reconnecting")
			if s.metrics != nil {
				s.metrics.FeedReconnects.WithLabelValues(VenueRaydium).Inc()
			}
		}

		delay = s.backoff.next(delay)
		if err := sleep(ctx, delay); err != nil {
			return err
		}
	}
}

func (s *RaydiumSource) connectAndStream(ctx context.Context, out chan<- domain.TokenSeen) error {
	header := http.Header{}
	if s.authToken != "" {
		header.Set("Authorization", s.authToken)
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, s.endpoint, header)
	if err != nil {
		return fmt.Errorf("dial %s: %w", s.endpoint, err)
	}
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	sub := map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "subscribe",
		"params":  []any{"GetNewRaydiumPoolsStream", map[string]bool{"includeCPMM": true}},
	}
	if err := conn.WriteJSON(sub); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	s.logger.Info().Msg("connected")

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}

		var event raydiumEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			s.logger.Debug().Err(err).Msg("malformed event dropped")
			if s.metrics != nil {
				s.metrics.FeedEventsMalformed.WithLabelValues(VenueRaydium).Inc()
			}
			continue
		}

		mint := event.Pool.candidateMint()
		if mint == "" {
			continue
		}

		seen := domain.TokenSeen{
			Address:    mint,
			Venue:      VenueRaydium,
			ObservedAt: time.Now().UnixMilli(),
		}
		select {
		case out <- seen:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
