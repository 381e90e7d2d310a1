package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"mintsniper/internal/domain"
	"mintsniper/internal/observability"
)

// VenuePumpStream identifies the pump-stream launch feed.
const VenuePumpStream = "pumpstream"

// PumpStreamSource subscribes to the pump-stream new-token WebSocket feed.
type PumpStreamSource struct {
	endpoint string
	backoff  BackoffConfig
	logger   zerolog.Logger
	metrics  *observability.Metrics
}

// NewPumpStreamSource creates a pump-stream source.
func NewPumpStreamSource(endpoint string, backoff BackoffConfig, logger zerolog.Logger, metrics *observability.Metrics) *PumpStreamSource {
	return &PumpStreamSource{
		endpoint: endpoint,
		backoff:  backoff,
		logger:   logger.With().Str("component", "feed").Str("venue", VenuePumpStream).Logger(),
		metrics:  metrics,
	}
}

// Compile-time interface check.
var _ TokenSource = (*PumpStreamSource)(nil)

// Venue returns the venue identifier.
func (s *PumpStreamSource) Venue() string {
	return VenuePumpStream
}

// pumpEvent is the venue wire format. Only create events carry new mints.
type pumpEvent struct {
	TxType string `json:"txType"`
	Mint   string `json:"mint"`
}

// Run connects, subscribes and streams create events until ctx is done.
// Disconnects trigger reconnect with exponential backoff capped at the
// configured maximum; the delay resets after a successful connect.
func (s *PumpStreamSource) Run(ctx context.Context, out chan<- domain.TokenSeen) error {
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
				s.metrics.FeedReconnects.WithLabelValues(VenuePumpStream).Inc()
			}
		}

		delay = s.backoff.next(delay)
		if err := sleep(ctx, delay); err != nil {
			return err
		}
	}
}

func (s *PumpStreamSource) connectAndStream(ctx context.Context, out chan<- domain.TokenSeen) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, s.endpoint, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", s.endpoint, err)
	}
	defer conn.Close()

	// Close the connection when ctx is cancelled so ReadMessage unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	sub := map[string]string{"method": "subscribeNewToken"}
	if err := conn.WriteJSON(sub); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	s.logger.Info().Msg("connected")

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}

		var event pumpEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			s.logger.Debug().Err(err).Msg("malformed event dropped")
			if s.metrics != nil {
				s.metrics.FeedEventsMalformed.WithLabelValues(VenuePumpStream).Inc()
			}
			continue
		}
		if event.TxType != "create" || event.Mint == "" {
			continue
		}

		seen := domain.TokenSeen{
			Address:    event.Mint,
			Venue:      VenuePumpStream,
			ObservedAt: time.Now().UnixMilli(),
		}
		select {
		case out <- seen:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
